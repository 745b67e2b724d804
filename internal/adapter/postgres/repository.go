package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/couchcryptid/crisis-intel-service/internal/domain"
	"github.com/couchcryptid/crisis-intel-service/internal/store"
)

const eventColumns = `event_id, event_type, location, coordinates, description,
    origin_time, source, status, severity, risk_score, reasoning,
    error_message, retry_count, created_at, assessed_at, error_at`

// Repository implements store.Gateway over a pgx pool.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wraps a connected pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Ping reports store reachability, used by the readiness probe.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *Repository) Get(ctx context.Context, identity string) (domain.Event, error) {
	row := r.pool.QueryRow(ctx, `
        SELECT `+eventColumns+`
        FROM crisis_events
        WHERE event_id = $1
    `, identity)

	event, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Event{}, store.ErrNotFound
	}
	if err != nil {
		return domain.Event{}, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

// UpsertIfNotAssessed performs the conditional write in a single statement:
// the ON CONFLICT update is guarded on status, so an ASSESSED document is
// left untouched and the command reports zero rows affected.
func (r *Repository) UpsertIfNotAssessed(ctx context.Context, event domain.Event) (string, bool, error) {
	cmd, err := r.pool.Exec(ctx, `
        INSERT INTO crisis_events
            (event_id, event_type, location, coordinates, description, origin_time, source, status)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, 'NEW')
        ON CONFLICT (event_id) DO UPDATE SET
            event_type  = EXCLUDED.event_type,
            location    = EXCLUDED.location,
            coordinates = EXCLUDED.coordinates,
            description = EXCLUDED.description,
            origin_time = EXCLUDED.origin_time,
            source      = EXCLUDED.source
        WHERE crisis_events.status <> 'ASSESSED'
    `, event.Identity, event.Type, event.Location, coordsParam(event.Coordinates),
		event.Description, timeParam(event.OriginTime), event.Source)
	if err != nil {
		return "", false, fmt.Errorf("upsert event: %w", err)
	}

	return event.Identity, cmd.RowsAffected() > 0, nil
}

// UpdateStatus writes one status transition as a single document update.
// Assessment fields always reflect the update: a nil Risk clears them, so
// requeueing to NEW drops the stale assessment. assessed_at and error_at
// are server-assigned on their matching transitions.
func (r *Repository) UpdateStatus(ctx context.Context, identity string, update store.StatusUpdate) error {
	var severity, reasoning *string
	var score *int
	if update.Risk != nil {
		severity = &update.Risk.Severity
		score = &update.Risk.RiskScore
		reasoning = &update.Risk.Reasoning
	}
	var errMsg *string
	if update.ErrorMessage != "" {
		errMsg = &update.ErrorMessage
	}

	cmd, err := r.pool.Exec(ctx, `
        UPDATE crisis_events SET
            status        = $2,
            severity      = $3,
            risk_score    = $4,
            reasoning     = $5,
            error_message = $6,
            retry_count   = $7,
            assessed_at   = CASE WHEN $2 = 'ASSESSED' THEN NOW() ELSE NULL END,
            error_at      = CASE WHEN $2 = 'ERROR' THEN NOW() ELSE NULL END
        WHERE event_id = $1
    `, identity, string(update.Status), severity, score, reasoning, errMsg, update.RetryCount)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *Repository) QueryByStatus(ctx context.Context, status domain.Status, limit int) ([]domain.Event, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT `+eventColumns+`
        FROM crisis_events
        WHERE status = $1
        ORDER BY created_at ASC
        LIMIT $2
    `, string(status), clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query by status: %w", err)
	}
	return collectEvents(rows)
}

func (r *Repository) QueryAssessedWithMinScore(ctx context.Context, minScore, limit int) ([]domain.Event, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT `+eventColumns+`
        FROM crisis_events
        WHERE status = 'ASSESSED' AND risk_score >= $1
        ORDER BY risk_score DESC
        LIMIT $2
    `, minScore, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query assessed events: %w", err)
	}
	return collectEvents(rows)
}

func (r *Repository) QueryEmptyAssessments(ctx context.Context, limit int) ([]domain.Event, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT `+eventColumns+`
        FROM crisis_events
        WHERE status = 'ASSESSED' AND severity = 'Unknown' AND risk_score = 0
        ORDER BY assessed_at ASC
        LIMIT $1
    `, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query empty assessments: %w", err)
	}
	return collectEvents(rows)
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 100
	}
	return limit
}

func coordsParam(coords []float64) any {
	if len(coords) != 2 {
		return nil
	}
	return coords
}

func timeParam(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func collectEvents(rows pgx.Rows) ([]domain.Event, error) {
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func scanEvent(row pgx.Row) (domain.Event, error) {
	var event domain.Event
	var coords []float64
	var originTime, assessedAt, errorAt *time.Time
	var severity, reasoning, errMsg *string
	var score *int
	var status string

	err := row.Scan(
		&event.Identity,
		&event.Type,
		&event.Location,
		&coords,
		&event.Description,
		&originTime,
		&event.Source,
		&status,
		&severity,
		&score,
		&reasoning,
		&errMsg,
		&event.RetryCount,
		&event.CreatedAt,
		&assessedAt,
		&errorAt,
	)
	if err != nil {
		return domain.Event{}, err
	}

	event.Status = domain.Status(status)
	event.Coordinates = coords
	if originTime != nil {
		event.OriginTime = *originTime
	}
	if assessedAt != nil {
		event.AssessedAt = *assessedAt
	}
	if errorAt != nil {
		event.ErrorAt = *errorAt
	}
	if errMsg != nil {
		event.ErrorMessage = *errMsg
	}
	if severity != nil && score != nil {
		risk := domain.RiskAssessment{Severity: *severity, RiskScore: *score}
		if reasoning != nil {
			risk.Reasoning = *reasoning
		}
		event.Risk = &risk
	}

	return event, nil
}
