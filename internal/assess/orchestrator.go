// Package assess drives NEW events through the classification oracle with
// bounded retries and writes the terminal status transition.
package assess

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/crisis-intel-service/internal/domain"
	"github.com/couchcryptid/crisis-intel-service/internal/observability"
	"github.com/couchcryptid/crisis-intel-service/internal/store"
)

const (
	maxAttempts = 3
	retryDelay  = 2 * time.Second

	// errExcerptLimit caps how much of a failing oracle payload is
	// preserved in the event's error_message.
	errExcerptLimit = 500
)

// EventStore is the slice of the store gateway the orchestrator needs.
type EventStore interface {
	Get(ctx context.Context, identity string) (domain.Event, error)
	QueryByStatus(ctx context.Context, status domain.Status, limit int) ([]domain.Event, error)
	QueryEmptyAssessments(ctx context.Context, limit int) ([]domain.Event, error)
	UpdateStatus(ctx context.Context, identity string, update store.StatusUpdate) error
}

// Publisher fans a terminal assessment out to downstream consumers.
// Publishing is best-effort: a failure is logged, never propagated into
// the event's status.
type Publisher interface {
	PublishAssessed(ctx context.Context, event domain.Event) error
}

// Orchestrator processes one classification cycle at a time. Events within
// a cycle are handled sequentially; a retry wait blocks only the current
// event's progress.
type Orchestrator struct {
	store      EventStore
	classifier domain.Classifier
	publisher  Publisher // may be nil
	logger     *slog.Logger
	metrics    *observability.Metrics
	clock      clockwork.Clock
	queryLimit int
}

// New creates an Orchestrator. publisher may be nil to disable fanout.
func New(st EventStore, classifier domain.Classifier, publisher Publisher, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock, queryLimit int) *Orchestrator {
	if queryLimit <= 0 {
		queryLimit = 50
	}
	return &Orchestrator{
		store:      st,
		classifier: classifier,
		publisher:  publisher,
		logger:     logger,
		metrics:    metrics,
		clock:      clock,
		queryLimit: queryLimit,
	}
}

// ProcessCycle classifies every NEW event visible at the start of the
// cycle. Per-event failures are recorded on the event itself and never
// abort the cycle; only a store query failure is surfaced to the caller.
func (o *Orchestrator) ProcessCycle(ctx context.Context) error {
	events, err := o.store.QueryByStatus(ctx, domain.StatusNew, o.queryLimit)
	if err != nil {
		return fmt.Errorf("query new events: %w", err)
	}
	if len(events) == 0 {
		return nil
	}

	o.logger.Info("processing new events", "count", len(events))
	for _, event := range events {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := o.ProcessEvent(ctx, event); err != nil {
			o.logger.Error("process event failed", "event_id", event.Identity, "error", err)
		}
	}
	return nil
}

// ProcessEvent runs the bounded retry loop for one event and writes its
// terminal transition:
//
//   - a parseable, non-empty assessment transitions to ASSESSED;
//   - a semantically empty assessment is retried, but once attempts are
//     exhausted it still transitions to ASSESSED carrying the empty result
//     ("don't know" is a valid answer, not a failure);
//   - parse failures and transport errors are retried, then transition to
//     ERROR with the failure preserved.
func (o *Orchestrator) ProcessEvent(ctx context.Context, event domain.Event) error {
	req := domain.ClassificationRequest{
		Description: event.Description,
		EventType:   event.Type,
		Location:    event.Location,
		Coordinates: event.Coordinates,
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			o.metrics.ClassifierRetries.Inc()
			if !o.wait(ctx, retryDelay) {
				return ctx.Err()
			}
		}

		start := time.Now()
		risk, err := o.classifier.Classify(ctx, req)
		o.metrics.ClassifierDuration.Observe(time.Since(start).Seconds())

		if err != nil {
			lastErr = err
			o.logger.Warn("classification attempt failed",
				"event_id", event.Identity, "attempt", attempt, "error", err)
			continue
		}

		if risk.Empty() && attempt < maxAttempts {
			o.logger.Warn("empty classification, retrying",
				"event_id", event.Identity, "attempt", attempt)
			continue
		}

		return o.markAssessed(ctx, event, risk, attempt-1)
	}

	return o.markFailed(ctx, event, lastErr)
}

func (o *Orchestrator) markAssessed(ctx context.Context, event domain.Event, risk domain.RiskAssessment, retries int) error {
	update := store.StatusUpdate{
		Status:     domain.StatusAssessed,
		Risk:       &risk,
		RetryCount: retries,
	}
	if err := o.store.UpdateStatus(ctx, event.Identity, update); err != nil {
		return fmt.Errorf("mark assessed: %w", err)
	}

	outcome := "assessed"
	if risk.Empty() {
		outcome = "assessed_empty"
	}
	o.metrics.EventsAssessed.WithLabelValues(outcome).Inc()
	o.logger.Info("event assessed",
		"event_id", event.Identity,
		"severity", risk.Severity,
		"risk_score", risk.RiskScore,
		"retry_count", retries,
	)

	if o.publisher != nil {
		event.Status = domain.StatusAssessed
		event.Risk = &risk
		event.RetryCount = retries
		if err := o.publisher.PublishAssessed(ctx, event); err != nil {
			o.logger.Warn("assessed event publish failed", "event_id", event.Identity, "error", err)
		}
	}
	return nil
}

func (o *Orchestrator) markFailed(ctx context.Context, event domain.Event, cause error) error {
	message := fmt.Sprintf("classification failed after %d attempts", maxAttempts)
	if cause != nil {
		message = fmt.Sprintf("%s: %s", message, excerpt(cause.Error(), errExcerptLimit))
	}

	update := store.StatusUpdate{
		Status:       domain.StatusError,
		ErrorMessage: message,
		RetryCount:   maxAttempts - 1,
	}
	if err := o.store.UpdateStatus(ctx, event.Identity, update); err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	o.metrics.EventsAssessed.WithLabelValues("error").Inc()
	return nil
}

// Reclaim resets semantically empty assessments to NEW so they re-enter
// the next classification cycle. There is no global retry cap; bounding
// repeated reclaims is an operator concern.
func (o *Orchestrator) Reclaim(ctx context.Context) (int, error) {
	events, err := o.store.QueryEmptyAssessments(ctx, o.queryLimit)
	if err != nil {
		return 0, fmt.Errorf("query empty assessments: %w", err)
	}

	reclaimed := 0
	for _, event := range events {
		update := store.StatusUpdate{Status: domain.StatusNew}
		if err := o.store.UpdateStatus(ctx, event.Identity, update); err != nil {
			o.logger.Error("reclaim failed", "event_id", event.Identity, "error", err)
			continue
		}
		reclaimed++
	}
	if reclaimed > 0 {
		o.metrics.EventsReclaimed.Add(float64(reclaimed))
		o.logger.Info("reclaimed empty assessments", "count", reclaimed)
	}
	return reclaimed, nil
}

// Requeue is the explicit operator transition ERROR -> NEW.
func (o *Orchestrator) Requeue(ctx context.Context, identity string) error {
	event, err := o.store.Get(ctx, identity)
	if err != nil {
		return err
	}
	if event.Status != domain.StatusError {
		return fmt.Errorf("event %s is %s, only ERROR events can be requeued", identity, event.Status)
	}
	return o.store.UpdateStatus(ctx, identity, store.StatusUpdate{Status: domain.StatusNew})
}

// wait blocks for d on the injected clock, returning false if the context
// ended first.
func (o *Orchestrator) wait(ctx context.Context, d time.Duration) bool {
	timer := o.clock.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}

func excerpt(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
