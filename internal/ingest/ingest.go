// Package ingest normalizes raw hazard records from registered feeds and
// upserts them into the event store without clobbering assessed documents.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/crisis-intel-service/internal/domain"
	"github.com/couchcryptid/crisis-intel-service/internal/observability"
)

// Batch statuses reported in a Summary.
const (
	StatusSuccess    = "success"
	StatusNoEvents   = "no_events"
	StatusNoMatches  = "no_matches"
	StatusFeedFailed = "error"
)

// Feed fetches a batch of raw records from one named source.
type Feed interface {
	Fetch(ctx context.Context) ([]domain.RawRecord, error)
}

// EventWriter is the slice of the store gateway ingestion needs.
type EventWriter interface {
	UpsertIfNotAssessed(ctx context.Context, event domain.Event) (identity string, saved bool, err error)
}

// Summary aggregates the outcome of one ingestion batch. A single record's
// failure lands in Errors; it never aborts the batch.
type Summary struct {
	BatchID      string   `json:"batch_id"`
	Source       string   `json:"source"`
	Status       string   `json:"status"`
	SavedCount   int      `json:"saved_count"`
	SkippedCount int      `json:"skipped_count"`
	SavedIDs     []string `json:"saved_ids,omitempty"`
	Errors       []string `json:"errors,omitempty"`
}

// Ingestor drives normalization and dedup for all registered feeds.
type Ingestor struct {
	feeds   map[string]Feed
	order   []string
	store   EventWriter
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates an Ingestor with no feeds registered.
func New(store EventWriter, logger *slog.Logger, metrics *observability.Metrics) *Ingestor {
	return &Ingestor{
		feeds:   make(map[string]Feed),
		store:   store,
		logger:  logger,
		metrics: metrics,
	}
}

// Register adds a feed under a source name. Registration order is the
// cycle processing order.
func (i *Ingestor) Register(source string, feed Feed) {
	if _, exists := i.feeds[source]; !exists {
		i.order = append(i.order, source)
	}
	i.feeds[source] = feed
}

// Sources returns the registered source names in processing order.
func (i *Ingestor) Sources() []string {
	return append([]string(nil), i.order...)
}

// Ingest fetches one source, applies the optional case-insensitive
// location filter, and upserts the retained records. A zero-match filter
// over a non-empty batch reports no_matches, which callers must not
// confuse with a feed failure.
func (i *Ingestor) Ingest(ctx context.Context, source, locationFilter string) (Summary, error) {
	summary := Summary{BatchID: uuid.NewString(), Source: source}

	feed, ok := i.feeds[source]
	if !ok {
		summary.Status = StatusFeedFailed
		return summary, fmt.Errorf("unknown source %q", source)
	}

	records, err := feed.Fetch(ctx)
	if err != nil {
		summary.Status = StatusFeedFailed
		return summary, fmt.Errorf("fetch %s: %w", source, err)
	}
	if len(records) == 0 {
		summary.Status = StatusNoEvents
		return summary, nil
	}

	retained := filterByLocation(records, locationFilter)
	if len(retained) == 0 {
		summary.Status = StatusNoMatches
		return summary, nil
	}

	for _, rec := range retained {
		event, err := domain.NormalizeRecord(rec, source)
		if err != nil {
			summary.Errors = append(summary.Errors, err.Error())
			i.metrics.EventsIngested.WithLabelValues(source, "failed").Inc()
			continue
		}

		identity, saved, err := i.store.UpsertIfNotAssessed(ctx, event)
		switch {
		case err != nil:
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", event.Identity, err))
			i.metrics.EventsIngested.WithLabelValues(source, "failed").Inc()
		case saved:
			summary.SavedCount++
			summary.SavedIDs = append(summary.SavedIDs, identity)
			i.metrics.EventsIngested.WithLabelValues(source, "saved").Inc()
		default:
			summary.SkippedCount++
			i.metrics.EventsIngested.WithLabelValues(source, "skipped").Inc()
		}
	}

	summary.Status = StatusSuccess
	return summary, nil
}

// RunCycle ingests every registered source sequentially with no filter.
// Per-source failures are collected, not fatal: a broken feed must not
// starve the others.
func (i *Ingestor) RunCycle(ctx context.Context) error {
	start := time.Now()
	defer func() {
		i.metrics.IngestCycleDuration.Observe(time.Since(start).Seconds())
	}()

	var errs []error
	for _, source := range i.order {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		summary, err := i.Ingest(ctx, source, "")
		if err != nil {
			i.logger.Error("ingest failed", "source", source, "error", err)
			errs = append(errs, err)
			continue
		}
		i.logger.Info("ingest complete",
			"source", source,
			"status", summary.Status,
			"saved", summary.SavedCount,
			"skipped", summary.SkippedCount,
			"errors", len(summary.Errors),
		)
	}
	return errors.Join(errs...)
}

func filterByLocation(records []domain.RawRecord, filter string) []domain.RawRecord {
	if filter == "" {
		return records
	}
	needle := strings.ToLower(filter)
	retained := make([]domain.RawRecord, 0, len(records))
	for _, rec := range records {
		if strings.Contains(strings.ToLower(rec.Location), needle) {
			retained = append(retained, rec)
		}
	}
	return retained
}
