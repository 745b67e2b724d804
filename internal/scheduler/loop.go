// Package scheduler runs the two independent periodic drivers. The
// ingestion and assessment loops never call each other; the store is their
// only coupling, which keeps the two sides independently deployable.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/crisis-intel-service/internal/observability"
)

// Loop invokes a cycle function at a fixed interval until its context is
// cancelled. A cycle error is logged and counted; the loop always survives
// to its next tick.
type Loop struct {
	name     string
	interval time.Duration
	cycle    func(ctx context.Context) error
	logger   *slog.Logger
	metrics  *observability.Metrics
	clock    clockwork.Clock
}

// NewLoop creates a named interval loop around a cycle function.
func NewLoop(name string, interval time.Duration, cycle func(ctx context.Context) error, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock) *Loop {
	return &Loop{
		name:     name,
		interval: interval,
		cycle:    cycle,
		logger:   logger,
		metrics:  metrics,
		clock:    clock,
	}
}

// Run executes one cycle immediately, then one per interval. It returns
// nil when the context is cancelled; cancellation between cycles is the
// only way the loop stops.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("loop started", "loop", l.name, "interval", l.interval)
	l.metrics.LoopRunning.WithLabelValues(l.name).Set(1)
	defer l.metrics.LoopRunning.WithLabelValues(l.name).Set(0)

	ticker := l.clock.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		l.runCycle(ctx)

		select {
		case <-ctx.Done():
			l.logger.Info("loop stopping", "loop", l.name, "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
		}
	}
}

func (l *Loop) runCycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := l.cycle(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		l.metrics.CycleErrors.WithLabelValues(l.name).Inc()
		l.logger.Error("cycle failed", "loop", l.name, "error", err)
	}
}
