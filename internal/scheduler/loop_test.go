package scheduler_test

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/crisis-intel-service/internal/observability"
	"github.com/couchcryptid/crisis-intel-service/internal/scheduler"
)

func TestLoop_RunsImmediatelyThenOnTicks(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var runs atomic.Int64
	loop := scheduler.NewLoop("test", time.Minute, func(_ context.Context) error {
		runs.Add(1)
		return nil
	}, slog.Default(), observability.NewMetricsForTesting(), clock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- loop.Run(ctx)
	}()

	// First cycle fires before any tick.
	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, time.Millisecond)

	clock.BlockUntil(1)
	clock.Advance(time.Minute)
	require.Eventually(t, func() bool { return runs.Load() == 2 }, time.Second, time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestLoop_SurvivesCycleError(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var runs atomic.Int64
	loop := scheduler.NewLoop("test", time.Minute, func(_ context.Context) error {
		runs.Add(1)
		return errors.New("cycle exploded")
	}, slog.Default(), observability.NewMetricsForTesting(), clock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- loop.Run(ctx)
	}()

	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, time.Millisecond)
	clock.BlockUntil(1)
	clock.Advance(time.Minute)
	require.Eventually(t, func() bool { return runs.Load() == 2 }, time.Second, time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestLoop_StopsOnCancel(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var runs atomic.Int64
	loop := scheduler.NewLoop("test", time.Minute, func(_ context.Context) error {
		runs.Add(1)
		return nil
	}, slog.Default(), observability.NewMetricsForTesting(), clock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := loop.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, runs.Load())
}
