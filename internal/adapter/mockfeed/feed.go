// Package mockfeed provides a canned hazard feed for local development and
// demos, so the full pipeline can run without network access or API keys.
package mockfeed

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/crisis-intel-service/internal/domain"
)

// SourceName identifies the mock feed in ingestion summaries.
const SourceName = "MOCK"

// Feed returns a fixed set of hazard reports stamped with the current time.
// It implements ingest.Feed.
type Feed struct {
	clock clockwork.Clock
}

// New creates a mock feed using the real clock.
func New() *Feed {
	return &Feed{clock: clockwork.NewRealClock()}
}

// NewWithClock creates a mock feed with an injected clock for deterministic
// fixtures.
func NewWithClock(clock clockwork.Clock) *Feed {
	return &Feed{clock: clock}
}

// Fetch returns the canned reports. Identities are stable across calls made
// within the same second, so repeated ingestion cycles dedup as expected.
func (f *Feed) Fetch(_ context.Context) ([]domain.RawRecord, error) {
	now := f.clock.Now().UTC().Format(time.RFC3339)
	return []domain.RawRecord{
		{
			Type:        "Flood",
			Location:    "New Brunswick, NJ",
			Description: "Flash flooding reported along the Raritan River after heavy rainfall.",
			Timestamp:   now,
			Coordinates: []float64{-74.4518, 40.4862},
		},
		{
			Type:        "Fire",
			Location:    "Piscataway, NJ",
			Description: "Structure fire reported near the industrial park, smoke visible from Route 18.",
			Timestamp:   now,
			Coordinates: []float64{-74.4649, 40.5549},
		},
	}, nil
}
