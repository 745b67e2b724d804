// Command genmock generates mock hazard report fixtures for development and
// tests. It runs the canned reports through the actual normalization code so
// fixture identities and statuses match real pipeline behavior.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -raw-out data/mock/hazard_reports.json \
//	  -events-out data/mock/hazard_events.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/crisis-intel-service/internal/adapter/mockfeed"
	"github.com/couchcryptid/crisis-intel-service/internal/domain"
)

var fixtureTime = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	rawOut := flag.String("raw-out", "", "output path for raw report JSON fixture")
	eventsOut := flag.String("events-out", "", "output path for normalized event JSON fixture")
	flag.Parse()

	if *rawOut == "" || *eventsOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -raw-out, -events-out")
	}

	// Fix the clock so identities and created_at are reproducible.
	clock := clockwork.NewFakeClockAt(fixtureTime)
	domain.SetClock(clock)
	defer domain.SetClock(nil)

	feed := mockfeed.NewWithClock(clock)
	records, err := feed.Fetch(context.Background())
	if err != nil {
		return fmt.Errorf("fetch mock reports: %w", err)
	}
	records = append(records, extraRecords()...)

	events := make([]domain.Event, 0, len(records))
	for _, rec := range records {
		event, err := domain.NormalizeRecord(rec, mockfeed.SourceName)
		if err != nil {
			return fmt.Errorf("normalize %q: %w", rec.Description, err)
		}
		events = append(events, event)
	}

	if err := writeJSON(*rawOut, records); err != nil {
		return fmt.Errorf("writing raw fixture: %w", err)
	}
	log.Printf("wrote raw fixture: %s (%d records)", *rawOut, len(records))

	if err := writeJSON(*eventsOut, events); err != nil {
		return fmt.Errorf("writing event fixture: %w", err)
	}
	log.Printf("wrote event fixture: %s (%d events)", *eventsOut, len(events))

	printStats(events)
	return nil
}

// extraRecords supplements the mock feed with fixture-only cases: an event
// with a provider ID, one without coordinates, and one with reversed
// coordinate order.
func extraRecords() []domain.RawRecord {
	ts := fixtureTime.Format(time.RFC3339)
	return []domain.RawRecord{
		{
			EventID:     "usgs-nc75012345",
			Type:        "Earthquake",
			Location:    "5 km NW of Trenton, NJ",
			Description: "M 3.2 - 5 km NW of Trenton, NJ",
			Timestamp:   ts,
			Coordinates: []float64{-74.7846, 40.2632},
		},
		{
			Type:        "Storm",
			Location:    "Somerset County, NJ",
			Description: "Severe thunderstorm warning issued for Somerset County.",
			Timestamp:   ts,
		},
		{
			Type:        "Chemical Spill",
			Location:    "Port of Newark, NJ",
			Description: "Container leak reported at the Port of Newark terminal.",
			Timestamp:   ts,
			Coordinates: []float64{-74.1745, 40.6895},
		},
	}
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(events []domain.Event) {
	typeCounts := map[string]int{}
	withCoords := 0
	for i := range events {
		typeCounts[events[i].Type]++
		if len(events[i].Coordinates) == 2 {
			withCoords++
		}
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total: %d\n", len(events))
	for t, c := range typeCounts {
		fmt.Printf("  %s: %d\n", t, c)
	}
	fmt.Printf("With coordinates: %d\n", withCoords)
	for i := range events {
		fmt.Printf("  %s -> %s\n", events[i].Type, events[i].Identity)
	}
}
