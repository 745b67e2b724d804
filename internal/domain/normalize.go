package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidRecord marks a raw record that fails validation. Such records
// are dropped without retry.
var ErrInvalidRecord = errors.New("invalid raw record")

// NormalizeRecord converts a raw feed record into a canonical Event with
// status NEW. The source name overrides an empty record source. Missing
// coordinates are preserved as absent; a coordinate slice of the wrong
// length is rejected rather than guessed at.
func NormalizeRecord(rec RawRecord, source string) (Event, error) {
	eventType := strings.TrimSpace(rec.Type)
	description := strings.TrimSpace(rec.Description)
	if eventType == "" && description == "" {
		return Event{}, fmt.Errorf("%w: no type or description", ErrInvalidRecord)
	}
	if len(rec.Coordinates) != 0 && len(rec.Coordinates) != 2 {
		return Event{}, fmt.Errorf("%w: coordinates must be a pair, got %d values", ErrInvalidRecord, len(rec.Coordinates))
	}

	if rec.Source != "" {
		source = rec.Source
	}

	event := Event{
		Type:        eventType,
		Location:    strings.TrimSpace(rec.Location),
		Description: description,
		Source:      source,
		Status:      StatusNew,
		CreatedAt:   clock.Now().UTC(),
	}
	if len(rec.Coordinates) == 2 {
		event.Coordinates = []float64{rec.Coordinates[0], rec.Coordinates[1]}
	}
	event.OriginTime = parseTimestamp(rec.Timestamp)

	event.Identity = rec.EventID
	if event.Identity == "" {
		event.Identity = generateIdentity(source, eventType, event.Location, rec.Timestamp)
	}

	return event, nil
}

// parseTimestamp accepts RFC 3339 with or without sub-second precision.
// Unparseable or absent timestamps yield the zero time; the store assigns
// created_at regardless.
func parseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// generateIdentity produces a deterministic ID from the record's key fields.
// Re-ingesting the same real-world hazard yields the same identity, which
// is what makes the store upsert a merge instead of a duplicate.
func generateIdentity(source, eventType, location, timestamp string) string {
	input := fmt.Sprintf("%s|%s|%s|%s", source, eventType, location, timestamp)
	hash := sha256.Sum256([]byte(input))
	short := hex.EncodeToString(hash[:8])
	if eventType == "" {
		return "evt-" + short
	}
	return strings.ToLower(eventType) + "-" + short
}
