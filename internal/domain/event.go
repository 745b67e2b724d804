package domain

import (
	"context"
	"time"
)

// Status is the lifecycle state of an event.
type Status string

const (
	StatusNew      Status = "NEW"
	StatusAssessed Status = "ASSESSED"
	StatusError    Status = "ERROR"
)

// Severity levels produced by the classification oracle.
const (
	SeverityLow      = "Low"
	SeverityMedium   = "Medium"
	SeverityHigh     = "High"
	SeverityCritical = "Critical"
	SeverityUnknown  = "Unknown"
)

// RawRecord is the canonical flat shape a feed adapter produces for one
// hazard report, before normalization into an Event.
type RawRecord struct {
	EventID     string    `json:"event_id,omitempty"`
	Type        string    `json:"type"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	Timestamp   string    `json:"timestamp,omitempty"` // RFC 3339 when present
	Coordinates []float64 `json:"coordinates,omitempty"`
	Source      string    `json:"source,omitempty"`
}

// RiskAssessment is the oracle's structured verdict for one event.
type RiskAssessment struct {
	Severity  string `json:"severity"`
	RiskScore int    `json:"risk_score"`
	Reasoning string `json:"reasoning,omitempty"`
}

// Empty reports whether the assessment is semantically empty: structurally
// valid but carrying no information (oracle "don't know").
func (ra RiskAssessment) Empty() bool {
	return ra.Severity == SeverityUnknown && ra.RiskScore == 0
}

// Event is one normalized hazard record tracked through NEW -> ASSESSED/ERROR.
type Event struct {
	Identity    string    `json:"event_id"`
	Type        string    `json:"type"`
	Location    string    `json:"location"`
	Coordinates []float64 `json:"coordinates,omitempty"` // order per source, see doc.go
	Description string    `json:"description"`
	OriginTime  time.Time `json:"timestamp,omitzero"`
	Source      string    `json:"source"`
	Status      Status    `json:"status"`

	Risk         *RiskAssessment `json:"risk_assessment,omitempty"` // present iff status ASSESSED
	ErrorMessage string          `json:"error_message,omitempty"`   // present iff status ERROR
	RetryCount   int             `json:"retry_count"`

	CreatedAt  time.Time `json:"created_at,omitzero"`
	AssessedAt time.Time `json:"assessed_at,omitzero"`
	ErrorAt    time.Time `json:"error_at,omitzero"`
}

// ClassificationRequest carries the event fields the oracle sees.
type ClassificationRequest struct {
	Description string    `json:"event_description"`
	EventType   string    `json:"event_type"`
	Location    string    `json:"location"`
	Coordinates []float64 `json:"coordinates,omitempty"`
}

// Classifier is the external risk-classification oracle. Implementations
// return MalformedResponseError when the oracle's output cannot be parsed
// as a structured assessment.
type Classifier interface {
	Classify(ctx context.Context, req ClassificationRequest) (RiskAssessment, error)
}

// MalformedResponseError reports oracle output that was not parseable as
// structured data. Raw holds an excerpt of the offending payload for
// diagnosis.
type MalformedResponseError struct {
	Raw string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return "malformed classifier response: " + e.Err.Error() + ": " + e.Raw
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }
