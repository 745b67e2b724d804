// Package store defines the typed gateway contract over the keyed event
// document store. All operations are single-document; callers tolerate the
// eventual-consistency this implies.
package store

import (
	"context"
	"errors"

	"github.com/couchcryptid/crisis-intel-service/internal/domain"
)

// ErrNotFound is returned by Get and UpdateStatus for an unknown identity.
var ErrNotFound = errors.New("event not found")

// StatusUpdate carries the fields of a status transition. The store assigns
// assessed_at/error_at server-side on the matching transition. A nil Risk
// clears any stored assessment (used when requeueing to NEW).
type StatusUpdate struct {
	Status       domain.Status
	Risk         *domain.RiskAssessment
	ErrorMessage string
	RetryCount   int
}

// Gateway is the full event store surface. Consumers depend on the narrow
// slice they use; implementations provide all of it.
type Gateway interface {
	// Get returns the event with the given identity, or ErrNotFound.
	Get(ctx context.Context, identity string) (domain.Event, error)

	// UpsertIfNotAssessed writes the event keyed by its identity unless an
	// existing document is already ASSESSED, in which case the write is
	// dropped. It returns the identity and whether the write took effect.
	// The guard is a conditional single-document write, not a cross-write
	// transaction: a concurrent assessment can still race it.
	UpsertIfNotAssessed(ctx context.Context, event domain.Event) (identity string, saved bool, err error)

	// UpdateStatus applies a status transition to one document.
	UpdateStatus(ctx context.Context, identity string, update StatusUpdate) error

	// QueryByStatus returns up to limit events in the given status.
	QueryByStatus(ctx context.Context, status domain.Status, limit int) ([]domain.Event, error)

	// QueryAssessedWithMinScore returns up to limit ASSESSED events whose
	// risk score is at least minScore.
	QueryAssessedWithMinScore(ctx context.Context, minScore, limit int) ([]domain.Event, error)

	// QueryEmptyAssessments returns ASSESSED events whose assessment is
	// semantically empty, candidates for reclaim back to NEW.
	QueryEmptyAssessments(ctx context.Context, limit int) ([]domain.Event, error)
}
