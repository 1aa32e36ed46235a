package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lumolearn/lumo-core/internal/domain"
)

// ReviewStateStore defines the interface for review state persistence.
// One state exists per (learner, item) pair; states are created on first
// exposure and mutated only through the scheduler's apply path.
type ReviewStateStore interface {
	// Create saves a new review state to the store.
	// It handles domain validation internally.
	// Returns ErrReviewStateExists if a state for the learner/item pair
	// already exists.
	// Returns validation errors from the domain ReviewState if data is invalid.
	Create(ctx context.Context, state *domain.ReviewState) error

	// Get retrieves the review state for the given learner and item.
	// Returns ErrReviewStateNotFound if no state exists. Callers that treat
	// a missing state as first exposure check for that sentinel rather than
	// failing.
	Get(ctx context.Context, learnerID, itemID uuid.UUID) (*domain.ReviewState, error)

	// Update persists a recomputed review state using optimistic concurrency:
	// the stored row's version must equal state.Version, otherwise ErrConflict
	// is returned and nothing changes. On success the stored version is
	// incremented past state.Version.
	// Returns ErrReviewStateNotFound if the state does not exist.
	// Returns validation errors from the domain ReviewState if data is invalid.
	Update(ctx context.Context, state *domain.ReviewState) error

	// ListDue retrieves states whose NextReviewAt is at or before asOf,
	// ordered by NextReviewAt ascending with ties broken by lowest EaseFactor,
	// capped at limit. Never returns states due in the future.
	ListDue(ctx context.Context, learnerID uuid.UUID, asOf time.Time, limit int) ([]*domain.ReviewState, error)

	// ListByLearner retrieves every review state belonging to the learner.
	// Returns an empty slice when the learner has no states.
	ListByLearner(ctx context.Context, learnerID uuid.UUID) ([]*domain.ReviewState, error)

	// WithTx returns a new ReviewStateStore instance that uses the provided transaction.
	// This allows for multiple operations to be executed within a single transaction.
	// The transaction should be created and managed by the caller (typically a service).
	WithTx(tx *sql.Tx) ReviewStateStore
}
