package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lumolearn/lumo-core/internal/domain"
)

// CompletionStore defines the interface for learner unit completion persistence.
type CompletionStore interface {
	// MarkCompleted records that the learner completed the unit at the given
	// time. The write is idempotent: repeating it for the same learner/unit
	// pair keeps the earliest recorded time and returns nil.
	// Returns ErrUnitNotFound if the unit does not exist.
	MarkCompleted(ctx context.Context, learnerID, unitID uuid.UUID, at time.Time) error

	// ListByLearner retrieves all of the learner's completions.
	// Returns an empty slice when the learner has completed nothing.
	ListByLearner(ctx context.Context, learnerID uuid.UUID) ([]*domain.UnitCompletion, error)

	// WithTx returns a new CompletionStore instance that uses the provided transaction.
	// This allows for multiple operations to be executed within a single transaction.
	// The transaction should be created and managed by the caller (typically a service).
	WithTx(tx *sql.Tx) CompletionStore
}
