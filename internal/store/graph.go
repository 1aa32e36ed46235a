package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/lumolearn/lumo-core/internal/domain"
)

// UnitStore defines the interface for learning unit and prerequisite edge
// persistence. The prerequisite relation over all stored units must stay
// acyclic; Create and Update enforce that transactionally, so a violation
// never reaches disk.
type UnitStore interface {
	// Create saves a new learning unit and its prerequisite edges.
	// It handles domain validation internally.
	// Returns ErrUnitExists if a unit with the same ID already exists.
	// Returns ErrUnitNotFound if a prerequisite references an unknown unit.
	// Returns ErrInvalidEntity if the edges would introduce a cycle.
	Create(ctx context.Context, unit *domain.LearningUnit) error

	// GetByID retrieves a learning unit by its unique ID, prerequisites
	// populated in authored order.
	// Returns ErrUnitNotFound if the unit does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.LearningUnit, error)

	// List retrieves all learning units with their prerequisites populated.
	// Returns an empty slice when the store holds no units.
	List(ctx context.Context) ([]*domain.LearningUnit, error)

	// ListPrerequisites retrieves the unit's direct prerequisite IDs in
	// authored order.
	// Returns ErrUnitNotFound if the unit does not exist.
	ListPrerequisites(ctx context.Context, unitID uuid.UUID) ([]uuid.UUID, error)

	// Update replaces an existing unit's fields and prerequisite edges.
	// The same integrity checks as Create apply.
	// Returns ErrUnitNotFound if the unit does not exist.
	Update(ctx context.Context, unit *domain.LearningUnit) error

	// Delete removes a learning unit and its outgoing prerequisite edges.
	// Returns ErrUnitHasDependents while other units list it as a
	// prerequisite; dependents must be deleted or rewired first.
	// Returns ErrUnitNotFound if the unit does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new UnitStore instance that uses the provided transaction.
	// This allows for multiple operations to be executed within a single transaction.
	// The transaction should be created and managed by the caller (typically a service).
	WithTx(tx *sql.Tx) UnitStore
}
