package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	// This is a generic version of the entity-specific not found errors
	// (e.g., ErrReviewStateNotFound, ErrUnitNotFound).
	ErrNotFound = errors.New("entity not found")

	// ErrConflict is returned when an optimistic update loses the race: the
	// entity's stored version no longer matches the version the caller read.
	// Callers recover by reloading the entity and reapplying their change.
	ErrConflict = errors.New("version conflict")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity (e.g., a second review state for the same
	// learner/item pair).
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored. Check the wrapped error for specific validation details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrDeleteFailed is returned when a delete operation fails, for example
	// because the entity is referenced by other entities.
	ErrDeleteFailed = errors.New("delete failed")

	// Entity-specific "not found" errors

	// ErrReviewStateNotFound indicates that no review state exists for the
	// requested learner/item pair.
	ErrReviewStateNotFound = fmt.Errorf("%w: review state", ErrNotFound)

	// ErrUnitNotFound indicates that the requested learning unit does not exist in the store.
	ErrUnitNotFound = fmt.Errorf("%w: learning unit", ErrNotFound)

	// Entity-specific "duplicate" errors

	// ErrReviewStateExists indicates that a review state already exists for the
	// learner/item pair. Two racing first exposures produce this on the loser's
	// side; it is handled like a conflict (reload and reapply).
	ErrReviewStateExists = fmt.Errorf("%w: review state", ErrDuplicate)

	// ErrUnitExists indicates that a learning unit with the given ID already exists.
	ErrUnitExists = fmt.Errorf("%w: learning unit", ErrDuplicate)

	// ErrUnitHasDependents indicates that a learning unit cannot be deleted
	// because other units list it as a prerequisite.
	ErrUnitHasDependents = fmt.Errorf("%w: unit has dependents", ErrDeleteFailed)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
// Entity-specific variants wrap ErrNotFound, so a single errors.Is covers them all.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflictError checks if the error is a version conflict, including
// wrapped occurrences.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsDuplicateError checks if the error is any kind of "duplicate" error.
// Entity-specific variants wrap ErrDuplicate, so a single errors.Is covers them all.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// StoreError is a custom error type for store-specific errors with additional context.
type StoreError struct {
	Entity    string // The entity type (e.g., "review_state", "learning_unit")
	Operation string // The operation that failed (e.g., "create", "update")
	Message   string // Error message
	Err       error  // Original error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf(
			"%s operation on %s failed: %s: %v",
			e.Operation,
			e.Entity,
			e.Message,
			e.Err,
		)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError with the given entity, operation, message, and wrapped error.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
