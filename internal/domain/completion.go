package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for UnitCompletion
var (
	ErrEmptyCompletionLearnerID = errors.New("completion learner ID cannot be empty")
	ErrEmptyCompletionUnitID    = errors.New("completion unit ID cannot be empty")
	ErrZeroCompletionTime       = errors.New("completion time cannot be zero")
)

// UnitCompletion records that a learner finished a learning unit. Recording
// the same (learner, unit) pair again is a no-op that keeps the earliest
// CompletedAt, so completion writes are safe to repeat.
type UnitCompletion struct {
	LearnerID   uuid.UUID `json:"learner_id"`
	UnitID      uuid.UUID `json:"unit_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// NewUnitCompletion creates a completion record for the given learner and
// unit. Returns an error if validation fails.
func NewUnitCompletion(learnerID, unitID uuid.UUID, completedAt time.Time) (*UnitCompletion, error) {
	completion := &UnitCompletion{
		LearnerID:   learnerID,
		UnitID:      unitID,
		CompletedAt: completedAt,
	}

	if err := completion.Validate(); err != nil {
		return nil, err
	}

	return completion, nil
}

// Validate checks if the UnitCompletion has valid data.
// Returns an error if any field fails validation.
func (c *UnitCompletion) Validate() error {
	if c.LearnerID == uuid.Nil {
		return ErrEmptyCompletionLearnerID
	}

	if c.UnitID == uuid.Nil {
		return ErrEmptyCompletionUnitID
	}

	if c.CompletedAt.IsZero() {
		return ErrZeroCompletionTime
	}

	return nil
}
