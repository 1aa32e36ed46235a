package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for LearningUnit
var (
	ErrEmptyUnitID           = errors.New("learning unit ID cannot be empty")
	ErrEmptyUnitTitle        = errors.New("learning unit title cannot be empty")
	ErrSelfPrerequisite      = errors.New("learning unit cannot be its own prerequisite")
	ErrDuplicatePrerequisite = errors.New("learning unit prerequisites cannot contain duplicates")
	ErrEmptyPrerequisiteID   = errors.New("learning unit prerequisite ID cannot be empty")
)

// LearningUnit is one node of the curriculum's prerequisite graph: a unit of
// learnable content identified by ID, the units that must be completed before
// it unlocks, an optional authored ordering hint, and the tags used for
// affinity ranking. The prerequisite relation over all units must stay
// acyclic; the graph store validates that at write time.
type LearningUnit struct {
	ID            uuid.UUID   `json:"id"`
	Title         string      `json:"title"`
	Prerequisites []uuid.UUID `json:"prerequisites"`
	OrderHint     *int        `json:"order_hint,omitempty"`
	Tags          []string    `json:"tags"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// NewLearningUnit creates a new LearningUnit with the given title,
// prerequisites and tags. It generates a new UUID for the unit ID and sets
// the creation/update timestamps. Returns an error if validation fails.
func NewLearningUnit(title string, prerequisites []uuid.UUID, tags []string) (*LearningUnit, error) {
	now := time.Now().UTC()
	unit := &LearningUnit{
		ID:            uuid.New(),
		Title:         title,
		Prerequisites: prerequisites,
		Tags:          tags,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := unit.Validate(); err != nil {
		return nil, err
	}

	return unit, nil
}

// Validate checks if the LearningUnit has valid data.
// Returns an error if any field fails validation.
func (u *LearningUnit) Validate() error {
	if u.ID == uuid.Nil {
		return ErrEmptyUnitID
	}

	if u.Title == "" {
		return ErrEmptyUnitTitle
	}

	seen := make(map[uuid.UUID]struct{}, len(u.Prerequisites))
	for _, prereq := range u.Prerequisites {
		if prereq == uuid.Nil {
			return ErrEmptyPrerequisiteID
		}
		if prereq == u.ID {
			return ErrSelfPrerequisite
		}
		if _, dup := seen[prereq]; dup {
			return ErrDuplicatePrerequisite
		}
		seen[prereq] = struct{}{}
	}

	return nil
}

// HasTag reports whether the unit carries the given tag.
func (u *LearningUnit) HasTag(tag string) bool {
	for _, t := range u.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
