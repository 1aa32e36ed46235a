package api

import (
	"time"

	"github.com/google/uuid"
)

// Common request/response structures

// CreateUnitRequest defines the payload for creating a learning unit.
type CreateUnitRequest struct {
	Title         string      `json:"title"         validate:"required,max=500"`
	Prerequisites []uuid.UUID `json:"prerequisites"`
	OrderHint     *int        `json:"order_hint"`
	Tags          []string    `json:"tags"`
}

// UpdateUnitRequest defines the payload for replacing a learning unit's
// fields and prerequisite edges.
type UpdateUnitRequest struct {
	Title         string      `json:"title"         validate:"required,max=500"`
	Prerequisites []uuid.UUID `json:"prerequisites"`
	OrderHint     *int        `json:"order_hint"`
	Tags          []string    `json:"tags"`
}

// UnitResponse defines the representation of a learning unit.
type UnitResponse struct {
	// ID is the unique identifier of the unit
	ID uuid.UUID `json:"id"`

	// Title is the unit's display title
	Title string `json:"title"`

	// Prerequisites lists the direct prerequisite unit IDs in authored order
	Prerequisites []uuid.UUID `json:"prerequisites"`

	// OrderHint is the authored ordering hint, absent when the unit has none
	OrderHint *int `json:"order_hint,omitempty"`

	// Tags are the affinity tags used for plan ranking
	Tags []string `json:"tags"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PrerequisitesResponse defines the response for a unit's prerequisite list.
type PrerequisitesResponse struct {
	// UnitID is the unit whose prerequisites are listed
	UnitID uuid.UUID `json:"unit_id"`

	// PrerequisiteIDs are the direct prerequisite unit IDs in authored order
	PrerequisiteIDs []uuid.UUID `json:"prerequisite_ids"`
}
