package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/lumolearn/lumo-core/internal/domain"
)

// EventType identifies what happened to the learner.
type EventType string

const (
	// EventGradeSubmitted is emitted after a grade has been applied and the
	// new review state persisted.
	EventGradeSubmitted EventType = "grade_submitted"

	// EventUnitCompleted is emitted after a unit completion has been
	// recorded.
	EventUnitCompleted EventType = "unit_completed"
)

// LearnerEvent represents something that happened to a learner's progress.
// Consumers (gamification, plan refresh) subscribe through EventHandler
// without the emitting service knowing who listens.
type LearnerEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type indicates what happened
	Type EventType `json:"type"`

	// LearnerID is the learner the event concerns
	LearnerID uuid.UUID `json:"learner_id"`

	// Payload contains the event-specific data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// OccurredAt is the timestamp when the event was created
	OccurredAt time.Time `json:"occurred_at"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *LearnerEvent) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// GradeSubmittedPayload is the payload of an EventGradeSubmitted event.
type GradeSubmittedPayload struct {
	ItemID       uuid.UUID           `json:"item_id"`
	Grade        domain.Grade        `json:"grade"`
	Status       domain.ReviewStatus `json:"status"`
	NextReviewAt time.Time           `json:"next_review_at"`
}

// UnitCompletedPayload is the payload of an EventUnitCompleted event.
type UnitCompletedPayload struct {
	UnitID      uuid.UUID `json:"unit_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// NewLearnerEvent creates a new LearnerEvent with the specified type and payload.
func NewLearnerEvent(
	eventType EventType,
	learnerID uuid.UUID,
	payload interface{},
) (*LearnerEvent, error) {
	// Serialize the payload to JSON
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &LearnerEvent{
		ID:         uuid.New(),
		Type:       eventType,
		LearnerID:  learnerID,
		Payload:    payloadBytes,
		OccurredAt: time.Now().UTC(),
	}, nil
}

// NewGradeSubmittedEvent creates an EventGradeSubmitted event carrying the
// given payload.
func NewGradeSubmittedEvent(
	learnerID uuid.UUID,
	payload GradeSubmittedPayload,
) (*LearnerEvent, error) {
	return NewLearnerEvent(EventGradeSubmitted, learnerID, payload)
}

// NewUnitCompletedEvent creates an EventUnitCompleted event carrying the
// given payload.
func NewUnitCompletedEvent(
	learnerID uuid.UUID,
	payload UnitCompletedPayload,
) (*LearnerEvent, error) {
	return NewLearnerEvent(EventUnitCompleted, learnerID, payload)
}

// EventHandler defines an interface for components that can handle events.
// Handlers are responsible for processing events and taking appropriate actions.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *LearnerEvent) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *LearnerEvent) error
}
