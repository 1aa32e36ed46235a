package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumolearn/lumo-core/internal/domain"
)

func TestNewLearnerEvent(t *testing.T) {
	// Define a sample payload
	type testPayload struct {
		ID     uuid.UUID `json:"id"`
		Action string    `json:"action"`
	}

	payload := testPayload{
		ID:     uuid.New(),
		Action: "test_action",
	}

	// Create a new event
	learnerID := uuid.New()
	eventType := EventType("test_event")
	event, err := NewLearnerEvent(eventType, learnerID, payload)

	// Assert creation was successful
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, eventType, event.Type)
	assert.Equal(t, learnerID, event.LearnerID)
	assert.NotNil(t, event.Payload)
	assert.WithinDuration(t, time.Now(), event.OccurredAt, 2*time.Second)

	// Verify payload was correctly serialized
	var decodedPayload testPayload
	err = json.Unmarshal(event.Payload, &decodedPayload)
	require.NoError(t, err)
	assert.Equal(t, payload.ID, decodedPayload.ID)
	assert.Equal(t, payload.Action, decodedPayload.Action)
}

func TestNewGradeSubmittedEvent(t *testing.T) {
	learnerID := uuid.New()
	payload := GradeSubmittedPayload{
		ItemID:       uuid.New(),
		Grade:        4,
		Status:       domain.ReviewStatusInProgress,
		NextReviewAt: time.Now().UTC().Add(24 * time.Hour),
	}

	event, err := NewGradeSubmittedEvent(learnerID, payload)
	require.NoError(t, err)
	assert.Equal(t, EventGradeSubmitted, event.Type)
	assert.Equal(t, learnerID, event.LearnerID)

	var decoded GradeSubmittedPayload
	require.NoError(t, event.UnmarshalPayload(&decoded))
	assert.Equal(t, payload.ItemID, decoded.ItemID)
	assert.Equal(t, payload.Grade, decoded.Grade)
	assert.Equal(t, payload.Status, decoded.Status)
	assert.True(t, payload.NextReviewAt.Equal(decoded.NextReviewAt))
}

func TestNewUnitCompletedEvent(t *testing.T) {
	learnerID := uuid.New()
	payload := UnitCompletedPayload{
		UnitID:      uuid.New(),
		CompletedAt: time.Now().UTC(),
	}

	event, err := NewUnitCompletedEvent(learnerID, payload)
	require.NoError(t, err)
	assert.Equal(t, EventUnitCompleted, event.Type)
	assert.Equal(t, learnerID, event.LearnerID)

	var decoded UnitCompletedPayload
	require.NoError(t, event.UnmarshalPayload(&decoded))
	assert.Equal(t, payload.UnitID, decoded.UnitID)
	assert.True(t, payload.CompletedAt.Equal(decoded.CompletedAt))
}

// MockEventHandler implements the EventHandler interface for testing
type MockEventHandler struct {
	// The last event received by this handler
	LastEvent *LearnerEvent
	// Error to return from HandleEvent
	HandlerError error
	// Count of events handled
	HandledCount int
}

// HandleEvent implements the EventHandler interface
func (h *MockEventHandler) HandleEvent(ctx context.Context, event *LearnerEvent) error {
	h.LastEvent = event
	h.HandledCount++
	return h.HandlerError
}

func TestEventHandler(t *testing.T) {
	// Create a mock handler
	handler := &MockEventHandler{}

	// Create a test event
	event, err := NewLearnerEvent("test_type", uuid.New(), map[string]string{"key": "value"})
	require.NoError(t, err)

	// Handle the event
	err = handler.HandleEvent(context.Background(), event)
	assert.NoError(t, err)
	assert.Equal(t, 1, handler.HandledCount)
	assert.Equal(t, event, handler.LastEvent)

	// Test error case
	expectedErr := errors.New("handler error")
	handler.HandlerError = expectedErr
	err = handler.HandleEvent(context.Background(), event)
	assert.Equal(t, expectedErr, err)
	assert.Equal(t, 2, handler.HandledCount)
}
