package task

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MockTask implements Task for tests. ExecuteFn can be swapped to observe
// or fail execution.
type MockTask struct {
	TaskID      uuid.UUID
	TaskType    string
	TaskPayload []byte
	TaskStatus  TaskStatus
	ExecuteFn   func(ctx context.Context) error
}

// NewMockTask returns a pending MockTask whose Execute succeeds.
func NewMockTask(id uuid.UUID, taskType string, payload []byte) *MockTask {
	return &MockTask{
		TaskID:      id,
		TaskType:    taskType,
		TaskPayload: payload,
		TaskStatus:  TaskStatusPending,
		ExecuteFn:   func(ctx context.Context) error { return nil },
	}
}

func (t *MockTask) ID() uuid.UUID      { return t.TaskID }
func (t *MockTask) Type() string       { return t.TaskType }
func (t *MockTask) Payload() []byte    { return t.TaskPayload }
func (t *MockTask) Status() TaskStatus { return t.TaskStatus }

func (t *MockTask) Execute(ctx context.Context) error {
	return t.ExecuteFn(ctx)
}

// MockPayload mimics the shape of real task payloads: an owning learner plus
// bookkeeping fields.
type MockPayload struct {
	LearnerID uuid.UUID `json:"learner_id"`
	Note      string    `json:"note"`
	Created   time.Time `json:"created"`
}

// CreateMockTaskWithPayload builds a MockTask carrying a serialized
// MockPayload with the given note.
func CreateMockTaskWithPayload(note string) *MockTask {
	payload := MockPayload{
		LearnerID: uuid.New(),
		Note:      note,
		Created:   time.Now().UTC(),
	}

	data, _ := json.Marshal(payload)
	return NewMockTask(uuid.New(), "mock_task", data)
}
