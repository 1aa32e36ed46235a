package task

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"
)

// mockRecord pairs a stored task with the time its status last changed.
type mockRecord struct {
	task     Task
	statusAt time.Time
}

// MockTaskStore is an in-memory TaskStore for runner and handler tests. The
// default behavior keeps tasks in a map; tests inject failures by setting the
// hook fields, which replace the corresponding method wholesale.
type MockTaskStore struct {
	mutex   sync.RWMutex
	records map[uuid.UUID]*mockRecord

	SaveFn         func(ctx context.Context, task Task) error
	UpdateStatusFn func(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error
}

// NewMockTaskStore creates an empty in-memory task store.
func NewMockTaskStore() *MockTaskStore {
	return &MockTaskStore{records: make(map[uuid.UUID]*mockRecord)}
}

// SaveTask stores the task. Tasks that are not *MockTask are wrapped in one
// so later status updates can mutate them in place.
func (s *MockTaskStore) SaveTask(ctx context.Context, t Task) error {
	if s.SaveFn != nil {
		return s.SaveFn(ctx, t)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	mockTask, ok := t.(*MockTask)
	if !ok {
		mockTask = NewMockTask(t.ID(), t.Type(), t.Payload())
		mockTask.TaskStatus = t.Status()
	}
	s.records[t.ID()] = &mockRecord{task: mockTask, statusAt: time.Now()}
	return nil
}

// UpdateTaskStatus updates a stored task's status. Unknown IDs are a no-op,
// matching the real store.
func (s *MockTaskStore) UpdateTaskStatus(
	ctx context.Context,
	taskID uuid.UUID,
	status TaskStatus,
	errorMsg string,
) error {
	if s.UpdateStatusFn != nil {
		return s.UpdateStatusFn(ctx, taskID, status, errorMsg)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	rec, exists := s.records[taskID]
	if !exists {
		return nil
	}
	rec.task.(*MockTask).TaskStatus = status
	rec.statusAt = time.Now()
	return nil
}

// GetPendingTasks returns all stored tasks in the pending state.
func (s *MockTaskStore) GetPendingTasks(ctx context.Context) ([]Task, error) {
	return s.tasksInStatus(TaskStatusPending, 0), nil
}

// GetProcessingTasks returns stored processing tasks, restricted to those
// whose status last changed more than olderThan ago when olderThan is
// positive.
func (s *MockTaskStore) GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]Task, error) {
	return s.tasksInStatus(TaskStatusProcessing, olderThan), nil
}

func (s *MockTaskStore) tasksInStatus(status TaskStatus, olderThan time.Duration) []Task {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	now := time.Now()
	var matched []Task
	for _, rec := range s.records {
		if rec.task.Status() != status {
			continue
		}
		if olderThan > 0 && now.Sub(rec.statusAt) <= olderThan {
			continue
		}
		matched = append(matched, rec.task)
	}
	return matched
}

// WithTx returns the store itself; the in-memory map has no transactions.
func (s *MockTaskStore) WithTx(tx *sql.Tx) TaskStore {
	return s
}

// storedTask returns the stored task with the given ID, or nil.
func (s *MockTaskStore) storedTask(taskID uuid.UUID) Task {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	rec, exists := s.records[taskID]
	if !exists {
		return nil
	}
	return rec.task
}

// storedTasks returns a snapshot of every stored task.
func (s *MockTaskStore) storedTasks() []Task {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	tasks := make([]Task, 0, len(s.records))
	for _, rec := range s.records {
		tasks = append(tasks, rec.task)
	}
	return tasks
}

// backdateStatus rewinds a stored task's last status change, so stuck-task
// tests can age a processing task without sleeping.
func (s *MockTaskStore) backdateStatus(taskID uuid.UUID, age time.Duration) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if rec, exists := s.records[taskID]; exists {
		rec.statusAt = time.Now().Add(-age)
	}
}
