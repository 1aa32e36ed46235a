package task

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the current state of a task
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Task type constants
const (
	// TaskTypePlanRefresh represents the task type for recomputing a
	// learner's recommended path after their progress changes
	TaskTypePlanRefresh = "plan_refresh"
)

// Task represents a unit of background work to be processed
// Version: 1.0
type Task interface {
	// ID returns the task's unique identifier
	ID() uuid.UUID

	// Type returns the task type identifier
	Type() string

	// Payload returns the task data as a byte slice
	Payload() []byte

	// Status returns the current task status
	Status() TaskStatus

	// Execute runs the task logic
	Execute(ctx context.Context) error
}

// TaskFactory creates tasks bound to a learner. Event handlers depend on
// this rather than a concrete factory so tests can substitute their own.
type TaskFactory interface {
	// CreateTask builds a new pending task for the given learner
	CreateTask(learnerID uuid.UUID) (Task, error)
}

// TaskReviver rebuilds an executable task from its persisted form. The task
// store consults a reviver per task type when loading rows, so tasks recovered
// after a restart run with their original identity instead of coming back as
// inert records.
type TaskReviver interface {
	// ReviveTask reconstructs a task from its stored ID and payload
	ReviveTask(id uuid.UUID, payload []byte) (Task, error)
}

// TaskSubmitter accepts tasks for background execution
type TaskSubmitter interface {
	// Submit persists the task and hands it to the worker queue.
	// Returns an error if the task cannot be saved or the queue is full.
	Submit(ctx context.Context, task Task) error
}

// TaskStore defines the interface for persisting tasks
// Version: 1.0
type TaskStore interface {
	// SaveTask persists a task to the database
	SaveTask(ctx context.Context, task Task) error

	// UpdateTaskStatus updates the status of a task
	UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error

	// GetPendingTasks retrieves all tasks with "pending" status
	GetPendingTasks(ctx context.Context) ([]Task, error)

	// GetProcessingTasks retrieves tasks with "processing" status
	// If olderThan is non-zero, only returns tasks that have been in this state
	// longer than the specified duration
	GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]Task, error)

	// WithTx returns a new TaskStore instance that uses the provided transaction.
	// This allows for multiple operations to be executed within a single transaction.
	// The transaction should be created and managed by the caller (typically a service).
	WithTx(tx *sql.Tx) TaskStore
}
