package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lumolearn/lumo-core/internal/platform/logger"
	"github.com/lumolearn/lumo-core/internal/store"
	"github.com/lumolearn/lumo-core/internal/task"
)

// PostgresTaskStore implements the task.TaskStore interface using PostgreSQL.
// Revivers registered per task type turn stored rows back into executable
// tasks during recovery; rows of unregistered types come back inert and fail
// loudly when executed.
type PostgresTaskStore struct {
	db       store.DBTX
	logger   *slog.Logger
	revivers map[string]task.TaskReviver
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the
// TaskStore interface. It accepts a database connection or transaction that
// should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	// Validate inputs
	if db == nil {
		panic("db cannot be nil")
	}

	// Use provided logger or create default
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:       db,
		logger:   logger.With(slog.String("component", "task_store")),
		revivers: make(map[string]task.TaskReviver),
	}
}

// Ensure PostgresTaskStore implements task.TaskStore interface
var _ task.TaskStore = (*PostgresTaskStore)(nil)

// RegisterReviver associates a task type with the reviver that rebuilds its
// tasks from stored rows. Register during wiring, before the runner starts;
// the registry is read concurrently afterwards.
func (s *PostgresTaskStore) RegisterReviver(taskType string, reviver task.TaskReviver) {
	if reviver == nil {
		panic("reviver cannot be nil")
	}
	s.revivers[taskType] = reviver
}

// SaveTask implements task.TaskStore.SaveTask
// It persists a task to the database.
func (s *PostgresTaskStore) SaveTask(ctx context.Context, t task.Task) error {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO tasks (id, type, payload, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	now := time.Now().UTC()

	_, err := s.db.ExecContext(
		ctx,
		query,
		t.ID(),
		t.Type(),
		t.Payload(),
		t.Status(),
		now,
		now,
	)
	if err != nil {
		log.Error("failed to save task",
			slog.String("error", err.Error()),
			slog.String("task_id", t.ID().String()),
			slog.String("task_type", t.Type()))
		return fmt.Errorf("failed to save task to database: %w", err)
	}

	log.Debug("task saved",
		slog.String("task_id", t.ID().String()),
		slog.String("task_type", t.Type()),
		slog.String("status", string(t.Status())))
	return nil
}

// UpdateTaskStatus implements task.TaskStore.UpdateTaskStatus
// It updates the status of a task in the database. A missing task is treated
// as a no-op so status writes racing a cleanup never fail the caller.
func (s *PostgresTaskStore) UpdateTaskStatus(
	ctx context.Context,
	taskID uuid.UUID,
	status task.TaskStatus,
	errorMsg string,
) error {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE tasks
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		status,
		errorMsg,
		time.Now().UTC(),
		taskID,
	)
	if err != nil {
		log.Error("failed to update task status",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()),
			slog.String("status", string(status)))
		return fmt.Errorf("failed to update task status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()))
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		log.Warn("no task found with ID to update status",
			slog.String("task_id", taskID.String()),
			slog.String("status", string(status)))
		return nil
	}

	return nil
}

// GetPendingTasks implements task.TaskStore.GetPendingTasks
// It retrieves all tasks with "pending" status, oldest first.
func (s *PostgresTaskStore) GetPendingTasks(ctx context.Context) ([]task.Task, error) {
	return s.getTasksByStatus(ctx, task.TaskStatusPending, 0)
}

// GetProcessingTasks implements task.TaskStore.GetProcessingTasks
// It retrieves tasks with "processing" status, optionally only those that
// have sat in that state longer than olderThan.
func (s *PostgresTaskStore) GetProcessingTasks(
	ctx context.Context,
	olderThan time.Duration,
) ([]task.Task, error) {
	return s.getTasksByStatus(ctx, task.TaskStatusProcessing, olderThan)
}

// WithTx implements task.TaskStore.WithTx
// It returns a new store instance backed by the given transaction, sharing
// the reviver registry. The caller owns the transaction lifecycle.
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) task.TaskStore {
	return &PostgresTaskStore{
		db:       tx,
		logger:   s.logger,
		revivers: s.revivers,
	}
}

// getTasksByStatus is a helper method to get tasks by status with an
// optional age filter, reviving each row into its executable form where a
// reviver is registered.
func (s *PostgresTaskStore) getTasksByStatus(
	ctx context.Context,
	status task.TaskStatus,
	olderThan time.Duration,
) ([]task.Task, error) {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	var query string
	var args []any

	if olderThan > 0 {
		query = `
			SELECT id, type, payload, status, error_message, created_at, updated_at
			FROM tasks
			WHERE status = $1 AND updated_at < $2
			ORDER BY created_at ASC
		`
		args = []any{status, time.Now().UTC().Add(-olderThan)}
	} else {
		query = `
			SELECT id, type, payload, status, error_message, created_at, updated_at
			FROM tasks
			WHERE status = $1
			ORDER BY created_at ASC
		`
		args = []any{status}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query tasks by status",
			slog.String("error", err.Error()),
			slog.String("status", string(status)))
		return nil, fmt.Errorf("failed to query tasks by status: %w", err)
	}
	defer func() {
		err := rows.Close()
		if err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var tasks []task.Task

	for rows.Next() {
		var errorMessage sql.NullString
		dbTask := &databaseTask{}

		if err := rows.Scan(
			&dbTask.id,
			&dbTask.taskType,
			&dbTask.payload,
			&dbTask.status,
			&errorMessage,
			&dbTask.createdAt,
			&dbTask.updatedAt,
		); err != nil {
			log.Error("failed to scan task row",
				slog.String("error", err.Error()),
				slog.String("status", string(status)))
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		dbTask.errorMessage = errorMessage.String

		tasks = append(tasks, s.revive(log, dbTask))
	}

	if err := rows.Err(); err != nil {
		log.Error("error iterating task rows",
			slog.String("error", err.Error()),
			slog.String("status", string(status)))
		return nil, fmt.Errorf("error iterating task rows: %w", err)
	}

	return tasks, nil
}

// revive rebuilds a stored row into its executable task. Rows with no
// registered reviver, or whose reviver rejects the payload, come back as the
// inert database record; executing one fails with a descriptive error, which
// parks the row in the failed state where it stays visible.
func (s *PostgresTaskStore) revive(log *slog.Logger, dbTask *databaseTask) task.Task {
	reviver, ok := s.revivers[dbTask.taskType]
	if !ok {
		return dbTask
	}

	revived, err := reviver.ReviveTask(dbTask.id, dbTask.payload)
	if err != nil {
		log.Error("failed to revive task, returning inert record",
			slog.String("error", err.Error()),
			slog.String("task_id", dbTask.id.String()),
			slog.String("task_type", dbTask.taskType))
		return dbTask
	}

	return revived
}

// databaseTask carries a task row loaded from the database. It satisfies
// task.Task so unrevivable rows still flow through the runner, but executing
// one always fails.
type databaseTask struct {
	id           uuid.UUID
	taskType     string
	payload      []byte
	status       task.TaskStatus
	errorMessage string
	createdAt    time.Time
	updatedAt    time.Time
}

// ID returns the task's unique identifier
func (t *databaseTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *databaseTask) Type() string {
	return t.taskType
}

// Payload returns the task data as a byte slice
func (t *databaseTask) Payload() []byte {
	return t.payload
}

// Status returns the current task status
func (t *databaseTask) Status() task.TaskStatus {
	return t.status
}

// Execute fails: a database record with no reviver has no runnable logic.
func (t *databaseTask) Execute(ctx context.Context) error {
	return fmt.Errorf("no reviver registered for task type %q", t.taskType)
}
