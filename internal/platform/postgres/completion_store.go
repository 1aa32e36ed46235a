package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lumolearn/lumo-core/internal/domain"
	"github.com/lumolearn/lumo-core/internal/platform/logger"
	"github.com/lumolearn/lumo-core/internal/store"
)

// PostgresCompletionStore implements the store.CompletionStore interface
// using a PostgreSQL database as the storage backend.
type PostgresCompletionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCompletionStore creates a new PostgreSQL implementation of the
// CompletionStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresCompletionStore(db store.DBTX, logger *slog.Logger) *PostgresCompletionStore {
	// Validate inputs
	if db == nil {
		panic("db cannot be nil")
	}

	// Use provided logger or create default
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresCompletionStore{
		db:     db,
		logger: logger.With(slog.String("component", "completion_store")),
	}
}

// Ensure PostgresCompletionStore implements store.CompletionStore interface
var _ store.CompletionStore = (*PostgresCompletionStore)(nil)

// MarkCompleted implements store.CompletionStore.MarkCompleted
// It records that the learner completed the unit at the given time. Repeating
// the write for the same learner/unit pair is a no-op that keeps the earliest
// recorded time.
// Returns store.ErrUnitNotFound if the unit does not exist.
func (s *PostgresCompletionStore) MarkCompleted(
	ctx context.Context,
	learnerID, unitID uuid.UUID,
	at time.Time,
) error {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	// Validate through the domain constructor
	completion, err := domain.NewUnitCompletion(learnerID, unitID, at)
	if err != nil {
		log.Warn("completion validation failed",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()),
			slog.String("unit_id", unitID.String()))
		return err
	}

	query := `
		INSERT INTO learner_unit_completions (learner_id, unit_id, completed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (learner_id, unit_id) DO NOTHING
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		completion.LearnerID,
		completion.UnitID,
		completion.CompletedAt,
	)
	if err != nil {
		// Check for foreign key violation
		if IsForeignKeyViolation(err) {
			log.Warn("completion references unknown unit",
				slog.String("learner_id", learnerID.String()),
				slog.String("unit_id", unitID.String()))
			return fmt.Errorf("%w: unit %s", store.ErrUnitNotFound, unitID)
		}

		log.Error("failed to record unit completion",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()),
			slog.String("unit_id", unitID.String()))
		return MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()),
			slog.String("unit_id", unitID.String()))
		return err
	}

	// Zero rows means the pair was already recorded; the earlier time wins.
	if rowsAffected == 0 {
		log.Debug("unit already completed, keeping earliest record",
			slog.String("learner_id", learnerID.String()),
			slog.String("unit_id", unitID.String()))
		return nil
	}

	log.Info("unit completion recorded successfully",
		slog.String("learner_id", learnerID.String()),
		slog.String("unit_id", unitID.String()))
	return nil
}

// ListByLearner implements store.CompletionStore.ListByLearner
// It retrieves all of the learner's completions, earliest first.
// Returns an empty slice when the learner has completed nothing.
func (s *PostgresCompletionStore) ListByLearner(
	ctx context.Context,
	learnerID uuid.UUID,
) ([]*domain.UnitCompletion, error) {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("listing completions for learner",
		slog.String("learner_id", learnerID.String()))

	query := `
		SELECT learner_id, unit_id, completed_at
		FROM learner_unit_completions
		WHERE learner_id = $1
		ORDER BY completed_at ASC, unit_id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, learnerID)
	if err != nil {
		log.Error("failed to query completions for learner",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()))
		return nil, err
	}
	defer func() {
		err := rows.Close()
		if err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	completions := []*domain.UnitCompletion{}
	for rows.Next() {
		var completion domain.UnitCompletion
		err := rows.Scan(
			&completion.LearnerID,
			&completion.UnitID,
			&completion.CompletedAt,
		)
		if err != nil {
			log.Error("failed to scan completion row",
				slog.String("error", err.Error()),
				slog.String("learner_id", learnerID.String()))
			return nil, fmt.Errorf("failed to scan completion row: %w", err)
		}
		completions = append(completions, &completion)
	}
	if err := rows.Err(); err != nil {
		log.Error("error iterating completion rows",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()))
		return nil, fmt.Errorf("error iterating completion rows: %w", err)
	}

	log.Debug("found completions for learner",
		slog.String("learner_id", learnerID.String()),
		slog.Int("count", len(completions)))
	return completions, nil
}

// WithTx implements store.CompletionStore.WithTx
// It returns a new store instance backed by the given transaction. The caller
// owns the transaction lifecycle.
func (s *PostgresCompletionStore) WithTx(tx *sql.Tx) store.CompletionStore {
	return &PostgresCompletionStore{
		db:     tx,
		logger: s.logger,
	}
}
