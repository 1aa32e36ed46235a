package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lumolearn/lumo-core/internal/domain"
	"github.com/lumolearn/lumo-core/internal/platform/logger"
	"github.com/lumolearn/lumo-core/internal/store"
)

// defaultDueLimit caps ListDue when the caller passes a non-positive limit.
const defaultDueLimit = 20

// PostgresReviewStateStore implements the store.ReviewStateStore interface
// using a PostgreSQL database as the storage backend.
type PostgresReviewStateStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresReviewStateStore creates a new PostgreSQL implementation of the
// ReviewStateStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresReviewStateStore(db store.DBTX, logger *slog.Logger) *PostgresReviewStateStore {
	// Validate inputs
	if db == nil {
		panic("db cannot be nil")
	}

	// Use provided logger or create default
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresReviewStateStore{
		db:     db,
		logger: logger.With(slog.String("component", "review_state_store")),
	}
}

// Ensure PostgresReviewStateStore implements store.ReviewStateStore interface
var _ store.ReviewStateStore = (*PostgresReviewStateStore)(nil)

// Create implements store.ReviewStateStore.Create
// It saves a new review state to the database, handling domain validation.
// Returns store.ErrReviewStateExists if a state for the learner/item pair
// already exists.
func (s *PostgresReviewStateStore) Create(ctx context.Context, state *domain.ReviewState) error {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	// Validate state data
	if err := state.Validate(); err != nil {
		log.Warn("review state validation failed during create",
			slog.String("error", err.Error()),
			slog.String("learner_id", state.LearnerID.String()),
			slog.String("item_id", state.ItemID.String()))
		return err
	}

	historyJSON, err := json.Marshal(state.History)
	if err != nil {
		log.Error("failed to marshal review history",
			slog.String("error", err.Error()),
			slog.String("learner_id", state.LearnerID.String()),
			slog.String("item_id", state.ItemID.String()))
		return fmt.Errorf("failed to marshal review history: %w", err)
	}

	query := `
		INSERT INTO review_states (learner_id, item_id, ease_factor, repetitions,
			interval_days, last_reviewed_at, next_review_at, status, history,
			version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		state.LearnerID,
		state.ItemID,
		state.EaseFactor,
		state.Repetitions,
		state.IntervalDays,
		nullableTime(state.LastReviewedAt),
		state.NextReviewAt,
		state.Status,
		historyJSON,
		state.Version,
		state.CreatedAt,
		state.UpdatedAt,
	)

	if err != nil {
		// A second first-exposure write for the same pair lost the race.
		// Callers treat this like a conflict: reload and reapply.
		if IsUniqueViolation(err) {
			log.Debug("review state already exists",
				slog.String("learner_id", state.LearnerID.String()),
				slog.String("item_id", state.ItemID.String()))
			return fmt.Errorf("%w: learner %s already has state for item %s",
				store.ErrReviewStateExists, state.LearnerID, state.ItemID)
		}

		log.Error("failed to create review state",
			slog.String("error", err.Error()),
			slog.String("learner_id", state.LearnerID.String()),
			slog.String("item_id", state.ItemID.String()))
		return MapError(err)
	}

	log.Info("review state created successfully",
		slog.String("learner_id", state.LearnerID.String()),
		slog.String("item_id", state.ItemID.String()),
		slog.String("status", string(state.Status)))
	return nil
}

// Get implements store.ReviewStateStore.Get
// It retrieves the review state for the given learner and item.
// Returns store.ErrReviewStateNotFound if no state exists.
func (s *PostgresReviewStateStore) Get(
	ctx context.Context,
	learnerID, itemID uuid.UUID,
) (*domain.ReviewState, error) {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("retrieving review state",
		slog.String("learner_id", learnerID.String()),
		slog.String("item_id", itemID.String()))

	query := `
		SELECT learner_id, item_id, ease_factor, repetitions, interval_days,
			last_reviewed_at, next_review_at, status, history, version,
			created_at, updated_at
		FROM review_states
		WHERE learner_id = $1 AND item_id = $2
	`

	state, err := scanReviewState(s.db.QueryRowContext(ctx, query, learnerID, itemID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("review state not found",
				slog.String("learner_id", learnerID.String()),
				slog.String("item_id", itemID.String()))
			return nil, store.ErrReviewStateNotFound
		}
		log.Error("failed to get review state",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()),
			slog.String("item_id", itemID.String()))
		return nil, err
	}

	log.Debug("review state retrieved successfully",
		slog.String("learner_id", learnerID.String()),
		slog.String("item_id", itemID.String()),
		slog.Int64("version", state.Version))
	return state, nil
}

// Update implements store.ReviewStateStore.Update
// It persists a recomputed state only while the stored row's version still
// equals state.Version; on success the row's version advances by one and
// state.Version is updated to match, so the caller holds the current token.
// Returns store.ErrConflict when a concurrent write advanced the row first.
// Returns store.ErrReviewStateNotFound if no state exists for the pair.
func (s *PostgresReviewStateStore) Update(ctx context.Context, state *domain.ReviewState) error {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	// Validate state data
	if err := state.Validate(); err != nil {
		log.Warn("review state validation failed during update",
			slog.String("error", err.Error()),
			slog.String("learner_id", state.LearnerID.String()),
			slog.String("item_id", state.ItemID.String()))
		return err
	}

	historyJSON, err := json.Marshal(state.History)
	if err != nil {
		log.Error("failed to marshal review history",
			slog.String("error", err.Error()),
			slog.String("learner_id", state.LearnerID.String()),
			slog.String("item_id", state.ItemID.String()))
		return fmt.Errorf("failed to marshal review history: %w", err)
	}

	query := `
		UPDATE review_states
		SET ease_factor = $1, repetitions = $2, interval_days = $3,
			last_reviewed_at = $4, next_review_at = $5, status = $6,
			history = $7, version = version + 1, updated_at = $8
		WHERE learner_id = $9 AND item_id = $10 AND version = $11
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		state.EaseFactor,
		state.Repetitions,
		state.IntervalDays,
		nullableTime(state.LastReviewedAt),
		state.NextReviewAt,
		state.Status,
		historyJSON,
		state.UpdatedAt,
		state.LearnerID,
		state.ItemID,
		state.Version,
	)
	if err != nil {
		log.Error("failed to update review state",
			slog.String("error", err.Error()),
			slog.String("learner_id", state.LearnerID.String()),
			slog.String("item_id", state.ItemID.String()))
		return MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()),
			slog.String("learner_id", state.LearnerID.String()),
			slog.String("item_id", state.ItemID.String()))
		return err
	}

	// Zero rows means the row is gone or its version moved on. A second
	// query tells the two apart so callers can retry conflicts and treat
	// missing state as a distinct failure.
	if rowsAffected == 0 {
		var storedVersion int64
		err := s.db.QueryRowContext(
			ctx,
			`SELECT version FROM review_states WHERE learner_id = $1 AND item_id = $2`,
			state.LearnerID,
			state.ItemID,
		).Scan(&storedVersion)
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("review state not found for update",
				slog.String("learner_id", state.LearnerID.String()),
				slog.String("item_id", state.ItemID.String()))
			return store.ErrReviewStateNotFound
		}
		if err != nil {
			log.Error("failed to check stored review state version",
				slog.String("error", err.Error()),
				slog.String("learner_id", state.LearnerID.String()),
				slog.String("item_id", state.ItemID.String()))
			return err
		}

		log.Debug("review state version conflict",
			slog.String("learner_id", state.LearnerID.String()),
			slog.String("item_id", state.ItemID.String()),
			slog.Int64("expected_version", state.Version),
			slog.Int64("stored_version", storedVersion))
		return fmt.Errorf("%w: review state version %d is stale",
			store.ErrConflict, state.Version)
	}

	state.Version++

	log.Info("review state updated successfully",
		slog.String("learner_id", state.LearnerID.String()),
		slog.String("item_id", state.ItemID.String()),
		slog.String("status", string(state.Status)),
		slog.Int64("version", state.Version))
	return nil
}

// ListDue implements store.ReviewStateStore.ListDue
// It retrieves states due at or before asOf, soonest first with ties broken
// by lowest ease factor, capped at limit. States due in the future never
// appear in the result.
// Returns an empty slice when nothing is due.
func (s *PostgresReviewStateStore) ListDue(
	ctx context.Context,
	learnerID uuid.UUID,
	asOf time.Time,
	limit int,
) ([]*domain.ReviewState, error) {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	if limit <= 0 {
		limit = defaultDueLimit
	}

	log.Debug("listing due review states",
		slog.String("learner_id", learnerID.String()),
		slog.Time("as_of", asOf),
		slog.Int("limit", limit))

	query := `
		SELECT learner_id, item_id, ease_factor, repetitions, interval_days,
			last_reviewed_at, next_review_at, status, history, version,
			created_at, updated_at
		FROM review_states
		WHERE learner_id = $1 AND next_review_at <= $2
		ORDER BY next_review_at ASC, ease_factor ASC, item_id ASC
		LIMIT $3
	`

	rows, err := s.db.QueryContext(ctx, query, learnerID, asOf, limit)
	if err != nil {
		log.Error("failed to query due review states",
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

	states, err := collectReviewStates(rows)
	if err != nil {
		log.Error("failed to scan due review states",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()))
		return nil, err
	}

	log.Debug("found due review states",
		slog.String("learner_id", learnerID.String()),
		slog.Int("count", len(states)))
	return states, nil
}

// ListByLearner implements store.ReviewStateStore.ListByLearner
// It retrieves every review state belonging to the learner, ordered by next
// review time. Returns an empty slice when the learner has no states.
func (s *PostgresReviewStateStore) ListByLearner(
	ctx context.Context,
	learnerID uuid.UUID,
) ([]*domain.ReviewState, error) {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("listing review states for learner",
		slog.String("learner_id", learnerID.String()))

	query := `
		SELECT learner_id, item_id, ease_factor, repetitions, interval_days,
			last_reviewed_at, next_review_at, status, history, version,
			created_at, updated_at
		FROM review_states
		WHERE learner_id = $1
		ORDER BY next_review_at ASC, item_id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, learnerID)
	if err != nil {
		log.Error("failed to query review states for learner",
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

	states, err := collectReviewStates(rows)
	if err != nil {
		log.Error("failed to scan review states for learner",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()))
		return nil, err
	}

	log.Debug("found review states for learner",
		slog.String("learner_id", learnerID.String()),
		slog.Int("count", len(states)))
	return states, nil
}

// WithTx implements store.ReviewStateStore.WithTx
// It returns a new store instance backed by the given transaction. The caller
// owns the transaction lifecycle.
func (s *PostgresReviewStateStore) WithTx(tx *sql.Tx) store.ReviewStateStore {
	return &PostgresReviewStateStore{
		db:     tx,
		logger: s.logger,
	}
}

// rowScanner abstracts *sql.Row and *sql.Rows so the two share scan logic.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanReviewState reads one review state row into a domain struct. The zero
// LastReviewedAt round-trips through a NULL column, and the history column
// round-trips through JSONB.
func scanReviewState(row rowScanner) (*domain.ReviewState, error) {
	var state domain.ReviewState
	var lastReviewedAt sql.NullTime
	var status string
	var historyJSON []byte

	err := row.Scan(
		&state.LearnerID,
		&state.ItemID,
		&state.EaseFactor,
		&state.Repetitions,
		&state.IntervalDays,
		&lastReviewedAt,
		&state.NextReviewAt,
		&status,
		&historyJSON,
		&state.Version,
		&state.CreatedAt,
		&state.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastReviewedAt.Valid {
		state.LastReviewedAt = lastReviewedAt.Time
	}
	state.Status = domain.ReviewStatus(status)

	if len(historyJSON) > 0 {
		if err := json.Unmarshal(historyJSON, &state.History); err != nil {
			return nil, fmt.Errorf("failed to unmarshal review history: %w", err)
		}
	}

	return &state, nil
}

// collectReviewStates drains rows into a slice, never returning nil so
// callers can range over an empty result.
func collectReviewStates(rows *sql.Rows) ([]*domain.ReviewState, error) {
	states := []*domain.ReviewState{}

	for rows.Next() {
		state, err := scanReviewState(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review state row: %w", err)
		}
		states = append(states, state)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating review state rows: %w", err)
	}

	return states, nil
}

// nullableTime maps the zero time to SQL NULL. LastReviewedAt stays zero
// until the learner's first grade.
func nullableTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
