package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/lumolearn/lumo-core/internal/domain"
	"github.com/lumolearn/lumo-core/internal/platform/logger"
	"github.com/lumolearn/lumo-core/internal/store"
)

// PostgresUnitStore implements the store.UnitStore interface using a
// PostgreSQL database as the storage backend. Units live in the
// learning_units table; prerequisite edges live in unit_prerequisites with a
// position column preserving authored order.
type PostgresUnitStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresUnitStore creates a new PostgreSQL implementation of the
// UnitStore interface. It accepts a database connection or transaction that
// should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresUnitStore(db store.DBTX, logger *slog.Logger) *PostgresUnitStore {
	// Validate inputs
	if db == nil {
		panic("db cannot be nil")
	}

	// Use provided logger or create default
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresUnitStore{
		db:     db,
		logger: logger.With(slog.String("component", "unit_store")),
	}
}

// Ensure PostgresUnitStore implements store.UnitStore interface
var _ store.UnitStore = (*PostgresUnitStore)(nil)

// Create implements store.UnitStore.Create
// It saves a new learning unit and its prerequisite edges atomically,
// handling domain validation.
// Returns store.ErrUnitExists if a unit with the same ID already exists.
// Returns store.ErrUnitNotFound if a prerequisite references an unknown unit.
// Returns store.ErrInvalidEntity if the edges would introduce a cycle.
func (s *PostgresUnitStore) Create(ctx context.Context, unit *domain.LearningUnit) error {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	// Validate unit data
	if err := unit.Validate(); err != nil {
		log.Warn("learning unit validation failed during create",
			slog.String("error", err.Error()),
			slog.String("unit_id", unit.ID.String()))
		return err
	}

	err := s.inTx(ctx, func(q store.DBTX) error {
		tagsJSON, err := json.Marshal(unit.Tags)
		if err != nil {
			return fmt.Errorf("failed to marshal unit tags: %w", err)
		}

		insertUnit := `
			INSERT INTO learning_units (id, title, order_hint, tags, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		_, err = q.ExecContext(
			ctx,
			insertUnit,
			unit.ID,
			unit.Title,
			nullableOrderHint(unit.OrderHint),
			tagsJSON,
			unit.CreatedAt,
			unit.UpdatedAt,
		)
		if err != nil {
			if IsUniqueViolation(err) {
				log.Debug("learning unit already exists",
					slog.String("unit_id", unit.ID.String()))
				return fmt.Errorf("%w: unit %s", store.ErrUnitExists, unit.ID)
			}
			return MapError(err)
		}

		if err := s.insertEdges(ctx, log, q, unit); err != nil {
			return err
		}

		return s.checkAcyclic(ctx, q, unit.ID)
	})

	if err != nil {
		if !store.IsDuplicateError(err) && !store.IsNotFoundError(err) &&
			!errors.Is(err, store.ErrInvalidEntity) {
			log.Error("failed to create learning unit",
				slog.String("error", err.Error()),
				slog.String("unit_id", unit.ID.String()))
		}
		return err
	}

	log.Info("learning unit created successfully",
		slog.String("unit_id", unit.ID.String()),
		slog.String("title", unit.Title),
		slog.Int("prerequisite_count", len(unit.Prerequisites)))
	return nil
}

// GetByID implements store.UnitStore.GetByID
// It retrieves a learning unit by its unique ID with prerequisites populated
// in authored order.
// Returns store.ErrUnitNotFound if the unit does not exist.
func (s *PostgresUnitStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.LearningUnit, error) {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("retrieving learning unit by ID", slog.String("unit_id", id.String()))

	query := `
		SELECT id, title, order_hint, tags, created_at, updated_at
		FROM learning_units
		WHERE id = $1
	`

	unit, err := scanLearningUnit(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("learning unit not found", slog.String("unit_id", id.String()))
			return nil, store.ErrUnitNotFound
		}
		log.Error("failed to get learning unit by ID",
			slog.String("error", err.Error()),
			slog.String("unit_id", id.String()))
		return nil, err
	}

	prereqs, err := s.queryPrerequisites(ctx, id)
	if err != nil {
		log.Error("failed to load unit prerequisites",
			slog.String("error", err.Error()),
			slog.String("unit_id", id.String()))
		return nil, err
	}
	unit.Prerequisites = prereqs

	log.Debug("learning unit retrieved successfully",
		slog.String("unit_id", id.String()),
		slog.Int("prerequisite_count", len(unit.Prerequisites)))
	return unit, nil
}

// List implements store.UnitStore.List
// It retrieves all learning units with their prerequisites populated. The
// edges come back in one query and are merged in memory, so loading the whole
// graph costs two round trips regardless of unit count.
// Returns an empty slice when the store holds no units.
func (s *PostgresUnitStore) List(ctx context.Context) ([]*domain.LearningUnit, error) {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("listing all learning units")

	query := `
		SELECT id, title, order_hint, tags, created_at, updated_at
		FROM learning_units
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		log.Error("failed to query learning units", slog.String("error", err.Error()))
		return nil, err
	}
	defer func() {
		err := rows.Close()
		if err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	units := []*domain.LearningUnit{}
	for rows.Next() {
		unit, err := scanLearningUnit(rows)
		if err != nil {
			log.Error("failed to scan learning unit row", slog.String("error", err.Error()))
			return nil, fmt.Errorf("failed to scan learning unit row: %w", err)
		}
		units = append(units, unit)
	}
	if err := rows.Err(); err != nil {
		log.Error("error iterating learning unit rows", slog.String("error", err.Error()))
		return nil, fmt.Errorf("error iterating learning unit rows: %w", err)
	}

	if len(units) == 0 {
		return units, nil
	}

	edges, err := s.queryAllEdges(ctx)
	if err != nil {
		log.Error("failed to load prerequisite edges", slog.String("error", err.Error()))
		return nil, err
	}
	for _, unit := range units {
		unit.Prerequisites = edges[unit.ID]
	}

	log.Debug("listed learning units", slog.Int("count", len(units)))
	return units, nil
}

// ListPrerequisites implements store.UnitStore.ListPrerequisites
// It retrieves the unit's direct prerequisite IDs in authored order.
// Returns store.ErrUnitNotFound if the unit does not exist.
func (s *PostgresUnitStore) ListPrerequisites(ctx context.Context, unitID uuid.UUID) ([]uuid.UUID, error) {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("listing unit prerequisites", slog.String("unit_id", unitID.String()))

	var exists bool
	err := s.db.QueryRowContext(
		ctx,
		`SELECT EXISTS (SELECT 1 FROM learning_units WHERE id = $1)`,
		unitID,
	).Scan(&exists)
	if err != nil {
		log.Error("failed to check unit existence",
			slog.String("error", err.Error()),
			slog.String("unit_id", unitID.String()))
		return nil, err
	}
	if !exists {
		log.Debug("learning unit not found", slog.String("unit_id", unitID.String()))
		return nil, store.ErrUnitNotFound
	}

	prereqs, err := s.queryPrerequisites(ctx, unitID)
	if err != nil {
		log.Error("failed to load unit prerequisites",
			slog.String("error", err.Error()),
			slog.String("unit_id", unitID.String()))
		return nil, err
	}

	log.Debug("listed unit prerequisites",
		slog.String("unit_id", unitID.String()),
		slog.Int("count", len(prereqs)))
	return prereqs, nil
}

// Update implements store.UnitStore.Update
// It replaces an existing unit's fields and prerequisite edges atomically.
// The same integrity checks as Create apply.
// Returns store.ErrUnitNotFound if the unit does not exist.
// Returns store.ErrInvalidEntity if the new edges would introduce a cycle.
func (s *PostgresUnitStore) Update(ctx context.Context, unit *domain.LearningUnit) error {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	// Validate unit data
	if err := unit.Validate(); err != nil {
		log.Warn("learning unit validation failed during update",
			slog.String("error", err.Error()),
			slog.String("unit_id", unit.ID.String()))
		return err
	}

	err := s.inTx(ctx, func(q store.DBTX) error {
		tagsJSON, err := json.Marshal(unit.Tags)
		if err != nil {
			return fmt.Errorf("failed to marshal unit tags: %w", err)
		}

		updateUnit := `
			UPDATE learning_units
			SET title = $1, order_hint = $2, tags = $3, updated_at = $4
			WHERE id = $5
		`
		result, err := q.ExecContext(
			ctx,
			updateUnit,
			unit.Title,
			nullableOrderHint(unit.OrderHint),
			tagsJSON,
			unit.UpdatedAt,
			unit.ID,
		)
		if err != nil {
			return MapError(err)
		}
		if err := CheckRowsAffected(result, store.ErrUnitNotFound); err != nil {
			log.Debug("learning unit not found for update",
				slog.String("unit_id", unit.ID.String()))
			return err
		}

		deleteEdges := `DELETE FROM unit_prerequisites WHERE unit_id = $1`
		if _, err := q.ExecContext(ctx, deleteEdges, unit.ID); err != nil {
			return fmt.Errorf("failed to clear prerequisite edges: %w", err)
		}

		if err := s.insertEdges(ctx, log, q, unit); err != nil {
			return err
		}

		return s.checkAcyclic(ctx, q, unit.ID)
	})

	if err != nil {
		if !store.IsNotFoundError(err) && !errors.Is(err, store.ErrInvalidEntity) {
			log.Error("failed to update learning unit",
				slog.String("error", err.Error()),
				slog.String("unit_id", unit.ID.String()))
		}
		return err
	}

	log.Info("learning unit updated successfully",
		slog.String("unit_id", unit.ID.String()),
		slog.String("title", unit.Title),
		slog.Int("prerequisite_count", len(unit.Prerequisites)))
	return nil
}

// Delete implements store.UnitStore.Delete
// It removes a learning unit; its outgoing prerequisite edges cascade away
// with it, as do any completion records for the unit.
// Returns store.ErrUnitHasDependents while other units list it as a
// prerequisite.
// Returns store.ErrUnitNotFound if the unit does not exist.
func (s *PostgresUnitStore) Delete(ctx context.Context, id uuid.UUID) error {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `DELETE FROM learning_units WHERE id = $1`

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		// Incoming edges do not cascade, so deleting a unit other units
		// depend on trips their prerequisite foreign key.
		if IsForeignKeyViolation(err) {
			log.Warn("learning unit still has dependents",
				slog.String("unit_id", id.String()))
			return fmt.Errorf("%w: unit %s is a prerequisite of other units",
				store.ErrUnitHasDependents, id)
		}
		log.Error("failed to delete learning unit",
			slog.String("error", err.Error()),
			slog.String("unit_id", id.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrUnitNotFound); err != nil {
		log.Debug("learning unit not found for delete", slog.String("unit_id", id.String()))
		return err
	}

	log.Info("learning unit deleted successfully", slog.String("unit_id", id.String()))
	return nil
}

// WithTx implements store.UnitStore.WithTx
// It returns a new store instance backed by the given transaction. The caller
// owns the transaction lifecycle.
func (s *PostgresUnitStore) WithTx(tx *sql.Tx) store.UnitStore {
	return &PostgresUnitStore{
		db:     tx,
		logger: s.logger,
	}
}

// inTx runs fn atomically. A store built over a plain connection opens a
// transaction for the call; a store already scoped to a transaction via
// WithTx joins it instead.
func (s *PostgresUnitStore) inTx(ctx context.Context, fn func(q store.DBTX) error) error {
	if db, ok := s.db.(*sql.DB); ok {
		return store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
			return fn(tx)
		})
	}
	return fn(s.db)
}

// insertEdges writes the unit's prerequisite edges with their authored
// positions.
// Returns store.ErrUnitNotFound naming the prerequisite when an edge
// references a unit that does not exist.
func (s *PostgresUnitStore) insertEdges(
	ctx context.Context,
	log *slog.Logger,
	q store.DBTX,
	unit *domain.LearningUnit,
) error {
	if len(unit.Prerequisites) == 0 {
		return nil
	}

	insertEdge := `
		INSERT INTO unit_prerequisites (unit_id, prerequisite_id, position)
		VALUES ($1, $2, $3)
	`
	for i, prereqID := range unit.Prerequisites {
		if _, err := q.ExecContext(ctx, insertEdge, unit.ID, prereqID, i); err != nil {
			if IsForeignKeyViolation(err) {
				log.Warn("prerequisite references unknown unit",
					slog.String("unit_id", unit.ID.String()),
					slog.String("prerequisite_id", prereqID.String()))
				return fmt.Errorf("%w: prerequisite %s", store.ErrUnitNotFound, prereqID)
			}
			return MapError(err)
		}
	}
	return nil
}

// checkAcyclic rejects the write when the unit's prerequisites can reach the
// unit itself. Create and Update only add edges out of one unit, so any new
// cycle must pass through it; the probe follows edges from that unit and the
// UNION keeps it bounded by the edge count even if the stored graph is
// already malformed.
func (s *PostgresUnitStore) checkAcyclic(ctx context.Context, q store.DBTX, unitID uuid.UUID) error {
	query := `
		WITH RECURSIVE reachable AS (
			SELECT prerequisite_id FROM unit_prerequisites WHERE unit_id = $1
			UNION
			SELECT up.prerequisite_id
			FROM unit_prerequisites up
			JOIN reachable r ON up.unit_id = r.prerequisite_id
		)
		SELECT EXISTS (SELECT 1 FROM reachable WHERE prerequisite_id = $1)
	`

	var cyclic bool
	if err := q.QueryRowContext(ctx, query, unitID).Scan(&cyclic); err != nil {
		return fmt.Errorf("failed to check prerequisite graph for cycles: %w", err)
	}
	if cyclic {
		return fmt.Errorf("%w: prerequisites of unit %s cycle back to it",
			store.ErrInvalidEntity, unitID)
	}
	return nil
}

// queryPrerequisites loads a unit's direct prerequisite IDs in authored
// order. Existence of the unit is the caller's concern.
func (s *PostgresUnitStore) queryPrerequisites(ctx context.Context, unitID uuid.UUID) ([]uuid.UUID, error) {
	query := `
		SELECT prerequisite_id
		FROM unit_prerequisites
		WHERE unit_id = $1
		ORDER BY position ASC
	`

	rows, err := s.db.QueryContext(ctx, query, unitID)
	if err != nil {
		return nil, fmt.Errorf("failed to query unit prerequisites: %w", err)
	}
	defer func() {
		err := rows.Close()
		if err != nil {
			s.logger.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var prereqs []uuid.UUID
	for rows.Next() {
		var prereqID uuid.UUID
		if err := rows.Scan(&prereqID); err != nil {
			return nil, fmt.Errorf("failed to scan prerequisite row: %w", err)
		}
		prereqs = append(prereqs, prereqID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prerequisite rows: %w", err)
	}

	return prereqs, nil
}

// queryAllEdges loads the whole edge table grouped by unit, positions
// preserved within each group.
func (s *PostgresUnitStore) queryAllEdges(ctx context.Context) (map[uuid.UUID][]uuid.UUID, error) {
	query := `
		SELECT unit_id, prerequisite_id
		FROM unit_prerequisites
		ORDER BY unit_id ASC, position ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query prerequisite edges: %w", err)
	}
	defer func() {
		err := rows.Close()
		if err != nil {
			s.logger.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	edges := make(map[uuid.UUID][]uuid.UUID)
	for rows.Next() {
		var unitID, prereqID uuid.UUID
		if err := rows.Scan(&unitID, &prereqID); err != nil {
			return nil, fmt.Errorf("failed to scan prerequisite edge row: %w", err)
		}
		edges[unitID] = append(edges[unitID], prereqID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prerequisite edge rows: %w", err)
	}

	return edges, nil
}

// scanLearningUnit reads one unit row into a domain struct. The order hint
// round-trips through a NULL column and tags round-trip through JSONB.
func scanLearningUnit(row rowScanner) (*domain.LearningUnit, error) {
	var unit domain.LearningUnit
	var orderHint sql.NullInt64
	var tagsJSON []byte

	err := row.Scan(
		&unit.ID,
		&unit.Title,
		&orderHint,
		&tagsJSON,
		&unit.CreatedAt,
		&unit.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if orderHint.Valid {
		hint := int(orderHint.Int64)
		unit.OrderHint = &hint
	}

	if len(tagsJSON) > 0 {
		if err := json.Unmarshal(tagsJSON, &unit.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal unit tags: %w", err)
		}
	}

	return &unit, nil
}

// nullableOrderHint maps a nil order hint to SQL NULL.
func nullableOrderHint(hint *int) sql.NullInt64 {
	if hint == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*hint), Valid: true}
}
