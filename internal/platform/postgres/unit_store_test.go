package postgres

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lumolearn/lumo-core/internal/domain"
	"github.com/lumolearn/lumo-core/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var unitColumns = []string{"id", "title", "order_hint", "tags", "created_at", "updated_at"}

func newUnitStoreMock(t *testing.T) (*PostgresUnitStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	testLogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewPostgresUnitStore(db, testLogger), mock
}

func sampleUnit(prereqs ...uuid.UUID) *domain.LearningUnit {
	created := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	return &domain.LearningUnit{
		ID:            uuid.New(),
		Title:         "Quadratic Equations",
		Prerequisites: prereqs,
		Tags:          []string{"algebra", "equations"},
		CreatedAt:     created,
		UpdatedAt:     created,
	}
}

func mustMarshalTags(t *testing.T, tags []string) []byte {
	t.Helper()
	data, err := json.Marshal(tags)
	require.NoError(t, err)
	return data
}

// expectCycleCheck queues the recursive reachability probe that closes every
// unit write.
func expectCycleCheck(mock sqlmock.Sqlmock, unitID uuid.UUID, cyclic bool) {
	mock.ExpectQuery("WITH RECURSIVE reachable").
		WithArgs(unitID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(cyclic))
}

func TestNewPostgresUnitStore(t *testing.T) {
	t.Run("panics_on_nil_db", func(t *testing.T) {
		assert.Panics(t, func() {
			NewPostgresUnitStore(nil, slog.Default())
		})
	})

	t.Run("nil_logger_uses_default", func(t *testing.T) {
		db, _, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		assert.NotPanics(t, func() {
			s := NewPostgresUnitStore(db, nil)
			assert.NotNil(t, s)
		})
	})
}

func TestUnitStore_Create(t *testing.T) {
	t.Run("success_with_prerequisites", func(t *testing.T) {
		s, mock := newUnitStoreMock(t)
		prereqA, prereqB := uuid.New(), uuid.New()
		unit := sampleUnit(prereqA, prereqB)
		hint := 3
		unit.OrderHint = &hint
		tags := mustMarshalTags(t, unit.Tags)

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO learning_units").
			WithArgs(unit.ID, unit.Title, int64(3), tags, unit.CreatedAt, unit.UpdatedAt).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO unit_prerequisites").
			WithArgs(unit.ID, prereqA, 0).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO unit_prerequisites").
			WithArgs(unit.ID, prereqB, 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		expectCycleCheck(mock, unit.ID, false)
		mock.ExpectCommit()

		err := s.Create(context.Background(), unit)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no_order_hint_stores_null", func(t *testing.T) {
		s, mock := newUnitStoreMock(t)
		unit := sampleUnit()
		tags := mustMarshalTags(t, unit.Tags)

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO learning_units").
			WithArgs(unit.ID, unit.Title, nil, tags, unit.CreatedAt, unit.UpdatedAt).
			WillReturnResult(sqlmock.NewResult(0, 1))
		expectCycleCheck(mock, unit.ID, false)
		mock.ExpectCommit()

		err := s.Create(context.Background(), unit)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate_id_returns_exists", func(t *testing.T) {
		s, mock := newUnitStoreMock(t)
		unit := sampleUnit()

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO learning_units").
			WillReturnError(&pgconn.PgError{
				Code:           uniqueViolationCode,
				ConstraintName: "learning_units_pkey",
			})
		mock.ExpectRollback()

		err := s.Create(context.Background(), unit)

		assert.ErrorIs(t, err, store.ErrUnitExists)
		assert.True(t, store.IsDuplicateError(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown_prerequisite_returns_not_found", func(t *testing.T) {
		s, mock := newUnitStoreMock(t)
		missing := uuid.New()
		unit := sampleUnit(missing)

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO learning_units").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO unit_prerequisites").
			WithArgs(unit.ID, missing, 0).
			WillReturnError(&pgconn.PgError{
				Code:           foreignKeyViolationCode,
				ConstraintName: "unit_prerequisites_prerequisite_id_fkey",
			})
		mock.ExpectRollback()

		err := s.Create(context.Background(), unit)

		assert.ErrorIs(t, err, store.ErrUnitNotFound)
		assert.Contains(t, err.Error(), missing.String())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("cycle_rolls_back_with_invalid_entity", func(t *testing.T) {
		s, mock := newUnitStoreMock(t)
		prereq := uuid.New()
		unit := sampleUnit(prereq)

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO learning_units").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO unit_prerequisites").
			WillReturnResult(sqlmock.NewResult(0, 1))
		expectCycleCheck(mock, unit.ID, true)
		mock.ExpectRollback()

		err := s.Create(context.Background(), unit)

		assert.ErrorIs(t, err, store.ErrInvalidEntity)
		assert.Contains(t, err.Error(), unit.ID.String())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid_unit_never_reaches_database", func(t *testing.T) {
		s, mock := newUnitStoreMock(t)
		unit := sampleUnit()
		unit.Title = ""

		err := s.Create(context.Background(), unit)

		assert.ErrorIs(t, err, domain.ErrEmptyUnitTitle)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUnitStore_GetByID(t *testing.T) {
	t.Run("found_with_ordered_prerequisites", func(t *testing.T) {
		s, mock := newUnitStoreMock(t)
		prereqA, prereqB := uuid.New(), uuid.New()
		unit := sampleUnit(prereqA, prereqB)
		hint := 7
		unit.OrderHint = &hint
		tags := mustMarshalTags(t, unit.Tags)

		mock.ExpectQuery("SELECT (.+) FROM learning_units").
			WithArgs(unit.ID).
			WillReturnRows(sqlmock.NewRows(unitColumns).AddRow(
				unit.ID.String(), unit.Title, int64(7), tags,
				unit.CreatedAt, unit.UpdatedAt,
			))
		mock.ExpectQuery("SELECT prerequisite_id FROM unit_prerequisites").
			WithArgs(unit.ID).
			WillReturnRows(sqlmock.NewRows([]string{"prerequisite_id"}).
				AddRow(prereqA.String()).
				AddRow(prereqB.String()))

		got, err := s.GetByID(context.Background(), unit.ID)

		require.NoError(t, err)
		assert.Equal(t, unit.ID, got.ID)
		assert.Equal(t, unit.Title, got.Title)
		require.NotNil(t, got.OrderHint)
		assert.Equal(t, 7, *got.OrderHint)
		assert.Equal(t, unit.Tags, got.Tags)
		assert.Equal(t, []uuid.UUID{prereqA, prereqB}, got.Prerequisites)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("null_order_hint_scans_to_nil", func(t *testing.T) {
		s, mock := newUnitStoreMock(t)
		unit := sampleUnit()
		tags := mustMarshalTags(t, unit.Tags)

		mock.ExpectQuery("SELECT (.+) FROM learning_units").
			WithArgs(unit.ID).
			WillReturnRows(sqlmock.NewRows(unitColumns).AddRow(
				unit.ID.String(), unit.Title, nil, tags,
				unit.CreatedAt, unit.UpdatedAt,
			))
		mock.ExpectQuery("SELECT prerequisite_id FROM unit_prerequisites").
			WithArgs(unit.ID).
			WillReturnRows(sqlmock.NewRows([]string{"prerequisite_id"}))

		got, err := s.GetByID(context.Background(), unit.ID)

		require.NoError(t, err)
		assert.Nil(t, got.OrderHint)
		assert.Empty(t, got.Prerequisites)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing_returns_not_found", func(t *testing.T) {
		s, mock := newUnitStoreMock(t)
		id := uuid.New()

		mock.ExpectQuery("SELECT (.+) FROM learning_units").
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows(unitColumns))

		got, err := s.GetByID(context.Background(), id)

		assert.Nil(t, got)
		assert.ErrorIs(t, err, store.ErrUnitNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUnitStore_List(t *testing.T) {
	t.Run("merges_edges_into_units", func(t *testing.T) {
		s, mock := newUnitStoreMock(t)
		base := sampleUnit()
		advanced := sampleUnit()
		advanced.Title = "Polynomial Division"
		tags := mustMarshalTags(t, base.Tags)

		mock.ExpectQuery("SELECT (.+) FROM learning_units").
			WillReturnRows(sqlmock.NewRows(unitColumns).
				AddRow(base.ID.String(), base.Title, nil, tags, base.CreatedAt, base.UpdatedAt).
				AddRow(advanced.ID.String(), advanced.Title, nil, tags, advanced.CreatedAt, advanced.UpdatedAt))
		mock.ExpectQuery("SELECT unit_id, prerequisite_id FROM unit_prerequisites").
			WillReturnRows(sqlmock.NewRows([]string{"unit_id", "prerequisite_id"}).
				AddRow(advanced.ID.String(), base.ID.String()))

		units, err := s.List(context.Background())

		require.NoError(t, err)
		require.Len(t, units, 2)
		assert.Empty(t, units[0].Prerequisites)
		assert.Equal(t, []uuid.UUID{base.ID}, units[1].Prerequisites)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty_store_skips_edge_query", func(t *testing.T) {
		s, mock := newUnitStoreMock(t)

		mock.ExpectQuery("SELECT (.+) FROM learning_units").
			WillReturnRows(sqlmock.NewRows(unitColumns))

		units, err := s.List(context.Background())

		require.NoError(t, err)
		assert.NotNil(t, units)
		assert.Empty(t, units)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUnitStore_ListPrerequisites(t *testing.T) {
	t.Run("returns_ids_in_authored_order", func(t *testing.T) {
		s, mock := newUnitStoreMock(t)
		unitID := uuid.New()
		prereqA, prereqB := uuid.New(), uuid.New()

		mock.ExpectQuery("SELECT EXISTS").
			WithArgs(unitID).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectQuery("SELECT prerequisite_id FROM unit_prerequisites").
			WithArgs(unitID).
			WillReturnRows(sqlmock.NewRows([]string{"prerequisite_id"}).
				AddRow(prereqA.String()).
				AddRow(prereqB.String()))

		prereqs, err := s.ListPrerequisites(context.Background(), unitID)

		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{prereqA, prereqB}, prereqs)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing_unit_returns_not_found", func(t *testing.T) {
		s, mock := newUnitStoreMock(t)
		unitID := uuid.New()

		mock.ExpectQuery("SELECT EXISTS").
			WithArgs(unitID).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		prereqs, err := s.ListPrerequisites(context.Background(), unitID)

		assert.Nil(t, prereqs)
		assert.ErrorIs(t, err, store.ErrUnitNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUnitStore_Update(t *testing.T) {
	t.Run("success_replaces_edges", func(t *testing.T) {
		s, mock := newUnitStoreMock(t)
		prereq := uuid.New()
		unit := sampleUnit(prereq)
		tags := mustMarshalTags(t, unit.Tags)

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE learning_units").
			WithArgs(unit.Title, nil, tags, unit.UpdatedAt, unit.ID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("DELETE FROM unit_prerequisites").
			WithArgs(unit.ID).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec("INSERT INTO unit_prerequisites").
			WithArgs(unit.ID, prereq, 0).
			WillReturnResult(sqlmock.NewResult(0, 1))
		expectCycleCheck(mock, unit.ID, false)
		mock.ExpectCommit()

		err := s.Update(context.Background(), unit)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing_unit_rolls_back_with_not_found", func(t *testing.T) {
		s, mock := newUnitStoreMock(t)
		unit := sampleUnit()

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE learning_units").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := s.Update(context.Background(), unit)

		assert.ErrorIs(t, err, store.ErrUnitNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("cycle_rolls_back_with_invalid_entity", func(t *testing.T) {
		s, mock := newUnitStoreMock(t)
		prereq := uuid.New()
		unit := sampleUnit(prereq)

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE learning_units").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("DELETE FROM unit_prerequisites").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("INSERT INTO unit_prerequisites").
			WillReturnResult(sqlmock.NewResult(0, 1))
		expectCycleCheck(mock, unit.ID, true)
		mock.ExpectRollback()

		err := s.Update(context.Background(), unit)

		assert.ErrorIs(t, err, store.ErrInvalidEntity)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUnitStore_Delete(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		s, mock := newUnitStoreMock(t)
		id := uuid.New()

		mock.ExpectExec("DELETE FROM learning_units").
			WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := s.Delete(context.Background(), id)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("dependents_block_delete", func(t *testing.T) {
		s, mock := newUnitStoreMock(t)
		id := uuid.New()

		mock.ExpectExec("DELETE FROM learning_units").
			WithArgs(id).
			WillReturnError(&pgconn.PgError{
				Code:           foreignKeyViolationCode,
				ConstraintName: "unit_prerequisites_prerequisite_id_fkey",
			})

		err := s.Delete(context.Background(), id)

		assert.ErrorIs(t, err, store.ErrUnitHasDependents)
		assert.ErrorIs(t, err, store.ErrDeleteFailed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing_returns_not_found", func(t *testing.T) {
		s, mock := newUnitStoreMock(t)
		id := uuid.New()

		mock.ExpectExec("DELETE FROM learning_units").
			WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := s.Delete(context.Background(), id)

		assert.ErrorIs(t, err, store.ErrUnitNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUnitStore_WithTx(t *testing.T) {
	s, _ := newUnitStoreMock(t)

	txDB, txMock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = txDB.Close() }()
	txMock.ExpectBegin()
	tx, err := txDB.Begin()
	require.NoError(t, err)

	txStore := s.WithTx(tx)

	require.NotNil(t, txStore)
	pgStore, ok := txStore.(*PostgresUnitStore)
	require.True(t, ok)
	assert.Equal(t, tx, pgStore.db)
	assert.Equal(t, s.logger, pgStore.logger)
}
