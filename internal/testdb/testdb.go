// Package testdb connects integration tests to a real PostgreSQL instance.
// Tests using it carry the integration build tag and skip themselves unless
// LUMO_TEST_DB_URL or DATABASE_URL points at a disposable database.
package testdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"

	"github.com/lumolearn/lumo-core/migrations"
)

// connectTimeout bounds the initial ping.
const connectTimeout = 5 * time.Second

// URL returns the test database URL, preferring LUMO_TEST_DB_URL over
// DATABASE_URL. Empty when neither is set.
func URL() string {
	if u := os.Getenv("LUMO_TEST_DB_URL"); u != "" {
		return u
	}
	return os.Getenv("DATABASE_URL")
}

// Get opens a connection to the test database and brings its schema up to
// date, skipping the test when no URL is configured. The connection closes
// with the test.
func Get(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := URL()
	if dbURL == "" {
		t.Skip("LUMO_TEST_DB_URL or DATABASE_URL not set, skipping integration test")
	}

	db, err := sql.Open("pgx", dbURL)
	require.NoError(t, err, "failed to open database connection")
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("failed to close test database: %v", err)
		}
	})

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	require.NoError(t, db.PingContext(ctx), "database ping failed")

	migrate(t, db)
	return db
}

// migrate applies the same embedded migrations the server runs at deploy
// time. Applying them twice is a no-op, so tests can share a database.
func migrate(t *testing.T, db *sql.DB) {
	t.Helper()

	goose.SetLogger(&gooseTestLogger{t: t})
	goose.SetTableName("schema_migrations")
	goose.SetBaseFS(migrations.FS)
	require.NoError(t, goose.SetDialect("postgres"), "failed to set goose dialect")
	require.NoError(t, goose.Up(db, "."), "failed to run migrations")
}

// InTx runs fn inside a transaction that is always rolled back, so tests
// sharing a database never see each other's rows.
func InTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err, "failed to begin transaction")
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Logf("failed to roll back transaction: %v", err)
		}
	}()

	fn(t, tx)
}

// gooseTestLogger routes goose output through the test log.
type gooseTestLogger struct {
	t *testing.T
}

func (l *gooseTestLogger) Printf(format string, v ...interface{}) {
	l.t.Log("goose: " + strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l *gooseTestLogger) Fatalf(format string, v ...interface{}) {
	l.t.Fatal("goose: " + strings.TrimSpace(fmt.Sprintf(format, v...)))
}
