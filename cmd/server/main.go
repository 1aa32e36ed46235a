// Package main implements the entry point for the Lumo learning path server,
// which schedules spaced repetition reviews and recommends prerequisite-aware
// learning paths for learners.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/lumolearn/lumo-core/internal/config"
	"github.com/lumolearn/lumo-core/internal/platform/logger"
)

// main parses command line flags and dispatches to either the migration
// runner or the long-running server.
func main() {
	migrateCmd := flag.String("migrate", "",
		"run a migration command and exit (up, down, reset, status, version, create)")
	migrationName := flag.String("migration-name", "",
		"name of the migration created by -migrate=create")
	flag.Parse()

	if err := run(*migrateCmd, *migrationName); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

// run loads configuration, sets up logging, and either executes the requested
// migration command or initializes and runs the application.
func run(migrateCmd, migrationName string) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Set up structured logging using the configured log level
	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	log.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel)

	// Migration commands run to completion and exit without starting the server
	if migrateCmd != "" {
		return runMigrations(cfg, log, migrateCmd, migrationName)
	}

	ctx := context.Background()

	// Establish the database connection
	db, err := setupAppDatabase(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}

	// Wire up stores, services, and the task runner
	app, err := newApplication(ctx, cfg, log, db)
	if err != nil {
		// The application owns the connection only once constructed
		if closeErr := db.Close(); closeErr != nil {
			log.Error("Failed to close database connection", "error", closeErr)
		}
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return app.Run(ctx)
}
