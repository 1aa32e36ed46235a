package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lumolearn/lumo-core/internal/config"
	"github.com/lumolearn/lumo-core/internal/domain/srs"
	"github.com/lumolearn/lumo-core/internal/events"
	"github.com/lumolearn/lumo-core/internal/plancache"
	"github.com/lumolearn/lumo-core/internal/planner"
	"github.com/lumolearn/lumo-core/internal/platform/postgres"
	"github.com/lumolearn/lumo-core/internal/service/progress"
	"github.com/lumolearn/lumo-core/internal/service/review"
	"github.com/lumolearn/lumo-core/internal/store"
	"github.com/lumolearn/lumo-core/internal/task"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	// Configuration
	config *config.Config

	// Core services
	logger *slog.Logger
	db     *sql.DB

	// Stores (using interfaces for proper abstraction)
	reviewStore     store.ReviewStateStore
	unitStore       store.UnitStore
	completionStore store.CompletionStore

	// taskStore keeps its concrete type so task revivers can be registered
	// before recovery runs
	taskStore *postgres.PostgresTaskStore

	// Service interfaces
	srsService      srs.Service
	progressService progress.Service
	plannerService  planner.Service
	reviewService   review.ReviewService

	// Recommendation cache
	planCache plancache.Cache

	// Event system
	eventEmitter events.EventEmitter

	// Task handling
	taskRunner *task.TaskRunner
}

// newApplication creates a new application instance with all dependencies
// initialized. It accepts core dependencies like configuration, logger, and
// database connection that must be established before application
// initialization.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	// Initialize the SRS scheduler from the configured thresholds
	app.srsService = srs.NewServiceWithParams(srs.NewParams(srs.ParamsConfig{
		PassThreshold:       cfg.SRS.PassThreshold,
		InitialIntervalDays: cfg.SRS.InitialIntervalDays,
		SecondIntervalDays:  cfg.SRS.SecondIntervalDays,
		MasteryRepetitions:  cfg.SRS.MasteryRepetitions,
		MasteryIntervalDays: cfg.SRS.MasteryIntervalDays,
		HistoryLimit:        cfg.SRS.HistoryLimit,
		LapsedAfterDays:     cfg.SRS.LapsedAfterDays,
	}))
	logger.Info("SRS scheduler initialized",
		"pass_threshold", cfg.SRS.PassThreshold,
		"mastery_repetitions", cfg.SRS.MasteryRepetitions)

	// Initialize the bounded recommendation cache
	var err error
	app.planCache, err = plancache.NewLRUCache(cfg.Cache.MaxEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to create plan cache: %w", err)
	}

	// Initialize stores
	app.reviewStore = postgres.NewPostgresReviewStateStore(db, logger)
	app.unitStore = postgres.NewPostgresUnitStore(db, logger)
	app.completionStore = postgres.NewPostgresCompletionStore(db, logger)
	app.taskStore = postgres.NewPostgresTaskStore(db, logger)

	// Initialize progress service
	app.progressService = progress.NewService(
		app.unitStore,
		app.completionStore,
		app.reviewStore,
		app.srsService,
		logger,
	)

	// Initialize planner service
	app.plannerService = planner.NewService(
		app.unitStore,
		app.progressService,
		app.planCache,
		logger,
	)

	// Create the plan refresh task factory and register it as the reviver for
	// persisted plan refresh tasks. Registration must precede runner startup
	// so crash recovery can rebuild queued tasks.
	planRefreshFactory := task.NewPlanRefreshTaskFactory(app.plannerService, logger)
	app.taskStore.RegisterReviver(task.TaskTypePlanRefresh, planRefreshFactory)

	// Initialize task runner (recovers unfinished tasks and starts workers)
	app.taskRunner, err = setupTaskRunner(app)
	if err != nil {
		return nil, fmt.Errorf("failed to setup task runner: %w", err)
	}

	// Initialize event emitter
	app.eventEmitter = events.NewInMemoryEventEmitter(logger)

	// Initialize review service
	app.reviewService = review.NewReviewService(
		app.reviewStore,
		app.unitStore,
		app.progressService,
		app.srsService,
		app.planCache,
		app.eventEmitter,
		logger,
	)

	// Register the plan refresh handler so progress events requeue a
	// recomputation of the learner's plan
	refreshHandler := task.NewPlanRefreshEventHandler(planRefreshFactory, app.taskRunner, logger)
	if emitter, ok := app.eventEmitter.(*events.InMemoryEventEmitter); ok {
		emitter.RegisterHandler(refreshHandler)
	} else {
		return nil, fmt.Errorf("unexpected event emitter type, cannot register plan refresh handler")
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

// Run starts the application server, handling lifecycle and cleanup.
// It returns an error if the server fails to start or encounters problems.
func (app *application) Run(ctx context.Context) error {
	// Set up router using the application dependencies
	router := app.setupRouter()

	// Start the HTTP server
	err := app.startHTTPServer(ctx, router)
	if err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// setupTaskRunner initializes and starts the background task processor.
// It uses the application struct to access required dependencies.
func setupTaskRunner(app *application) (*task.TaskRunner, error) {
	// Create the task runner with the configured dependencies
	taskRunner := task.NewTaskRunner(app.taskStore, task.TaskRunnerConfig{
		QueueSize:    app.config.Task.QueueSize,
		WorkerCount:  app.config.Task.WorkerCount,
		StuckTaskAge: time.Duration(app.config.Task.StuckTaskAgeMinutes) * time.Minute,
	}, app.logger)

	// Start the task runner
	if err := taskRunner.Start(); err != nil {
		return nil, fmt.Errorf("failed to start task runner: %w", err)
	}

	return taskRunner, nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	// Stop task runner
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}

	// Close database connection
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
