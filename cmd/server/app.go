package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/studykit/api/internal/config"
	"github.com/studykit/api/internal/platform/gemini"
	"github.com/studykit/api/internal/platform/postgres"
	"github.com/studykit/api/internal/platform/rediscache"
	"github.com/studykit/api/internal/service"
	"github.com/studykit/api/internal/store"
	"github.com/studykit/api/internal/task"
)

// application holds the shared application dependencies so startup wiring
// and shutdown cleanup live in one place.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	studySetStore store.StudySetStore
	taskStore     task.TaskStore

	cache          *rediscache.Cache
	contentService *service.ContentService
	enricher       *service.Enricher

	taskFactory *task.StudySetTaskFactory
	taskRunner  *task.Runner
	submission  *task.StudySetSubmission
}

// newApplication creates an application instance with all dependencies
// initialized and the task runner started.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	app.studySetStore = postgres.NewPostgresStudySetStore(db, logger)
	app.taskStore = postgres.NewPostgresTaskStore(db, logger)

	generator, err := gemini.NewGenerator(ctx, logger.With("component", "llm_generator"), cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM generator: %w", err)
	}
	logger.Info("LLM generator initialized")

	// The result cache is optional; without a Redis address every request
	// goes to the model.
	var cache service.ResultCache
	if cfg.Cache.RedisAddr != "" {
		app.cache, err = rediscache.New(ctx, cfg.Cache, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize result cache: %w", err)
		}
		cache = app.cache
		logger.Info("Result cache initialized", "addr", cfg.Cache.RedisAddr)
	} else {
		logger.Info("Result cache disabled, no Redis address configured")
	}

	app.contentService = service.NewContentService(logger, generator, cache)
	app.enricher = service.NewEnricher(logger, generator)

	app.taskFactory = task.NewStudySetTaskFactory(
		app.contentService,
		app.enricher,
		app.studySetStore,
		logger,
	)

	runnerCfg := task.DefaultRunnerConfig()
	app.taskRunner = task.NewRunner(app.taskStore, app.taskFactory, runnerCfg, logger)
	if err := app.taskRunner.Start(); err != nil {
		return nil, fmt.Errorf("failed to start task runner: %w", err)
	}

	app.submission = task.NewStudySetSubmission(
		db,
		app.studySetStore,
		app.taskStore,
		app.taskFactory,
		app.taskRunner,
		logger,
	)

	logger.Info("Application initialized successfully")
	return app, nil
}

// Run starts the HTTP server and blocks until shutdown.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}

	if app.cache != nil {
		if err := app.cache.Close(); err != nil {
			app.logger.Error("Error closing result cache", "error", err)
		}
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
