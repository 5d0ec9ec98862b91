package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/smera-app/smera/internal/api"
	"github.com/smera-app/smera/internal/config"
	"github.com/smera-app/smera/internal/events"
	"github.com/smera-app/smera/internal/job"
	"github.com/smera-app/smera/internal/platform/gemini"
	"github.com/smera-app/smera/internal/platform/postgres"
	"github.com/smera-app/smera/internal/quota"
	"github.com/smera-app/smera/internal/retry"
	"github.com/smera-app/smera/internal/service"
	"github.com/smera-app/smera/internal/service/auth"
	"github.com/smera-app/smera/internal/store"
)

// application holds the dependencies of a running server so they can be
// released together on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	spaceStore store.SpaceStore
	taskStore  store.TaskStore
	jobStore   job.Store

	jwtService auth.JWTService
	quota      *quota.Enforcer
	generator  *gemini.Generator
	emitter    *events.InMemoryEventEmitter
	jobRunner  *job.Runner

	services api.Services
}

// newApplication wires every dependency of the server. db must already be
// connected. The job runner is created but not started.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	app.spaceStore = postgres.NewPostgresSpaceStore(db, logger)
	app.taskStore = postgres.NewPostgresTaskStore(db, logger)
	app.jobStore = postgres.NewPostgresJobStore(db, logger)
	usageStore := postgres.NewPostgresUsageStore(db, logger)

	app.quota = quota.NewEnforcer(usageStore, quota.LimitsFromConfig(cfg.Quota), logger)

	exec := retry.NewExecutor(cfg.Retry, logger)
	app.generator, err = gemini.NewGenerator(ctx, cfg.LLM, exec, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM generator: %w", err)
	}
	logger.Info("LLM generator initialized",
		slog.String("model", cfg.LLM.ModelName),
		slog.Int("max_attempts", exec.Config().MaxAttempts()))

	factory := job.NewFactory(app.taskStore, app.generator, app.quota, logger)
	app.jobRunner = job.NewRunner(app.jobStore, factory, job.RunnerConfigFrom(cfg.Jobs), logger)

	app.emitter = events.NewInMemoryEventEmitter(logger)
	app.emitter.RegisterHandler(job.NewEventHandler(factory, app.jobRunner, logger))

	if err := app.initServices(); err != nil {
		return nil, err
	}

	logger.Info("application initialized")
	return app, nil
}

func (app *application) initServices() error {
	spaces, err := service.NewSpaceService(app.spaceStore, app.quota, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create space service: %w", err)
	}

	tasks, err := service.NewTaskService(app.spaceStore, app.taskStore, app.quota, app.emitter, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create task service: %w", err)
	}

	ai, err := service.NewAIService(app.generator, app.quota, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create AI service: %w", err)
	}

	usage, err := service.NewUsageService(app.spaceStore, app.quota, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create usage service: %w", err)
	}

	app.services = api.Services{
		Spaces: spaces,
		Tasks:  tasks,
		AI:     ai,
		Usage:  usage,
	}
	return nil
}

// cleanup stops the job runner and closes the database.
func (app *application) cleanup() {
	if app.jobRunner != nil {
		app.jobRunner.Stop()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}

	app.logger.Info("application shutdown completed")
}
