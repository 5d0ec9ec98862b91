package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/smera-app/smera/internal/config"
	"github.com/smera-app/smera/internal/domain"
	"github.com/smera-app/smera/internal/platform/logger"
	"github.com/smera-app/smera/internal/platform/postgres"
	"github.com/smera-app/smera/internal/retry"
	"github.com/smera-app/smera/internal/service/auth"
	"github.com/spf13/cobra"
)

// loadServerConfig loads the configuration and sets up the default logger.
func loadServerConfig(opts *rootOptions) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	l, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	l.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel)
	return cfg, l, nil
}

// openDatabase connects to Postgres, retrying while the database is still
// coming up.
func openDatabase(ctx context.Context, cfg *config.Config, l *slog.Logger) (*sql.DB, error) {
	exec := retry.NewExecutor(cfg.Retry, l)
	return openWithRetry(ctx, exec, func(ctx context.Context) (*sql.DB, error) {
		return postgres.Open(ctx, cfg.Database, l)
	})
}

func openWithRetry(ctx context.Context, exec *retry.Executor, open func(context.Context) (*sql.DB, error)) (*sql.DB, error) {
	var db *sql.DB
	err := exec.Do(ctx, "open database", func(ctx context.Context) error {
		conn, err := open(ctx)
		if err != nil {
			return err
		}
		db = conn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return db, nil
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the background job runner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, l, err := loadServerConfig(opts)
			if err != nil {
				return err
			}

			db, err := openDatabase(ctx, cfg, l)
			if err != nil {
				return err
			}

			if migrate {
				if err := postgres.Migrate(ctx, db, "up", l); err != nil {
					_ = db.Close()
					return err
				}
			}

			app, err := newApplication(ctx, cfg, l, db)
			if err != nil {
				_ = db.Close()
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			return app.Run(ctx)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|up-by-one|down|reset|status|version|redo] [args...]",
		Short:     "Run database migrations",
		Args:      cobra.MinimumNArgs(1),
		ValidArgs: []string{"up", "up-by-one", "down", "reset", "status", "version", "redo"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, l, err := loadServerConfig(opts)
			if err != nil {
				return err
			}

			db, err := openDatabase(ctx, cfg, l)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			return postgres.Migrate(ctx, db, args[0], l, args[1:]...)
		},
	}
}

// newTokenCmd mints a bearer token. Accounts live outside this service, so
// operators issue tokens for known user IDs.
func newTokenCmd(opts *rootOptions) *cobra.Command {
	var (
		userID string
		plan   string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// no logger setup: stdout carries only the token
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			id := uuid.New()
			if userID != "" {
				if id, err = uuid.Parse(userID); err != nil {
					return fmt.Errorf("invalid --user: %w", err)
				}
			}

			p, err := domain.ParsePlan(plan)
			if err != nil {
				return fmt.Errorf("invalid --plan: %w", err)
			}

			tokens, err := auth.NewJWTService(cfg.Auth)
			if err != nil {
				return err
			}
			token, err := tokens.GenerateToken(cmd.Context(), id, p)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "user %s, plan %s, valid for %s\n", id, p, cfg.Auth.TokenLifetime)
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user ID (random when empty)")
	cmd.Flags().StringVar(&plan, "plan", string(domain.PlanFree), "plan: free or pro")
	return cmd
}
