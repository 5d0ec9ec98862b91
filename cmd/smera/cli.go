package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/smera-app/smera/internal/client"
	"github.com/smera-app/smera/internal/config"
	"github.com/smera-app/smera/internal/mutation"
	"github.com/smera-app/smera/internal/offline"
	"github.com/smera-app/smera/internal/platform/logger"
	"github.com/smera-app/smera/internal/platform/sqlite"
	"github.com/smera-app/smera/internal/retry"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

// cli holds the dependencies shared by every command. They are built in
// the root command's PersistentPreRunE and released by close.
type cli struct {
	configPath string
	verbose    bool

	out    io.Writer
	errOut io.Writer

	cfg      *config.ClientConfig
	logger   *slog.Logger
	client   *client.Client
	store    offline.Store
	queue    *offline.Queue
	writes   *mutation.Handler
	replayer *offline.Replayer
}

func newRootCmd(app *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "smera",
		Short:         "Manage smera tasks, online or offline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.setup(cmd.Context())
		},
	}
	cmd.SetOut(app.out)
	cmd.SetErr(app.errOut)

	flags := cmd.PersistentFlags()
	flags.StringVarP(&app.configPath, "config", "c", "",
		"path to the config file (default ~/.smera/config.yaml)")
	flags.BoolVarP(&app.verbose, "verbose", "v", false, "log debug output to stderr")

	cmd.AddCommand(
		newSpacesCmd(app),
		newTasksCmd(app),
		newAddCmd(app),
		newUpdateCmd(app),
		newDoneCmd(app),
		newRemoveCmd(app),
		newNoteCmd(app),
		newNotesCmd(app),
		newSummaryCmd(app),
		newUsageCmd(app),
		newQueueCmd(app),
		newSyncCmd(app),
		newWatchCmd(app),
	)
	return cmd
}

// setup loads the configuration and opens the offline queue.
func (c *cli) setup(ctx context.Context) error {
	cfg, err := config.LoadClient(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.logger = logger.NewCLI(c.errOut, cfg.Client.LogLevel, c.verbose)

	exec := retry.NewExecutor(cfg.Retry, c.logger)
	c.client, err = client.New(client.Config{
		BaseURL: cfg.Client.ServerURL,
		Token:   cfg.Client.Token,
		Timeout: cfg.Client.RequestTimeout,
	}, exec, c.logger)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Client.QueuePath), 0o700); err != nil {
		return fmt.Errorf("create queue directory: %w", err)
	}
	store, err := sqlite.OpenQueueStore(ctx, cfg.Client.QueuePath, c.logger)
	if err != nil {
		return fmt.Errorf("open offline queue: %w", err)
	}
	c.store = store

	c.queue = offline.NewQueue(store, c.logger)
	c.writes = mutation.NewHandler(c.client, c.queue, c.logger)
	c.replayer = offline.NewReplayer(c.queue, c.client, c.logger)
	return nil
}

func (c *cli) close() error {
	if c.store == nil {
		return nil
	}
	err := c.store.Close()
	c.store = nil
	return err
}

// submit sends op through the mutation handler and reports what happened.
func (c *cli) submit(ctx context.Context, op offline.Operation, done string) error {
	outcome, err := c.writes.Submit(ctx, op)
	if err != nil {
		return err
	}
	if outcome.Queued {
		printQueued(c.out, outcome)
		return nil
	}
	fmt.Fprintln(c.out, done)
	return nil
}

// describeError returns the message shown to the user for err.
func describeError(err error) string {
	// the server's own message beats the generic one for its kind
	var statusErr *retry.StatusError
	if errors.As(err, &statusErr) && statusErr.Message != "" {
		return statusErr.Message
	}
	if rerr, ok := retry.AsError(err); ok {
		return rerr.UserMessage()
	}

	switch {
	case errors.Is(err, mutation.ErrWriteLost):
		return "the change could not be sent and could not be saved offline: " + err.Error()
	case errors.Is(err, retry.ErrCanceled), errors.Is(err, context.Canceled):
		return "canceled"
	}

	if errs := multierr.Errors(err); len(errs) > 1 {
		return fmt.Sprintf("%d errors, first: %v", len(errs), errs[0])
	}
	return err.Error()
}
