package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/smera-app/smera/internal/connectivity"
	"github.com/smera-app/smera/internal/offline"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

func newQueueCmd(app *cli) *cobra.Command {
	var space string

	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect changes waiting to sync",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				ops []offline.QueuedOperation
				err error
			)
			if space == "" {
				ops, err = app.queue.ListPending(cmd.Context())
			} else {
				var spaceID uuid.UUID
				if spaceID, err = parseID("space", space); err != nil {
					return err
				}
				ops, err = app.queue.ListPendingForWorkspace(cmd.Context(), spaceID)
			}
			if err != nil {
				return err
			}
			printQueue(app.out, ops)
			return nil
		},
	}
	cmd.Flags().StringVarP(&space, "space", "s", "", "only show changes for this space")

	dropCmd := &cobra.Command{
		Use:   "drop ID",
		Short: "Discard one queued change",
		Long:  "Discard one queued change. ID is the full ID or the short form shown by \"smera queue\".",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			op, err := findQueued(ctx, app.queue, args[0])
			if err != nil {
				return err
			}
			if err := app.queue.Remove(ctx, op.ID); err != nil {
				return err
			}
			fmt.Fprintf(app.out, "Discarded %s %s.\n", op.Type(), shortID(op.ID))
			return nil
		},
	}

	var yes bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Discard every queued change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			n, err := app.queue.Count(ctx)
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Fprintln(app.out, "Queue is empty.")
				return nil
			}
			if !yes {
				return fmt.Errorf("%d queued change(s) would be lost, rerun with --yes", n)
			}
			if err := app.queue.ClearAll(ctx); err != nil {
				return err
			}
			fmt.Fprintf(app.out, "Discarded %d queued change(s).\n", n)
			return nil
		},
	}
	clearCmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm discarding queued changes")

	cmd.AddCommand(dropCmd, clearCmd)
	return cmd
}

// findQueued resolves a full or short queued operation ID.
func findQueued(ctx context.Context, queue *offline.Queue, raw string) (offline.QueuedOperation, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if id, err := uuid.Parse(raw); err == nil {
		return queue.Get(ctx, id)
	}

	ops, err := queue.ListPending(ctx)
	if err != nil {
		return offline.QueuedOperation{}, err
	}
	var matches []offline.QueuedOperation
	for _, op := range ops {
		if raw != "" && strings.HasPrefix(op.ID.String(), raw) {
			matches = append(matches, op)
		}
	}
	switch len(matches) {
	case 0:
		return offline.QueuedOperation{}, fmt.Errorf("%w: %q", offline.ErrNotFound, raw)
	case 1:
		return matches[0], nil
	default:
		return offline.QueuedOperation{}, fmt.Errorf("ID %q matches %d queued changes", raw, len(matches))
	}
}

func newSyncCmd(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Send queued changes to the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := app.client.Health(ctx); err != nil {
				return fmt.Errorf("backend unreachable: %w", err)
			}
			report, err := app.replayer.Replay(ctx)
			if err != nil {
				return err
			}
			printReport(app.out, report)
			return nil
		},
	}
}

// newWatchCmd keeps probing the backend and replays the queue whenever it
// is reachable and the queue is not empty.
func newWatchCmd(app *cli) *cobra.Command {
	var interval string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Sync queued changes whenever the backend is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			every := app.cfg.Client.ProbeInterval
			if interval != "" {
				d, err := time.ParseDuration(interval)
				if err != nil {
					return fmt.Errorf("invalid --interval: %w", err)
				}
				every = d
			}

			monitor := connectivity.NewMonitor(app.client, every, app.logger)
			monitor.OnOnline(func(ctx context.Context) {
				replayOnline(ctx, app)
			})
			// other smera processes may queue writes while this one sees
			// the backend as reachable
			monitor.OnStillOnline(func(ctx context.Context) {
				replayOnline(ctx, app)
			})

			fmt.Fprintf(app.out, "Watching %s every %s. Press Ctrl-C to stop.\n",
				app.cfg.Client.ServerURL, every)
			return monitor.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&interval, "interval", "", "probe interval, e.g. 30s (default from config)")
	return cmd
}

func replayOnline(ctx context.Context, app *cli) {
	n, err := app.queue.Count(ctx)
	if err != nil || n == 0 {
		return
	}

	report, err := app.replayer.Replay(ctx)
	if err != nil {
		app.logger.Warn("replay did not run", slog.String("error", err.Error()))
		return
	}
	printReport(app.out, report)
}

func printReport(out io.Writer, report offline.ReplayReport) {
	if report.Attempted == 0 {
		fmt.Fprintln(out, "Nothing to sync.")
		return
	}
	fmt.Fprintf(out, "Synced %d of %d change(s) in %s.\n",
		report.Succeeded, report.Attempted, report.Duration.Round(time.Millisecond))
	if report.Failed == 0 {
		return
	}
	fmt.Fprintf(out, "%d failed", report.Failed)
	if report.Dropped > 0 {
		fmt.Fprintf(out, ", %d dropped after %d attempts", report.Dropped, offline.MaxRetries)
	}
	fmt.Fprintln(out, ":")
	for _, err := range multierr.Errors(report.Err) {
		fmt.Fprintf(out, "  - %s\n", describeError(err))
	}
}
