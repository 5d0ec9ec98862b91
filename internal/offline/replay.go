package offline

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
)

// Writer performs the backend write a queued operation describes.
type Writer interface {
	Apply(ctx context.Context, op QueuedOperation) error
}

// WriterFunc adapts a function to the Writer interface.
type WriterFunc func(ctx context.Context, op QueuedOperation) error

// Apply calls f(ctx, op).
func (f WriterFunc) Apply(ctx context.Context, op QueuedOperation) error {
	return f(ctx, op)
}

// ReplayReport summarizes one replay run.
type ReplayReport struct {
	Attempted int
	Succeeded int
	Failed    int
	// Dropped counts failures that hit the retry ceiling. They are included
	// in Failed.
	Dropped  int
	Duration time.Duration
	// Err combines the individual replay failures, if any.
	Err error
}

// Replayer drains a Queue through a Writer. At most one replay runs at a
// time per Replayer.
type Replayer struct {
	queue   *Queue
	writer  Writer
	logger  *slog.Logger
	running atomic.Bool
}

// NewReplayer creates a Replayer.
func NewReplayer(queue *Queue, writer Writer, logger *slog.Logger) *Replayer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Replayer{
		queue:  queue,
		writer: writer,
		logger: logger.With(slog.String("component", "offline_replay")),
	}
}

// Replay applies every pending record in submission order. A successful write
// removes the record; a failed write is recorded with RecordFailure and the
// replay moves on to the next record.
//
// The returned error is reserved for conditions that stop the whole run: a
// concurrent replay, a store failure while listing, or ctx ending. Failures of
// individual records are reported in ReplayReport.Err.
func (r *Replayer) Replay(ctx context.Context) (ReplayReport, error) {
	if !r.running.CompareAndSwap(false, true) {
		return ReplayReport{}, ErrReplayInProgress
	}
	defer r.running.Store(false)

	start := time.Now()
	var report ReplayReport

	pending, err := r.queue.ListPending(ctx)
	if err != nil {
		return report, err
	}
	if len(pending) == 0 {
		return report, nil
	}

	r.logger.Info("replaying offline queue", slog.Int("pending", len(pending)))

	for _, op := range pending {
		if err := ctx.Err(); err != nil {
			report.Duration = time.Since(start)
			return report, err
		}

		report.Attempted++
		log := r.logger.With(
			slog.String("id", op.ID.String()),
			slog.String("type", string(op.Type())))

		writeErr := r.writer.Apply(ctx, op)
		if writeErr == nil {
			report.Succeeded++
			if err := r.queue.Remove(ctx, op.ID); err != nil {
				// The write went through; a leftover record will replay again.
				log.Error("failed to remove replayed operation", slog.String("error", err.Error()))
				report.Err = multierr.Append(report.Err, err)
			}
			continue
		}

		if ctx.Err() != nil {
			// Interrupted writes are not the operation's fault.
			report.Attempted--
			report.Duration = time.Since(start)
			return report, ctx.Err()
		}

		report.Failed++
		report.Err = multierr.Append(report.Err, fmt.Errorf("%s %s: %w", op.Type(), op.ID, writeErr))

		dropped, err := r.queue.RecordFailure(ctx, op.ID, writeErr.Error())
		if err != nil {
			log.Error("failed to record replay failure", slog.String("error", err.Error()))
			report.Err = multierr.Append(report.Err, err)
			continue
		}
		if dropped {
			report.Dropped++
		}
	}

	report.Duration = time.Since(start)
	r.logger.Info("offline queue replay finished",
		slog.Int("attempted", report.Attempted),
		slog.Int("succeeded", report.Succeeded),
		slog.Int("failed", report.Failed),
		slog.Int("dropped", report.Dropped),
		slog.Duration("duration", report.Duration))

	return report, nil
}
