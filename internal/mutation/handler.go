// Package mutation is the CLI's offline-tolerant write path. A write is sent
// to the backend right away; when the backend cannot be reached the write is
// queued for replay instead of being lost.
package mutation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/smera-app/smera/internal/offline"
	"github.com/smera-app/smera/internal/retry"
)

// ErrWriteLost is returned when a write could neither be sent nor queued.
var ErrWriteLost = errors.New("write could not be sent or saved for later")

// Outcome describes what happened to a submitted write.
type Outcome struct {
	// Queued is set when the write was saved for replay instead of sent.
	Queued bool
	// QueueID identifies the queued record when Queued is set.
	QueueID uuid.UUID
	// Cause is the connectivity failure that led to queueing.
	Cause error
}

// Handler submits writes through a Writer and falls back to an offline queue.
type Handler struct {
	writer offline.Writer
	queue  *offline.Queue
	logger *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(writer offline.Writer, queue *offline.Queue, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		writer: writer,
		queue:  queue,
		logger: logger.With(slog.String("component", "mutation_handler")),
	}
}

// Submit performs op. Failures that mean the backend was unreachable (network
// or timeout) queue the operation and report Outcome.Queued; every other
// failure is returned unchanged so the user sees it immediately. If queueing
// fails too, the error wraps ErrWriteLost, the store error and the write
// error.
func (h *Handler) Submit(ctx context.Context, op offline.Operation) (Outcome, error) {
	if op == nil {
		return Outcome{}, fmt.Errorf("%w: nil operation", offline.ErrInvalidOperation)
	}
	if err := op.Validate(); err != nil {
		return Outcome{}, err
	}

	writeErr := h.writer.Apply(ctx, offline.QueuedOperation{Operation: op, SpaceID: op.Workspace()})
	if writeErr == nil {
		return Outcome{}, nil
	}
	if ctx.Err() != nil || !unreachable(writeErr) {
		return Outcome{}, writeErr
	}

	id, err := h.queue.Enqueue(ctx, op)
	if err != nil {
		h.logger.Error("failed to queue write after connectivity failure",
			slog.String("type", string(op.Type())),
			slog.String("write_error", writeErr.Error()),
			slog.String("queue_error", err.Error()))
		return Outcome{}, fmt.Errorf("%w: %w (write: %w)", ErrWriteLost, err, writeErr)
	}

	h.logger.Info("backend unreachable, write queued",
		slog.String("id", id.String()),
		slog.String("type", string(op.Type())),
		slog.String("kind", string(retry.KindOf(writeErr))))
	return Outcome{Queued: true, QueueID: id, Cause: writeErr}, nil
}

// Pending returns the number of queued writes for a space, or for all spaces
// when spaceID is uuid.Nil.
func (h *Handler) Pending(ctx context.Context, spaceID uuid.UUID) (int, error) {
	if spaceID == uuid.Nil {
		return h.queue.Count(ctx)
	}
	return h.queue.CountForWorkspace(ctx, spaceID)
}

// unreachable reports whether err means the write never reached the backend.
func unreachable(err error) bool {
	switch retry.KindOf(err) {
	case retry.KindNetwork, retry.KindTimeout:
		return true
	default:
		return false
	}
}
