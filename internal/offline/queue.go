package offline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/smera-app/smera/internal/domain"
)

// Queue is the offline mutation queue.
type Queue struct {
	store  Store
	logger *slog.Logger

	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

// NewQueue creates a queue over store.
func NewQueue(store Store, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		store:  store,
		logger: logger.With(slog.String("component", "offline_queue")),
		now:    time.Now,
	}
}

// Enqueue persists op as a new pending record and returns its ID. It never
// touches the network.
func (q *Queue) Enqueue(ctx context.Context, op Operation) (uuid.UUID, error) {
	if op == nil {
		return uuid.Nil, fmt.Errorf("%w: nil operation", ErrInvalidOperation)
	}
	if err := op.Validate(); err != nil {
		return uuid.Nil, err
	}

	record := QueuedOperation{
		ID:        uuid.New(),
		Operation: op,
		SpaceID:   op.Workspace(),
		Timestamp: q.nextTimestamp(),
	}

	if err := q.store.Add(ctx, record); err != nil {
		q.logger.Error("failed to enqueue operation",
			slog.String("type", string(op.Type())),
			slog.String("error", err.Error()))
		return uuid.Nil, wrapStoreError("enqueue", err)
	}

	q.logger.Info("operation queued",
		slog.String("id", record.ID.String()),
		slog.String("type", string(op.Type())),
		slog.String("space_id", record.SpaceID.String()))
	return record.ID, nil
}

// nextTimestamp returns the current time, nudged forward when needed so that
// timestamps issued by this queue are strictly increasing.
func (q *Queue) nextTimestamp() time.Time {
	q.mu.Lock()
	defer q.mu.Unlock()

	ts := q.now().UTC()
	if !ts.After(q.last) {
		ts = q.last.Add(time.Microsecond)
	}
	q.last = ts
	return ts
}

// ListPending returns every pending record in submission order.
func (q *Queue) ListPending(ctx context.Context) ([]QueuedOperation, error) {
	return q.list(ctx, uuid.Nil)
}

// ListPendingForWorkspace returns the pending records of one space in
// submission order.
func (q *Queue) ListPendingForWorkspace(ctx context.Context, spaceID uuid.UUID) ([]QueuedOperation, error) {
	if spaceID == uuid.Nil {
		return nil, domain.NewValidationError("space_id", "is required", domain.ErrInvalidID)
	}
	return q.list(ctx, spaceID)
}

func (q *Queue) list(ctx context.Context, spaceID uuid.UUID) ([]QueuedOperation, error) {
	var ops []QueuedOperation
	err := q.store.Iterate(ctx, spaceID, func(op QueuedOperation) error {
		ops = append(ops, op)
		return nil
	})
	if err != nil {
		return nil, wrapStoreError("list pending", err)
	}
	return ops, nil
}

// Get returns one pending record.
func (q *Queue) Get(ctx context.Context, id uuid.UUID) (QueuedOperation, error) {
	op, err := q.store.Get(ctx, id)
	if err != nil {
		return QueuedOperation{}, wrapStoreError("get", err)
	}
	return op, nil
}

// Remove deletes a record after it was replayed successfully.
func (q *Queue) Remove(ctx context.Context, id uuid.UUID) error {
	if err := q.store.Delete(ctx, id); err != nil {
		return wrapStoreError("remove", err)
	}
	q.logger.Debug("operation removed", slog.String("id", id.String()))
	return nil
}

// RecordFailure notes a failed replay of the record. The retry counter is
// incremented and, once it reaches MaxRetries, the record is deleted instead.
// The boolean reports whether the record was dropped. The returned error only
// describes store failures; the replay failure itself is logged.
func (q *Queue) RecordFailure(ctx context.Context, id uuid.UUID, errText string) (bool, error) {
	var (
		dropped bool
		record  QueuedOperation
	)

	err := q.store.Modify(ctx, id, func(op *QueuedOperation) (Disposition, error) {
		op.Retries++
		op.LastError = errText
		record = *op
		if op.Retries >= MaxRetries {
			dropped = true
			return Discard, nil
		}
		return Keep, nil
	})
	if err != nil {
		return false, wrapStoreError("record failure", err)
	}

	if dropped {
		q.logger.Warn("dropping operation after repeated replay failures",
			slog.String("id", id.String()),
			slog.String("type", string(record.Type())),
			slog.Int("retries", record.Retries),
			slog.String("last_error", errText))
	} else {
		q.logger.Info("operation replay failed",
			slog.String("id", id.String()),
			slog.Int("retries", record.Retries),
			slog.String("error", errText))
	}
	return dropped, nil
}

// ClearAll empties the queue.
func (q *Queue) ClearAll(ctx context.Context) error {
	if err := q.store.Clear(ctx); err != nil {
		return wrapStoreError("clear", err)
	}
	q.logger.Info("offline queue cleared")
	return nil
}

// Count returns the number of pending records.
func (q *Queue) Count(ctx context.Context) (int, error) {
	n, err := q.store.Count(ctx)
	if err != nil {
		return 0, wrapStoreError("count", err)
	}
	return n, nil
}

// CountForWorkspace returns the number of pending records of one space.
func (q *Queue) CountForWorkspace(ctx context.Context, spaceID uuid.UUID) (int, error) {
	n := 0
	err := q.store.Iterate(ctx, spaceID, func(QueuedOperation) error {
		n++
		return nil
	})
	if err != nil {
		return 0, wrapStoreError("count", err)
	}
	return n, nil
}

// wrapStoreError marks infrastructure failures with ErrStoreUnavailable while
// passing the queue's own sentinels and context errors through.
func wrapStoreError(action string, err error) error {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrDuplicateID),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", action, err)
	default:
		return fmt.Errorf("%s: %w: %w", action, ErrStoreUnavailable, err)
	}
}
