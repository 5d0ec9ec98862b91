package offline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/smera-app/smera/internal/domain"
	"github.com/smera-app/smera/internal/offline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newTestQueue(t *testing.T) (*offline.Queue, offline.Store) {
	t.Helper()
	store := offline.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })
	return offline.NewQueue(store, newTestLogger()), store
}

// failingStore is a Store whose every call fails, standing in for disabled
// or full local storage.
type failingStore struct{ offline.Store }

var errDiskFull = errors.New("disk full")

func (failingStore) Add(context.Context, offline.QueuedOperation) error { return errDiskFull }
func (failingStore) Iterate(context.Context, uuid.UUID, func(offline.QueuedOperation) error) error {
	return errDiskFull
}

func TestQueue_EnqueueThenList(t *testing.T) {
	t.Parallel()

	q, _ := newTestQueue(t)
	ctx := context.Background()
	spaceID := uuid.New()

	seen := make(map[uuid.UUID]bool)
	for i := 0; i < 5; i++ {
		op := offline.AppendTaskUpdate{SpaceID: spaceID, TaskID: uuid.New(), Text: "progress"}
		id, err := q.Enqueue(ctx, op)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, id)
		assert.False(t, seen[id], "ids must be unique")
		seen[id] = true
	}

	// a fresh queue: enqueue then list yields exactly that record
	q2, _ := newTestQueue(t)
	op := offline.DeleteTask{SpaceID: spaceID, TaskID: uuid.New()}
	id, err := q2.Enqueue(ctx, op)
	require.NoError(t, err)
	assert.False(t, seen[id])

	pending, err := q2.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, id, pending[0].ID)
	assert.Equal(t, op, pending[0].Operation)
	assert.Equal(t, spaceID, pending[0].SpaceID)
	assert.Zero(t, pending[0].Retries)
	assert.Empty(t, pending[0].LastError)
	assert.False(t, pending[0].Timestamp.IsZero())
}

func TestQueue_WorkspaceOrder(t *testing.T) {
	t.Parallel()

	q, _ := newTestQueue(t)
	ctx := context.Background()
	s1 := uuid.MustParse("6f1c3a52-2c1e-4c8e-9a0b-5b1f2f6a0001")
	s2 := uuid.New()
	taskID := uuid.New()
	title := "renamed"

	deleteID, err := q.Enqueue(ctx, offline.DeleteTask{SpaceID: s1, TaskID: taskID})
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, offline.DeleteTask{SpaceID: s2, TaskID: uuid.New()})
	require.NoError(t, err)
	updateID, err := q.Enqueue(ctx, offline.UpdateTask{
		SpaceID: s1,
		TaskID:  taskID,
		Patch:   domain.TaskPatch{Title: &title},
	})
	require.NoError(t, err)

	pending, err := q.ListPendingForWorkspace(ctx, s1)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, deleteID, pending[0].ID, "delete was queued first")
	assert.Equal(t, offline.OpDeleteTask, pending[0].Type())
	assert.Equal(t, updateID, pending[1].ID)
	assert.Equal(t, offline.OpUpdateTask, pending[1].Type())
	assert.True(t, pending[0].Timestamp.Before(pending[1].Timestamp))

	all, err := q.ListPending(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	n, err := q.CountForWorkspace(ctx, s2)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = q.ListPendingForWorkspace(ctx, uuid.Nil)
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestQueue_EnqueueRejectsInvalid(t *testing.T) {
	t.Parallel()

	q, _ := newTestQueue(t)
	ctx := context.Background()

	_, err := q.Enqueue(ctx, offline.DeleteTask{SpaceID: uuid.New()})
	assert.ErrorIs(t, err, offline.ErrInvalidOperation)

	_, err = q.Enqueue(ctx, offline.CreateTask{SpaceID: uuid.New(), ClientID: uuid.New()})
	assert.ErrorIs(t, err, domain.ErrEmptyTaskTitle)

	_, err = q.Enqueue(ctx, nil)
	assert.ErrorIs(t, err, offline.ErrInvalidOperation)

	n, err := q.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestQueue_RecordFailure(t *testing.T) {
	t.Parallel()

	q, _ := newTestQueue(t)
	ctx := context.Background()

	id, err := q.Enqueue(ctx, offline.DeleteTask{SpaceID: uuid.New(), TaskID: uuid.New()})
	require.NoError(t, err)

	for i := 1; i < offline.MaxRetries; i++ {
		dropped, err := q.RecordFailure(ctx, id, "503 Service Unavailable")
		require.NoError(t, err)
		assert.False(t, dropped)

		op, err := q.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, i, op.Retries)
		assert.Equal(t, "503 Service Unavailable", op.LastError)
	}

	dropped, err := q.RecordFailure(ctx, id, "still failing")
	require.NoError(t, err)
	assert.True(t, dropped, "third failure retires the record")

	_, err = q.Get(ctx, id)
	assert.ErrorIs(t, err, offline.ErrNotFound)

	n, err := q.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = q.RecordFailure(ctx, id, "gone")
	assert.ErrorIs(t, err, offline.ErrNotFound)
}

func TestQueue_RemoveAndClear(t *testing.T) {
	t.Parallel()

	q, _ := newTestQueue(t)
	ctx := context.Background()
	spaceID := uuid.New()

	first, err := q.Enqueue(ctx, offline.DeleteTask{SpaceID: spaceID, TaskID: uuid.New()})
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, offline.DeleteTask{SpaceID: spaceID, TaskID: uuid.New()})
	require.NoError(t, err)

	require.NoError(t, q.Remove(ctx, first))
	assert.ErrorIs(t, q.Remove(ctx, first), offline.ErrNotFound)

	n, err := q.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, q.ClearAll(ctx))
	n, err = q.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestQueue_StoreUnavailable(t *testing.T) {
	t.Parallel()

	q := offline.NewQueue(failingStore{}, newTestLogger())
	ctx := context.Background()

	_, err := q.Enqueue(ctx, offline.DeleteTask{SpaceID: uuid.New(), TaskID: uuid.New()})
	assert.ErrorIs(t, err, offline.ErrStoreUnavailable)
	assert.ErrorIs(t, err, errDiskFull)

	_, err = q.ListPending(ctx)
	assert.ErrorIs(t, err, offline.ErrStoreUnavailable)
}
