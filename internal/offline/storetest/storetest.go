// Package storetest holds a conformance suite that every offline.Store
// implementation must pass.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/smera-app/smera/internal/offline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a new empty store. The suite closes it.
type Factory func(t *testing.T) offline.Store

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// Record builds a delete-task record for spaceID at base+offset.
func Record(spaceID uuid.UUID, offset time.Duration) offline.QueuedOperation {
	op := offline.DeleteTask{SpaceID: spaceID, TaskID: uuid.New()}
	return offline.QueuedOperation{
		ID:        uuid.New(),
		Operation: op,
		SpaceID:   spaceID,
		Timestamp: base.Add(offset),
	}
}

func ids(t *testing.T, s offline.Store, spaceID uuid.UUID) []uuid.UUID {
	t.Helper()
	var out []uuid.UUID
	err := s.Iterate(context.Background(), spaceID, func(op offline.QueuedOperation) error {
		out = append(out, op.ID)
		return nil
	})
	require.NoError(t, err)
	return out
}

// Run executes the suite against stores created by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	open := func(t *testing.T) offline.Store {
		t.Helper()
		s := newStore(t)
		t.Cleanup(func() { _ = s.Close() })
		return s
	}

	t.Run("AddGet", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		spaceID := uuid.New()

		rec := offline.QueuedOperation{
			ID: uuid.New(),
			Operation: offline.CreateTask{
				SpaceID:  spaceID,
				ClientID: uuid.New(),
			},
			SpaceID:   spaceID,
			Timestamp: base,
			Retries:   1,
			LastError: "503 Service Unavailable",
		}
		require.NoError(t, s.Add(ctx, rec))

		got, err := s.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, rec.ID, got.ID)
		assert.Equal(t, rec.Operation, got.Operation)
		assert.Equal(t, rec.SpaceID, got.SpaceID)
		assert.True(t, rec.Timestamp.Equal(got.Timestamp), "timestamp round trip")
		assert.Equal(t, 1, got.Retries)
		assert.Equal(t, "503 Service Unavailable", got.LastError)

		_, err = s.Get(ctx, uuid.New())
		assert.ErrorIs(t, err, offline.ErrNotFound)
	})

	t.Run("DuplicateID", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		rec := Record(uuid.New(), 0)

		require.NoError(t, s.Add(ctx, rec))
		assert.ErrorIs(t, s.Add(ctx, rec), offline.ErrDuplicateID)
	})

	t.Run("Delete", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		rec := Record(uuid.New(), 0)

		require.NoError(t, s.Add(ctx, rec))
		require.NoError(t, s.Delete(ctx, rec.ID))
		assert.ErrorIs(t, s.Delete(ctx, rec.ID), offline.ErrNotFound)

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("IterateOrder", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		s1, s2 := uuid.New(), uuid.New()

		// inserted out of timestamp order on purpose
		late := Record(s1, 3*time.Second)
		early := Record(s2, time.Second)
		mid := Record(s1, 2*time.Second)
		tieA := Record(s2, 4*time.Second)
		tieB := Record(s1, 4*time.Second)
		for _, rec := range []offline.QueuedOperation{late, early, mid, tieA, tieB} {
			require.NoError(t, s.Add(ctx, rec))
		}

		assert.Equal(t, []uuid.UUID{early.ID, mid.ID, late.ID, tieA.ID, tieB.ID}, ids(t, s, uuid.Nil))
		assert.Equal(t, []uuid.UUID{mid.ID, late.ID, tieB.ID}, ids(t, s, s1))
		assert.Equal(t, []uuid.UUID{early.ID, tieA.ID}, ids(t, s, s2))
		assert.Empty(t, ids(t, s, uuid.New()))
	})

	t.Run("IterateStopsOnError", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		spaceID := uuid.New()
		for i := 0; i < 3; i++ {
			require.NoError(t, s.Add(ctx, Record(spaceID, time.Duration(i)*time.Second)))
		}

		stop := errors.New("stop")
		visited := 0
		err := s.Iterate(ctx, uuid.Nil, func(offline.QueuedOperation) error {
			visited++
			return stop
		})
		assert.ErrorIs(t, err, stop)
		assert.Equal(t, 1, visited)
	})

	t.Run("ModifyKeep", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		rec := Record(uuid.New(), 0)
		require.NoError(t, s.Add(ctx, rec))

		err := s.Modify(ctx, rec.ID, func(op *offline.QueuedOperation) (offline.Disposition, error) {
			op.Retries++
			op.LastError = "boom"
			return offline.Keep, nil
		})
		require.NoError(t, err)

		got, err := s.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.Retries)
		assert.Equal(t, "boom", got.LastError)
		assert.Equal(t, rec.Operation, got.Operation)
	})

	t.Run("ModifyDiscard", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		rec := Record(uuid.New(), 0)
		require.NoError(t, s.Add(ctx, rec))

		err := s.Modify(ctx, rec.ID, func(op *offline.QueuedOperation) (offline.Disposition, error) {
			return offline.Discard, nil
		})
		require.NoError(t, err)

		_, err = s.Get(ctx, rec.ID)
		assert.ErrorIs(t, err, offline.ErrNotFound)
	})

	t.Run("ModifyErrorLeavesRecord", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		rec := Record(uuid.New(), 0)
		require.NoError(t, s.Add(ctx, rec))

		boom := errors.New("boom")
		err := s.Modify(ctx, rec.ID, func(op *offline.QueuedOperation) (offline.Disposition, error) {
			op.Retries = 99
			return offline.Keep, boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := s.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.Zero(t, got.Retries)

		err = s.Modify(ctx, uuid.New(), func(*offline.QueuedOperation) (offline.Disposition, error) {
			return offline.Keep, nil
		})
		assert.ErrorIs(t, err, offline.ErrNotFound)
	})

	t.Run("ModifyIsAtomic", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		rec := Record(uuid.New(), 0)
		require.NoError(t, s.Add(ctx, rec))

		const workers = 8
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := s.Modify(ctx, rec.ID, func(op *offline.QueuedOperation) (offline.Disposition, error) {
					op.Retries++
					return offline.Keep, nil
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		got, err := s.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, workers, got.Retries, "no increment may be lost")
	})

	t.Run("ClearCount", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		spaceID := uuid.New()
		for i := 0; i < 4; i++ {
			require.NoError(t, s.Add(ctx, Record(spaceID, time.Duration(i))))
		}

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, n)

		require.NoError(t, s.Clear(ctx))
		n, err = s.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("ClosedStoreFails", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Close())

		_, err := s.Count(context.Background())
		assert.Error(t, err)
		assert.Error(t, s.Add(context.Background(), Record(uuid.New(), 0)))
	})
}
