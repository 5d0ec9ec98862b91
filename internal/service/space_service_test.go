package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/smera-app/smera/internal/domain"
	"github.com/smera-app/smera/internal/quota"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSpaceService_NilDependencies(t *testing.T) {
	t.Parallel()

	_, err := NewSpaceService(nil, newFakeQuota(), testLogger())
	assert.ErrorIs(t, err, ErrNilDependency)
	_, err = NewSpaceService(newMemorySpaces(), nil, testLogger())
	assert.ErrorIs(t, err, ErrNilDependency)
	_, err = NewSpaceService(newMemorySpaces(), newFakeQuota(), nil)
	assert.ErrorIs(t, err, ErrNilDependency)
}

func TestSpaceService_Create(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ownerID := uuid.New()

	t.Run("creates and lists", func(t *testing.T) {
		t.Parallel()
		svc, err := NewSpaceService(newMemorySpaces(), newFakeQuota(), testLogger())
		require.NoError(t, err)

		space, err := svc.Create(ctx, ownerID, domain.PlanFree, "  Home  ")
		require.NoError(t, err)
		assert.Equal(t, "Home", space.Name)
		assert.Equal(t, ownerID, space.OwnerID)

		spaces, err := svc.List(ctx, ownerID)
		require.NoError(t, err)
		require.Len(t, spaces, 1)
		assert.Equal(t, space.ID, spaces[0].ID)
	})

	t.Run("invalid name", func(t *testing.T) {
		t.Parallel()
		svc, err := NewSpaceService(newMemorySpaces(), newFakeQuota(), testLogger())
		require.NoError(t, err)

		_, err = svc.Create(ctx, ownerID, domain.PlanFree, "   ")
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.ErrorIs(t, err, domain.ErrEmptySpaceName)
	})

	t.Run("plan limit", func(t *testing.T) {
		t.Parallel()
		spaces := newMemorySpaces()
		q := newFakeQuota()
		q.spacesLimit = 1
		svc, err := NewSpaceService(spaces, q, testLogger())
		require.NoError(t, err)

		_, err = svc.Create(ctx, ownerID, domain.PlanFree, "First")
		require.NoError(t, err)

		_, err = svc.Create(ctx, ownerID, domain.PlanFree, "Second")
		assert.ErrorIs(t, err, quota.ErrQuotaExceeded)

		count, _ := spaces.CountByOwner(ctx, ownerID)
		assert.Equal(t, 1, count, "rejected space is not saved")

		_, err = svc.Create(ctx, uuid.New(), domain.PlanFree, "Other user")
		assert.NoError(t, err, "limits are per user")
	})

	t.Run("store failure is wrapped", func(t *testing.T) {
		t.Parallel()
		spaces := newMemorySpaces()
		spaces.err = errors.New("connection lost")
		svc, err := NewSpaceService(spaces, newFakeQuota(), testLogger())
		require.NoError(t, err)

		_, err = svc.Create(ctx, ownerID, domain.PlanFree, "Home")
		var serr *ServiceError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, "create_space", serr.Operation)
	})
}

func TestSpaceService_Get(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	spaces := newMemorySpaces()
	ownerID := uuid.New()
	space := spaces.add(ownerID, "Work")

	svc, err := NewSpaceService(spaces, newFakeQuota(), testLogger())
	require.NoError(t, err)

	got, err := svc.Get(ctx, ownerID, space.ID)
	require.NoError(t, err)
	assert.Equal(t, space.ID, got.ID)

	_, err = svc.Get(ctx, uuid.New(), space.ID)
	assert.ErrorIs(t, err, ErrNotOwned)

	_, err = svc.Get(ctx, ownerID, uuid.New())
	assert.ErrorIs(t, err, ErrSpaceNotFound)
}
