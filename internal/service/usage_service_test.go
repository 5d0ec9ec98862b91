package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/smera-app/smera/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUsageService_NilDependencies(t *testing.T) {
	t.Parallel()

	_, err := NewUsageService(nil, newFakeQuota(), testLogger())
	assert.ErrorIs(t, err, ErrNilDependency)
	_, err = NewUsageService(newMemorySpaces(), nil, testLogger())
	assert.ErrorIs(t, err, ErrNilDependency)
	_, err = NewUsageService(newMemorySpaces(), newFakeQuota(), nil)
	assert.ErrorIs(t, err, ErrNilDependency)
}

func TestUsageService_Usage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ownerID := uuid.New()

	spaces := newMemorySpaces()
	spaces.add(ownerID, "Home")
	spaces.add(ownerID, "Work")
	spaces.add(uuid.New(), "Someone else")

	q := newFakeQuota()
	q.consumed[domain.FeatureAIParse] = 4

	svc, err := NewUsageService(spaces, q, testLogger())
	require.NoError(t, err)

	report, err := svc.Usage(ctx, ownerID, domain.PlanPro)
	require.NoError(t, err)
	assert.Equal(t, domain.PlanPro, report.Plan)
	require.Len(t, report.Items, 2)
	assert.Equal(t, domain.FeatureSpaces, report.Items[0].Feature)
	assert.Equal(t, 2, report.Items[0].Used, "only the caller's spaces count")
	assert.Equal(t, 4, report.Items[1].Used)
}

func TestUsageService_Usage_StoreError(t *testing.T) {
	t.Parallel()

	spaces := newMemorySpaces()
	spaces.err = errors.New("connection refused")

	svc, err := NewUsageService(spaces, newFakeQuota(), testLogger())
	require.NoError(t, err)

	_, err = svc.Usage(context.Background(), uuid.New(), domain.PlanFree)
	require.Error(t, err)

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "usage", svcErr.Operation)
	assert.Contains(t, err.Error(), "failed to count spaces")
}
