package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/smera-app/smera/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPgError(code string) *pgconn.PgError {
	return &pgconn.PgError{
		Code:           code,
		Message:        "error message",
		TableName:      "tasks",
		ColumnName:     "title",
		ConstraintName: "tasks_owner_client_id_key",
	}
}

// mockResult implements sql.Result.
type mockResult struct {
	rowsAffected int64
	err          error
}

func (m mockResult) LastInsertId() (int64, error) { return 0, nil }
func (m mockResult) RowsAffected() (int64, error) { return m.rowsAffected, m.err }

func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", sql.ErrNoRows, store.ErrNotFound},
		{"unique violation", newPgError(uniqueViolationCode), store.ErrDuplicate},
		{"foreign key violation", newPgError(foreignKeyViolationCode), store.ErrInvalidEntity},
		{"check violation", newPgError(checkViolationCode), store.ErrInvalidEntity},
		{"not null violation", newPgError(notNullViolationCode), store.ErrInvalidEntity},
		{"wrapped pg error", fmt.Errorf("exec: %w", newPgError(uniqueViolationCode)), store.ErrDuplicate},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := MapError(tc.err)
			assert.ErrorIs(t, got, tc.want)
			assert.ErrorIs(t, got, tc.err, "original error stays in the chain")
		})
	}

	t.Run("nil", func(t *testing.T) {
		assert.NoError(t, MapError(nil))
	})

	t.Run("unmapped errors pass through", func(t *testing.T) {
		plain := errors.New("connection refused")
		assert.Same(t, plain, MapError(plain))

		other := newPgError("42P01")
		assert.Equal(t, error(other), MapError(other))
	})
}

func TestViolationPredicates(t *testing.T) {
	t.Parallel()

	unique := newPgError(uniqueViolationCode)
	fk := newPgError(foreignKeyViolationCode)

	assert.True(t, IsUniqueViolation(unique))
	assert.False(t, IsUniqueViolation(fk))
	assert.False(t, IsUniqueViolation(nil))
	assert.True(t, IsForeignKeyViolation(fk))
	assert.True(t, IsCheckConstraintViolation(newPgError(checkViolationCode)))
	assert.True(t, IsNotNullViolation(newPgError(notNullViolationCode)))
	assert.False(t, IsNotNullViolation(errors.New("other")))

	assert.True(t, IsNotFoundError(sql.ErrNoRows))
	assert.True(t, IsNotFoundError(store.ErrTaskNotFound))
	assert.False(t, IsNotFoundError(store.ErrDuplicate))
}

func TestCheckRowsAffected(t *testing.T) {
	t.Parallel()

	assert.NoError(t, CheckRowsAffected(mockResult{rowsAffected: 1}, store.ErrTaskNotFound))
	assert.ErrorIs(t, CheckRowsAffected(mockResult{}, store.ErrTaskNotFound), store.ErrTaskNotFound)
	assert.ErrorIs(t, CheckRowsAffected(mockResult{}, nil), store.ErrNotFound)

	err := CheckRowsAffected(mockResult{err: errors.New("driver")}, nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, store.ErrNotFound)

	assert.Error(t, CheckRowsAffected(nil, nil))
}

func TestMapUniqueViolation(t *testing.T) {
	t.Parallel()

	unique := newPgError(uniqueViolationCode)

	err := MapUniqueViolation(unique, "task", "", store.ErrTaskExists)
	assert.ErrorIs(t, err, store.ErrTaskExists)
	assert.ErrorIs(t, err, store.ErrDuplicate)

	err = MapUniqueViolation(unique, "space", "", nil)
	assert.ErrorIs(t, err, store.ErrDuplicate)
	assert.Contains(t, err.Error(), "space already exists")

	err = MapUniqueViolation(unique, "", "spaces_pkey", nil)
	assert.Contains(t, err.Error(), "spaces_pkey")

	plain := errors.New("timeout")
	assert.Same(t, plain, MapUniqueViolation(plain, "task", "", store.ErrTaskExists))
}

func TestMigrationsEmbedded(t *testing.T) {
	t.Parallel()

	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	for _, e := range entries {
		data, err := migrationsFS.ReadFile("migrations/" + e.Name())
		require.NoError(t, err)
		assert.Contains(t, string(data), "-- +goose Up", e.Name())
		assert.Contains(t, string(data), "-- +goose Down", e.Name())
	}
}

func TestGooseLogger(t *testing.T) {
	t.Parallel()

	l := &gooseLogger{logger: testLogger()}
	assert.NotPanics(t, func() {
		l.Printf("OK   %s (%s)\n", "00001_create_spaces.sql", "12ms")
		l.Fatalf("failed: %v", errors.New("boom"))
	})
}
