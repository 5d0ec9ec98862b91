package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/smera-app/smera/internal/domain"
	"github.com/smera-app/smera/internal/platform/logger"
	"github.com/smera-app/smera/internal/store"
)

// PostgresUsageStore implements store.UsageStore with one row per user,
// feature and period.
type PostgresUsageStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresUsageStore creates a PostgresUsageStore.
func NewPostgresUsageStore(db store.DBTX, logger *slog.Logger) *PostgresUsageStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresUsageStore{
		db:     db,
		logger: logger.With(slog.String("component", "usage_store")),
	}
}

var _ store.UsageStore = (*PostgresUsageStore)(nil)

// Increment implements store.UsageStore. The limit check and the increment
// happen in one statement, so concurrent requests cannot overshoot the limit.
func (s *PostgresUsageStore) Increment(
	ctx context.Context,
	userID uuid.UUID,
	feature domain.Feature,
	period time.Time,
	limit int,
) (int, bool, error) {
	if limit == 0 {
		return 0, false, nil
	}

	var count int
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO usage_counters (user_id, feature, period_start, count, updated_at)
		VALUES ($1, $2, $3, 1, now())
		ON CONFLICT (user_id, feature, period_start) DO UPDATE
		SET count = usage_counters.count + 1, updated_at = now()
		WHERE $4::int < 0 OR usage_counters.count < $4::int
		RETURNING count
	`, userID, feature, period, limit).Scan(&count)

	if errors.Is(err, sql.ErrNoRows) {
		// conflict row exists but the WHERE rejected the update
		current, err := s.current(ctx, userID, feature, period)
		return current, false, err
	}
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to increment usage",
			slog.String("error", err.Error()),
			slog.String("feature", string(feature)))
		return 0, false, store.NewStoreError("usage", "increment", "upsert failed", MapError(err))
	}
	return count, true, nil
}

func (s *PostgresUsageStore) current(ctx context.Context, userID uuid.UUID, feature domain.Feature, period time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT count FROM usage_counters
		WHERE user_id = $1 AND feature = $2 AND period_start = $3
	`, userID, feature, period).Scan(&count)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, store.NewStoreError("usage", "get", "query failed", MapError(err))
	}
	return count, nil
}

// Decrement implements store.UsageStore.
func (s *PostgresUsageStore) Decrement(ctx context.Context, userID uuid.UUID, feature domain.Feature, period time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE usage_counters
		SET count = count - 1, updated_at = now()
		WHERE user_id = $1 AND feature = $2 AND period_start = $3 AND count > 0
	`, userID, feature, period)
	if err != nil {
		return store.NewStoreError("usage", "decrement", "update failed", MapError(err))
	}
	return nil
}

// Get implements store.UsageStore.
func (s *PostgresUsageStore) Get(ctx context.Context, userID uuid.UUID, period time.Time) (map[domain.Feature]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT feature, count FROM usage_counters
		WHERE user_id = $1 AND period_start = $2
	`, userID, period)
	if err != nil {
		return nil, store.NewStoreError("usage", "get", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	counters := make(map[domain.Feature]int)
	for rows.Next() {
		var (
			feature domain.Feature
			count   int
		)
		if err := rows.Scan(&feature, &count); err != nil {
			return nil, store.NewStoreError("usage", "get", "scan failed", err)
		}
		counters[feature] = count
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("usage", "get", "iteration failed", err)
	}
	return counters, nil
}
