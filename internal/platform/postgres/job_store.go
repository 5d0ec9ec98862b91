package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/smera-app/smera/internal/job"
	"github.com/smera-app/smera/internal/platform/logger"
	"github.com/smera-app/smera/internal/store"
)

// PostgresJobStore implements job.Store.
type PostgresJobStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresJobStore creates a PostgresJobStore.
func NewPostgresJobStore(db store.DBTX, logger *slog.Logger) *PostgresJobStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresJobStore{
		db:     db,
		logger: logger.With(slog.String("component", "job_store")),
	}
}

var _ job.Store = (*PostgresJobStore)(nil)

// SaveJob implements job.Store.
func (s *PostgresJobStore) SaveJob(ctx context.Context, j job.Job) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, type, payload, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, j.ID(), j.Type(), j.Payload(), j.Status(), now, now)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to save job",
			slog.String("job_id", j.ID().String()),
			slog.String("job_type", j.Type()),
			slog.String("error", err.Error()))
		return store.NewStoreError("job", "create", "insert failed", MapError(err))
	}
	return nil
}

// UpdateJobStatus implements job.Store. Updating a job that does not exist
// is logged and otherwise ignored.
func (s *PostgresJobStore) UpdateJobStatus(ctx context.Context, id uuid.UUID, status job.Status, errorMsg string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var msg sql.NullString
	if errorMsg != "" {
		msg = sql.NullString{String: errorMsg, Valid: true}
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4
	`, status, msg, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to update job status",
			slog.String("job_id", id.String()),
			slog.String("status", string(status)),
			slog.String("error", err.Error()))
		return store.NewStoreError("job", "update", "update failed", MapError(err))
	}

	if err := CheckRowsAffected(result, store.ErrJobNotFound); err != nil {
		log.Warn("no job found to update status", slog.String("job_id", id.String()))
	}
	return nil
}

// GetPendingJobs implements job.Store.
func (s *PostgresJobStore) GetPendingJobs(ctx context.Context) ([]job.Record, error) {
	return s.getJobsByStatus(ctx, job.StatusPending, 0)
}

// GetProcessingJobs implements job.Store.
func (s *PostgresJobStore) GetProcessingJobs(ctx context.Context, olderThan time.Duration) ([]job.Record, error) {
	return s.getJobsByStatus(ctx, job.StatusProcessing, olderThan)
}

func (s *PostgresJobStore) getJobsByStatus(ctx context.Context, status job.Status, olderThan time.Duration) ([]job.Record, error) {
	query := `
		SELECT id, type, payload, status, error_message, created_at, updated_at
		FROM jobs
		WHERE status = $1
		ORDER BY created_at ASC
	`
	args := []any{status}
	if olderThan > 0 {
		query = `
			SELECT id, type, payload, status, error_message, created_at, updated_at
			FROM jobs
			WHERE status = $1 AND updated_at < $2
			ORDER BY created_at ASC
		`
		args = append(args, time.Now().UTC().Add(-olderThan))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to query jobs by status",
			slog.String("status", string(status)),
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("job", "list", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var records []job.Record
	for rows.Next() {
		var (
			rec job.Record
			msg sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.Type, &rec.Payload, &rec.Status, &msg, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, store.NewStoreError("job", "list", "scan failed", err)
		}
		rec.ErrorMessage = msg.String
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("job", "list", "iteration failed", err)
	}
	return records, nil
}

// WithTx implements job.Store.
func (s *PostgresJobStore) WithTx(tx *sql.Tx) job.Store {
	return &PostgresJobStore{db: tx, logger: s.logger}
}
