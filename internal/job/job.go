package job

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a job.
type Status string

// Job statuses
const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// TypeSummary identifies jobs that regenerate a task's AI summary.
const TypeSummary = "summary_generation"

// Job is a unit of background work.
type Job interface {
	// ID returns the unique identifier of the job.
	ID() uuid.UUID

	// Type returns the job type, e.g. TypeSummary.
	Type() string

	// Payload returns the JSON data needed to rebuild the job.
	Payload() []byte

	// Status returns the status the job was created with.
	Status() Status

	// Execute performs the work.
	Execute(ctx context.Context) error
}

// Record is a job as persisted by a Store.
type Record struct {
	ID           uuid.UUID
	Type         string
	Payload      []byte
	Status       Status
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Store persists jobs so they can be recovered after a restart.
type Store interface {
	// SaveJob persists a new job.
	SaveJob(ctx context.Context, job Job) error

	// UpdateJobStatus changes the status of a job. errorMsg is stored with
	// failed jobs and may be empty.
	UpdateJobStatus(ctx context.Context, id uuid.UUID, status Status, errorMsg string) error

	// GetPendingJobs returns jobs waiting to run, oldest first.
	GetPendingJobs(ctx context.Context) ([]Record, error)

	// GetProcessingJobs returns jobs that have been processing for longer than
	// olderThan. A zero olderThan returns every processing job.
	GetProcessingJobs(ctx context.Context, olderThan time.Duration) ([]Record, error)

	// WithTx returns a Store bound to tx.
	WithTx(tx *sql.Tx) Store
}

// Builder turns persisted records back into executable jobs.
type Builder interface {
	Rebuild(rec Record) (Job, error)
}
