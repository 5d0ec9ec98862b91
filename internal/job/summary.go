package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/smera-app/smera/internal/domain"
	"github.com/smera-app/smera/internal/generation"
	"github.com/smera-app/smera/internal/quota"
	"github.com/smera-app/smera/internal/redact"
	"github.com/smera-app/smera/internal/store"
)

// Dependency errors
var (
	ErrNilTaskRepository = errors.New("task repository cannot be nil")
	ErrNilSummarizer     = errors.New("summarizer cannot be nil")
	ErrNilQuota          = errors.New("quota enforcer cannot be nil")
	ErrNilLogger         = errors.New("logger cannot be nil")
	ErrEmptyTaskID       = errors.New("task ID cannot be empty")
	ErrEmptyOwnerID      = errors.New("owner ID cannot be empty")
)

// TaskRepository is the subset of store.TaskStore a summary job needs.
type TaskRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	ListUpdates(ctx context.Context, taskID uuid.UUID) ([]*domain.TaskUpdate, error)
	UpdateSummary(ctx context.Context, id uuid.UUID, summary string) error
}

// QuotaEnforcer charges and refunds metered features.
type QuotaEnforcer interface {
	Consume(ctx context.Context, userID uuid.UUID, plan domain.Plan, feature domain.Feature) error
	Release(ctx context.Context, userID uuid.UUID, feature domain.Feature) error
}

// SummaryPayload is the persisted data of a summary job.
type SummaryPayload struct {
	TaskID  uuid.UUID   `json:"task_id"`
	OwnerID uuid.UUID   `json:"owner_id"`
	Plan    domain.Plan `json:"plan"`

	// Prepaid is set when the caller already charged the ai_summary quota.
	Prepaid bool `json:"prepaid,omitempty"`
}

// SummaryJob regenerates the AI summary of a task from its progress notes.
type SummaryJob struct {
	id         uuid.UUID
	payload    SummaryPayload
	tasks      TaskRepository
	summarizer generation.Summarizer
	quota      QuotaEnforcer
	logger     *slog.Logger
}

// NewSummaryJob creates a summary job with a fresh ID.
func NewSummaryJob(
	payload SummaryPayload,
	tasks TaskRepository,
	summarizer generation.Summarizer,
	quota QuotaEnforcer,
	logger *slog.Logger,
) (*SummaryJob, error) {
	if tasks == nil {
		return nil, ErrNilTaskRepository
	}
	if summarizer == nil {
		return nil, ErrNilSummarizer
	}
	if quota == nil {
		return nil, ErrNilQuota
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if payload.TaskID == uuid.Nil {
		return nil, ErrEmptyTaskID
	}
	if payload.OwnerID == uuid.Nil {
		return nil, ErrEmptyOwnerID
	}

	return &SummaryJob{
		id:         uuid.New(),
		payload:    payload,
		tasks:      tasks,
		summarizer: summarizer,
		quota:      quota,
		logger:     logger.With("job_type", TypeSummary, "task_id", payload.TaskID),
	}, nil
}

// ID returns the job ID.
func (j *SummaryJob) ID() uuid.UUID { return j.id }

// Type returns TypeSummary.
func (j *SummaryJob) Type() string { return TypeSummary }

// Status always reports pending; the Runner tracks progress in the Store.
func (j *SummaryJob) Status() Status { return StatusPending }

// Payload returns the JSON encoding of the job's SummaryPayload.
func (j *SummaryJob) Payload() []byte {
	data, err := json.Marshal(j.payload)
	if err != nil {
		j.logger.Error("failed to marshal job payload", "error", err)
		return []byte{}
	}
	return data
}

// Execute loads the task and its notes, charges the summary quota unless the
// job is prepaid, asks the model for a summary and stores it.
//
// A task deleted in the meantime, a task without notes and an exhausted
// quota all end the job without error.
func (j *SummaryJob) Execute(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("job cancelled by context: %w", err)
	}

	// 1. Load the task and its notes
	task, err := j.tasks.GetByID(ctx, j.payload.TaskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			j.logger.Info("task no longer exists, skipping summary")
			j.refund(ctx)
			return nil
		}
		return fmt.Errorf("failed to load task: %w", err)
	}

	updates, err := j.tasks.ListUpdates(ctx, task.ID)
	if err != nil {
		return fmt.Errorf("failed to load task updates: %w", err)
	}
	if len(updates) == 0 && task.Description == "" {
		j.logger.Info("nothing to summarize")
		j.refund(ctx)
		return nil
	}

	// 2. Charge the quota
	if !j.payload.Prepaid {
		err := j.quota.Consume(ctx, j.payload.OwnerID, j.payload.Plan, domain.FeatureAISummary)
		if errors.Is(err, quota.ErrQuotaExceeded) {
			j.logger.Info("summary quota exhausted, skipping summary", "plan", j.payload.Plan)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to charge summary quota: %w", err)
		}
	}

	// 3. Generate
	summary, err := j.summarizer.SummarizeTask(ctx, task, updates)
	if err != nil {
		j.release(ctx)
		return fmt.Errorf("failed to summarize task: %w", err)
	}

	// 4. Store
	if err := j.tasks.UpdateSummary(ctx, task.ID, summary); err != nil {
		return fmt.Errorf("failed to save summary: %w", err)
	}

	j.logger.Info("task summary updated", "updates", len(updates))
	return nil
}

// refund gives back a prepaid unit for a job that produced nothing.
func (j *SummaryJob) refund(ctx context.Context) {
	if j.payload.Prepaid {
		j.release(ctx)
	}
}

func (j *SummaryJob) release(ctx context.Context) {
	if err := j.quota.Release(context.WithoutCancel(ctx), j.payload.OwnerID, domain.FeatureAISummary); err != nil {
		j.logger.Warn("failed to release summary quota", redact.Attr("error", err))
	}
}
