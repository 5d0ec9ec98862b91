package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/smera-app/smera/internal/domain"
)

// TaskStore persists tasks and their progress notes.
type TaskStore interface {
	// Create saves a new task. Returns ErrTaskExists when the owner already
	// has a task with the same non-nil client ID.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID returns a task. Returns ErrTaskNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// GetByClientID returns the task ownerID created with clientID.
	// Returns ErrTaskNotFound if there is none.
	GetByClientID(ctx context.Context, ownerID, clientID uuid.UUID) (*domain.Task, error)

	// ListBySpace returns the tasks of a space: open tasks first, then by due
	// date and creation time.
	ListBySpace(ctx context.Context, spaceID uuid.UUID) ([]*domain.Task, error)

	// Update saves every mutable field of task.
	// Returns ErrTaskNotFound if it does not exist.
	Update(ctx context.Context, task *domain.Task) error

	// UpdateSummary replaces the AI summary of a task.
	UpdateSummary(ctx context.Context, id uuid.UUID, summary string) error

	// Delete removes a task and its updates.
	// Returns ErrTaskNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// AppendUpdate saves a progress note.
	AppendUpdate(ctx context.Context, update *domain.TaskUpdate) error

	// ListUpdates returns the progress notes of a task, oldest first.
	ListUpdates(ctx context.Context, taskID uuid.UUID) ([]*domain.TaskUpdate, error)

	// WithTx returns a TaskStore bound to tx.
	WithTx(tx *sql.Tx) TaskStore
}
