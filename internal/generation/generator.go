package generation

import (
	"context"
	"time"

	"github.com/smera-app/smera/internal/domain"
)

// TaskParser turns a natural-language description into a task draft.
type TaskParser interface {
	// ParseTask extracts title, due date, due time, priority and description
	// from text. Relative dates ("tomorrow", "next friday") are resolved
	// against now in loc. The returned draft is normalized but may still
	// fail domain validation.
	ParseTask(ctx context.Context, text string, now time.Time, loc *time.Location) (*domain.TaskDraft, error)
}

// Summarizer condenses a task and its progress notes.
type Summarizer interface {
	// SummarizeTask returns a short plain-text summary of task and updates.
	// updates are ordered oldest first.
	SummarizeTask(ctx context.Context, task *domain.Task, updates []*domain.TaskUpdate) (string, error)
}
