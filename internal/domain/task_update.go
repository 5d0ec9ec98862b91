package domain

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxTaskUpdateLength is the longest allowed progress note, in runes.
const MaxTaskUpdateLength = 2000

// Task update validation errors
var (
	ErrEmptyTaskUpdateID     = errors.New("task update ID cannot be empty")
	ErrEmptyTaskUpdateTaskID = errors.New("task update task ID cannot be empty")
	ErrEmptyTaskUpdateText   = errors.New("task update text cannot be empty")
	ErrTaskUpdateTooLong     = errors.New("task update must be at most 2000 characters long")
)

// TaskUpdate is an append-only progress note attached to a task. Updates are
// the input of the AI summary.
type TaskUpdate struct {
	ID        uuid.UUID `json:"id"`
	TaskID    uuid.UUID `json:"task_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTaskUpdate creates a TaskUpdate for taskID.
func NewTaskUpdate(taskID uuid.UUID, text string) (*TaskUpdate, error) {
	update := &TaskUpdate{
		ID:        uuid.New(),
		TaskID:    taskID,
		Text:      strings.TrimSpace(text),
		CreatedAt: time.Now().UTC(),
	}

	if err := update.Validate(); err != nil {
		return nil, err
	}

	return update, nil
}

// Validate checks if the TaskUpdate has valid data.
func (u *TaskUpdate) Validate() error {
	if u.ID == uuid.Nil {
		return ErrEmptyTaskUpdateID
	}
	if u.TaskID == uuid.Nil {
		return ErrEmptyTaskUpdateTaskID
	}
	if u.Text == "" {
		return ErrEmptyTaskUpdateText
	}
	if utf8.RuneCountInString(u.Text) > MaxTaskUpdateLength {
		return ErrTaskUpdateTooLong
	}
	return nil
}
