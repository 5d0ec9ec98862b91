package domain

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Layouts of the optional due date and due time fields.
const (
	DueDateLayout = "2006-01-02"
	DueTimeLayout = "15:04"
)

// Length limits for task text fields, in runes.
const (
	MaxTaskTitleLength       = 200
	MaxTaskDescriptionLength = 5000
)

// Priority ranks how urgent a task is.
type Priority string

// Possible priority values
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Task-specific validation errors
var (
	ErrEmptyTaskID        = errors.New("task ID cannot be empty")
	ErrEmptyTaskSpaceID   = errors.New("task space ID cannot be empty")
	ErrEmptyTaskOwnerID   = errors.New("task owner ID cannot be empty")
	ErrEmptyTaskTitle     = errors.New("task title cannot be empty")
	ErrTaskTitleTooLong   = errors.New("task title must be at most 200 characters long")
	ErrTaskDescTooLong    = errors.New("task description must be at most 5000 characters long")
	ErrInvalidPriority    = errors.New("invalid task priority")
	ErrInvalidDueDate     = errors.New("due date must use the YYYY-MM-DD format")
	ErrInvalidDueTime     = errors.New("due time must use the HH:MM format")
	ErrDueTimeWithoutDate = errors.New("due time requires a due date")
	ErrEmptyTaskPatch     = errors.New("task patch contains no changes")
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}

// NormalizePriority maps free-form input (as produced by the AI parser or
// typed by a user) to a Priority. Unknown or empty values become medium.
func NormalizePriority(s string) Priority {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if p.Valid() {
		return p
	}
	return PriorityMedium
}

// Task is a unit of work inside a Space.
//
// ClientID is the identifier the client generated when the task was first
// submitted. It lets the backend recognize a replayed create and is
// uuid.Nil for tasks created without one.
type Task struct {
	ID          uuid.UUID `json:"id"`
	SpaceID     uuid.UUID `json:"space_id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	ClientID    uuid.UUID `json:"client_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	DueDate     string    `json:"due_date,omitempty"`
	DueTime     string    `json:"due_time,omitempty"`
	Priority    Priority  `json:"priority"`
	Completed   bool      `json:"completed"`
	Summary     string    `json:"summary,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TaskDraft holds the user-supplied fields of a task that does not exist yet.
type TaskDraft struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	DueDate     string   `json:"due_date,omitempty"`
	DueTime     string   `json:"due_time,omitempty"`
	Priority    Priority `json:"priority,omitempty"`
}

// Normalize trims text fields and defaults the priority.
func (d TaskDraft) Normalize() TaskDraft {
	d.Title = strings.TrimSpace(d.Title)
	d.Description = strings.TrimSpace(d.Description)
	d.DueDate = strings.TrimSpace(d.DueDate)
	d.DueTime = strings.TrimSpace(d.DueTime)
	if d.Priority == "" {
		d.Priority = PriorityMedium
	}
	return d
}

// Validate checks the draft's fields.
func (d TaskDraft) Validate() error {
	if err := validateTitle(d.Title); err != nil {
		return err
	}
	if err := validateDescription(d.Description); err != nil {
		return err
	}
	if d.Priority != "" && !d.Priority.Valid() {
		return ErrInvalidPriority
	}
	return validateDue(d.DueDate, d.DueTime)
}

// NewTask creates a Task in spaceID from a draft.
func NewTask(spaceID, ownerID, clientID uuid.UUID, draft TaskDraft) (*Task, error) {
	draft = draft.Normalize()
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	task := &Task{
		ID:          uuid.New(),
		SpaceID:     spaceID,
		OwnerID:     ownerID,
		ClientID:    clientID,
		Title:       draft.Title,
		Description: draft.Description,
		DueDate:     draft.DueDate,
		DueTime:     draft.DueTime,
		Priority:    draft.Priority,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}

	if t.SpaceID == uuid.Nil {
		return ErrEmptyTaskSpaceID
	}

	if t.OwnerID == uuid.Nil {
		return ErrEmptyTaskOwnerID
	}

	if err := validateTitle(t.Title); err != nil {
		return err
	}

	if err := validateDescription(t.Description); err != nil {
		return err
	}

	if !t.Priority.Valid() {
		return ErrInvalidPriority
	}

	return validateDue(t.DueDate, t.DueTime)
}

// TaskPatch is a partial update. Nil fields are left unchanged; an empty
// string clears the optional text fields.
type TaskPatch struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	DueDate     *string   `json:"due_date,omitempty"`
	DueTime     *string   `json:"due_time,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
	Completed   *bool     `json:"completed,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.DueDate == nil &&
		p.DueTime == nil && p.Priority == nil && p.Completed == nil
}

// Validate checks the fields present in the patch.
func (p TaskPatch) Validate() error {
	if p.IsEmpty() {
		return ErrEmptyTaskPatch
	}
	if p.Title != nil {
		if err := validateTitle(strings.TrimSpace(*p.Title)); err != nil {
			return err
		}
	}
	if p.Description != nil {
		if err := validateDescription(*p.Description); err != nil {
			return err
		}
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return ErrInvalidPriority
	}
	if p.DueDate != nil && *p.DueDate != "" {
		if _, err := time.Parse(DueDateLayout, *p.DueDate); err != nil {
			return ErrInvalidDueDate
		}
	}
	if p.DueTime != nil && *p.DueTime != "" {
		if _, err := time.Parse(DueTimeLayout, *p.DueTime); err != nil {
			return ErrInvalidDueTime
		}
	}
	return nil
}

// Apply validates the patch and applies it to the task, updating UpdatedAt.
// The task is left unchanged when the result would be invalid.
func (t *Task) Apply(p TaskPatch) error {
	if err := p.Validate(); err != nil {
		return err
	}

	updated := *t
	if p.Title != nil {
		updated.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		updated.Description = strings.TrimSpace(*p.Description)
	}
	if p.DueDate != nil {
		updated.DueDate = *p.DueDate
	}
	if p.DueTime != nil {
		updated.DueTime = *p.DueTime
	}
	if p.Priority != nil {
		updated.Priority = *p.Priority
	}
	if p.Completed != nil {
		updated.Completed = *p.Completed
	}

	if err := updated.Validate(); err != nil {
		return err
	}

	updated.UpdatedAt = time.Now().UTC()
	*t = updated
	return nil
}

func validateTitle(title string) error {
	if title == "" {
		return ErrEmptyTaskTitle
	}
	if utf8.RuneCountInString(title) > MaxTaskTitleLength {
		return ErrTaskTitleTooLong
	}
	return nil
}

func validateDescription(desc string) error {
	if utf8.RuneCountInString(desc) > MaxTaskDescriptionLength {
		return ErrTaskDescTooLong
	}
	return nil
}

func validateDue(date, clock string) error {
	if date != "" {
		if _, err := time.Parse(DueDateLayout, date); err != nil {
			return ErrInvalidDueDate
		}
	}
	if clock != "" {
		if date == "" {
			return ErrDueTimeWithoutDate
		}
		if _, err := time.Parse(DueTimeLayout, clock); err != nil {
			return ErrInvalidDueTime
		}
	}
	return nil
}
