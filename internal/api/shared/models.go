package shared

import (
	"time"

	"github.com/google/uuid"
	"github.com/smera-app/smera/internal/domain"
)

// Request and response bodies of the HTTP API. The CLI client encodes the
// same types, so the two sides cannot drift apart.

// CreateSpaceRequest is the body of POST /api/spaces.
type CreateSpaceRequest struct {
	Name string `json:"name" validate:"required,max=80"`
}

// CreateTaskRequest is the body of POST /api/spaces/{spaceID}/tasks.
// ClientID is chosen by the client so a replayed create is recognized.
type CreateTaskRequest struct {
	ClientID    *uuid.UUID `json:"client_id,omitempty"`
	Title       string     `json:"title"                 validate:"required,max=200"`
	Description string     `json:"description,omitempty" validate:"max=5000"`
	DueDate     string     `json:"due_date,omitempty"    validate:"omitempty,datetime=2006-01-02"`
	DueTime     string     `json:"due_time,omitempty"    validate:"omitempty,datetime=15:04"`
	Priority    string     `json:"priority,omitempty"    validate:"omitempty,oneof=low medium high urgent"`
}

// NewCreateTaskRequest builds the request for draft.
func NewCreateTaskRequest(clientID uuid.UUID, draft domain.TaskDraft) CreateTaskRequest {
	req := CreateTaskRequest{
		Title:       draft.Title,
		Description: draft.Description,
		DueDate:     draft.DueDate,
		DueTime:     draft.DueTime,
		Priority:    string(draft.Priority),
	}
	if clientID != uuid.Nil {
		req.ClientID = &clientID
	}
	return req
}

// Draft converts the request to a domain draft.
func (r CreateTaskRequest) Draft() domain.TaskDraft {
	return domain.TaskDraft{
		Title:       r.Title,
		Description: r.Description,
		DueDate:     r.DueDate,
		DueTime:     r.DueTime,
		Priority:    domain.Priority(r.Priority),
	}
}

// UpdateTaskRequest is the body of PATCH /api/tasks/{id}. Absent fields are
// left unchanged; an empty due date or time clears it.
type UpdateTaskRequest struct {
	Title       *string `json:"title,omitempty"       validate:"omitempty,min=1,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=5000"`
	DueDate     *string `json:"due_date,omitempty"`
	DueTime     *string `json:"due_time,omitempty"`
	Priority    *string `json:"priority,omitempty"    validate:"omitempty,oneof=low medium high urgent"`
	Completed   *bool   `json:"completed,omitempty"`
}

// NewUpdateTaskRequest builds the request for patch.
func NewUpdateTaskRequest(patch domain.TaskPatch) UpdateTaskRequest {
	req := UpdateTaskRequest{
		Title:       patch.Title,
		Description: patch.Description,
		DueDate:     patch.DueDate,
		DueTime:     patch.DueTime,
		Completed:   patch.Completed,
	}
	if patch.Priority != nil {
		p := string(*patch.Priority)
		req.Priority = &p
	}
	return req
}

// Patch converts the request to a domain patch.
func (r UpdateTaskRequest) Patch() domain.TaskPatch {
	patch := domain.TaskPatch{
		Title:       r.Title,
		Description: r.Description,
		DueDate:     r.DueDate,
		DueTime:     r.DueTime,
		Completed:   r.Completed,
	}
	if r.Priority != nil {
		p := domain.Priority(*r.Priority)
		patch.Priority = &p
	}
	return patch
}

// Validate rejects a request that changes nothing.
func (r UpdateTaskRequest) Validate() error {
	return domain.Invalid(r.Patch().Validate())
}

// AppendUpdateRequest is the body of POST /api/tasks/{id}/updates.
type AppendUpdateRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}

// ParseTaskRequest is the body of POST /api/ai/parse. Timezone is an IANA
// name used to resolve relative dates; UTC when empty.
type ParseTaskRequest struct {
	Text     string `json:"text"               validate:"required,max=2000"`
	Timezone string `json:"timezone,omitempty" validate:"omitempty,timezone"`
}

// ParseTaskResponse carries the structured draft parsed from free text.
type ParseTaskResponse struct {
	Draft domain.TaskDraft `json:"draft"`
}

// SummaryResponse is returned when a summary job is accepted.
type SummaryResponse struct {
	JobID  uuid.UUID `json:"job_id"`
	Status string    `json:"status"`
}

// UsageItem reports one metered feature. Limit is -1 when unlimited.
type UsageItem struct {
	Feature domain.Feature `json:"feature"`
	Used    int            `json:"used"`
	Limit   int            `json:"limit"`
}

// UsageResponse is the body of GET /api/usage.
type UsageResponse struct {
	Plan        domain.Plan `json:"plan"`
	PeriodStart time.Time   `json:"period_start"`
	Items       []UsageItem `json:"items"`
}
