package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JobRequestEvent asks for a background job to be scheduled.
type JobRequestEvent struct {
	// ID identifies the event. The job scheduled for it reuses the ID.
	ID uuid.UUID `json:"id"`

	// Type is the requested job type.
	Type string `json:"type"`

	// Payload is the job-specific data as JSON.
	Payload json.RawMessage `json:"payload"`

	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalPayload decodes the event payload into v.
func (e *JobRequestEvent) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// NewJobRequestEvent creates an event of the given type carrying payload as JSON.
func NewJobRequestEvent(eventType string, payload any) (*JobRequestEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &JobRequestEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   data,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// EventHandler processes events.
type EventHandler interface {
	HandleEvent(ctx context.Context, event *JobRequestEvent) error
}

// EventEmitter publishes events to handlers.
type EventEmitter interface {
	EmitEvent(ctx context.Context, event *JobRequestEvent) error
}
