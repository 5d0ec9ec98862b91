package job

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/smera-app/smera/internal/events"
)

// Submitter queues jobs; *Runner implements it.
type Submitter interface {
	Submit(ctx context.Context, job Job) error
}

// EventHandler turns job request events into submitted jobs.
type EventHandler struct {
	factory *Factory
	runner  Submitter
	logger  *slog.Logger
}

// NewEventHandler creates an EventHandler.
func NewEventHandler(factory *Factory, runner Submitter, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		factory: factory,
		runner:  runner,
		logger:  logger.With("component", "job_event_handler"),
	}
}

// HandleEvent creates and submits the job an event asks for. The job takes
// the event's ID so callers can report it before the job exists. Events of
// unknown types are ignored.
func (h *EventHandler) HandleEvent(ctx context.Context, event *events.JobRequestEvent) error {
	if event.Type != TypeSummary {
		h.logger.Debug("ignoring event with unsupported type",
			"event_type", event.Type,
			"event_id", event.ID)
		return nil
	}

	var payload SummaryPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		h.logger.Error("failed to unmarshal payload", "error", err, "event_id", event.ID)
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	j, err := h.factory.NewSummaryJob(payload)
	if err != nil {
		h.logger.Error("failed to create job", "error", err, "event_id", event.ID)
		return fmt.Errorf("failed to create job: %w", err)
	}
	if event.ID != uuid.Nil {
		j.id = event.ID
	}

	if err := h.runner.Submit(ctx, j); err != nil {
		h.logger.Error("failed to submit job",
			"error", err,
			"job_id", j.ID(),
			"event_id", event.ID)
		return fmt.Errorf("failed to submit job: %w", err)
	}

	h.logger.Info("job submitted",
		"job_id", j.ID(),
		"task_id", payload.TaskID,
		"event_id", event.ID)
	return nil
}

var _ events.EventHandler = (*EventHandler)(nil)
