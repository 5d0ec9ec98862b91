package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/smera-app/smera/internal/domain"
	"github.com/smera-app/smera/internal/events"
	"github.com/smera-app/smera/internal/job"
	"github.com/smera-app/smera/internal/platform/logger"
	"github.com/smera-app/smera/internal/redact"
	"github.com/smera-app/smera/internal/store"
)

// MeteredQuota charges and refunds monthly feature usage.
type MeteredQuota interface {
	Consume(ctx context.Context, userID uuid.UUID, plan domain.Plan, feature domain.Feature) error
	Release(ctx context.Context, userID uuid.UUID, feature domain.Feature) error
}

// TaskService manages tasks and their progress notes.
type TaskService interface {
	// Create adds a task to a space. When clientID is set and ownerID already
	// created a task with it, the existing task is returned and created is
	// false.
	Create(
		ctx context.Context,
		ownerID, spaceID, clientID uuid.UUID,
		draft domain.TaskDraft,
	) (task *domain.Task, created bool, err error)

	// List returns the tasks of a space owned by ownerID.
	List(ctx context.Context, ownerID, spaceID uuid.UUID) ([]*domain.Task, error)

	// Get returns a task owned by ownerID.
	Get(ctx context.Context, ownerID, taskID uuid.UUID) (*domain.Task, error)

	// Update applies patch to a task and returns the result.
	Update(ctx context.Context, ownerID, taskID uuid.UUID, patch domain.TaskPatch) (*domain.Task, error)

	// Delete removes a task.
	Delete(ctx context.Context, ownerID, taskID uuid.UUID) error

	// AppendUpdate adds a progress note and schedules a summary refresh.
	AppendUpdate(ctx context.Context, ownerID uuid.UUID, plan domain.Plan, taskID uuid.UUID, text string) (*domain.TaskUpdate, error)

	// ListUpdates returns the progress notes of a task, oldest first.
	ListUpdates(ctx context.Context, ownerID, taskID uuid.UUID) ([]*domain.TaskUpdate, error)

	// RequestSummary charges one AI summary and schedules it. It returns the
	// ID of the background job.
	RequestSummary(ctx context.Context, ownerID uuid.UUID, plan domain.Plan, taskID uuid.UUID) (uuid.UUID, error)
}

type taskService struct {
	spaces  store.SpaceStore
	tasks   store.TaskStore
	quota   MeteredQuota
	emitter events.EventEmitter
	logger  *slog.Logger
}

var _ TaskService = (*taskService)(nil)

// NewTaskService creates a TaskService.
func NewTaskService(
	spaces store.SpaceStore,
	tasks store.TaskStore,
	quota MeteredQuota,
	emitter events.EventEmitter,
	logger *slog.Logger,
) (TaskService, error) {
	switch {
	case spaces == nil:
		return nil, nilDependency("spaces")
	case tasks == nil:
		return nil, nilDependency("tasks")
	case quota == nil:
		return nil, nilDependency("quota")
	case emitter == nil:
		return nil, nilDependency("emitter")
	case logger == nil:
		return nil, nilDependency("logger")
	}

	return &taskService{
		spaces:  spaces,
		tasks:   tasks,
		quota:   quota,
		emitter: emitter,
		logger:  logger.With(slog.String("component", "task_service")),
	}, nil
}

func (s *taskService) Create(
	ctx context.Context,
	ownerID, spaceID, clientID uuid.UUID,
	draft domain.TaskDraft,
) (*domain.Task, bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if _, err := ownedSpace(ctx, s.spaces, ownerID, spaceID); err != nil {
		return nil, false, err
	}

	if clientID != uuid.Nil {
		existing, err := s.replayed(ctx, ownerID, clientID)
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			log.Info("task create replayed",
				slog.String("task_id", existing.ID.String()),
				slog.String("client_id", clientID.String()))
			return existing, false, nil
		}
	}

	task, err := domain.NewTask(spaceID, ownerID, clientID, draft)
	if err != nil {
		return nil, false, domain.Invalid(err)
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		// a concurrent replay won the insert
		if errors.Is(err, store.ErrTaskExists) && clientID != uuid.Nil {
			existing, lookupErr := s.replayed(ctx, ownerID, clientID)
			if lookupErr == nil && existing != nil {
				return existing, false, nil
			}
		}
		return nil, false, NewServiceError("create_task", "failed to save task", err)
	}

	log.Info("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("space_id", spaceID.String()))
	return task, true, nil
}

// replayed returns the task ownerID created with clientID, or nil.
func (s *taskService) replayed(ctx context.Context, ownerID, clientID uuid.UUID) (*domain.Task, error) {
	task, err := s.tasks.GetByClientID(ctx, ownerID, clientID)
	switch {
	case err == nil:
		return task, nil
	case errors.Is(err, store.ErrNotFound):
		return nil, nil
	default:
		return nil, &ServiceError{Operation: "create_task", Message: "failed to look up client ID", Err: err}
	}
}

func (s *taskService) List(ctx context.Context, ownerID, spaceID uuid.UUID) ([]*domain.Task, error) {
	if _, err := ownedSpace(ctx, s.spaces, ownerID, spaceID); err != nil {
		return nil, err
	}

	tasks, err := s.tasks.ListBySpace(ctx, spaceID)
	if err != nil {
		return nil, NewServiceError("list_tasks", "failed to list tasks", err)
	}
	return tasks, nil
}

func (s *taskService) Get(ctx context.Context, ownerID, taskID uuid.UUID) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, NewServiceError("get_task", "failed to load task", err)
	}
	if task.OwnerID != ownerID {
		return nil, ErrNotOwned
	}
	return task, nil
}

func (s *taskService) Update(
	ctx context.Context,
	ownerID, taskID uuid.UUID,
	patch domain.TaskPatch,
) (*domain.Task, error) {
	task, err := s.Get(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}

	if err := task.Apply(patch); err != nil {
		return nil, domain.Invalid(err)
	}

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, NewServiceError("update_task", "failed to save task", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Debug("task updated",
		slog.String("task_id", task.ID.String()))
	return task, nil
}

func (s *taskService) Delete(ctx context.Context, ownerID, taskID uuid.UUID) error {
	if _, err := s.Get(ctx, ownerID, taskID); err != nil {
		return err
	}

	if err := s.tasks.Delete(ctx, taskID); err != nil {
		return NewServiceError("delete_task", "failed to delete task", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("task deleted",
		slog.String("task_id", taskID.String()))
	return nil
}

func (s *taskService) AppendUpdate(
	ctx context.Context,
	ownerID uuid.UUID,
	plan domain.Plan,
	taskID uuid.UUID,
	text string,
) (*domain.TaskUpdate, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if _, err := s.Get(ctx, ownerID, taskID); err != nil {
		return nil, err
	}

	update, err := domain.NewTaskUpdate(taskID, text)
	if err != nil {
		return nil, domain.Invalid(err)
	}

	if err := s.tasks.AppendUpdate(ctx, update); err != nil {
		return nil, NewServiceError("append_update", "failed to save update", err)
	}

	// The note is saved either way; a missed refresh only leaves the
	// summary stale until the next note or an explicit request.
	if _, err := s.emitSummary(ctx, job.SummaryPayload{TaskID: taskID, OwnerID: ownerID, Plan: plan}); err != nil {
		log.Warn("failed to schedule summary refresh",
			slog.String("task_id", taskID.String()),
			redact.Attr("error", err))
	}

	return update, nil
}

func (s *taskService) ListUpdates(ctx context.Context, ownerID, taskID uuid.UUID) ([]*domain.TaskUpdate, error) {
	if _, err := s.Get(ctx, ownerID, taskID); err != nil {
		return nil, err
	}

	updates, err := s.tasks.ListUpdates(ctx, taskID)
	if err != nil {
		return nil, NewServiceError("list_updates", "failed to list updates", err)
	}
	return updates, nil
}

func (s *taskService) RequestSummary(
	ctx context.Context,
	ownerID uuid.UUID,
	plan domain.Plan,
	taskID uuid.UUID,
) (uuid.UUID, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if _, err := s.Get(ctx, ownerID, taskID); err != nil {
		return uuid.Nil, err
	}

	if err := s.quota.Consume(ctx, ownerID, plan, domain.FeatureAISummary); err != nil {
		return uuid.Nil, err
	}

	jobID, err := s.emitSummary(ctx, job.SummaryPayload{
		TaskID:  taskID,
		OwnerID: ownerID,
		Plan:    plan,
		Prepaid: true,
	})
	switch {
	case err == nil:
	case errors.Is(err, job.ErrQueueFull):
		// persisted as pending; it runs after the next recovery
		log.Warn("summary job queued for later",
			slog.String("job_id", jobID.String()),
			slog.String("task_id", taskID.String()))
	default:
		if relErr := s.quota.Release(ctx, ownerID, domain.FeatureAISummary); relErr != nil {
			log.Error("failed to release summary quota", redact.Attr("error", relErr))
		}
		return uuid.Nil, NewServiceError("request_summary", "failed to schedule summary", err)
	}

	log.Info("summary requested",
		slog.String("task_id", taskID.String()),
		slog.String("job_id", jobID.String()))
	return jobID, nil
}

// emitSummary publishes a summary job request and returns the job's ID.
func (s *taskService) emitSummary(ctx context.Context, payload job.SummaryPayload) (uuid.UUID, error) {
	event, err := events.NewJobRequestEvent(job.TypeSummary, payload)
	if err != nil {
		return uuid.Nil, err
	}
	return event.ID, s.emitter.EmitEvent(ctx, event)
}
