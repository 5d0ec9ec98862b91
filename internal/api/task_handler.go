package api

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/smera-app/smera/internal/api/shared"
	"github.com/smera-app/smera/internal/domain"
	"github.com/smera-app/smera/internal/platform/logger"
	"github.com/smera-app/smera/internal/service"
)

// TaskHandler handles task-related HTTP requests
type TaskHandler struct {
	tasks  service.TaskService
	logger *slog.Logger
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(tasks service.TaskService, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for TaskHandler")
	}
	return &TaskHandler{
		tasks:  tasks,
		logger: logger.With(slog.String("component", "task_handler")),
	}
}

// CreateTask handles POST /api/spaces/{spaceID}/tasks. A replayed create
// (same client_id) answers 200 with the task created the first time.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	c, spaceID, ok := callerAndPathUUID(w, r, "spaceID")
	if !ok {
		return
	}

	var req shared.CreateTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	clientID := uuid.Nil
	if req.ClientID != nil {
		clientID = *req.ClientID
	}

	task, created, err := h.tasks.Create(r.Context(), c.userID, spaceID, clientID, req.Draft())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create task")
		return
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
		logger.FromContextOrDefault(r.Context(), h.logger).Info("replayed task create",
			slog.String("task_id", task.ID.String()))
	}
	shared.RespondWithJSON(w, r, status, task)
}

// ListTasks handles GET /api/spaces/{spaceID}/tasks
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	c, spaceID, ok := callerAndPathUUID(w, r, "spaceID")
	if !ok {
		return
	}

	tasks, err := h.tasks.List(r.Context(), c.userID, spaceID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list tasks")
		return
	}
	if tasks == nil {
		tasks = []*domain.Task{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, tasks)
}

// GetTask handles GET /api/tasks/{id}
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	c, taskID, ok := callerAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	task, err := h.tasks.Get(r.Context(), c.userID, taskID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, task)
}

// UpdateTask handles PATCH /api/tasks/{id}
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	c, taskID, ok := callerAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	var req shared.UpdateTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	task, err := h.tasks.Update(r.Context(), c.userID, taskID, req.Patch())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, task)
}

// DeleteTask handles DELETE /api/tasks/{id}
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	c, taskID, ok := callerAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.tasks.Delete(r.Context(), c.userID, taskID); err != nil {
		HandleAPIError(w, r, err, "Failed to delete task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AppendUpdate handles POST /api/tasks/{id}/updates
func (h *TaskHandler) AppendUpdate(w http.ResponseWriter, r *http.Request) {
	c, taskID, ok := callerAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	var req shared.AppendUpdateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	update, err := h.tasks.AppendUpdate(r.Context(), c.userID, c.plan, taskID, req.Text)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to add update")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, update)
}

// ListUpdates handles GET /api/tasks/{id}/updates
func (h *TaskHandler) ListUpdates(w http.ResponseWriter, r *http.Request) {
	c, taskID, ok := callerAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	updates, err := h.tasks.ListUpdates(r.Context(), c.userID, taskID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list updates")
		return
	}
	if updates == nil {
		updates = []*domain.TaskUpdate{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, updates)
}

// RequestSummary handles POST /api/tasks/{id}/summary. The summary is
// generated in the background; the response carries the job ID.
func (h *TaskHandler) RequestSummary(w http.ResponseWriter, r *http.Request) {
	c, taskID, ok := callerAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	jobID, err := h.tasks.RequestSummary(r.Context(), c.userID, c.plan, taskID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to request summary")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusAccepted, shared.SummaryResponse{
		JobID:  jobID,
		Status: "pending",
	})
}
