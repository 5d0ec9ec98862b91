package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/smera-app/smera/internal/api/shared"
	"github.com/smera-app/smera/internal/domain"
)

// CreateSpace creates a space.
func (c *Client) CreateSpace(ctx context.Context, name string) (*domain.Space, error) {
	var space domain.Space
	if _, err := c.do(ctx, http.MethodPost, "/api/spaces", shared.CreateSpaceRequest{Name: name}, &space); err != nil {
		return nil, fmt.Errorf("create space: %w", err)
	}
	return &space, nil
}

// ListSpaces returns the caller's spaces.
func (c *Client) ListSpaces(ctx context.Context) ([]domain.Space, error) {
	var spaces []domain.Space
	if _, err := c.do(ctx, http.MethodGet, "/api/spaces", nil, &spaces); err != nil {
		return nil, fmt.Errorf("list spaces: %w", err)
	}
	return spaces, nil
}

// CreateTask creates a task in spaceID. A non-nil clientID makes the create
// idempotent: repeating it returns the task created the first time.
func (c *Client) CreateTask(ctx context.Context, spaceID, clientID uuid.UUID, draft domain.TaskDraft) (*domain.Task, error) {
	var task domain.Task
	path := fmt.Sprintf("/api/spaces/%s/tasks", spaceID)
	if _, err := c.do(ctx, http.MethodPost, path, shared.NewCreateTaskRequest(clientID, draft), &task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return &task, nil
}

// ListTasks returns the tasks of a space.
func (c *Client) ListTasks(ctx context.Context, spaceID uuid.UUID) ([]domain.Task, error) {
	var tasks []domain.Task
	if _, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/spaces/%s/tasks", spaceID), nil, &tasks); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// GetTask returns one task.
func (c *Client) GetTask(ctx context.Context, taskID uuid.UUID) (*domain.Task, error) {
	var task domain.Task
	if _, err := c.do(ctx, http.MethodGet, taskPath(taskID), nil, &task); err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return &task, nil
}

// UpdateTask applies patch to a task and returns the updated task.
func (c *Client) UpdateTask(ctx context.Context, taskID uuid.UUID, patch domain.TaskPatch) (*domain.Task, error) {
	var task domain.Task
	if _, err := c.do(ctx, http.MethodPatch, taskPath(taskID), shared.NewUpdateTaskRequest(patch), &task); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return &task, nil
}

// DeleteTask deletes a task.
func (c *Client) DeleteTask(ctx context.Context, taskID uuid.UUID) error {
	if _, err := c.do(ctx, http.MethodDelete, taskPath(taskID), nil, nil); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// AppendUpdate adds a progress note to a task.
func (c *Client) AppendUpdate(ctx context.Context, taskID uuid.UUID, text string) (*domain.TaskUpdate, error) {
	var update domain.TaskUpdate
	path := taskPath(taskID) + "/updates"
	if _, err := c.do(ctx, http.MethodPost, path, shared.AppendUpdateRequest{Text: text}, &update); err != nil {
		return nil, fmt.Errorf("append update: %w", err)
	}
	return &update, nil
}

// ListUpdates returns the progress notes of a task, oldest first.
func (c *Client) ListUpdates(ctx context.Context, taskID uuid.UUID) ([]domain.TaskUpdate, error) {
	var updates []domain.TaskUpdate
	if _, err := c.do(ctx, http.MethodGet, taskPath(taskID)+"/updates", nil, &updates); err != nil {
		return nil, fmt.Errorf("list updates: %w", err)
	}
	return updates, nil
}

// Usage returns the caller's quota usage for the current period.
func (c *Client) Usage(ctx context.Context) (*shared.UsageResponse, error) {
	var usage shared.UsageResponse
	if _, err := c.do(ctx, http.MethodGet, "/api/usage", nil, &usage); err != nil {
		return nil, fmt.Errorf("get usage: %w", err)
	}
	return &usage, nil
}

func taskPath(taskID uuid.UUID) string {
	return "/api/tasks/" + taskID.String()
}
