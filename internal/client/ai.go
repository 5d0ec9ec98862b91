package client

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/smera-app/smera/internal/api/shared"
	"github.com/smera-app/smera/internal/domain"
	"github.com/smera-app/smera/internal/retry"
)

// ParseTask turns free text into a task draft. The call is retried on
// transient failures; the returned error is a *retry.Error or wraps
// retry.ErrCanceled.
func (c *Client) ParseTask(ctx context.Context, text, timezone string) (*domain.TaskDraft, error) {
	return retry.Execute(ctx, c.retry, "parse task", func(ctx context.Context) (*domain.TaskDraft, error) {
		var resp shared.ParseTaskResponse
		req := shared.ParseTaskRequest{Text: text, Timezone: timezone}
		if _, err := c.do(ctx, http.MethodPost, "/api/ai/parse", req, &resp); err != nil {
			return nil, err
		}
		return &resp.Draft, nil
	})
}

// Summarize asks the backend to regenerate a task's AI summary. The summary
// is produced asynchronously; the returned job can be followed by reading
// the task again.
//
// The request is sent once. The server charges quota and queues the job
// before it answers, so a lost response must not lead to a second POST.
func (c *Client) Summarize(ctx context.Context, taskID uuid.UUID) (*shared.SummaryResponse, error) {
	var resp shared.SummaryResponse
	if _, err := c.do(ctx, http.MethodPost, taskPath(taskID)+"/summary", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
