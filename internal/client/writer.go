package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/smera-app/smera/internal/offline"
)

// Apply performs the write described by a queued operation. It implements
// offline.Writer and is also the direct write path of the mutation handler,
// so an operation behaves the same whether it is sent now or replayed later.
//
// Replays are idempotent where the API allows it: a create carries its client
// ID and a conflict answer counts as success, and deleting a task that no
// longer exists counts as success.
func (c *Client) Apply(ctx context.Context, op offline.QueuedOperation) error {
	switch o := op.Operation.(type) {
	case offline.CreateTask:
		_, err := c.CreateTask(ctx, o.SpaceID, o.ClientID, o.Draft)
		if StatusCode(err) == http.StatusConflict {
			c.logger.Info("create already applied",
				slog.String("client_id", o.ClientID.String()))
			return nil
		}
		return err

	case offline.UpdateTask:
		_, err := c.UpdateTask(ctx, o.TaskID, o.Patch)
		return err

	case offline.DeleteTask:
		err := c.DeleteTask(ctx, o.TaskID)
		if StatusCode(err) == http.StatusNotFound {
			c.logger.Info("task already deleted", slog.String("task_id", o.TaskID.String()))
			return nil
		}
		return err

	case offline.AppendTaskUpdate:
		_, err := c.AppendUpdate(ctx, o.TaskID, o.Text)
		return err

	default:
		return fmt.Errorf("%w: %q", offline.ErrUnknownOperation, op.Type())
	}
}
