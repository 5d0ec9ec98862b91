package retry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAwaitAttempt_ResultReadyAtDeadline(t *testing.T) {
	t.Parallel()

	expired, cancel := context.WithCancel(context.Background())
	cancel()

	// both select cases are ready; the finished result must win every time
	for i := 0; i < 200; i++ {
		done := make(chan attemptResult[string], 1)
		done <- attemptResult[string]{val: "ok"}

		got, err := awaitAttempt(context.Background(), expired, time.Second, done)
		require.NoError(t, err, "iteration %d", i)
		assert.Equal(t, "ok", got)
	}
}

func TestAwaitAttempt_Timeout(t *testing.T) {
	t.Parallel()

	expired, cancel := context.WithCancel(context.Background())
	cancel()

	t.Run("nothing finished", func(t *testing.T) {
		t.Parallel()

		done := make(chan attemptResult[int], 1)
		_, err := awaitAttempt(context.Background(), expired, 50*time.Millisecond, done)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Contains(t, err.Error(), "timed out after 50ms")
	})

	t.Run("parent canceled", func(t *testing.T) {
		t.Parallel()

		parent, cancelParent := context.WithCancel(context.Background())
		cancelParent()

		done := make(chan attemptResult[int], 1)
		_, err := awaitAttempt(parent, parent, time.Second, done)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
