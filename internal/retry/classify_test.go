package retry_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"testing"

	"github.com/smera-app/smera/internal/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// timeoutNetError is a net.Error that reports a timeout.
type timeoutNetError struct{}

func (timeoutNetError) Error() string   { return "i/o deadline reached" }
func (timeoutNetError) Timeout() bool   { return true }
func (timeoutNetError) Temporary() bool { return true }

func TestClassify_Messages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		kind      retry.Kind
		retryable bool
	}{
		{"timeout", errors.New("timeout"), retry.KindTimeout, true},
		{"timeout mixed case", errors.New("Request Timeout exceeded"), retry.KindTimeout, true},
		{"timed out", errors.New("operation timed out"), retry.KindTimeout, true},
		{"status 429", errors.New("upstream returned 429"), retry.KindRateLimit, true},
		{"too many requests", errors.New("Too Many Requests"), retry.KindRateLimit, true},
		{"status 500", errors.New("got 500 from backend"), retry.KindServer, true},
		{"status 503", errors.New("HTTP 503"), retry.KindServer, true},
		{"unavailable", errors.New("model is unavailable"), retry.KindServer, true},
		{"network", errors.New("network is down"), retry.KindNetwork, true},
		{"fetch failed", errors.New("fetch failed"), retry.KindNetwork, true},
		{"connection reset", errors.New("read: connection reset by peer"), retry.KindNetwork, true},
		{"econnrefused", errors.New("ECONNREFUSED 127.0.0.1:443"), retry.KindNetwork, true},
		{"api key", errors.New("API key invalid"), retry.KindInvalidInput, false},
		{"invalid", errors.New("invalid argument"), retry.KindInvalidInput, false},
		{"status 401", errors.New("401 returned"), retry.KindInvalidInput, false},
		{"status 403", errors.New("403"), retry.KindInvalidInput, false},
		{"unknown", errors.New("something odd"), retry.KindUnknown, false},
		{"timeout wins over invalid", errors.New("invalid request: timeout"), retry.KindTimeout, true},
		{"5xx digits inside a longer number", errors.New("id 15003 rejected"), retry.KindUnknown, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := retry.Classify(tc.err)
			require.NotNil(t, got)
			assert.Equal(t, tc.kind, got.Kind, "kind for %q", tc.err)
			assert.Equal(t, tc.retryable, got.Retryable, "retryable for %q", tc.err)
			assert.Equal(t, 1, got.Attempts)
			assert.Equal(t, tc.err.Error(), got.Message)
			assert.ErrorIs(t, got, tc.err)
		})
	}
}

func TestClassify_TypedSignals(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		kind retry.Kind
	}{
		{"deadline exceeded", fmt.Errorf("call: %w", context.DeadlineExceeded), retry.KindTimeout},
		{"net timeout", &net.OpError{Op: "dial", Err: timeoutNetError{}}, retry.KindTimeout},
		{"net error", &net.OpError{Op: "dial", Err: errors.New("refused")}, retry.KindNetwork},
		{"econnreset", fmt.Errorf("read: %w", syscall.ECONNRESET), retry.KindNetwork},
		{"unexpected eof", fmt.Errorf("body: %w", io.ErrUnexpectedEOF), retry.KindNetwork},
		{"status 408", retry.NewStatusError(http.StatusRequestTimeout, ""), retry.KindTimeout},
		{"status 429", retry.NewStatusError(http.StatusTooManyRequests, "slow down"), retry.KindRateLimit},
		{"status 502", retry.NewStatusError(http.StatusBadGateway, ""), retry.KindServer},
		{"status 504", retry.NewStatusError(http.StatusGatewayTimeout, ""), retry.KindServer},
		{"status 400", retry.NewStatusError(http.StatusBadRequest, "bad"), retry.KindInvalidInput},
		{"status 422", retry.NewStatusError(http.StatusUnprocessableEntity, ""), retry.KindInvalidInput},
		{"status 404 falls back to message", retry.NewStatusError(http.StatusNotFound, "no such task"), retry.KindUnknown},
		{"wrapped status", fmt.Errorf("create task: %w", retry.NewStatusError(http.StatusServiceUnavailable, "")), retry.KindServer},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.kind, retry.Classify(tc.err).Kind)
		})
	}
}

func TestClassify_AlreadyClassified(t *testing.T) {
	t.Parallel()

	original := &retry.Error{Kind: retry.KindInvalidInput, Message: "blocked", Attempts: 1}
	wrapped := fmt.Errorf("generate: %w", original)

	assert.Same(t, original, retry.Classify(wrapped))
	assert.Nil(t, retry.Classify(nil))
}

func TestUserMessage(t *testing.T) {
	t.Parallel()

	kinds := []retry.Kind{
		retry.KindNetwork,
		retry.KindTimeout,
		retry.KindRateLimit,
		retry.KindInvalidInput,
		retry.KindServer,
		retry.KindUnknown,
	}
	seen := make(map[string]bool)
	for _, k := range kinds {
		msg := retry.UserMessage(k)
		assert.NotEmpty(t, msg, "kind %s", k)
		assert.False(t, seen[msg], "message for %s should be distinct", k)
		seen[msg] = true
	}

	assert.Contains(t, retry.UserMessage(retry.KindNetwork), "connection problem")
	assert.Equal(t, retry.UserMessage(retry.KindUnknown), retry.UserMessage("bogus"))
}

func TestError_Format(t *testing.T) {
	t.Parallel()

	err := &retry.Error{Kind: retry.KindServer, Message: "503", Attempts: 3, Exhausted: true, Retryable: true}
	assert.Equal(t, "server: retries exhausted after 3 attempts: 503", err.Error())

	err = &retry.Error{Kind: retry.KindInvalidInput, Message: "API key invalid", Attempts: 1}
	assert.Equal(t, "invalid_input: API key invalid", err.Error())

	status := retry.NewStatusError(http.StatusTooManyRequests, "slow down")
	assert.Equal(t, "429 Too Many Requests: slow down", status.Error())
}
