package retry

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies the class of a failure observed at a remote boundary.
type Kind string

// Failure kinds produced by Classify.
const (
	KindNetwork      Kind = "network"
	KindTimeout      Kind = "timeout"
	KindRateLimit    Kind = "rate_limit"
	KindInvalidInput Kind = "invalid_input"
	KindServer       Kind = "server"
	KindUnknown      Kind = "unknown"
)

// retryableKinds lists the kinds that are worth another attempt.
var retryableKinds = map[Kind]bool{
	KindNetwork:   true,
	KindTimeout:   true,
	KindRateLimit: true,
	KindServer:    true,
}

// IsRetryable reports whether failures of this kind are transient.
func (k Kind) IsRetryable() bool {
	return retryableKinds[k]
}

// userMessages maps each kind to the text shown to end users.
var userMessages = map[Kind]string{
	KindNetwork:      "There was a connection problem. Check your network and try again.",
	KindRateLimit:    "The service is busy right now. Please try again shortly.",
	KindTimeout:      "The request took too long. Please try again.",
	KindInvalidInput: "Please check your input or credentials.",
	KindServer:       "The service is temporarily unavailable. Please try again later.",
	KindUnknown:      "Something went wrong. Please try again.",
}

// UserMessage returns a friendly description for the given kind.
func UserMessage(kind Kind) string {
	if msg, ok := userMessages[kind]; ok {
		return msg
	}
	return userMessages[KindUnknown]
}

// ErrCanceled is wrapped into the error returned when the caller's context
// ends while an operation is still being retried.
var ErrCanceled = errors.New("retry canceled")

// Error is the classified failure returned by the executor.
type Error struct {
	// Kind is the failure class.
	Kind Kind

	// Retryable reports whether the kind is transient. It stays true for
	// exhausted errors so callers can tell "gave up" from "never tried again".
	Retryable bool

	// Exhausted is set when every allowed attempt failed with a transient error.
	Exhausted bool

	// Message is a short human-readable description of the failure.
	Message string

	// Attempts is the number of attempts made before the error was returned.
	Attempts int

	// Err is the underlying failure.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Exhausted {
		return fmt.Sprintf("%s: retries exhausted after %d attempts: %s", e.Kind, e.Attempts, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying failure.
func (e *Error) Unwrap() error {
	return e.Err
}

// UserMessage returns the end-user text for this error's kind.
func (e *Error) UserMessage() string {
	return UserMessage(e.Kind)
}

// AsError extracts a classified error from err's chain.
func AsError(err error) (*Error, bool) {
	var rerr *Error
	if errors.As(err, &rerr) {
		return rerr, true
	}
	return nil, false
}

// KindOf classifies err and returns only its kind. A nil error yields "".
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	return Classify(err).Kind
}

// StatusError carries the numeric status of a failed HTTP or API call. It is
// created once at the boundary where the response is first observed so that
// classification can rely on the status instead of message text.
type StatusError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	text := http.StatusText(e.StatusCode)
	if text == "" {
		text = "status"
	}
	if e.Message == "" {
		return fmt.Sprintf("%d %s", e.StatusCode, text)
	}
	return fmt.Sprintf("%d %s: %s", e.StatusCode, text, e.Message)
}

// NewStatusError creates a StatusError for the given code and message.
func NewStatusError(code int, message string) *StatusError {
	return &StatusError{StatusCode: code, Message: message}
}
