package retry

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"syscall"
)

// serverStatusPattern matches a 5xx status code embedded in an error message.
var serverStatusPattern = regexp.MustCompile(`\b5\d\d\b`)

var networkSignals = []string{
	"network",
	"fetch failed",
	"connection reset",
	"connection refused",
	"econnreset",
	"econnrefused",
	"broken pipe",
	"no such host",
}

var invalidInputSignals = []string{
	"api key",
	"invalid",
	"401",
	"403",
}

// Classify normalizes an arbitrary failure into a classified Error. Errors that
// are already classified are returned unchanged. Typed signals (deadline
// errors, net.Error, StatusError) win over message inspection; the message
// rules are checked in a fixed order so that, for example, a timeout message
// mentioning "invalid" is still a timeout.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	if rerr, ok := AsError(err); ok {
		return rerr
	}

	kind := classifyKind(err)
	return &Error{
		Kind:      kind,
		Retryable: kind.IsRetryable(),
		Message:   err.Error(),
		Attempts:  1,
		Err:       err,
	}
}

func classifyKind(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if kind, ok := kindForStatus(statusErr.StatusCode); ok {
			return kind
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return KindTimeout
		}
		return KindNetwork
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return KindNetwork
	}

	return kindForMessage(err.Error())
}

// kindForStatus maps an HTTP status code to a kind. The boolean is false for
// codes that carry no classification signal.
func kindForStatus(code int) (Kind, bool) {
	switch {
	case code == http.StatusRequestTimeout:
		return KindTimeout, true
	case code == http.StatusTooManyRequests:
		return KindRateLimit, true
	case code >= 500 && code <= 599:
		return KindServer, true
	case code == http.StatusBadRequest,
		code == http.StatusUnauthorized,
		code == http.StatusForbidden,
		code == http.StatusUnprocessableEntity:
		return KindInvalidInput, true
	default:
		return "", false
	}
}

func kindForMessage(message string) Kind {
	msg := strings.ToLower(message)

	switch {
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"):
		return KindTimeout
	case strings.Contains(msg, "429"), strings.Contains(msg, "too many requests"):
		return KindRateLimit
	case serverStatusPattern.MatchString(msg), strings.Contains(msg, "unavailable"):
		return KindServer
	case containsAny(msg, networkSignals):
		return KindNetwork
	case containsAny(msg, invalidInputSignals):
		return KindInvalidInput
	default:
		return KindUnknown
	}
}

func containsAny(s string, substrings []string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
