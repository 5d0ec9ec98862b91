// Package retry wraps calls to remote services (the Smera backend, the Gemini
// API) with per-attempt timeouts, failure classification and exponential
// backoff with jitter. Failures are normalized into a small closed set of
// kinds so callers can decide what to show the user without inspecting raw
// error strings.
package retry
