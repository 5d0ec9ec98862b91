package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goretry "github.com/sethvargo/go-retry"
	"github.com/sourcegraph/conc/panics"
)

// Executor runs operations against remote services with retries.
type Executor struct {
	config Config
	logger *slog.Logger
}

// NewExecutor creates an executor with the given configuration. Zero fields
// in cfg fall back to the package defaults.
func NewExecutor(cfg Config, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		config: cfg.normalize(),
		logger: logger.With(slog.String("component", "retry")),
	}
}

// Config returns the effective configuration.
func (e *Executor) Config() Config {
	return e.config
}

// Do is Execute for operations without a result.
func (e *Executor) Do(ctx context.Context, label string, fn func(context.Context) error) error {
	_, err := Execute(ctx, e, label, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Execute runs op until it succeeds, fails with a non-retryable error, or the
// retry budget is spent. Every returned failure is a *Error except when ctx
// ends first, in which case the error wraps both ErrCanceled and ctx.Err().
//
// Each attempt receives a context bounded by the per-attempt timeout. An
// attempt that outlives the timeout is abandoned and counted as a timeout.
func Execute[T any](ctx context.Context, e *Executor, label string, op func(context.Context) (T, error)) (T, error) {
	cfg := e.config
	log := e.logger.With(slog.String("operation", label))

	var (
		result   T
		attempts int
		last     *Error
	)

	err := goretry.Do(ctx, newBackoff(cfg, log), func(ctx context.Context) error {
		attempts++
		log.Debug("starting attempt",
			slog.Int("attempt", attempts),
			slog.Int("max_attempts", cfg.MaxRetries+1))

		val, err := runAttempt(ctx, cfg, op)
		if err == nil {
			result = val
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		last = Classify(err)
		log.Warn("attempt failed",
			slog.Int("attempt", attempts),
			slog.String("kind", string(last.Kind)),
			slog.Bool("retryable", last.Retryable),
			slog.String("error", last.Message))

		if !last.Retryable {
			return last
		}
		return goretry.RetryableError(last)
	})

	var zero T
	switch {
	case err == nil:
		if attempts > 1 {
			log.Info("operation succeeded after retry", slog.Int("attempts", attempts))
		}
		return result, nil

	case ctx.Err() != nil:
		log.Info("operation canceled", slog.Int("attempts", attempts))
		return zero, fmt.Errorf("%w: %s: %w", ErrCanceled, label, ctx.Err())

	case last == nil:
		// Unreachable unless go-retry returns an error it did not get from us.
		return zero, Classify(err)

	case !last.Retryable:
		return zero, &Error{
			Kind:      last.Kind,
			Retryable: false,
			Message:   last.Message,
			Attempts:  attempts,
			Err:       underlying(last),
		}

	default:
		log.Error("retries exhausted",
			slog.Int("attempts", attempts),
			slog.String("kind", string(last.Kind)))
		return zero, &Error{
			Kind:      last.Kind,
			Retryable: true,
			Exhausted: true,
			Message:   last.Message,
			Attempts:  attempts,
			Err:       underlying(last),
		}
	}
}

// underlying returns the raw failure behind a classified error.
func underlying(e *Error) error {
	if e.Err != nil {
		return e.Err
	}
	return e
}

// attemptResult is what one run of an operation produced.
type attemptResult[T any] struct {
	val T
	err error
}

func runAttempt[T any](ctx context.Context, cfg Config, op func(context.Context) (T, error)) (T, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	done := make(chan attemptResult[T], 1)

	go func() {
		var out attemptResult[T]
		var pc panics.Catcher
		pc.Try(func() {
			out.val, out.err = op(attemptCtx)
		})
		if r := pc.Recovered(); r != nil {
			out.err = &Error{
				Kind:     KindUnknown,
				Message:  fmt.Sprintf("operation panicked: %v", r.Value),
				Attempts: 1,
				Err:      r.AsError(),
			}
		}
		done <- out
	}()

	return awaitAttempt(ctx, attemptCtx, cfg.Timeout, done)
}

// awaitAttempt waits for the attempt result or the end of attemptCtx,
// whichever comes first.
func awaitAttempt[T any](ctx, attemptCtx context.Context, timeout time.Duration, done <-chan attemptResult[T]) (T, error) {
	select {
	case out := <-done:
		return out.val, out.err
	case <-attemptCtx.Done():
		// an attempt that finished together with its deadline still counts
		select {
		case out := <-done:
			if out.err == nil {
				return out.val, nil
			}
		default:
		}
		var zero T
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, fmt.Errorf("attempt timed out after %s: %w", timeout, context.DeadlineExceeded)
	}
}
