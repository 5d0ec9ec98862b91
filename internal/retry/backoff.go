package retry

import (
	"log/slog"
	"time"

	goretry "github.com/sethvargo/go-retry"
)

// newBackoff builds the delay schedule for one Execute call. A fresh schedule
// is created per call because go-retry backoffs are stateful.
func newBackoff(cfg Config, logger *slog.Logger) goretry.Backoff {
	cfg = cfg.normalize()

	var b goretry.Backoff = exponential(cfg)
	b = goretry.WithJitterPercent(jitterPercent, b)
	b = logDelays(logger, b)
	return goretry.WithMaxRetries(uint64(cfg.MaxRetries), b)
}

// exponential yields BaseDelay(cfg, 1), BaseDelay(cfg, 2), ... without ever
// stopping; the retry ceiling is applied by the caller.
func exponential(cfg Config) goretry.Backoff {
	n := 0
	return goretry.BackoffFunc(func() (time.Duration, bool) {
		n++
		return BaseDelay(cfg, n), false
	})
}

func logDelays(logger *slog.Logger, next goretry.Backoff) goretry.Backoff {
	retryNum := 0
	return goretry.BackoffFunc(func() (time.Duration, bool) {
		delay, stop := next.Next()
		if stop {
			return 0, true
		}
		retryNum++
		logger.Info("scheduling retry",
			slog.Int("retry", retryNum),
			slog.Duration("delay", delay))
		return delay, false
	})
}
