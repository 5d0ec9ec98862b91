package retry

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseDelay(t *testing.T) {
	t.Parallel()

	cfg := Config{InitialDelay: 100 * time.Millisecond, Multiplier: 2, MaxDelay: time.Second}

	tests := []struct {
		n    int
		want time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, time.Second},
		{60, time.Second},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, BaseDelay(cfg, tc.n), "n=%d", tc.n)
	}
}

func TestBackoff_DelaysWithinJitterBounds(t *testing.T) {
	t.Parallel()

	cfg := Config{
		MaxRetries:   6,
		InitialDelay: 200 * time.Millisecond,
		Multiplier:   3,
		MaxDelay:     5 * time.Second,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	// sample many schedules; jitter is random
	for round := 0; round < 50; round++ {
		b := newBackoff(cfg, logger)
		for n := 1; n <= cfg.MaxRetries; n++ {
			delay, stop := b.Next()
			require.False(t, stop, "retry %d should be allowed", n)

			low, high := DelayBounds(cfg, n)
			assert.GreaterOrEqual(t, delay, low, "retry %d", n)
			assert.LessOrEqual(t, delay, high, "retry %d", n)
		}

		_, stop := b.Next()
		assert.True(t, stop, "schedule must stop after MaxRetries")
	}
}

func TestConfig_Normalize(t *testing.T) {
	t.Parallel()

	got := Config{}.normalize()
	assert.Equal(t, 0, got.MaxRetries)
	assert.Equal(t, DefaultInitialDelay, got.InitialDelay)
	assert.Equal(t, DefaultMultiplier, got.Multiplier)
	assert.Equal(t, DefaultMaxDelay, got.MaxDelay)
	assert.Equal(t, DefaultTimeout, got.Timeout)

	got = Config{MaxRetries: -1, InitialDelay: time.Minute, MaxDelay: time.Second}.normalize()
	assert.Equal(t, DefaultMaxRetries, got.MaxRetries)
	assert.Equal(t, time.Minute, got.MaxDelay, "cap is never below the initial delay")

	assert.Equal(t, 4, DefaultConfig().MaxAttempts())
}
