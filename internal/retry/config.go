package retry

import (
	"math"
	"time"
)

// Config controls a single Execute call. It is treated as immutable.
type Config struct {
	// MaxRetries is the number of retries after the first attempt.
	// The operation runs at most MaxRetries+1 times.
	MaxRetries int `mapstructure:"max_retries" validate:"gte=0,lte=10"`

	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration `mapstructure:"initial_delay" validate:"gte=0"`

	// Multiplier grows the delay geometrically between retries.
	Multiplier float64 `mapstructure:"multiplier" validate:"gte=1"`

	// MaxDelay caps the un-jittered delay.
	MaxDelay time.Duration `mapstructure:"max_delay" validate:"gte=0"`

	// Timeout bounds each individual attempt.
	Timeout time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

// Default values used when a Config field is left at its zero value.
const (
	DefaultMaxRetries   = 3
	DefaultInitialDelay = time.Second
	DefaultMultiplier   = 2.0
	DefaultMaxDelay     = 10 * time.Second
	DefaultTimeout      = 30 * time.Second
)

// jitterPercent is the symmetric jitter applied to every delay.
const jitterPercent = 20

// DefaultConfig returns the configuration used for AI backend calls.
func DefaultConfig() Config {
	return Config{
		MaxRetries:   DefaultMaxRetries,
		InitialDelay: DefaultInitialDelay,
		Multiplier:   DefaultMultiplier,
		MaxDelay:     DefaultMaxDelay,
		Timeout:      DefaultTimeout,
	}
}

// normalize fills zero or invalid fields with defaults. MaxRetries of zero is
// meaningful (a single attempt) and is kept.
func (c Config) normalize() Config {
	if c.MaxRetries < 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = DefaultInitialDelay
	}
	if c.Multiplier < 1 {
		c.Multiplier = DefaultMultiplier
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = DefaultMaxDelay
	}
	if c.MaxDelay < c.InitialDelay {
		c.MaxDelay = c.InitialDelay
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// MaxAttempts returns the total number of attempts allowed by the config.
func (c Config) MaxAttempts() int {
	return c.normalize().MaxRetries + 1
}

// BaseDelay returns the un-jittered delay before retry n (n >= 1):
// min(MaxDelay, InitialDelay * Multiplier^(n-1)).
func BaseDelay(cfg Config, n int) time.Duration {
	cfg = cfg.normalize()
	if n < 1 {
		n = 1
	}

	delay := float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(n-1))
	if delay >= float64(cfg.MaxDelay) || math.IsInf(delay, 1) {
		return cfg.MaxDelay
	}
	return time.Duration(delay)
}

// DelayBounds returns the inclusive range the jittered delay before retry n
// falls into.
func DelayBounds(cfg Config, n int) (time.Duration, time.Duration) {
	base := float64(BaseDelay(cfg, n))
	low := math.Floor(base * (100 - jitterPercent) / 100)
	high := math.Ceil(base * (100 + jitterPercent) / 100)
	return time.Duration(low), time.Duration(high)
}
