package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/smera-app/smera/internal/domain"
)

// UsageStore keeps per-user usage counters for metered features. Counters are
// keyed by the first instant of their period.
type UsageStore interface {
	// Increment adds one to the counter if it is below limit and returns the
	// new count. ok is false, and nothing changes, when the counter already
	// reached limit. A negative limit means unlimited.
	Increment(ctx context.Context, userID uuid.UUID, feature domain.Feature, period time.Time, limit int) (count int, ok bool, err error)

	// Decrement removes one from the counter, never going below zero.
	Decrement(ctx context.Context, userID uuid.UUID, feature domain.Feature, period time.Time) error

	// Get returns every counter of userID for period.
	Get(ctx context.Context, userID uuid.UUID, period time.Time) (map[domain.Feature]int, error)
}
