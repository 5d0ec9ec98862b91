package quota

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/smera-app/smera/internal/domain"
	"github.com/smera-app/smera/internal/store"
)

// Report is the usage of one user in the current period.
type Report struct {
	Plan        domain.Plan
	PeriodStart time.Time
	Items       []Item
}

// Item is the usage of one feature. Limit is Unlimited when there is no cap.
type Item struct {
	Feature domain.Feature
	Used    int
	Limit   int
}

// Enforcer checks and records usage against plan limits.
type Enforcer struct {
	usage  store.UsageStore
	limits Limits
	now    func() time.Time
	logger *slog.Logger
}

// NewEnforcer creates an Enforcer backed by usage.
func NewEnforcer(usage store.UsageStore, limits Limits, logger *slog.Logger) *Enforcer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enforcer{
		usage:  usage,
		limits: limits,
		now:    time.Now,
		logger: logger.With("component", "quota_enforcer"),
	}
}

// Period returns the start of the month containing t, in UTC.
func Period(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Consume records one use of a monthly feature. It returns an ExceededError,
// and records nothing, when the plan limit is already reached.
func (e *Enforcer) Consume(ctx context.Context, userID uuid.UUID, plan domain.Plan, feature domain.Feature) error {
	if !feature.Monthly() {
		return fmt.Errorf("%w: %s", ErrNotMetered, feature)
	}

	limit := e.limits.For(plan, feature)
	if limit == 0 {
		return &ExceededError{Feature: feature, Plan: plan, Limit: limit}
	}

	count, ok, err := e.usage.Increment(ctx, userID, feature, Period(e.now()), limit)
	if err != nil {
		return fmt.Errorf("failed to record %s usage: %w", feature, err)
	}
	if !ok {
		e.logger.Info("quota exceeded",
			slog.String("user_id", userID.String()),
			slog.String("plan", string(plan)),
			slog.String("feature", string(feature)),
			slog.Int("limit", limit))
		return &ExceededError{Feature: feature, Plan: plan, Limit: limit}
	}

	e.logger.Debug("usage recorded",
		slog.String("user_id", userID.String()),
		slog.String("feature", string(feature)),
		slog.Int("count", count))
	return nil
}

// Release gives back one use of feature, for a call that was charged but
// did not produce a result.
func (e *Enforcer) Release(ctx context.Context, userID uuid.UUID, feature domain.Feature) error {
	if err := e.usage.Decrement(ctx, userID, feature, Period(e.now())); err != nil {
		return fmt.Errorf("failed to release %s usage: %w", feature, err)
	}
	return nil
}

// CheckSpaces reports whether a user who owns current spaces may create one
// more.
func (e *Enforcer) CheckSpaces(plan domain.Plan, current int) error {
	limit := e.limits.For(plan, domain.FeatureSpaces)
	if limit != Unlimited && current >= limit {
		return &ExceededError{Feature: domain.FeatureSpaces, Plan: plan, Limit: limit}
	}
	return nil
}

// Usage returns the current-period usage of userID. spaces is the number of
// spaces the user owns.
func (e *Enforcer) Usage(ctx context.Context, userID uuid.UUID, plan domain.Plan, spaces int) (*Report, error) {
	period := Period(e.now())
	counters, err := e.usage.Get(ctx, userID, period)
	if err != nil {
		return nil, fmt.Errorf("failed to load usage: %w", err)
	}

	return &Report{
		Plan:        plan,
		PeriodStart: period,
		Items: []Item{
			{Feature: domain.FeatureSpaces, Used: spaces, Limit: e.limits.For(plan, domain.FeatureSpaces)},
			{Feature: domain.FeatureAIParse, Used: counters[domain.FeatureAIParse], Limit: e.limits.For(plan, domain.FeatureAIParse)},
			{Feature: domain.FeatureAISummary, Used: counters[domain.FeatureAISummary], Limit: e.limits.For(plan, domain.FeatureAISummary)},
		},
	}, nil
}
