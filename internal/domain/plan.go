package domain

import "errors"

// Plan is the subscription tier that bounds a user's usage.
type Plan string

// Available plans
const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

// ErrInvalidPlan is returned for an unknown plan name.
var ErrInvalidPlan = errors.New("invalid plan")

// ParsePlan converts a plan name to a Plan.
func ParsePlan(s string) (Plan, error) {
	switch p := Plan(s); p {
	case PlanFree, PlanPro:
		return p, nil
	case "":
		return PlanFree, nil
	default:
		return "", ErrInvalidPlan
	}
}

// Feature is a metered capability.
type Feature string

// Metered features
const (
	FeatureSpaces    Feature = "spaces"
	FeatureAIParse   Feature = "ai_parse"
	FeatureAISummary Feature = "ai_summary"
)

// Monthly reports whether usage of the feature resets every calendar month.
// Spaces are a standing count rather than a monthly counter.
func (f Feature) Monthly() bool {
	return f == FeatureAIParse || f == FeatureAISummary
}
