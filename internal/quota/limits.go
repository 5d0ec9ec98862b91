package quota

import (
	"github.com/smera-app/smera/internal/config"
	"github.com/smera-app/smera/internal/domain"
)

// Unlimited is the limit of a feature without a cap.
const Unlimited = -1

// Limits holds the configured limits of every plan.
type Limits map[domain.Plan]config.PlanLimits

// LimitsFromConfig builds Limits from the quota section of the configuration.
func LimitsFromConfig(cfg config.QuotaConfig) Limits {
	return Limits{
		domain.PlanFree: cfg.Free,
		domain.PlanPro:  cfg.Pro,
	}
}

// For returns the limit of feature on plan. Unknown plans get the free limits.
func (l Limits) For(plan domain.Plan, feature domain.Feature) int {
	pl, ok := l[plan]
	if !ok {
		pl = l[domain.PlanFree]
	}

	switch feature {
	case domain.FeatureSpaces:
		return pl.Spaces
	case domain.FeatureAIParse:
		return pl.AIParse
	case domain.FeatureAISummary:
		return pl.AISummary
	default:
		return 0
	}
}
