package quota

import (
	"errors"
	"fmt"

	"github.com/smera-app/smera/internal/domain"
)

var (
	// ErrQuotaExceeded is matched by every ExceededError.
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrNotMetered is returned when Consume is called for a feature that has
	// no monthly counter.
	ErrNotMetered = errors.New("feature is not metered monthly")
)

// ExceededError reports which limit was hit.
type ExceededError struct {
	Feature domain.Feature
	Plan    domain.Plan
	Limit   int
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("%s quota exceeded: %s plan allows %d", e.Feature, e.Plan, e.Limit)
}

// Is makes errors.Is(err, ErrQuotaExceeded) true for any ExceededError.
func (e *ExceededError) Is(target error) bool {
	return target == ErrQuotaExceeded
}
