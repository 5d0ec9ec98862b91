package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/smera-app/smera/internal/domain"
	"github.com/smera-app/smera/internal/quota"
	"github.com/smera-app/smera/internal/store"
)

// UsageReporter builds quota usage reports.
type UsageReporter interface {
	Usage(ctx context.Context, userID uuid.UUID, plan domain.Plan, spaces int) (*quota.Report, error)
}

// UsageService reports how much of their plan a user has used.
type UsageService interface {
	Usage(ctx context.Context, userID uuid.UUID, plan domain.Plan) (*quota.Report, error)
}

type usageService struct {
	spaces   store.SpaceStore
	reporter UsageReporter
	logger   *slog.Logger
}

var _ UsageService = (*usageService)(nil)

// NewUsageService creates a UsageService.
func NewUsageService(spaces store.SpaceStore, reporter UsageReporter, logger *slog.Logger) (UsageService, error) {
	switch {
	case spaces == nil:
		return nil, nilDependency("spaces")
	case reporter == nil:
		return nil, nilDependency("reporter")
	case logger == nil:
		return nil, nilDependency("logger")
	}
	return &usageService{
		spaces:   spaces,
		reporter: reporter,
		logger:   logger.With(slog.String("component", "usage_service")),
	}, nil
}

func (s *usageService) Usage(ctx context.Context, userID uuid.UUID, plan domain.Plan) (*quota.Report, error) {
	count, err := s.spaces.CountByOwner(ctx, userID)
	if err != nil {
		return nil, NewServiceError("usage", "failed to count spaces", err)
	}

	report, err := s.reporter.Usage(ctx, userID, plan, count)
	if err != nil {
		return nil, NewServiceError("usage", "failed to read usage counters", err)
	}
	return report, nil
}
