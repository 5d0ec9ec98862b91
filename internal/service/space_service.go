package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/smera-app/smera/internal/domain"
	"github.com/smera-app/smera/internal/platform/logger"
	"github.com/smera-app/smera/internal/store"
)

// SpaceQuota decides whether a user may create another space.
type SpaceQuota interface {
	CheckSpaces(plan domain.Plan, current int) error
}

// SpaceService manages a user's spaces.
type SpaceService interface {
	// Create makes a new space for ownerID if the plan allows another one.
	Create(ctx context.Context, ownerID uuid.UUID, plan domain.Plan, name string) (*domain.Space, error)

	// List returns the spaces of ownerID.
	List(ctx context.Context, ownerID uuid.UUID) ([]*domain.Space, error)

	// Get returns a space owned by ownerID.
	Get(ctx context.Context, ownerID, spaceID uuid.UUID) (*domain.Space, error)
}

type spaceService struct {
	spaces store.SpaceStore
	quota  SpaceQuota
	logger *slog.Logger
}

var _ SpaceService = (*spaceService)(nil)

// NewSpaceService creates a SpaceService.
func NewSpaceService(spaces store.SpaceStore, quota SpaceQuota, logger *slog.Logger) (SpaceService, error) {
	if spaces == nil {
		return nil, nilDependency("spaces")
	}
	if quota == nil {
		return nil, nilDependency("quota")
	}
	if logger == nil {
		return nil, nilDependency("logger")
	}
	return &spaceService{
		spaces: spaces,
		quota:  quota,
		logger: logger.With(slog.String("component", "space_service")),
	}, nil
}

func (s *spaceService) Create(ctx context.Context, ownerID uuid.UUID, plan domain.Plan, name string) (*domain.Space, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	space, err := domain.NewSpace(ownerID, name)
	if err != nil {
		return nil, domain.Invalid(err)
	}

	// The count and the insert are not atomic; two concurrent creates can
	// both pass at the limit.
	count, err := s.spaces.CountByOwner(ctx, ownerID)
	if err != nil {
		return nil, NewServiceError("create_space", "failed to count spaces", err)
	}
	if err := s.quota.CheckSpaces(plan, count); err != nil {
		return nil, err
	}

	if err := s.spaces.Create(ctx, space); err != nil {
		return nil, NewServiceError("create_space", "failed to save space", err)
	}

	log.Info("space created",
		slog.String("space_id", space.ID.String()),
		slog.String("owner_id", ownerID.String()))
	return space, nil
}

func (s *spaceService) List(ctx context.Context, ownerID uuid.UUID) ([]*domain.Space, error) {
	spaces, err := s.spaces.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, NewServiceError("list_spaces", "failed to list spaces", err)
	}
	return spaces, nil
}

func (s *spaceService) Get(ctx context.Context, ownerID, spaceID uuid.UUID) (*domain.Space, error) {
	return ownedSpace(ctx, s.spaces, ownerID, spaceID)
}

// ownedSpace loads a space and checks that ownerID owns it.
func ownedSpace(ctx context.Context, spaces store.SpaceStore, ownerID, spaceID uuid.UUID) (*domain.Space, error) {
	space, err := spaces.GetByID(ctx, spaceID)
	if err != nil {
		return nil, NewServiceError("get_space", "failed to load space", err)
	}
	if space.OwnerID != ownerID {
		return nil, ErrNotOwned
	}
	return space, nil
}
