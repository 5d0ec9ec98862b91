package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/smera-app/smera/internal/domain"
)

// SpaceStore persists spaces.
type SpaceStore interface {
	// Create saves a new space.
	Create(ctx context.Context, space *domain.Space) error

	// GetByID returns a space. Returns ErrSpaceNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Space, error)

	// ListByOwner returns the spaces of ownerID ordered by creation time.
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Space, error)

	// CountByOwner returns how many spaces ownerID has.
	CountByOwner(ctx context.Context, ownerID uuid.UUID) (int, error)

	// WithTx returns a SpaceStore bound to tx.
	WithTx(tx *sql.Tx) SpaceStore
}
