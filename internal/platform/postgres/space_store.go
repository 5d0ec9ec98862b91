package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/smera-app/smera/internal/domain"
	"github.com/smera-app/smera/internal/platform/logger"
	"github.com/smera-app/smera/internal/store"
)

// PostgresSpaceStore implements store.SpaceStore.
type PostgresSpaceStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresSpaceStore creates a PostgresSpaceStore. A nil logger falls back
// to slog.Default().
func NewPostgresSpaceStore(db store.DBTX, logger *slog.Logger) *PostgresSpaceStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresSpaceStore{
		db:     db,
		logger: logger.With(slog.String("component", "space_store")),
	}
}

var _ store.SpaceStore = (*PostgresSpaceStore)(nil)

// Create implements store.SpaceStore.
func (s *PostgresSpaceStore) Create(ctx context.Context, space *domain.Space) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := space.Validate(); err != nil {
		log.Warn("space validation failed during create",
			slog.String("error", err.Error()),
			slog.String("space_id", space.ID.String()))
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO spaces (id, owner_id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, space.ID, space.OwnerID, space.Name, space.CreatedAt, space.UpdatedAt)
	if err != nil {
		log.Error("failed to create space",
			slog.String("error", err.Error()),
			slog.String("space_id", space.ID.String()))
		return store.NewStoreError("space", "create", "insert failed", MapError(err))
	}

	log.Debug("space created", slog.String("space_id", space.ID.String()))
	return nil
}

// GetByID implements store.SpaceStore.
func (s *PostgresSpaceStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Space, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, created_at, updated_at
		FROM spaces
		WHERE id = $1
	`, id)

	space, err := scanSpace(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrSpaceNotFound
	}
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get space",
			slog.String("error", err.Error()),
			slog.String("space_id", id.String()))
		return nil, store.NewStoreError("space", "get", "query failed", MapError(err))
	}
	return space, nil
}

// ListByOwner implements store.SpaceStore.
func (s *PostgresSpaceStore) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Space, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, name, created_at, updated_at
		FROM spaces
		WHERE owner_id = $1
		ORDER BY created_at ASC, id ASC
	`, ownerID)
	if err != nil {
		return nil, store.NewStoreError("space", "list", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	spaces := make([]*domain.Space, 0)
	for rows.Next() {
		space, err := scanSpace(rows)
		if err != nil {
			return nil, store.NewStoreError("space", "list", "scan failed", err)
		}
		spaces = append(spaces, space)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("space", "list", "iteration failed", err)
	}
	return spaces, nil
}

// CountByOwner implements store.SpaceStore.
func (s *PostgresSpaceStore) CountByOwner(ctx context.Context, ownerID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM spaces WHERE owner_id = $1`, ownerID).Scan(&count)
	if err != nil {
		return 0, store.NewStoreError("space", "count", "query failed", MapError(err))
	}
	return count, nil
}

// WithTx implements store.SpaceStore.
func (s *PostgresSpaceStore) WithTx(tx *sql.Tx) store.SpaceStore {
	return &PostgresSpaceStore{db: tx, logger: s.logger}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSpace(row rowScanner) (*domain.Space, error) {
	var space domain.Space
	if err := row.Scan(&space.ID, &space.OwnerID, &space.Name, &space.CreatedAt, &space.UpdatedAt); err != nil {
		return nil, fmt.Errorf("scan space: %w", err)
	}
	return &space, nil
}
