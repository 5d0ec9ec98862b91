package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/smera-app/smera/internal/domain"
	"github.com/smera-app/smera/internal/platform/logger"
	"github.com/smera-app/smera/internal/store"
)

// taskColumns lists the columns scanTask expects, in order.
const taskColumns = `id, space_id, owner_id, client_id, title, description, due_date, due_time,
	priority, completed, summary, created_at, updated_at`

// PostgresTaskStore implements store.TaskStore.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a PostgresTaskStore. A nil logger falls back to
// slog.Default().
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

var _ store.TaskStore = (*PostgresTaskStore)(nil)

// Create implements store.TaskStore. A second create with the same owner and
// client ID returns store.ErrTaskExists.
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		task.ID,
		task.SpaceID,
		task.OwnerID,
		nullableUUID(task.ClientID),
		task.Title,
		task.Description,
		task.DueDate,
		task.DueTime,
		task.Priority,
		task.Completed,
		task.Summary,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Info("task already created with this client ID",
				slog.String("client_id", task.ClientID.String()))
			return MapUniqueViolation(err, "task", "", store.ErrTaskExists)
		}
		if IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: %v", store.ErrSpaceNotFound, err)
		}
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return store.NewStoreError("task", "create", "insert failed", MapError(err))
	}

	log.Debug("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("space_id", task.SpaceID.String()))
	return nil
}

// GetByID implements store.TaskStore.
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	return s.getOne(ctx, row, "get")
}

// GetByClientID implements store.TaskStore.
func (s *PostgresTaskStore) GetByClientID(ctx context.Context, ownerID, clientID uuid.UUID) (*domain.Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE owner_id = $1 AND client_id = $2`,
		ownerID, clientID)
	return s.getOne(ctx, row, "get_by_client_id")
}

func (s *PostgresTaskStore) getOne(ctx context.Context, row *sql.Row, op string) (*domain.Task, error) {
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrTaskNotFound
	}
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get task",
			slog.String("operation", op),
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("task", op, "query failed", MapError(err))
	}
	return task, nil
}

// ListBySpace implements store.TaskStore.
func (s *PostgresTaskStore) ListBySpace(ctx context.Context, spaceID uuid.UUID) ([]*domain.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE space_id = $1
		ORDER BY completed ASC, (due_date = '') ASC, due_date ASC, created_at ASC
	`, spaceID)
	if err != nil {
		return nil, store.NewStoreError("task", "list", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	tasks := make([]*domain.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, store.NewStoreError("task", "list", "scan failed", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("task", "list", "iteration failed", err)
	}
	return tasks, nil
}

// Update implements store.TaskStore.
func (s *PostgresTaskStore) Update(ctx context.Context, task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET title = $1, description = $2, due_date = $3, due_time = $4,
		    priority = $5, completed = $6, updated_at = $7
		WHERE id = $8
	`,
		task.Title,
		task.Description,
		task.DueDate,
		task.DueTime,
		task.Priority,
		task.Completed,
		task.UpdatedAt,
		task.ID,
	)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to update task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return store.NewStoreError("task", "update", "update failed", MapError(err))
	}
	return CheckRowsAffected(result, store.ErrTaskNotFound)
}

// UpdateSummary implements store.TaskStore.
func (s *PostgresTaskStore) UpdateSummary(ctx context.Context, id uuid.UUID, summary string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET summary = $1, updated_at = $2 WHERE id = $3`,
		summary, time.Now().UTC(), id)
	if err != nil {
		return store.NewStoreError("task", "update_summary", "update failed", MapError(err))
	}
	return CheckRowsAffected(result, store.ErrTaskNotFound)
}

// Delete implements store.TaskStore. Updates are removed by the foreign key
// cascade.
func (s *PostgresTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return store.NewStoreError("task", "delete", "delete failed", MapError(err))
	}
	return CheckRowsAffected(result, store.ErrTaskNotFound)
}

// AppendUpdate implements store.TaskStore.
func (s *PostgresTaskStore) AppendUpdate(ctx context.Context, update *domain.TaskUpdate) error {
	if err := update.Validate(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO task_updates (id, task_id, text, created_at)
		VALUES ($1, $2, $3, $4)
	`, update.ID, update.TaskID, update.Text, update.CreatedAt)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: %v", store.ErrTaskNotFound, err)
		}
		return store.NewStoreError("task_update", "create", "insert failed", MapError(err))
	}
	return nil
}

// ListUpdates implements store.TaskStore.
func (s *PostgresTaskStore) ListUpdates(ctx context.Context, taskID uuid.UUID) ([]*domain.TaskUpdate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, task_id, text, created_at
		FROM task_updates
		WHERE task_id = $1
		ORDER BY created_at ASC, id ASC
	`, taskID)
	if err != nil {
		return nil, store.NewStoreError("task_update", "list", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	updates := make([]*domain.TaskUpdate, 0)
	for rows.Next() {
		var u domain.TaskUpdate
		if err := rows.Scan(&u.ID, &u.TaskID, &u.Text, &u.CreatedAt); err != nil {
			return nil, store.NewStoreError("task_update", "list", "scan failed", err)
		}
		updates = append(updates, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("task_update", "list", "iteration failed", err)
	}
	return updates, nil
}

// WithTx implements store.TaskStore.
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{db: tx, logger: s.logger}
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task     domain.Task
		clientID uuid.NullUUID
	)
	err := row.Scan(
		&task.ID,
		&task.SpaceID,
		&task.OwnerID,
		&clientID,
		&task.Title,
		&task.Description,
		&task.DueDate,
		&task.DueTime,
		&task.Priority,
		&task.Completed,
		&task.Summary,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if clientID.Valid {
		task.ClientID = clientID.UUID
	}
	return &task, nil
}

// nullableUUID stores uuid.Nil as NULL.
func nullableUUID(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: id != uuid.Nil}
}
