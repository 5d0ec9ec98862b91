package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/smera-app/smera/internal/offline"
	zsqlite "zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// seq is an AUTOINCREMENT rowid that breaks timestamp ties in insertion
// order.
const schema = `
CREATE TABLE IF NOT EXISTS queued_operations (
	seq          INTEGER PRIMARY KEY AUTOINCREMENT,
	id           TEXT    NOT NULL UNIQUE,
	op_type      TEXT    NOT NULL,
	space_id     TEXT    NOT NULL,
	payload      TEXT    NOT NULL,
	timestamp_ns INTEGER NOT NULL,
	retries      INTEGER NOT NULL DEFAULT 0,
	last_error   TEXT    NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_queued_operations_order
	ON queued_operations (timestamp_ns, seq);

CREATE INDEX IF NOT EXISTS idx_queued_operations_space
	ON queued_operations (space_id, timestamp_ns, seq);
`

const selectColumns = `id, op_type, space_id, payload, timestamp_ns, retries, last_error`

// QueueStore is an offline.Store backed by a SQLite database file.
type QueueStore struct {
	pool   *Pool
	logger *slog.Logger
}

var _ offline.Store = (*QueueStore)(nil)

// OpenQueueStore opens (creating if needed) the queue database at path.
func OpenQueueStore(ctx context.Context, path string, logger *slog.Logger) (*QueueStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "sqlite_queue_store"))

	pool, err := Open(Config{Path: path, Logger: logger})
	if err != nil {
		return nil, err
	}

	s := &QueueStore{pool: pool, logger: logger}
	if err := s.migrate(ctx); err != nil {
		_ = pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *QueueStore) migrate(ctx context.Context) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("queue store: migrate: %w", err)
	}
	defer s.pool.Put(conn)

	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("queue store: create schema: %w", err)
	}
	return nil
}

// Add inserts a record.
func (s *QueueStore) Add(ctx context.Context, op offline.QueuedOperation) error {
	typ, payload, err := offline.MarshalOperation(op.Operation)
	if err != nil {
		return err
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("queue store: add: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`INSERT INTO queued_operations (id, op_type, space_id, payload, timestamp_ns, retries, last_error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{
				op.ID.String(),
				string(typ),
				op.SpaceID.String(),
				string(payload),
				op.Timestamp.UnixNano(),
				op.Retries,
				op.LastError,
			},
		})
	if err != nil {
		if zsqlite.ErrCode(err) == zsqlite.ResultConstraintUnique {
			return offline.ErrDuplicateID
		}
		return fmt.Errorf("queue store: insert %s: %w", op.ID, err)
	}
	return nil
}

// Get returns one record.
func (s *QueueStore) Get(ctx context.Context, id uuid.UUID) (offline.QueuedOperation, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return offline.QueuedOperation{}, fmt.Errorf("queue store: get: %w", err)
	}
	defer s.pool.Put(conn)

	return getRecord(conn, id)
}

func getRecord(conn *zsqlite.Conn, id uuid.UUID) (offline.QueuedOperation, error) {
	var (
		found   bool
		record  offline.QueuedOperation
		scanErr error
	)

	err := sqlitex.Execute(conn,
		`SELECT `+selectColumns+` FROM queued_operations WHERE id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{id.String()},
			ResultFunc: func(stmt *zsqlite.Stmt) error {
				found = true
				record, scanErr = scanRecord(stmt)
				return scanErr
			},
		})
	if err != nil {
		return offline.QueuedOperation{}, fmt.Errorf("queue store: select %s: %w", id, err)
	}
	if !found {
		return offline.QueuedOperation{}, offline.ErrNotFound
	}
	return record, nil
}

// Delete removes one record.
func (s *QueueStore) Delete(ctx context.Context, id uuid.UUID) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("queue store: delete: %w", err)
	}
	defer s.pool.Put(conn)

	return deleteRecord(conn, id)
}

func deleteRecord(conn *zsqlite.Conn, id uuid.UUID) error {
	err := sqlitex.Execute(conn, `DELETE FROM queued_operations WHERE id = ?`,
		&sqlitex.ExecOptions{Args: []any{id.String()}})
	if err != nil {
		return fmt.Errorf("queue store: delete %s: %w", id, err)
	}
	if conn.Changes() == 0 {
		return offline.ErrNotFound
	}
	return nil
}

// Iterate reads the matching records in order, releases the connection and
// then calls fn, so fn may use the store.
func (s *QueueStore) Iterate(ctx context.Context, spaceID uuid.UUID, fn func(offline.QueuedOperation) error) error {
	records, err := s.list(ctx, spaceID)
	if err != nil {
		return err
	}
	for _, record := range records {
		if err := fn(record); err != nil {
			return err
		}
	}
	return nil
}

func (s *QueueStore) list(ctx context.Context, spaceID uuid.UUID) ([]offline.QueuedOperation, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("queue store: iterate: %w", err)
	}
	defer s.pool.Put(conn)

	query := `SELECT ` + selectColumns + ` FROM queued_operations ORDER BY timestamp_ns, seq`
	var args []any
	if spaceID != uuid.Nil {
		query = `SELECT ` + selectColumns + ` FROM queued_operations WHERE space_id = ? ORDER BY timestamp_ns, seq`
		args = []any{spaceID.String()}
	}

	var records []offline.QueuedOperation
	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *zsqlite.Stmt) error {
			record, err := scanRecord(stmt)
			if err != nil {
				return err
			}
			records = append(records, record)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("queue store: iterate: %w", err)
	}
	return records, nil
}

// Modify runs fn inside an IMMEDIATE transaction so concurrent modifications
// of the same record serialize.
func (s *QueueStore) Modify(ctx context.Context, id uuid.UUID, fn offline.ModifyFunc) (err error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("queue store: modify: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("queue store: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	record, err := getRecord(conn, id)
	if err != nil {
		return err
	}

	disposition, err := fn(&record)
	if err != nil {
		return err
	}

	if disposition == offline.Discard {
		return deleteRecord(conn, id)
	}

	typ, payload, err := offline.MarshalOperation(record.Operation)
	if err != nil {
		return err
	}
	err = sqlitex.Execute(conn,
		`UPDATE queued_operations
		    SET op_type = ?, space_id = ?, payload = ?, retries = ?, last_error = ?
		  WHERE id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{
				string(typ),
				record.SpaceID.String(),
				string(payload),
				record.Retries,
				record.LastError,
				id.String(),
			},
		})
	if err != nil {
		return fmt.Errorf("queue store: update %s: %w", id, err)
	}
	return nil
}

// Clear removes every record.
func (s *QueueStore) Clear(ctx context.Context) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("queue store: clear: %w", err)
	}
	defer s.pool.Put(conn)

	if err := sqlitex.ExecuteTransient(conn, `DELETE FROM queued_operations`, nil); err != nil {
		return fmt.Errorf("queue store: clear: %w", err)
	}
	return nil
}

// Count returns the number of records.
func (s *QueueStore) Count(ctx context.Context) (int, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("queue store: count: %w", err)
	}
	defer s.pool.Put(conn)

	var n int
	err = sqlitex.Execute(conn, `SELECT COUNT(*) FROM queued_operations`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *zsqlite.Stmt) error {
			n = stmt.ColumnInt(0)
			return nil
		},
	})
	if err != nil {
		return 0, fmt.Errorf("queue store: count: %w", err)
	}
	return n, nil
}

// Close closes the underlying pool.
func (s *QueueStore) Close() error {
	return s.pool.Close()
}

func scanRecord(stmt *zsqlite.Stmt) (offline.QueuedOperation, error) {
	id, err := uuid.Parse(stmt.ColumnText(0))
	if err != nil {
		return offline.QueuedOperation{}, fmt.Errorf("queue store: bad id: %w", err)
	}
	spaceID, err := uuid.Parse(stmt.ColumnText(2))
	if err != nil {
		return offline.QueuedOperation{}, fmt.Errorf("queue store: bad space id for %s: %w", id, err)
	}

	op, err := offline.UnmarshalOperation(offline.OperationType(stmt.ColumnText(1)), []byte(stmt.ColumnText(3)))
	if err != nil {
		return offline.QueuedOperation{}, fmt.Errorf("queue store: record %s: %w", id, err)
	}

	return offline.QueuedOperation{
		ID:        id,
		Operation: op,
		SpaceID:   spaceID,
		Timestamp: time.Unix(0, stmt.ColumnInt64(4)).UTC(),
		Retries:   stmt.ColumnInt(5),
		LastError: stmt.ColumnText(6),
	}, nil
}

