package offline

import (
	"context"

	"github.com/google/uuid"
)

// Disposition tells Store.Modify what to do with a record after the modify
// function has run.
type Disposition int

const (
	// Keep persists the modified record.
	Keep Disposition = iota
	// Discard deletes the record.
	Discard
)

// ModifyFunc mutates a record inside Store.Modify. Returning an error leaves
// the stored record untouched.
type ModifyFunc func(op *QueuedOperation) (Disposition, error)

// Store is the durable, ordered local store behind a Queue. Every method is
// atomic on its own; there are no cross-call transactions.
//
// Records are ordered by Timestamp, ties broken by insertion order.
type Store interface {
	// Add inserts a new record. It returns ErrDuplicateID if the ID exists.
	Add(ctx context.Context, op QueuedOperation) error

	// Get returns the record with the given ID or ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (QueuedOperation, error)

	// Delete removes the record with the given ID or returns ErrNotFound.
	Delete(ctx context.Context, id uuid.UUID) error

	// Iterate calls fn for each record in order. A uuid.Nil spaceID visits
	// every record; otherwise only records of that space are visited. An
	// error from fn stops the iteration and is returned.
	Iterate(ctx context.Context, spaceID uuid.UUID, fn func(QueuedOperation) error) error

	// Modify runs fn against the stored record as one read-modify-write. It
	// returns ErrNotFound if the record does not exist.
	Modify(ctx context.Context, id uuid.UUID, fn ModifyFunc) error

	// Clear removes every record.
	Clear(ctx context.Context) error

	// Count returns the number of records.
	Count(ctx context.Context) (int, error)

	Close() error
}
