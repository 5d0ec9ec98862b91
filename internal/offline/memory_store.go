package offline

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
)

type memoryEntry struct {
	op  QueuedOperation
	seq uint64
}

// MemoryStore is a Store kept in process memory. It is safe for concurrent
// use and loses its contents on exit.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[uuid.UUID]memoryEntry
	seq     uint64
	closed  bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[uuid.UUID]memoryEntry)}
}

func (s *MemoryStore) Add(ctx context.Context, op QueuedOperation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if _, ok := s.entries[op.ID]; ok {
		return ErrDuplicateID
	}
	s.seq++
	s.entries[op.ID] = memoryEntry{op: op, seq: s.seq}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (QueuedOperation, error) {
	if err := ctx.Err(); err != nil {
		return QueuedOperation{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return QueuedOperation{}, ErrStoreClosed
	}
	e, ok := s.entries[id]
	if !ok {
		return QueuedOperation{}, ErrNotFound
	}
	return e.op, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if _, ok := s.entries[id]; !ok {
		return ErrNotFound
	}
	delete(s.entries, id)
	return nil
}

// Iterate visits a snapshot taken under the lock, so fn may call back into
// the store.
func (s *MemoryStore) Iterate(ctx context.Context, spaceID uuid.UUID, fn func(QueuedOperation) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStoreClosed
	}
	snapshot := make([]memoryEntry, 0, len(s.entries))
	for _, e := range s.entries {
		if spaceID == uuid.Nil || e.op.SpaceID == spaceID {
			snapshot = append(snapshot, e)
		}
	}
	s.mu.Unlock()

	slices.SortFunc(snapshot, func(a, b memoryEntry) int {
		if c := a.op.Timestamp.Compare(b.op.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})

	for _, e := range snapshot {
		if err := fn(e.op); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemoryStore) Modify(ctx context.Context, id uuid.UUID, fn ModifyFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	e, ok := s.entries[id]
	if !ok {
		return ErrNotFound
	}

	op := e.op
	disposition, err := fn(&op)
	if err != nil {
		return err
	}

	switch disposition {
	case Discard:
		delete(s.entries, id)
	default:
		// identity and ordering fields are not modifiable
		op.ID, op.Timestamp = e.op.ID, e.op.Timestamp
		s.entries[id] = memoryEntry{op: op, seq: e.seq}
	}
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	clear(s.entries)
	return nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrStoreClosed
	}
	return len(s.entries), nil
}

// Close marks the store closed. Later calls fail with ErrStoreClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
