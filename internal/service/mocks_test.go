package service

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/smera-app/smera/internal/domain"
	"github.com/smera-app/smera/internal/events"
	"github.com/smera-app/smera/internal/quota"
	"github.com/smera-app/smera/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memorySpaces is an in-memory store.SpaceStore.
type memorySpaces struct {
	mu     sync.Mutex
	spaces map[uuid.UUID]*domain.Space
	err    error
}

func newMemorySpaces() *memorySpaces {
	return &memorySpaces{spaces: make(map[uuid.UUID]*domain.Space)}
}

func (m *memorySpaces) add(ownerID uuid.UUID, name string) *domain.Space {
	space, err := domain.NewSpace(ownerID, name)
	if err != nil {
		panic(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.spaces[space.ID] = space
	return space
}

func (m *memorySpaces) Create(_ context.Context, space *domain.Space) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.spaces[space.ID] = space
	return nil
}

func (m *memorySpaces) GetByID(_ context.Context, id uuid.UUID) (*domain.Space, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	space, ok := m.spaces[id]
	if !ok {
		return nil, store.ErrSpaceNotFound
	}
	return space, nil
}

func (m *memorySpaces) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]*domain.Space, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []*domain.Space
	for _, s := range m.spaces {
		if s.OwnerID == ownerID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memorySpaces) CountByOwner(ctx context.Context, ownerID uuid.UUID) (int, error) {
	spaces, err := m.ListByOwner(ctx, ownerID)
	return len(spaces), err
}

func (m *memorySpaces) WithTx(*sql.Tx) store.SpaceStore { return m }

// memoryTasks is an in-memory store.TaskStore.
type memoryTasks struct {
	mu        sync.Mutex
	tasks     map[uuid.UUID]*domain.Task
	updates   map[uuid.UUID][]*domain.TaskUpdate
	createErr error
	// hideClientIDs makes GetByClientID miss once, to simulate a racing replay.
	hideClientIDs int
}

func newMemoryTasks() *memoryTasks {
	return &memoryTasks{
		tasks:   make(map[uuid.UUID]*domain.Task),
		updates: make(map[uuid.UUID][]*domain.TaskUpdate),
	}
}

func (m *memoryTasks) Create(_ context.Context, task *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if task.ClientID != uuid.Nil {
		for _, t := range m.tasks {
			if t.OwnerID == task.OwnerID && t.ClientID == task.ClientID {
				return store.ErrTaskExists
			}
		}
	}
	copied := *task
	m.tasks[task.ID] = &copied
	return nil
}

func (m *memoryTasks) GetByID(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	copied := *task
	return &copied, nil
}

func (m *memoryTasks) GetByClientID(_ context.Context, ownerID, clientID uuid.UUID) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hideClientIDs > 0 {
		m.hideClientIDs--
		return nil, store.ErrTaskNotFound
	}
	for _, t := range m.tasks {
		if t.OwnerID == ownerID && t.ClientID == clientID {
			copied := *t
			return &copied, nil
		}
	}
	return nil, store.ErrTaskNotFound
}

func (m *memoryTasks) ListBySpace(_ context.Context, spaceID uuid.UUID) ([]*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Task
	for _, t := range m.tasks {
		if t.SpaceID == spaceID {
			copied := *t
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memoryTasks) Update(_ context.Context, task *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[task.ID]; !ok {
		return store.ErrTaskNotFound
	}
	copied := *task
	m.tasks[task.ID] = &copied
	return nil
}

func (m *memoryTasks) UpdateSummary(_ context.Context, id uuid.UUID, summary string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok {
		return store.ErrTaskNotFound
	}
	task.Summary = summary
	return nil
}

func (m *memoryTasks) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return store.ErrTaskNotFound
	}
	delete(m.tasks, id)
	delete(m.updates, id)
	return nil
}

func (m *memoryTasks) AppendUpdate(_ context.Context, update *domain.TaskUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[update.TaskID]; !ok {
		return store.ErrTaskNotFound
	}
	m.updates[update.TaskID] = append(m.updates[update.TaskID], update)
	return nil
}

func (m *memoryTasks) ListUpdates(_ context.Context, taskID uuid.UUID) ([]*domain.TaskUpdate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.TaskUpdate(nil), m.updates[taskID]...), nil
}

func (m *memoryTasks) WithTx(*sql.Tx) store.TaskStore { return m }

// fakeQuota counts consumed and released units per feature.
type fakeQuota struct {
	mu          sync.Mutex
	consumed    map[domain.Feature]int
	released    map[domain.Feature]int
	consumeErr  error
	spacesLimit int
}

func newFakeQuota() *fakeQuota {
	return &fakeQuota{
		consumed:    make(map[domain.Feature]int),
		released:    make(map[domain.Feature]int),
		spacesLimit: quota.Unlimited,
	}
}

func (q *fakeQuota) Consume(_ context.Context, _ uuid.UUID, plan domain.Plan, feature domain.Feature) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.consumeErr != nil {
		return q.consumeErr
	}
	q.consumed[feature]++
	return nil
}

func (q *fakeQuota) Release(_ context.Context, _ uuid.UUID, feature domain.Feature) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.released[feature]++
	return nil
}

func (q *fakeQuota) CheckSpaces(plan domain.Plan, current int) error {
	if q.spacesLimit != quota.Unlimited && current >= q.spacesLimit {
		return &quota.ExceededError{Feature: domain.FeatureSpaces, Plan: plan, Limit: q.spacesLimit}
	}
	return nil
}

func (q *fakeQuota) Usage(_ context.Context, _ uuid.UUID, plan domain.Plan, spaces int) (*quota.Report, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return &quota.Report{
		Plan: plan,
		Items: []quota.Item{
			{Feature: domain.FeatureSpaces, Used: spaces, Limit: q.spacesLimit},
			{Feature: domain.FeatureAIParse, Used: q.consumed[domain.FeatureAIParse], Limit: 10},
		},
	}, nil
}

// recordingEmitter keeps emitted events and returns err.
type recordingEmitter struct {
	mu     sync.Mutex
	events []*events.JobRequestEvent
	err    error
}

func (e *recordingEmitter) EmitEvent(_ context.Context, event *events.JobRequestEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return e.err
}

// parserFunc adapts a function to generation.TaskParser.
type parserFunc func(ctx context.Context, text string, now time.Time, loc *time.Location) (*domain.TaskDraft, error)

func (f parserFunc) ParseTask(ctx context.Context, text string, now time.Time, loc *time.Location) (*domain.TaskDraft, error) {
	return f(ctx, text, now, loc)
}
