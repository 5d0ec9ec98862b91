package job

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/smera-app/smera/internal/domain"
	"github.com/smera-app/smera/internal/store"
)

// memoryStore is an in-memory Store.
type memoryStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*Record
	history map[uuid.UUID][]Status

	SaveErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		records: make(map[uuid.UUID]*Record),
		history: make(map[uuid.UUID][]Status),
	}
}

func (s *memoryStore) SaveJob(_ context.Context, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	now := time.Now()
	s.records[job.ID()] = &Record{
		ID:        job.ID(),
		Type:      job.Type(),
		Payload:   job.Payload(),
		Status:    job.Status(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.history[job.ID()] = append(s.history[job.ID()], job.Status())
	return nil
}

func (s *memoryStore) UpdateJobStatus(_ context.Context, id uuid.UUID, status Status, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return store.ErrJobNotFound
	}
	rec.Status = status
	rec.ErrorMessage = errorMsg
	rec.UpdatedAt = time.Now()
	s.history[id] = append(s.history[id], status)
	return nil
}

func (s *memoryStore) byStatus(status Status, olderThan time.Duration) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Record
	for _, rec := range s.records {
		if rec.Status != status {
			continue
		}
		if olderThan > 0 && time.Since(rec.UpdatedAt) < olderThan {
			continue
		}
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *memoryStore) GetPendingJobs(context.Context) ([]Record, error) {
	return s.byStatus(StatusPending, 0), nil
}

func (s *memoryStore) GetProcessingJobs(_ context.Context, olderThan time.Duration) ([]Record, error) {
	return s.byStatus(StatusProcessing, olderThan), nil
}

func (s *memoryStore) WithTx(*sql.Tx) Store { return s }

// put stores a record directly, as if left by a previous run.
func (s *memoryStore) put(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = &rec
}

func (s *memoryStore) status(id uuid.UUID) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[id]; ok {
		return rec.Status
	}
	return ""
}

func (s *memoryStore) errorMessage(id uuid.UUID) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[id]; ok {
		return rec.ErrorMessage
	}
	return ""
}

// funcJob is a Job whose Execute runs fn.
type funcJob struct {
	id uuid.UUID
	fn func(ctx context.Context) error
}

func newFuncJob(fn func(ctx context.Context) error) *funcJob {
	return &funcJob{id: uuid.New(), fn: fn}
}

func (j *funcJob) ID() uuid.UUID                     { return j.id }
func (j *funcJob) Type() string                      { return "func" }
func (j *funcJob) Payload() []byte                   { return []byte(`{}`) }
func (j *funcJob) Status() Status                    { return StatusPending }
func (j *funcJob) Execute(ctx context.Context) error { return j.fn(ctx) }

// builderFunc adapts a function to Builder.
type builderFunc func(rec Record) (Job, error)

func (f builderFunc) Rebuild(rec Record) (Job, error) { return f(rec) }

// mockTasks is a TaskRepository backed by maps.
type mockTasks struct {
	mu        sync.Mutex
	tasks     map[uuid.UUID]*domain.Task
	updates   map[uuid.UUID][]*domain.TaskUpdate
	summaries map[uuid.UUID]string

	GetErr    error
	UpdateErr error
}

func newMockTasks() *mockTasks {
	return &mockTasks{
		tasks:     make(map[uuid.UUID]*domain.Task),
		updates:   make(map[uuid.UUID][]*domain.TaskUpdate),
		summaries: make(map[uuid.UUID]string),
	}
}

func (m *mockTasks) GetByID(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	t, ok := m.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return t, nil
}

func (m *mockTasks) ListUpdates(_ context.Context, taskID uuid.UUID) ([]*domain.TaskUpdate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updates[taskID], nil
}

func (m *mockTasks) UpdateSummary(_ context.Context, id uuid.UUID, summary string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	m.summaries[id] = summary
	return nil
}

func (m *mockTasks) summary(id uuid.UUID) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.summaries[id]
	return s, ok
}

// mockSummarizer returns Summary or Err and counts calls.
type mockSummarizer struct {
	mu      sync.Mutex
	Summary string
	Err     error
	calls   int
}

func (m *mockSummarizer) SummarizeTask(context.Context, *domain.Task, []*domain.TaskUpdate) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.Summary, m.Err
}

// mockQuota records charges and refunds.
type mockQuota struct {
	mu         sync.Mutex
	ConsumeErr error
	consumed   int
	released   int
}

func (m *mockQuota) Consume(context.Context, uuid.UUID, domain.Plan, domain.Feature) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ConsumeErr != nil {
		return m.ConsumeErr
	}
	m.consumed++
	return nil
}

func (m *mockQuota) Release(context.Context, uuid.UUID, domain.Feature) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released++
	return nil
}
