package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/smera-app/smera/internal/domain"
	"github.com/smera-app/smera/internal/quota"
	"github.com/smera-app/smera/internal/service/auth"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockSpaceService implements service.SpaceService with function fields.
type MockSpaceService struct {
	CreateFn func(ctx context.Context, ownerID uuid.UUID, plan domain.Plan, name string) (*domain.Space, error)
	ListFn   func(ctx context.Context, ownerID uuid.UUID) ([]*domain.Space, error)
	GetFn    func(ctx context.Context, ownerID, spaceID uuid.UUID) (*domain.Space, error)
}

func (m *MockSpaceService) Create(ctx context.Context, ownerID uuid.UUID, plan domain.Plan, name string) (*domain.Space, error) {
	return m.CreateFn(ctx, ownerID, plan, name)
}

func (m *MockSpaceService) List(ctx context.Context, ownerID uuid.UUID) ([]*domain.Space, error) {
	return m.ListFn(ctx, ownerID)
}

func (m *MockSpaceService) Get(ctx context.Context, ownerID, spaceID uuid.UUID) (*domain.Space, error) {
	return m.GetFn(ctx, ownerID, spaceID)
}

// MockTaskService implements service.TaskService with function fields.
type MockTaskService struct {
	CreateFn         func(ctx context.Context, ownerID, spaceID, clientID uuid.UUID, draft domain.TaskDraft) (*domain.Task, bool, error)
	ListFn           func(ctx context.Context, ownerID, spaceID uuid.UUID) ([]*domain.Task, error)
	GetFn            func(ctx context.Context, ownerID, taskID uuid.UUID) (*domain.Task, error)
	UpdateFn         func(ctx context.Context, ownerID, taskID uuid.UUID, patch domain.TaskPatch) (*domain.Task, error)
	DeleteFn         func(ctx context.Context, ownerID, taskID uuid.UUID) error
	AppendUpdateFn   func(ctx context.Context, ownerID uuid.UUID, plan domain.Plan, taskID uuid.UUID, text string) (*domain.TaskUpdate, error)
	ListUpdatesFn    func(ctx context.Context, ownerID, taskID uuid.UUID) ([]*domain.TaskUpdate, error)
	RequestSummaryFn func(ctx context.Context, ownerID uuid.UUID, plan domain.Plan, taskID uuid.UUID) (uuid.UUID, error)
}

func (m *MockTaskService) Create(ctx context.Context, ownerID, spaceID, clientID uuid.UUID, draft domain.TaskDraft) (*domain.Task, bool, error) {
	return m.CreateFn(ctx, ownerID, spaceID, clientID, draft)
}

func (m *MockTaskService) List(ctx context.Context, ownerID, spaceID uuid.UUID) ([]*domain.Task, error) {
	return m.ListFn(ctx, ownerID, spaceID)
}

func (m *MockTaskService) Get(ctx context.Context, ownerID, taskID uuid.UUID) (*domain.Task, error) {
	return m.GetFn(ctx, ownerID, taskID)
}

func (m *MockTaskService) Update(ctx context.Context, ownerID, taskID uuid.UUID, patch domain.TaskPatch) (*domain.Task, error) {
	return m.UpdateFn(ctx, ownerID, taskID, patch)
}

func (m *MockTaskService) Delete(ctx context.Context, ownerID, taskID uuid.UUID) error {
	return m.DeleteFn(ctx, ownerID, taskID)
}

func (m *MockTaskService) AppendUpdate(ctx context.Context, ownerID uuid.UUID, plan domain.Plan, taskID uuid.UUID, text string) (*domain.TaskUpdate, error) {
	return m.AppendUpdateFn(ctx, ownerID, plan, taskID, text)
}

func (m *MockTaskService) ListUpdates(ctx context.Context, ownerID, taskID uuid.UUID) ([]*domain.TaskUpdate, error) {
	return m.ListUpdatesFn(ctx, ownerID, taskID)
}

func (m *MockTaskService) RequestSummary(ctx context.Context, ownerID uuid.UUID, plan domain.Plan, taskID uuid.UUID) (uuid.UUID, error) {
	return m.RequestSummaryFn(ctx, ownerID, plan, taskID)
}

// MockAIService implements service.AIService.
type MockAIService struct {
	ParseTaskFn func(ctx context.Context, userID uuid.UUID, plan domain.Plan, text, timezone string) (*domain.TaskDraft, error)
}

func (m *MockAIService) ParseTask(ctx context.Context, userID uuid.UUID, plan domain.Plan, text, timezone string) (*domain.TaskDraft, error) {
	return m.ParseTaskFn(ctx, userID, plan, text, timezone)
}

// MockUsageService implements service.UsageService.
type MockUsageService struct {
	UsageFn func(ctx context.Context, userID uuid.UUID, plan domain.Plan) (*quota.Report, error)
}

func (m *MockUsageService) Usage(ctx context.Context, userID uuid.UUID, plan domain.Plan) (*quota.Report, error) {
	return m.UsageFn(ctx, userID, plan)
}

// staticTokens accepts the token "valid" for one user.
type staticTokens struct {
	userID uuid.UUID
	plan   domain.Plan
}

func (s staticTokens) ValidateToken(_ context.Context, token string) (*auth.Claims, error) {
	if token != "valid" {
		return nil, auth.ErrInvalidToken
	}
	return &auth.Claims{UserID: s.userID, Plan: s.plan}, nil
}

// testServer wires mocks into the real router.
type testServer struct {
	handler http.Handler
	userID  uuid.UUID
	spaces  *MockSpaceService
	tasks   *MockTaskService
	ai      *MockAIService
	usage   *MockUsageService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		userID: uuid.New(),
		spaces: &MockSpaceService{},
		tasks:  &MockTaskService{},
		ai:     &MockAIService{},
		usage:  &MockUsageService{},
	}
	ts.handler = NewRouter(Services{
		Spaces: ts.spaces,
		Tasks:  ts.tasks,
		AI:     ts.ai,
		Usage:  ts.usage,
	}, staticTokens{userID: ts.userID, plan: domain.PlanPro}, testLogger())
	return ts
}

func (ts *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer valid")
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}
