package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/smera-app/smera/internal/api/shared"
	"github.com/smera-app/smera/internal/domain"
	"github.com/smera-app/smera/internal/generation"
	"github.com/smera-app/smera/internal/quota"
	"github.com/smera-app/smera/internal/retry"
	"github.com/smera-app/smera/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) shared.ErrorResponse {
	t.Helper()
	var resp shared.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), "body: %s", rec.Body.String())
	return resp
}

func TestHealth(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAPIRequiresAuth(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/spaces", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/spaces", nil)
	req.Header.Set("Authorization", "Bearer forged")
	rec = httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, decodeError(t, rec).TraceID)
}

func TestSpaces(t *testing.T) {
	t.Parallel()

	t.Run("create", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)
		ts.spaces.CreateFn = func(_ context.Context, ownerID uuid.UUID, plan domain.Plan, name string) (*domain.Space, error) {
			assert.Equal(t, ts.userID, ownerID)
			assert.Equal(t, domain.PlanPro, plan)
			return domain.NewSpace(ownerID, name)
		}

		rec := ts.do(http.MethodPost, "/api/spaces", `{"name":"Garden"}`)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var space domain.Space
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &space))
		assert.Equal(t, "Garden", space.Name)
	})

	t.Run("create over the plan limit", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)
		ts.spaces.CreateFn = func(context.Context, uuid.UUID, domain.Plan, string) (*domain.Space, error) {
			return nil, &quota.ExceededError{Feature: domain.FeatureSpaces, Plan: domain.PlanFree, Limit: 3}
		}

		rec := ts.do(http.MethodPost, "/api/spaces", `{"name":"Fourth"}`)
		assert.Equal(t, http.StatusPaymentRequired, rec.Code)
		resp := decodeError(t, rec)
		assert.Contains(t, resp.Error, "free plan allows 3 spaces")
		assert.Equal(t, "quota_exceeded", resp.Kind)
	})

	t.Run("create rejects a missing name", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)

		rec := ts.do(http.MethodPost, "/api/spaces", `{"name":""}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid name: required field", decodeError(t, rec).Error)
	})

	t.Run("list is never null", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)
		ts.spaces.ListFn = func(context.Context, uuid.UUID) ([]*domain.Space, error) { return nil, nil }

		rec := ts.do(http.MethodGet, "/api/spaces", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})
}

func TestCreateTask(t *testing.T) {
	t.Parallel()

	spaceID := uuid.New()
	clientID := uuid.New()
	path := fmt.Sprintf("/api/spaces/%s/tasks", spaceID)
	body := fmt.Sprintf(`{"client_id":%q,"title":"Fix bike","due_date":"2026-11-02","priority":"high"}`, clientID)

	tests := []struct {
		name       string
		created    bool
		err        error
		wantStatus int
	}{
		{"created", true, nil, http.StatusCreated},
		{"replayed", false, nil, http.StatusOK},
		{"space of someone else", false, service.ErrNotOwned, http.StatusNotFound},
		{"space missing", false, service.ErrSpaceNotFound, http.StatusNotFound},
		{"domain validation", false, domain.Invalid(domain.ErrDueTimeWithoutDate), http.StatusBadRequest},
		{"store failure", false, errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ts := newTestServer(t)
			ts.tasks.CreateFn = func(_ context.Context, ownerID, gotSpace, gotClient uuid.UUID, draft domain.TaskDraft) (*domain.Task, bool, error) {
				assert.Equal(t, spaceID, gotSpace)
				assert.Equal(t, clientID, gotClient)
				assert.Equal(t, domain.PriorityHigh, draft.Priority)
				if tc.err != nil {
					return nil, false, tc.err
				}
				task, err := domain.NewTask(gotSpace, ownerID, gotClient, draft)
				require.NoError(t, err)
				return task, tc.created, nil
			}

			rec := ts.do(http.MethodPost, path, body)
			assert.Equal(t, tc.wantStatus, rec.Code, rec.Body.String())
			if tc.wantStatus == http.StatusInternalServerError {
				resp := decodeError(t, rec)
				assert.Equal(t, "Failed to create task", resp.Error)
				assert.NotContains(t, rec.Body.String(), "db down")
			}
		})
	}
}

func TestCreateTask_BadInput(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/spaces/not-a-uuid/tasks", `{"title":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "SpaceID has invalid format", decodeError(t, rec).Error)

	path := fmt.Sprintf("/api/spaces/%s/tasks", uuid.New())
	rec = ts.do(http.MethodPost, path, `{"title":"x","due_date":"tomorrow"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid due_date: invalid format", decodeError(t, rec).Error)

	rec = ts.do(http.MethodPost, path, `{"title":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request format", decodeError(t, rec).Error)

	rec = ts.do(http.MethodPost, path, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTaskEndpoints(t *testing.T) {
	t.Parallel()

	taskID := uuid.New()
	task := &domain.Task{ID: taskID, Title: "Read book", Priority: domain.PriorityLow}

	t.Run("get", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)
		ts.tasks.GetFn = func(context.Context, uuid.UUID, uuid.UUID) (*domain.Task, error) { return task, nil }

		rec := ts.do(http.MethodGet, "/api/tasks/"+taskID.String(), "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("patch", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)
		ts.tasks.UpdateFn = func(_ context.Context, _, _ uuid.UUID, patch domain.TaskPatch) (*domain.Task, error) {
			require.NotNil(t, patch.Completed)
			updated := *task
			updated.Completed = *patch.Completed
			return &updated, nil
		}

		rec := ts.do(http.MethodPatch, "/api/tasks/"+taskID.String(), `{"completed":true}`)
		require.Equal(t, http.StatusOK, rec.Code)
		var got domain.Task
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.True(t, got.Completed)

		rec = ts.do(http.MethodPatch, "/api/tasks/"+taskID.String(), `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "empty patch")
	})

	t.Run("delete", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)
		ts.tasks.DeleteFn = func(context.Context, uuid.UUID, uuid.UUID) error { return nil }

		rec := ts.do(http.MethodDelete, "/api/tasks/"+taskID.String(), "")
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("updates", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)
		ts.tasks.AppendUpdateFn = func(_ context.Context, _ uuid.UUID, plan domain.Plan, id uuid.UUID, text string) (*domain.TaskUpdate, error) {
			assert.Equal(t, domain.PlanPro, plan)
			return domain.NewTaskUpdate(id, text)
		}
		ts.tasks.ListUpdatesFn = func(context.Context, uuid.UUID, uuid.UUID) ([]*domain.TaskUpdate, error) {
			return nil, nil
		}

		rec := ts.do(http.MethodPost, "/api/tasks/"+taskID.String()+"/updates", `{"text":"chapter 3"}`)
		assert.Equal(t, http.StatusCreated, rec.Code)

		rec = ts.do(http.MethodGet, "/api/tasks/"+taskID.String()+"/updates", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})

	t.Run("summary", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)
		jobID := uuid.New()
		ts.tasks.RequestSummaryFn = func(context.Context, uuid.UUID, domain.Plan, uuid.UUID) (uuid.UUID, error) {
			return jobID, nil
		}

		rec := ts.do(http.MethodPost, "/api/tasks/"+taskID.String()+"/summary", "")
		require.Equal(t, http.StatusAccepted, rec.Code)

		var resp shared.SummaryResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, jobID, resp.JobID)
		assert.Equal(t, "pending", resp.Status)
	})
}

func TestParseTask_ErrorKinds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
	}{
		{"rate limited", &retry.Error{Kind: retry.KindRateLimit, Retryable: true, Exhausted: true, Attempts: 4}, http.StatusTooManyRequests, "rate_limit"},
		{"timeout", &retry.Error{Kind: retry.KindTimeout, Retryable: true, Exhausted: true, Attempts: 4}, http.StatusGatewayTimeout, "timeout"},
		{"server", &retry.Error{Kind: retry.KindServer, Retryable: true, Attempts: 4}, http.StatusServiceUnavailable, "server"},
		{"network", &retry.Error{Kind: retry.KindNetwork, Retryable: true, Attempts: 4}, http.StatusServiceUnavailable, "network"},
		{"invalid input", &retry.Error{Kind: retry.KindInvalidInput, Attempts: 1}, http.StatusUnprocessableEntity, "invalid_input"},
		{"unknown", &retry.Error{Kind: retry.KindUnknown, Attempts: 1}, http.StatusBadGateway, "unknown"},
		{"quota", &quota.ExceededError{Feature: domain.FeatureAIParse, Plan: domain.PlanFree, Limit: 20}, http.StatusPaymentRequired, "quota_exceeded"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ts := newTestServer(t)
			ts.ai.ParseTaskFn = func(context.Context, uuid.UUID, domain.Plan, string, string) (*domain.TaskDraft, error) {
				return nil, tc.err
			}

			rec := ts.do(http.MethodPost, "/api/ai/parse", `{"text":"call mom tomorrow"}`)
			assert.Equal(t, tc.wantStatus, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, tc.wantKind, resp.Kind)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestParseTask_Success(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	ts.ai.ParseTaskFn = func(_ context.Context, _ uuid.UUID, _ domain.Plan, text, tz string) (*domain.TaskDraft, error) {
		assert.Equal(t, "Europe/Paris", tz)
		return &domain.TaskDraft{Title: "Call mom", DueDate: "2026-10-17", Priority: domain.PriorityMedium}, nil
	}

	rec := ts.do(http.MethodPost, "/api/ai/parse", `{"text":"call mom tomorrow","timezone":"Europe/Paris"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp shared.ParseTaskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Call mom", resp.Draft.Title)
}

func TestParseTask_ContentBlocked(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	ts.ai.ParseTaskFn = func(context.Context, uuid.UUID, domain.Plan, string, string) (*domain.TaskDraft, error) {
		return nil, &retry.Error{Kind: retry.KindInvalidInput, Attempts: 1, Err: generation.ErrContentBlocked}
	}

	rec := ts.do(http.MethodPost, "/api/ai/parse", `{"text":"something"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decodeError(t, rec).Error, "safety filters")
}

func TestUsage(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	period := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	ts.usage.UsageFn = func(_ context.Context, _ uuid.UUID, plan domain.Plan) (*quota.Report, error) {
		return &quota.Report{
			Plan:        plan,
			PeriodStart: period,
			Items: []quota.Item{
				{Feature: domain.FeatureSpaces, Used: 2, Limit: quota.Unlimited},
				{Feature: domain.FeatureAIParse, Used: 7, Limit: 500},
			},
		}, nil
	}

	rec := ts.do(http.MethodGet, "/api/usage", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp shared.UsageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, domain.PlanPro, resp.Plan)
	assert.True(t, period.Equal(resp.PeriodStart))
	require.Len(t, resp.Items, 2)
	assert.Equal(t, -1, resp.Items[0].Limit)
	assert.Equal(t, 7, resp.Items[1].Used)
}
