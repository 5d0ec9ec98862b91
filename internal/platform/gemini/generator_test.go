package gemini

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/smera-app/smera/internal/config"
	"github.com/smera-app/smera/internal/domain"
	"github.com/smera-app/smera/internal/generation"
	"github.com/smera-app/smera/internal/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

// fakeModels replays canned responses and records the prompts it saw.
type fakeModels struct {
	mu        sync.Mutex
	responses []fakeResponse
	prompts   []string
	configs   []*genai.GenerateContentConfig
}

type fakeResponse struct {
	resp *genai.GenerateContentResponse
	err  error
}

func (f *fakeModels) GenerateContent(
	ctx context.Context,
	model string,
	contents []*genai.Content,
	cfg *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, c := range contents {
		for _, p := range c.Parts {
			f.prompts = append(f.prompts, p.Text)
		}
	}
	f.configs = append(f.configs, cfg)

	if len(f.responses) == 0 {
		return nil, errors.New("fakeModels: no response queued")
	}
	next := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return next.resp, next.err
}

func (f *fakeModels) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.configs)
}

func textResponse(text string) fakeResponse {
	return fakeResponse{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      &genai.Content{Parts: []*genai.Part{{Text: text}}},
			FinishReason: genai.FinishReasonStop,
		}},
	}}
}

func testConfig() config.LLMConfig {
	return config.LLMConfig{
		GeminiAPIKey:      "test-key",
		ModelName:         "gemini-test",
		RequestsPerSecond: 1000,
		Burst:             10,
	}
}

func newTestGenerator(t *testing.T, models *fakeModels) *Generator {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	exec := retry.NewExecutor(retry.Config{
		MaxRetries:   2,
		InitialDelay: time.Millisecond,
		Multiplier:   2,
		MaxDelay:     2 * time.Millisecond,
		Timeout:      time.Second,
	}, logger)

	g, err := newGenerator(models, testConfig(), exec, logger)
	require.NoError(t, err)
	return g
}

func TestValidateConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.LLMConfig)
	}{
		{"missing key", func(c *config.LLMConfig) { c.GeminiAPIKey = " " }},
		{"missing model", func(c *config.LLMConfig) { c.ModelName = "" }},
		{"zero rate", func(c *config.LLMConfig) { c.RequestsPerSecond = 0 }},
		{"zero burst", func(c *config.LLMConfig) { c.Burst = 0 }},
	}

	require.NoError(t, validateConfig(testConfig()))
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := testConfig()
			tc.mutate(&cfg)
			assert.ErrorIs(t, validateConfig(cfg), generation.ErrInvalidConfig)
		})
	}
}

func TestNewGenerator_InvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := NewGenerator(context.Background(), config.LLMConfig{}, nil, nil)
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)

	_, err = newGenerator(&fakeModels{}, testConfig(), nil, nil)
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)
}

func TestParseTask_Success(t *testing.T) {
	t.Parallel()

	models := &fakeModels{responses: []fakeResponse{textResponse(`{
		"title": "  Call the dentist ",
		"description": "ask about Friday",
		"due_date": "2026-03-06",
		"due_time": "09:30",
		"priority": "HIGH"
	}`)}}
	g := newTestGenerator(t, models)

	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	now := time.Date(2026, 3, 4, 23, 30, 0, 0, time.UTC)

	draft, err := g.ParseTask(context.Background(), "call dentist friday 9:30, important", now, loc)
	require.NoError(t, err)

	assert.Equal(t, "Call the dentist", draft.Title)
	assert.Equal(t, "ask about Friday", draft.Description)
	assert.Equal(t, "2026-03-06", draft.DueDate)
	assert.Equal(t, "09:30", draft.DueTime)
	assert.Equal(t, domain.PriorityHigh, draft.Priority)

	require.Len(t, models.prompts, 1)
	prompt := models.prompts[0]
	assert.Contains(t, prompt, "call dentist friday 9:30, important")
	assert.Contains(t, prompt, "2026-03-05", "date is resolved in the caller's zone")
	assert.Contains(t, prompt, "Thursday")
	assert.Contains(t, prompt, "Europe/Berlin")
	assert.Equal(t, jsonMIMEType, models.configs[0].ResponseMIMEType)
}

func TestParseTask_NormalizesSloppyOutput(t *testing.T) {
	t.Parallel()

	models := &fakeModels{responses: []fakeResponse{textResponse("```json\n" + `{
		"title": "Water plants",
		"due_date": "next tuesday",
		"due_time": "18:00",
		"priority": "whenever"
	}` + "\n```")}}
	g := newTestGenerator(t, models)

	draft, err := g.ParseTask(context.Background(), "water plants", time.Now(), nil)
	require.NoError(t, err)

	assert.Equal(t, "Water plants", draft.Title)
	assert.Empty(t, draft.DueDate, "unparsable date is dropped")
	assert.Empty(t, draft.DueTime, "time without a date is dropped")
	assert.Equal(t, domain.PriorityMedium, draft.Priority)
}

func TestParseTask_EmptyInput(t *testing.T) {
	t.Parallel()

	models := &fakeModels{}
	g := newTestGenerator(t, models)

	_, err := g.ParseTask(context.Background(), "   ", time.Now(), time.UTC)
	assert.ErrorIs(t, err, generation.ErrEmptyInput)
	assert.Zero(t, models.calls())
}

func TestParseTask_InvalidJSONIsNotRetried(t *testing.T) {
	t.Parallel()

	models := &fakeModels{responses: []fakeResponse{textResponse("Sure! Here is your task.")}}
	g := newTestGenerator(t, models)

	_, err := g.ParseTask(context.Background(), "buy milk", time.Now(), time.UTC)
	require.Error(t, err)
	assert.ErrorIs(t, err, generation.ErrInvalidResponse)
	assert.Equal(t, retry.KindInvalidInput, retry.KindOf(err))
	assert.Equal(t, 1, models.calls())
}

func TestParseTask_MissingTitle(t *testing.T) {
	t.Parallel()

	models := &fakeModels{responses: []fakeResponse{textResponse(`{"title": "", "priority": "low"}`)}}
	g := newTestGenerator(t, models)

	_, err := g.ParseTask(context.Background(), "???", time.Now(), time.UTC)
	assert.ErrorIs(t, err, generation.ErrInvalidResponse)
}

func TestGenerate_RetriesAPIErrors(t *testing.T) {
	t.Parallel()

	models := &fakeModels{responses: []fakeResponse{
		{err: genai.APIError{Code: http.StatusTooManyRequests, Message: "quota", Status: "RESOURCE_EXHAUSTED"}},
		{err: genai.APIError{Code: http.StatusServiceUnavailable, Message: "overloaded", Status: "UNAVAILABLE"}},
		textResponse("Waiting on the landlord to confirm the date."),
	}}
	g := newTestGenerator(t, models)

	task := &domain.Task{ID: uuid.New(), Title: "Move out", Priority: domain.PriorityHigh}
	summary, err := g.SummarizeTask(context.Background(), task, nil)

	require.NoError(t, err)
	assert.Equal(t, "Waiting on the landlord to confirm the date.", summary)
	assert.Equal(t, 3, models.calls())
}

func TestGenerate_ExhaustsRetries(t *testing.T) {
	t.Parallel()

	models := &fakeModels{responses: []fakeResponse{
		{err: genai.APIError{Code: http.StatusInternalServerError, Message: "internal"}},
	}}
	g := newTestGenerator(t, models)

	_, err := g.SummarizeTask(context.Background(), &domain.Task{Title: "x"}, nil)

	rerr, ok := retry.AsError(err)
	require.True(t, ok)
	assert.Equal(t, retry.KindServer, rerr.Kind)
	assert.True(t, rerr.Exhausted)
	assert.Equal(t, 3, rerr.Attempts)
}

func TestGenerate_BadRequestIsNotRetried(t *testing.T) {
	t.Parallel()

	models := &fakeModels{responses: []fakeResponse{
		{err: genai.APIError{Code: http.StatusBadRequest, Message: "API key not valid"}},
	}}
	g := newTestGenerator(t, models)

	_, err := g.SummarizeTask(context.Background(), &domain.Task{Title: "x"}, nil)
	assert.Equal(t, retry.KindInvalidInput, retry.KindOf(err))
	assert.Equal(t, 1, models.calls())
}

func TestResponseText_Blocked(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
		want error
	}{
		{
			name: "prompt blocked",
			resp: &genai.GenerateContentResponse{
				PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: genai.BlockedReasonSafety},
			},
			want: generation.ErrContentBlocked,
		},
		{
			name: "candidate stopped for safety",
			resp: &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}},
			},
			want: generation.ErrContentBlocked,
		},
		{
			name: "no candidates",
			resp: &genai.GenerateContentResponse{},
			want: generation.ErrInvalidResponse,
		},
		{
			name: "nil response",
			resp: nil,
			want: generation.ErrInvalidResponse,
		},
		{
			name: "blank text",
			resp: textResponse("  ").resp,
			want: generation.ErrInvalidResponse,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := responseText(tc.resp)
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, retry.KindInvalidInput, retry.KindOf(err))
		})
	}
}

func TestSummarizeTask_PromptIncludesUpdates(t *testing.T) {
	t.Parallel()

	models := &fakeModels{responses: []fakeResponse{textResponse("Two of three rooms painted.")}}
	g := newTestGenerator(t, models)

	task := &domain.Task{
		ID:       uuid.New(),
		Title:    "Paint the flat",
		DueDate:  "2026-05-01",
		Priority: domain.PriorityMedium,
	}
	updates := []*domain.TaskUpdate{
		{ID: uuid.New(), TaskID: task.ID, Text: "bought paint", CreatedAt: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)},
		{ID: uuid.New(), TaskID: task.ID, Text: "kitchen done", CreatedAt: time.Date(2026, 4, 3, 0, 0, 0, 0, time.UTC)},
	}

	summary, err := g.SummarizeTask(context.Background(), task, updates)
	require.NoError(t, err)
	assert.Equal(t, "Two of three rooms painted.", summary)

	prompt := models.prompts[0]
	assert.Contains(t, prompt, "Paint the flat")
	assert.Contains(t, prompt, "Due: 2026-05-01")
	assert.Contains(t, prompt, "2026-04-01: bought paint")
	assert.Contains(t, prompt, "2026-04-03: kitchen done")
	assert.Equal(t, textMIMEType, models.configs[0].ResponseMIMEType)
}

func TestMapAPIError(t *testing.T) {
	t.Parallel()

	err := mapAPIError(genai.APIError{Code: http.StatusTooManyRequests, Message: "slow down"})
	var status *retry.StatusError
	require.ErrorAs(t, err, &status)
	assert.Equal(t, http.StatusTooManyRequests, status.StatusCode)

	plain := errors.New("dial tcp: connection refused")
	assert.Same(t, plain, mapAPIError(plain))
}
