package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/smera-app/smera/internal/config"
	"github.com/smera-app/smera/internal/domain"
	"github.com/smera-app/smera/internal/generation"
	"github.com/smera-app/smera/internal/platform/logger"
	"github.com/smera-app/smera/internal/retry"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

const (
	parseTemplate   = "parse_task.tmpl"
	summaryTemplate = "summarize_task.tmpl"

	jsonMIMEType = "application/json"
	textMIMEType = "text/plain"
)

// contentGenerator is the part of the genai client the generator calls.
// *genai.Models satisfies it.
type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Generator parses task descriptions and summarizes tasks with Gemini.
type Generator struct {
	logger  *slog.Logger
	models  contentGenerator
	model   string
	exec    *retry.Executor
	limiter *rate.Limiter
}

var (
	_ generation.TaskParser = (*Generator)(nil)
	_ generation.Summarizer = (*Generator)(nil)
)

// NewGenerator creates a Generator backed by the Gemini API.
func NewGenerator(
	ctx context.Context,
	cfg config.LLMConfig,
	exec *retry.Executor,
	logger *slog.Logger,
) (*Generator, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return newGenerator(client.Models, cfg, exec, logger)
}

func newGenerator(
	models contentGenerator,
	cfg config.LLMConfig,
	exec *retry.Executor,
	log *slog.Logger,
) (*Generator, error) {
	if models == nil {
		return nil, fmt.Errorf("%w: models client cannot be nil", generation.ErrInvalidConfig)
	}
	if exec == nil {
		return nil, fmt.Errorf("%w: retry executor cannot be nil", generation.ErrInvalidConfig)
	}
	if log == nil {
		log = slog.Default()
	}

	return &Generator{
		logger:  log.With(slog.String("component", "gemini_generator")),
		models:  models,
		model:   cfg.ModelName,
		exec:    exec,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
	}, nil
}

func validateConfig(cfg config.LLMConfig) error {
	switch {
	case strings.TrimSpace(cfg.GeminiAPIKey) == "":
		return fmt.Errorf("%w: gemini API key is required", generation.ErrInvalidConfig)
	case strings.TrimSpace(cfg.ModelName) == "":
		return fmt.Errorf("%w: model name is required", generation.ErrInvalidConfig)
	case cfg.RequestsPerSecond <= 0:
		return fmt.Errorf("%w: requests per second must be positive", generation.ErrInvalidConfig)
	case cfg.Burst <= 0:
		return fmt.Errorf("%w: burst must be positive", generation.ErrInvalidConfig)
	}
	return nil
}

// ParseTask turns free text into a task draft. Relative dates in text are
// resolved against now in loc.
func (g *Generator) ParseTask(
	ctx context.Context,
	text string,
	now time.Time,
	loc *time.Location,
) (*domain.TaskDraft, error) {
	log := logger.FromContextOrDefault(ctx, g.logger)

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, generation.ErrEmptyInput
	}
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)

	prompt, err := renderPrompt(parseTemplate, parsePromptData{
		Text:     text,
		Today:    local.Format(domain.DueDateLayout),
		Weekday:  local.Weekday().String(),
		Now:      local.Format(domain.DueTimeLayout),
		Timezone: loc.String(),
	})
	if err != nil {
		return nil, err
	}

	raw, err := g.generate(ctx, "gemini.parse_task", prompt, jsonMIMEType)
	if err != nil {
		return nil, err
	}

	draft, err := decodeDraft(raw)
	if err != nil {
		log.Warn("model returned an unusable task",
			slog.Int("response_length", len(raw)),
			slog.String("error", err.Error()))
		return nil, invalidOutput(err)
	}

	log.Debug("parsed task description",
		slog.String("priority", string(draft.Priority)),
		slog.Bool("has_due_date", draft.DueDate != ""))
	return draft, nil
}

// SummarizeTask writes a short summary of a task and its progress notes.
func (g *Generator) SummarizeTask(
	ctx context.Context,
	task *domain.Task,
	updates []*domain.TaskUpdate,
) (string, error) {
	if task == nil {
		return "", generation.ErrEmptyInput
	}

	prompt, err := renderPrompt(summaryTemplate, summaryPromptData{Task: task, Updates: updates})
	if err != nil {
		return "", err
	}

	raw, err := g.generate(ctx, "gemini.summarize_task", prompt, textMIMEType)
	if err != nil {
		return "", err
	}

	summary := strings.TrimSpace(raw)
	if summary == "" {
		return "", invalidOutput(fmt.Errorf("%w: empty summary", generation.ErrInvalidResponse))
	}
	return summary, nil
}

// generate sends one prompt through the rate limiter and the retry executor
// and returns the concatenated text of the first candidate.
func (g *Generator) generate(ctx context.Context, label, prompt, mimeType string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0.2),
		ResponseMIMEType: mimeType,
	}

	return retry.Execute(ctx, g.exec, label, func(ctx context.Context) (string, error) {
		if err := g.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			// the wait would outlive the attempt deadline
			return "", retry.NewStatusError(http.StatusTooManyRequests, "client rate limit reached")
		}

		resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
		if err != nil {
			return "", mapAPIError(err)
		}
		return responseText(resp)
	})
}

// mapAPIError exposes the HTTP status of a Gemini API failure to the retry
// classifier. Other errors pass through unchanged.
func mapAPIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code > 0 {
		return fmt.Errorf("gemini: %w", retry.NewStatusError(apiErr.Code, apiErr.Message))
	}
	return err
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", invalidOutput(fmt.Errorf("%w: no response", generation.ErrInvalidResponse))
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", invalidOutput(fmt.Errorf("%w: prompt blocked (%s)",
			generation.ErrContentBlocked, resp.PromptFeedback.BlockReason))
	}
	if len(resp.Candidates) == 0 {
		return "", invalidOutput(fmt.Errorf("%w: no candidates", generation.ErrInvalidResponse))
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", invalidOutput(fmt.Errorf("%w: response stopped by safety filter", generation.ErrContentBlocked))
	}
	if candidate.Content == nil {
		return "", invalidOutput(fmt.Errorf("%w: empty candidate", generation.ErrInvalidResponse))
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", invalidOutput(fmt.Errorf("%w: empty text", generation.ErrInvalidResponse))
	}
	return sb.String(), nil
}

// decodeDraft reads the model's JSON into a normalized draft. Due fields the
// model got wrong are dropped rather than failing the whole parse.
func decodeDraft(raw string) (*domain.TaskDraft, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var parsed parsedTask
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %w", generation.ErrInvalidResponse, err)
	}

	draft := domain.TaskDraft{
		Title:       parsed.Title,
		Description: parsed.Description,
		DueDate:     parsed.DueDate,
		DueTime:     parsed.DueTime,
		Priority:    domain.NormalizePriority(parsed.Priority),
	}.Normalize()

	if _, err := time.Parse(domain.DueDateLayout, draft.DueDate); draft.DueDate != "" && err != nil {
		draft.DueDate = ""
	}
	if _, err := time.Parse(domain.DueTimeLayout, draft.DueTime); draft.DueTime != "" && err != nil {
		draft.DueTime = ""
	}
	if draft.DueDate == "" {
		draft.DueTime = ""
	}
	if runes := []rune(draft.Title); len(runes) > domain.MaxTaskTitleLength {
		draft.Title = strings.TrimSpace(string(runes[:domain.MaxTaskTitleLength]))
	}
	if runes := []rune(draft.Description); len(runes) > domain.MaxTaskDescriptionLength {
		draft.Description = string(runes[:domain.MaxTaskDescriptionLength])
	}

	if err := draft.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", generation.ErrInvalidResponse, err)
	}
	return &draft, nil
}

// invalidOutput marks err as a failure retrying cannot fix.
func invalidOutput(err error) error {
	return &retry.Error{
		Kind:     retry.KindInvalidInput,
		Message:  err.Error(),
		Attempts: 1,
		Err:      err,
	}
}
