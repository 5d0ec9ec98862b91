package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/smera-app/smera/internal/domain"
	"github.com/smera-app/smera/internal/generation"
	"github.com/smera-app/smera/internal/platform/logger"
	"github.com/smera-app/smera/internal/redact"
)

// AIService exposes the AI collaborator to users, charging their quota.
type AIService interface {
	// ParseTask turns free text into a task draft. timezone is an IANA
	// name used to resolve relative dates; empty means UTC.
	ParseTask(ctx context.Context, userID uuid.UUID, plan domain.Plan, text, timezone string) (*domain.TaskDraft, error)
}

type aiService struct {
	parser generation.TaskParser
	quota  MeteredQuota
	now    func() time.Time
	logger *slog.Logger
}

var _ AIService = (*aiService)(nil)

// NewAIService creates an AIService.
func NewAIService(parser generation.TaskParser, quota MeteredQuota, logger *slog.Logger) (AIService, error) {
	switch {
	case parser == nil:
		return nil, nilDependency("parser")
	case quota == nil:
		return nil, nilDependency("quota")
	case logger == nil:
		return nil, nilDependency("logger")
	}
	return &aiService{
		parser: parser,
		quota:  quota,
		now:    time.Now,
		logger: logger.With(slog.String("component", "ai_service")),
	}, nil
}

func (s *aiService) ParseTask(
	ctx context.Context,
	userID uuid.UUID,
	plan domain.Plan,
	text, timezone string,
) (*domain.TaskDraft, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	loc := time.UTC
	if timezone != "" {
		l, err := time.LoadLocation(timezone)
		if err != nil {
			return nil, domain.NewValidationError("timezone", "is not a known time zone", domain.ErrInvalidFormat)
		}
		loc = l
	}

	if err := s.quota.Consume(ctx, userID, plan, domain.FeatureAIParse); err != nil {
		return nil, err
	}

	draft, err := s.parser.ParseTask(ctx, text, s.now(), loc)
	if err != nil {
		// nothing was produced, so the use is not charged
		if relErr := s.quota.Release(context.WithoutCancel(ctx), userID, domain.FeatureAIParse); relErr != nil {
			log.Error("failed to release parse quota", redact.Attr("error", relErr))
		}
		return nil, err
	}

	log.Debug("task parsed", slog.String("user_id", userID.String()))
	return draft, nil
}
