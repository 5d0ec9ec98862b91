package job

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/smera-app/smera/internal/generation"
)

// ErrUnknownJobType is returned when a record has a type no factory handles.
var ErrUnknownJobType = errors.New("unknown job type")

// Factory creates jobs with their dependencies wired in.
type Factory struct {
	tasks      TaskRepository
	summarizer generation.Summarizer
	quota      QuotaEnforcer
	logger     *slog.Logger
}

// NewFactory creates a Factory.
func NewFactory(
	tasks TaskRepository,
	summarizer generation.Summarizer,
	quota QuotaEnforcer,
	logger *slog.Logger,
) *Factory {
	return &Factory{
		tasks:      tasks,
		summarizer: summarizer,
		quota:      quota,
		logger:     logger,
	}
}

// NewSummaryJob creates a summary job for payload.
func (f *Factory) NewSummaryJob(payload SummaryPayload) (*SummaryJob, error) {
	return NewSummaryJob(payload, f.tasks, f.summarizer, f.quota, f.logger)
}

// Rebuild implements Builder. The rebuilt job keeps the record's ID.
func (f *Factory) Rebuild(rec Record) (Job, error) {
	switch rec.Type {
	case TypeSummary:
		var payload SummaryPayload
		if err := json.Unmarshal(rec.Payload, &payload); err != nil {
			return nil, fmt.Errorf("invalid %s payload: %w", rec.Type, err)
		}
		j, err := f.NewSummaryJob(payload)
		if err != nil {
			return nil, err
		}
		j.id = rec.ID
		return j, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownJobType, rec.Type)
	}
}
