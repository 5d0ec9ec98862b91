package api

import (
	"log/slog"
	"net/http"

	"github.com/smera-app/smera/internal/api/shared"
	"github.com/smera-app/smera/internal/service"
)

// UsageHandler reports plan usage.
type UsageHandler struct {
	usage  service.UsageService
	logger *slog.Logger
}

// NewUsageHandler creates a new UsageHandler
func NewUsageHandler(usage service.UsageService, logger *slog.Logger) *UsageHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for UsageHandler")
	}
	return &UsageHandler{
		usage:  usage,
		logger: logger.With(slog.String("component", "usage_handler")),
	}
}

// GetUsage handles GET /api/usage
func (h *UsageHandler) GetUsage(w http.ResponseWriter, r *http.Request) {
	c, ok := requireCaller(w, r)
	if !ok {
		return
	}

	report, err := h.usage.Usage(r.Context(), c.userID, c.plan)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load usage")
		return
	}

	resp := shared.UsageResponse{
		Plan:        report.Plan,
		PeriodStart: report.PeriodStart,
		Items:       make([]shared.UsageItem, 0, len(report.Items)),
	}
	for _, item := range report.Items {
		resp.Items = append(resp.Items, shared.UsageItem{
			Feature: item.Feature,
			Used:    item.Used,
			Limit:   item.Limit,
		})
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}
