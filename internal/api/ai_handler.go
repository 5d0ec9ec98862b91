package api

import (
	"log/slog"
	"net/http"

	"github.com/smera-app/smera/internal/api/shared"
	"github.com/smera-app/smera/internal/service"
)

// AIHandler handles the AI endpoints.
type AIHandler struct {
	ai     service.AIService
	logger *slog.Logger
}

// NewAIHandler creates a new AIHandler
func NewAIHandler(ai service.AIService, logger *slog.Logger) *AIHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for AIHandler")
	}
	return &AIHandler{
		ai:     ai,
		logger: logger.With(slog.String("component", "ai_handler")),
	}
}

// ParseTask handles POST /api/ai/parse
func (h *AIHandler) ParseTask(w http.ResponseWriter, r *http.Request) {
	c, ok := requireCaller(w, r)
	if !ok {
		return
	}

	var req shared.ParseTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	draft, err := h.ai.ParseTask(r.Context(), c.userID, c.plan, req.Text, req.Timezone)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to parse task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, shared.ParseTaskResponse{Draft: *draft})
}
