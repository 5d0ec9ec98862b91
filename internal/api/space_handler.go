package api

import (
	"log/slog"
	"net/http"

	"github.com/smera-app/smera/internal/api/shared"
	"github.com/smera-app/smera/internal/domain"
	"github.com/smera-app/smera/internal/platform/logger"
	"github.com/smera-app/smera/internal/service"
)

// SpaceHandler handles space-related HTTP requests
type SpaceHandler struct {
	spaces service.SpaceService
	logger *slog.Logger
}

// NewSpaceHandler creates a new SpaceHandler
func NewSpaceHandler(spaces service.SpaceService, logger *slog.Logger) *SpaceHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for SpaceHandler")
	}
	return &SpaceHandler{
		spaces: spaces,
		logger: logger.With(slog.String("component", "space_handler")),
	}
}

// CreateSpace handles POST /api/spaces
func (h *SpaceHandler) CreateSpace(w http.ResponseWriter, r *http.Request) {
	c, ok := requireCaller(w, r)
	if !ok {
		return
	}

	var req shared.CreateSpaceRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	space, err := h.spaces.Create(r.Context(), c.userID, c.plan, req.Name)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create space")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Debug("space created",
		slog.String("space_id", space.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, space)
}

// ListSpaces handles GET /api/spaces
func (h *SpaceHandler) ListSpaces(w http.ResponseWriter, r *http.Request) {
	c, ok := requireCaller(w, r)
	if !ok {
		return
	}

	spaces, err := h.spaces.List(r.Context(), c.userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list spaces")
		return
	}
	if spaces == nil {
		spaces = []*domain.Space{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, spaces)
}
