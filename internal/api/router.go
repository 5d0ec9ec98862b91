package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/smera-app/smera/internal/api/middleware"
	"github.com/smera-app/smera/internal/api/shared"
	"github.com/smera-app/smera/internal/service"
)

// Services are the application services the router exposes.
type Services struct {
	Spaces service.SpaceService
	Tasks  service.TaskService
	AI     service.AIService
	Usage  service.UsageService
}

// NewRouter creates the HTTP handler of the API.
func NewRouter(svcs Services, tokens middleware.TokenValidator, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewTraceMiddleware(logger))

	spaceHandler := NewSpaceHandler(svcs.Spaces, logger)
	taskHandler := NewTaskHandler(svcs.Tasks, logger)
	aiHandler := NewAIHandler(svcs.AI, logger)
	usageHandler := NewUsageHandler(svcs.Usage, logger)
	authMiddleware := middleware.NewAuthMiddleware(tokens)

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Post("/spaces", spaceHandler.CreateSpace)
		r.Get("/spaces", spaceHandler.ListSpaces)
		r.Get("/spaces/{spaceID}/tasks", taskHandler.ListTasks)
		r.Post("/spaces/{spaceID}/tasks", taskHandler.CreateTask)

		r.Get("/tasks/{id}", taskHandler.GetTask)
		r.Patch("/tasks/{id}", taskHandler.UpdateTask)
		r.Delete("/tasks/{id}", taskHandler.DeleteTask)
		r.Get("/tasks/{id}/updates", taskHandler.ListUpdates)
		r.Post("/tasks/{id}/updates", taskHandler.AppendUpdate)
		r.Post("/tasks/{id}/summary", taskHandler.RequestSummary)

		r.Post("/ai/parse", aiHandler.ParseTask)
		r.Get("/usage", usageHandler.GetUsage)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
