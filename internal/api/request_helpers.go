package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/smera-app/smera/internal/api/shared"
	"github.com/smera-app/smera/internal/domain"
)

// caller is the authenticated user of a request.
type caller struct {
	userID uuid.UUID
	plan   domain.Plan
}

// requireCaller returns the authenticated user of r, writing a 401 response
// when the request was not authenticated.
func requireCaller(w http.ResponseWriter, r *http.Request) (caller, bool) {
	userID, ok := shared.UserFromContext(r.Context())
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return caller{}, false
	}
	return caller{userID: userID, plan: shared.PlanFromContext(r.Context())}, true
}

// getPathUUID extracts a UUID path parameter.
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	raw := chi.URLParam(r, paramName)
	if raw == "" {
		return uuid.Nil, domain.NewValidationError(paramName, "is required", domain.ErrValidation)
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.NewValidationError(paramName, "has invalid format", domain.ErrInvalidID)
	}
	return id, nil
}

// callerAndPathUUID combines requireCaller and getPathUUID, writing the error
// response when either fails.
func callerAndPathUUID(w http.ResponseWriter, r *http.Request, paramName string) (caller, uuid.UUID, bool) {
	c, ok := requireCaller(w, r)
	if !ok {
		return caller{}, uuid.Nil, false
	}

	id, err := getPathUUID(r, paramName)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return caller{}, uuid.Nil, false
	}
	return c, id, true
}

// decodeAndValidate decodes the JSON body into v and validates it, writing
// a 400 response on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := shared.DecodeJSON(r, v); err != nil {
		if err == shared.ErrEmptyBody {
			HandleAPIError(w, r, err, "")
			return false
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return false
	}
	if err := shared.ValidateRequest(v); err != nil {
		HandleAPIError(w, r, err, "")
		return false
	}
	return true
}
