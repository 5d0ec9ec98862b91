package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/smera-app/smera/internal/api/shared"
	"github.com/smera-app/smera/internal/domain"
	"github.com/smera-app/smera/internal/generation"
	"github.com/smera-app/smera/internal/quota"
	"github.com/smera-app/smera/internal/retry"
	"github.com/smera-app/smera/internal/service"
	"github.com/smera-app/smera/internal/service/auth"
	"github.com/smera-app/smera/internal/store"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// leaking their types to clients.
func MapErrorToStatusCode(err error) int {
	if rerr, ok := retry.AsError(err); ok {
		return statusForKind(rerr.Kind)
	}

	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized

	case errors.Is(err, quota.ErrQuotaExceeded):
		return http.StatusPaymentRequired

	// resources of other users look missing
	case errors.Is(err, service.ErrNotOwned),
		errors.Is(err, service.ErrSpaceNotFound),
		errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidFormat),
		errors.Is(err, shared.ErrEmptyBody),
		errors.Is(err, generation.ErrEmptyInput),
		errors.Is(err, store.ErrInvalidEntity),
		isValidatorError(err):
		return http.StatusBadRequest

	case errors.Is(err, retry.ErrCanceled):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// statusForKind maps a classified AI failure to a status.
func statusForKind(kind retry.Kind) int {
	switch kind {
	case retry.KindRateLimit:
		return http.StatusTooManyRequests
	case retry.KindTimeout:
		return http.StatusGatewayTimeout
	case retry.KindServer, retry.KindNetwork:
		return http.StatusServiceUnavailable
	case retry.KindInvalidInput:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

// GetSafeErrorMessage returns a user-facing message for err.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	if rerr, ok := retry.AsError(err); ok {
		if errors.Is(err, generation.ErrContentBlocked) {
			return "The request was blocked by the AI provider's safety filters."
		}
		return rerr.UserMessage()
	}

	var exceeded *quota.ExceededError
	if errors.As(err, &exceeded) {
		return quotaMessage(exceeded)
	}

	var verr *domain.ValidationError
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrTokenNotYetValid):
		return "Invalid token"
	case errors.Is(err, domain.ErrUnauthorized):
		return "Authentication required"
	case errors.Is(err, quota.ErrQuotaExceeded):
		return "Plan limit reached"
	case errors.Is(err, service.ErrNotOwned), errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, store.ErrTaskNotFound):
		return "Task not found"
	case errors.Is(err, service.ErrSpaceNotFound), errors.Is(err, store.ErrSpaceNotFound):
		return "Space not found"
	case errors.Is(err, store.ErrNotFound):
		return "Resource not found"
	case errors.Is(err, store.ErrDuplicate):
		return "Resource already exists"
	case errors.Is(err, shared.ErrEmptyBody):
		return "Request body is required"
	case errors.Is(err, generation.ErrEmptyInput):
		return "Text is required"
	case errors.As(err, &verr):
		return sanitizeDomainValidation(verr)
	case isValidatorError(err):
		return SanitizeValidationError(err)
	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid ID"
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidFormat),
		errors.Is(err, store.ErrInvalidEntity):
		return "Validation error"
	case errors.Is(err, retry.ErrCanceled):
		return "The request was canceled"
	default:
		return "An unexpected error occurred"
	}
}

// ErrorKind returns the failure classification to expose in the error
// envelope, or "" when err was not classified.
func ErrorKind(err error) string {
	if rerr, ok := retry.AsError(err); ok {
		return string(rerr.Kind)
	}
	if errors.Is(err, quota.ErrQuotaExceeded) {
		return "quota_exceeded"
	}
	return ""
}

func quotaMessage(e *quota.ExceededError) string {
	switch e.Feature {
	case domain.FeatureSpaces:
		return fmt.Sprintf("Your %s plan allows %d spaces. Upgrade to create more.", e.Plan, e.Limit)
	case domain.FeatureAIParse:
		return fmt.Sprintf("Your %s plan allows %d AI task parses per month. Upgrade for more.", e.Plan, e.Limit)
	case domain.FeatureAISummary:
		return fmt.Sprintf("Your %s plan allows %d AI summaries per month. Upgrade for more.", e.Plan, e.Limit)
	default:
		return fmt.Sprintf("Your %s plan limit for %s is reached.", e.Plan, e.Feature)
	}
}

// sanitizeDomainValidation returns the message of a domain validation error.
// Domain messages are written for users and carry no internal detail.
func sanitizeDomainValidation(verr *domain.ValidationError) string {
	msg := verr.Error()
	if msg == "" {
		return "Validation error"
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

func isValidatorError(err error) bool {
	var verrs validator.ValidationErrors
	return errors.As(err, &verrs)
}

// SanitizeValidationError turns validator errors into a short message naming
// the first failing field.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Validation error"
	}

	fe := verrs[0]
	return fmt.Sprintf("Invalid %s: %s", jsonFieldName(fe.Field()), getValidationTagMessage(fe.Tag()))
}

// jsonFieldName converts a Go field name like DueDate to due_date.
func jsonFieldName(field string) string {
	var b strings.Builder
	for i, r := range field {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	case "datetime":
		return "invalid format"
	case "timezone":
		return "unknown time zone"
	default:
		return "validation failed"
	}
}

// HandleAPIError writes the response for err. defaultMsg replaces the
// generic message of unexpected errors when it is not empty.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, defaultMsg string) {
	status := MapErrorToStatusCode(err)
	msg := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && defaultMsg != "" {
		msg = defaultMsg
	}

	var opts []shared.ResponseOption
	if kind := ErrorKind(err); kind != "" {
		opts = append(opts, shared.WithKind(kind))
	}
	if status == http.StatusPaymentRequired {
		opts = append(opts, shared.WithElevatedLogLevel())
	}

	shared.RespondWithErrorAndLog(w, r, status, msg, err, opts...)
}
