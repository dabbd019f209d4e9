package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/parlohq/parlo-api/internal/api/shared"
	"github.com/parlohq/parlo-api/internal/domain"
	"github.com/parlohq/parlo-api/internal/domain/quota"
	"github.com/parlohq/parlo-api/internal/platform/logger"
	"github.com/parlohq/parlo-api/internal/service"
	"github.com/parlohq/parlo-api/internal/service/auth"
	"github.com/parlohq/parlo-api/internal/service/subscription"
	"github.com/parlohq/parlo-api/internal/store"
)

// QuotaExhaustedResponse is the 429 envelope for gated endpoints. The
// blocking prompt renders directly from these fields.
type QuotaExhaustedResponse struct {
	Error          string     `json:"error"`
	QuotaType      quota.Type `json:"quota_type"`
	TimeUntilReset string     `json:"time_until_reset"`
	PlanType       string     `json:"plan_type"`
	TraceID        string     `json:"trace_id,omitempty"`
}

// MapErrorToStatusCode maps internal errors to HTTP status codes so
// handlers never leak internal error types to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, service.ErrNotOwned):
		return http.StatusForbidden

	// Not found errors (covers every entity sentinel wrapping ErrNotFound)
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, store.ErrEmailExists),
		errors.Is(err, service.ErrSessionCompleted),
		errors.Is(err, service.ErrGenerationInProgress):
		return http.StatusConflict

	// Plan-change requests naming an undefined plan
	case errors.Is(err, subscription.ErrUnknownPlan):
		return http.StatusUnprocessableEntity

	// Quota denials carry their own envelope; the status is still useful
	// for callers that only map codes.
	case errors.Is(err, service.ErrQuotaExhausted):
		return http.StatusTooManyRequests

	// Bad request errors
	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-facing message for the
// error. Internal details stay in the logs.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return "Invalid token"

	case errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid refresh token"

	case errors.Is(err, domain.ErrUnauthorized):
		return "Unauthorized"

	case errors.Is(err, service.ErrNotOwned):
		return "You do not own this resource"

	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"

	case errors.Is(err, store.ErrTopicNotFound):
		return "Topic not found"

	case errors.Is(err, store.ErrCardNotFound):
		return "Card not found"

	case errors.Is(err, store.ErrSessionNotFound):
		return "Study session not found"

	case errors.Is(err, store.ErrNotFound):
		return "Not found"

	case errors.Is(err, store.ErrEmailExists):
		return "Email already exists"

	case errors.Is(err, service.ErrSessionCompleted):
		return "Study session already completed"

	case errors.Is(err, service.ErrGenerationInProgress):
		return "Generation already in progress for this topic"

	case errors.Is(err, subscription.ErrUnknownPlan):
		return "Unknown plan type"

	case errors.Is(err, service.ErrQuotaExhausted):
		return "quota exhausted"

	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation):
		return "Invalid request data"

	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid identifier"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError maps an error to its status code and safe message and
// writes the response. Quota denials get the dedicated 429 envelope; pass
// fallbackMessage to override the generic 500 text.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallbackMessage string) {
	var quotaErr *service.QuotaExhaustedError
	if errors.As(err, &quotaErr) {
		RespondQuotaExhausted(w, r, quotaErr)
		return
	}

	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallbackMessage != "" {
		message = fallbackMessage
	}

	shared.RespondWithErrorAndLog(w, r, status, message, err)
}

// RespondQuotaExhausted writes the 429 quota envelope for a denied gated
// action and logs the denial at WARN.
func RespondQuotaExhausted(w http.ResponseWriter, r *http.Request, quotaErr *service.QuotaExhaustedError) {
	traceID := shared.GetTraceID(r.Context())

	log := logger.FromContextOrDefault(r.Context(), slog.Default())
	log.Warn("quota exhausted",
		slog.String("trace_id", traceID),
		slog.String("path", r.URL.Path),
		slog.String("method", r.Method),
		slog.String("quota_type", string(quotaErr.Type)),
		slog.String("plan_type", quotaErr.PlanType),
		slog.String("time_until_reset", quotaErr.State.TimeUntilReset))

	shared.RespondWithJSON(w, r, http.StatusTooManyRequests, QuotaExhaustedResponse{
		Error:          "quota exhausted",
		QuotaType:      quotaErr.Type,
		TimeUntilReset: quotaErr.State.TimeUntilReset,
		PlanType:       quotaErr.PlanType,
		TraceID:        traceID,
	})
}

// SanitizeValidationError converts validator errors into a user-friendly
// message without echoing submitted values back.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	if strings.Contains(errMsg, "Field validation") {
		// Example: "Key: 'LoginRequest.Email' Error:Field validation for
		// 'Email' failed on the 'required' tag"
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}
				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, validationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

func validationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "email":
		return "invalid email format"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	case "uuid":
		return "invalid identifier"
	default:
		return "validation failed"
	}
}
