package service

import (
	"errors"
	"fmt"

	"github.com/parlohq/parlo-api/internal/domain/quota"
)

// Common service errors - sentinel errors used across service implementations.
// These errors represent conditions callers check for with errors.Is().
//
// Error handling principles:
// 1. Service methods return sentinel errors for expected error conditions
// 2. Unexpected errors are wrapped in service-specific error types
// 3. Callers use errors.Is/errors.As to check for specific error conditions
// 4. The API layer maps service errors to appropriate HTTP status codes
var (
	// ErrNotOwned indicates a resource is owned by a different user than the
	// one making the request. The API layer maps this to HTTP 403 Forbidden.
	ErrNotOwned = errors.New("resource is owned by another user")

	// ErrQuotaExhausted indicates the quota gate denied a metered action.
	// The concrete error is always a *QuotaExhaustedError; the API layer
	// maps it to HTTP 429 with the quota envelope.
	ErrQuotaExhausted = errors.New("quota exhausted")

	// ErrSessionCompleted indicates a write against a study session that has
	// already been closed. The API layer maps this to HTTP 409 Conflict.
	ErrSessionCompleted = errors.New("study session already completed")

	// ErrGenerationInProgress indicates a generation request for a topic
	// that already has one pending or processing. Maps to HTTP 409 Conflict.
	ErrGenerationInProgress = errors.New("generation already in progress")
)

// QuotaExhaustedError carries everything a deny response needs: the action
// type that was blocked, the gate state the countdown renders from, and the
// plan the user was on when the limit hit.
type QuotaExhaustedError struct {
	Type     quota.Type
	State    quota.State
	PlanType string
}

// Error implements the error interface for QuotaExhaustedError.
func (e *QuotaExhaustedError) Error() string {
	return fmt.Sprintf("%s quota exhausted on %s plan", e.Type, e.PlanType)
}

// Unwrap returns ErrQuotaExhausted so errors.Is matches the sentinel.
func (e *QuotaExhaustedError) Unwrap() error {
	return ErrQuotaExhausted
}
