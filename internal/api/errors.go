package api

import (
	"errors"
	"net/http"

	"github.com/ciscoittech/sp404mk2-sample-agent-sub000/internal/domain"
	"github.com/ciscoittech/sp404mk2-sample-agent-sub000/internal/orchestrator"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, domain.ErrBatchNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, orchestrator.ErrNotPending),
		errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, domain.ErrBatchNotFound):
		return "Batch not found"

	case errors.Is(err, orchestrator.ErrNotPending):
		return "Batch has already been run"

	case errors.Is(err, domain.ErrInvalidTransition):
		return "Batch is not in a state that allows this operation"

	case errors.Is(err, domain.ErrValidation):
		// Validation messages are produced by our own code and safe to show
		return err.Error()

	default:
		return "An unexpected error occurred"
	}
}
