package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ciscoittech/sp404mk2-sample-agent-sub000/internal/domain"
	"github.com/ciscoittech/sp404mk2-sample-agent-sub000/internal/orchestrator"
)

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"batch not found", domain.ErrBatchNotFound, http.StatusNotFound},
		{"wrapped batch not found",
			fmt.Errorf("lookup: %w", domain.ErrBatchNotFound), http.StatusNotFound},
		{"not pending", orchestrator.ErrNotPending, http.StatusConflict},
		{"invalid transition", domain.ErrInvalidTransition, http.StatusConflict},
		{"validation", domain.ErrValidation, http.StatusBadRequest},
		{"wrapped validation",
			fmt.Errorf("%w: bad source dir", domain.ErrValidation), http.StatusBadRequest},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError},
		{"nil error", nil, http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, MapErrorToStatusCode(tc.err))
		})
	}
}

func TestGetSafeErrorMessage(t *testing.T) {
	t.Run("known errors map to friendly messages", func(t *testing.T) {
		assert.Equal(t, "Batch not found", GetSafeErrorMessage(domain.ErrBatchNotFound))
		assert.Equal(t, "Batch has already been run",
			GetSafeErrorMessage(orchestrator.ErrNotPending))
	})

	t.Run("validation errors keep their message", func(t *testing.T) {
		err := fmt.Errorf("%w: source directory /x is not readable", domain.ErrValidation)
		assert.Contains(t, GetSafeErrorMessage(err), "not readable")
	})

	t.Run("unknown errors are not leaked", func(t *testing.T) {
		err := errors.New("pq: password authentication failed")
		msg := GetSafeErrorMessage(err)
		assert.Equal(t, "An unexpected error occurred", msg)
	})

	t.Run("nil error", func(t *testing.T) {
		assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(nil))
	})
}
