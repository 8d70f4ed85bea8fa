package shared

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondWithJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)

	RespondWithJSON(rec, req, http.StatusOK, map[string]string{"hello": "world"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "world", body["hello"])
}

func TestRespondWithError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req = req.WithContext(SetTraceID(req.Context()))

	RespondWithError(rec, req, http.StatusNotFound, "Batch not found")

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Batch not found", body.Error)
	assert.NotEmpty(t, body.TraceID, "Expected trace ID to be included in error response")
}

func TestRespondWithErrorAndLogHidesInternalError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)

	internalErr := errors.New("dial tcp: connection refused to secret-host:5432")
	RespondWithErrorAndLog(rec, req, http.StatusInternalServerError,
		"An unexpected error occurred", internalErr)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret-host",
		"Expected internal error details to be kept out of the response body")

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "An unexpected error occurred", body.Error)
}

func TestValidateRequestUsesCustomValidate(t *testing.T) {
	custom := customValidated{err: errors.New("custom validation failed")}
	err := ValidateRequest(custom)
	require.Error(t, err)
	assert.Equal(t, "custom validation failed", err.Error())
}

type customValidated struct {
	err error
}

func (c customValidated) Validate() error { return c.err }
