package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ciscoittech/sp404mk2-sample-agent-sub000/internal/api/shared"
)

func TestTraceMiddlewareAddsTraceID(t *testing.T) {
	var capturedTraceID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedTraceID = shared.GetTraceID(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	handler := TraceMiddleware(next)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, capturedTraceID, "Expected trace ID to be set on the request context")
	assert.Len(t, capturedTraceID, 32)
}

func TestTraceMiddlewareGeneratesDistinctIDs(t *testing.T) {
	var ids []string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids = append(ids, shared.GetTraceID(r.Context()))
	})
	handler := TraceMiddleware(next)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	assert.NotEqual(t, ids[0], ids[1])
	assert.NotEqual(t, ids[1], ids[2])
}
