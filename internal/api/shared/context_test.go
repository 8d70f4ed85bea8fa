package shared

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetAndGetTraceID(t *testing.T) {
	ctx := context.Background()

	// Verify no trace ID in original context
	traceID := GetTraceID(ctx)
	assert.Empty(t, traceID, "Expected empty trace ID in original context")

	ctxWithTrace := SetTraceID(ctx)

	traceID = GetTraceID(ctxWithTrace)
	assert.NotEmpty(t, traceID, "Expected non-empty trace ID after setting")
	assert.Len(t, traceID, 32, "Expected trace ID length to be 32 hex characters (16 bytes)")

	// Original context should remain unchanged
	traceID = GetTraceID(ctx)
	assert.Empty(t, traceID, "Expected original context to remain unchanged")
}

func TestGetTraceIDWithInvalidContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), TraceIDKey, 123) // Not a string

	traceID := GetTraceID(ctx)
	assert.Empty(t, traceID, "Expected empty trace ID when context has invalid type")
}

func TestGenerateTraceIDUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := generateTraceID()
		assert.Len(t, id, 32)
		assert.False(t, seen[id], "Expected trace IDs to be unique")
		seen[id] = true
	}
}
