// Package middleware holds the HTTP middleware applied ahead of the batch
// handlers.
package middleware

import (
	"log/slog"
	"net/http"

	"github.com/ciscoittech/sp404mk2-sample-agent-sub000/internal/api/shared"
)

// TraceMiddleware stamps every request context with a trace ID before any
// handler runs, so error responses and their log lines can be correlated.
func TraceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := shared.SetTraceID(r.Context())

		slog.Debug("request received",
			"trace_id", shared.GetTraceID(ctx),
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
