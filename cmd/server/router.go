package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ciscoittech/sp404mk2-sample-agent-sub000/internal/api"
	apiMiddleware "github.com/ciscoittech/sp404mk2-sample-agent-sub000/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware) // Add trace IDs for error correlation

	batchHandler := api.NewBatchHandler(
		app.orchestrator,
		app.cacheStore,
		app.defaultBatchOptions(),
	)

	// Register routes
	r.Route("/api", func(r chi.Router) {
		r.Post("/batches", batchHandler.CreateBatch)
		r.Get("/batches/{id}", batchHandler.GetBatch)
		r.Post("/batches/{id}/run", batchHandler.RunBatch)
		r.Post("/batches/{id}/cancel", batchHandler.CancelBatch)
		r.Get("/batches/{id}/progress", batchHandler.WatchProgress)

		r.Get("/export", batchHandler.ExportCache)
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte("OK"))
		if err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
