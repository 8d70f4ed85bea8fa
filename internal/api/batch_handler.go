package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ciscoittech/sp404mk2-sample-agent-sub000/internal/api/shared"
	"github.com/ciscoittech/sp404mk2-sample-agent-sub000/internal/cache"
	"github.com/ciscoittech/sp404mk2-sample-agent-sub000/internal/domain"
)

// BatchService defines the orchestration operations the handler depends on.
type BatchService interface {
	Create(name, sourceDir string, opts domain.BatchOptions) (*domain.Batch, error)
	Get(id uuid.UUID) (*domain.Batch, error)
	Run(id uuid.UUID) error
	Cancel(id uuid.UUID) bool
	WatchProgress(ctx context.Context, id uuid.UUID) (<-chan domain.ProgressSnapshot, error)
}

// CacheExporter exposes the cache export operation the handler depends on.
type CacheExporter interface {
	Export(collection string) (*cache.ExportDocument, error)
}

// CreateBatchRequest represents the request body for creating a new batch.
// Omitted option fields fall back to the server's configured defaults. The
// rate limit interval is not overridable per batch: the limiter guards a
// shared external quota and is configured server-wide.
type CreateBatchRequest struct {
	Name           string `json:"name"                      validate:"required,min=1"`
	SourceDir      string `json:"source_dir"                validate:"required,min=1"`
	GroupSize      *int   `json:"group_size,omitempty"      validate:"omitempty,min=1,max=20"`
	TimeoutSeconds *int   `json:"timeout_seconds,omitempty" validate:"omitempty,min=1"`
	MaxRetries     *int   `json:"max_retries,omitempty"     validate:"omitempty,min=0,max=10"`
}

// BatchResponse represents the response data for a batch.
type BatchResponse struct {
	ID             string              `json:"id"`
	Name           string              `json:"name"`
	SourceDir      string              `json:"source_dir"`
	Status         string              `json:"status"`
	Options        domain.BatchOptions `json:"options"`
	TotalItems     int                 `json:"total_items"`
	ProcessedItems int                 `json:"processed_items"`
	SuccessCount   int                 `json:"success_count"`
	ErrorCount     int                 `json:"error_count"`
	CreatedAt      time.Time           `json:"created_at"`
	StartedAt      *time.Time          `json:"started_at,omitempty"`
	CompletedAt    *time.Time          `json:"completed_at,omitempty"`
	ErrorLog       []string            `json:"error_log"`
}

// BatchHandler handles batch-related HTTP requests.
type BatchHandler struct {
	service     BatchService
	exporter    CacheExporter
	defaultOpts domain.BatchOptions
}

// NewBatchHandler creates a new BatchHandler.
func NewBatchHandler(
	service BatchService,
	exporter CacheExporter,
	defaultOpts domain.BatchOptions,
) *BatchHandler {
	return &BatchHandler{
		service:     service,
		exporter:    exporter,
		defaultOpts: defaultOpts,
	}
}

// CreateBatch handles POST /api/batches requests.
func (h *BatchHandler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var req CreateBatchRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	opts := h.defaultOpts
	if req.GroupSize != nil {
		opts.GroupSize = *req.GroupSize
	}
	if req.TimeoutSeconds != nil {
		opts.TimeoutSeconds = *req.TimeoutSeconds
	}
	if req.MaxRetries != nil {
		opts.MaxRetries = *req.MaxRetries
	}

	batch, err := h.service.Create(req.Name, req.SourceDir, opts)
	if err != nil {
		slog.Error("failed to create batch", "error", err, "name", req.Name)
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, batchToDTOResponse(batch))
}

// GetBatch handles GET /api/batches/{id} requests.
func (h *BatchHandler) GetBatch(w http.ResponseWriter, r *http.Request) {
	id, ok := h.batchID(w, r)
	if !ok {
		return
	}

	batch, err := h.service.Get(id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, batchToDTOResponse(batch))
}

// RunBatch handles POST /api/batches/{id}/run requests. Processing happens
// asynchronously, so a successful start returns 202 Accepted.
func (h *BatchHandler) RunBatch(w http.ResponseWriter, r *http.Request) {
	id, ok := h.batchID(w, r)
	if !ok {
		return
	}

	if err := h.service.Run(id); err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	batch, err := h.service.Get(id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, batchToDTOResponse(batch))
}

// CancelBatch handles POST /api/batches/{id}/cancel requests.
func (h *BatchHandler) CancelBatch(w http.ResponseWriter, r *http.Request) {
	id, ok := h.batchID(w, r)
	if !ok {
		return
	}

	if !h.service.Cancel(id) {
		batch, err := h.service.Get(id)
		if err != nil {
			shared.RespondWithErrorAndLog(w, r,
				MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
			return
		}
		shared.RespondWithError(w, r, http.StatusConflict,
			"Batch is already "+string(batch.Status))
		return
	}

	batch, err := h.service.Get(id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, batchToDTOResponse(batch))
}

// WatchProgress handles GET /api/batches/{id}/progress requests by streaming
// progress snapshots as server-sent events. The stream ends after a terminal
// snapshot or when the client disconnects.
func (h *BatchHandler) WatchProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := h.batchID(w, r)
	if !ok {
		return
	}

	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		shared.RespondWithError(w, r, http.StatusInternalServerError,
			"Streaming is not supported")
		return
	}

	snapshots, err := h.service.WatchProgress(r.Context(), id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for snap := range snapshots {
		payload, err := json.Marshal(snap)
		if err != nil {
			slog.Error("failed to encode progress snapshot",
				"batch_id", id, "error", err)
			return
		}
		if _, err := w.Write([]byte("data: " + string(payload) + "\n\n")); err != nil {
			// Client went away; the orchestrator stops on context cancellation.
			return
		}
		flusher.Flush()
	}
}

// ExportCache handles GET /api/export requests. The collection query
// parameter names the exported collection in the document metadata.
func (h *BatchHandler) ExportCache(w http.ResponseWriter, r *http.Request) {
	collection := r.URL.Query().Get("collection")
	if collection == "" {
		collection = "default"
	}

	doc, err := h.exporter.Export(collection)
	if err != nil {
		slog.Error("failed to export cache", "collection", collection, "error", err)
		shared.RespondWithErrorAndLog(w, r,
			http.StatusInternalServerError, "Failed to export analysis cache", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, doc)
}

// batchID extracts and parses the {id} URL parameter, writing an error
// response on failure.
func (h *BatchHandler) batchID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid batch ID")
		return uuid.Nil, false
	}
	return id, true
}

// batchToDTOResponse converts a domain.Batch to a BatchResponse.
func batchToDTOResponse(batch *domain.Batch) BatchResponse {
	return BatchResponse{
		ID:             batch.ID.String(),
		Name:           batch.Name,
		SourceDir:      batch.SourceDir,
		Status:         string(batch.Status),
		Options:        batch.Options,
		TotalItems:     batch.TotalItems,
		ProcessedItems: batch.ProcessedItems,
		SuccessCount:   batch.SuccessCount,
		ErrorCount:     batch.ErrorCount,
		CreatedAt:      batch.CreatedAt,
		StartedAt:      batch.StartedAt,
		CompletedAt:    batch.CompletedAt,
		ErrorLog:       batch.ErrorLog,
	}
}
