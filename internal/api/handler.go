// Package api exposes the ingestion and query HTTP surface.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/RonitGandotra05/agent-xray/internal/domain"
	"github.com/RonitGandotra05/agent-xray/internal/storage"
)

// Analyzer is the diagnosis capability the handlers depend on.
type Analyzer interface {
	Diagnose(ctx context.Context, trace *domain.PipelineTrace) (*domain.DiagnosticReport, error)
}

// Handler serves the /api routes.
type Handler struct {
	store    storage.TraceStore
	analyzer Analyzer
	logger   *slog.Logger
}

// NewHandler creates the API handler.
func NewHandler(store storage.TraceStore, analyzer Analyzer, logger *slog.Logger) *Handler {
	return &Handler{store: store, analyzer: analyzer, logger: logger}
}

// RegisterRoutes mounts all API routes on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.Health)
	r.Post("/api/ingest", h.Ingest)
	r.Get("/api/pipelines", h.ListPipelines)
	r.Get("/api/runs", h.ListRuns)
	r.Get("/api/runs/{runID}", h.GetRun)
	r.Get("/api/runs/{runID}/analysis", h.GetAnalysis)
	r.Post("/api/analyze/{runID}", h.TriggerAnalysis)
	r.Get("/api/search/steps", h.SearchSteps)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func notFoundOrInternal(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "Run not found")
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
