package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/RonitGandotra05/agent-xray/internal/server"
	"github.com/RonitGandotra05/agent-xray/internal/storage"
)

// ListPipelines returns all known pipelines, newest first.
func (h *Handler) ListPipelines(w http.ResponseWriter, r *http.Request) {
	pipelines, err := h.store.ListPipelines(r.Context())
	if err != nil {
		server.AddError(r.Context(), err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if pipelines == nil {
		pipelines = []*storage.Pipeline{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"pipelines": pipelines})
}

// ListRuns returns runs filtered by ?pipeline=, ?status= and ?limit=.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	opts := storage.ListRunsOptions{
		PipelineName: r.URL.Query().Get("pipeline"),
		Status:       r.URL.Query().Get("status"),
		Limit:        queryInt(r, "limit"),
	}

	runs, err := h.store.ListRuns(r.Context(), opts)
	if err != nil {
		server.AddError(r.Context(), err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []*storage.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// GetRun returns a single run with all its steps.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.store.GetRun(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		notFoundOrInternal(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// GetAnalysis returns just the analysis result for a run.
func (h *Handler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	run, err := h.store.GetRun(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		notFoundOrInternal(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"run_id":   run.ID,
		"status":   run.Status,
		"analysis": run.AnalysisResult,
	})
}

// TriggerAnalysis re-runs diagnosis for a stored run.
func (h *Handler) TriggerAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	run, err := h.store.GetRun(ctx, chi.URLParam(r, "runID"))
	if err != nil {
		notFoundOrInternal(w, err)
		return
	}

	status, analysis := h.analyzeRun(ctx, run)
	if err := h.store.UpdateRunAnalysis(ctx, run.ID, status, analysis); err != nil {
		server.AddError(ctx, err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"run_id":   run.ID,
		"status":   status,
		"analysis": analysis,
	})
}

// SearchSteps searches steps across runs by ?step_name=, ?pipeline= and
// ?limit=.
func (h *Handler) SearchSteps(w http.ResponseWriter, r *http.Request) {
	opts := storage.SearchStepsOptions{
		StepName:     r.URL.Query().Get("step_name"),
		PipelineName: r.URL.Query().Get("pipeline"),
		Limit:        queryInt(r, "limit"),
	}

	steps, err := h.store.SearchSteps(r.Context(), opts)
	if err != nil {
		server.AddError(r.Context(), err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if steps == nil {
		steps = []*storage.StoredStep{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"steps": steps})
}

func queryInt(r *http.Request, key string) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
