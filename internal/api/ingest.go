package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/RonitGandotra05/agent-xray/internal/domain"
	"github.com/RonitGandotra05/agent-xray/internal/server"
	"github.com/RonitGandotra05/agent-xray/internal/storage"
)

// IngestRequest is the wire format the SDK posts to /api/ingest.
type IngestRequest struct {
	PipelineName string            `json:"pipeline_name"`
	Description  string            `json:"description,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Steps        []IngestStep      `json:"steps"`
	// Analyze defaults to true when omitted.
	Analyze *bool `json:"analyze,omitempty"`
}

// IngestStep is one step in an ingest request.
type IngestStep struct {
	Name        string       `json:"name"`
	Order       float64      `json:"order"`
	Description string       `json:"description,omitempty"`
	Inputs      domain.Value `json:"inputs,omitempty"`
	Outputs     domain.Value `json:"outputs,omitempty"`
	Reasons     domain.Value `json:"reasons,omitempty"`
	Metrics     domain.Value `json:"metrics,omitempty"`
}

// IngestResponse acknowledges a stored (and optionally analyzed) run.
type IngestResponse struct {
	Success  bool            `json:"success"`
	RunID    string          `json:"run_id"`
	Status   string          `json:"status"`
	Analysis json.RawMessage `json:"analysis,omitempty"`
}

// Ingest receives a pipeline run, persists it and, unless analyze=false,
// diagnoses it inline.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.PipelineName == "" {
		writeError(w, http.StatusBadRequest, "pipeline_name is required")
		return
	}
	if len(req.Steps) == 0 {
		writeError(w, http.StatusBadRequest, "at least one step is required")
		return
	}

	ctx := r.Context()
	pipeline, err := h.store.GetOrCreatePipeline(ctx, req.PipelineName)
	if err != nil {
		server.AddError(ctx, err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	run := &storage.Run{
		PipelineID:   pipeline.ID,
		PipelineName: pipeline.Name,
		Status:       storage.RunStatusReceived,
		Metadata:     req.Metadata,
		Steps:        make([]*storage.StoredStep, len(req.Steps)),
	}
	for i, step := range req.Steps {
		run.Steps[i] = &storage.StoredStep{
			Name:        step.Name,
			Order:       step.Order,
			Description: step.Description,
			Inputs:      step.Inputs,
			Outputs:     step.Outputs,
			Reasons:     step.Reasons,
			Metrics:     step.Metrics,
		}
	}

	if err := h.store.CreateRun(ctx, run); err != nil {
		server.AddError(ctx, err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	server.AddLogField(ctx, "run_id", run.ID)

	shouldAnalyze := req.Analyze == nil || *req.Analyze

	var analysis json.RawMessage
	status := storage.RunStatusStored
	if shouldAnalyze {
		status, analysis = h.analyzeRun(ctx, run)
	}
	if err := h.store.UpdateRunAnalysis(ctx, run.ID, status, analysis); err != nil {
		server.AddError(ctx, err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, IngestResponse{
		Success:  true,
		RunID:    run.ID,
		Status:   status,
		Analysis: analysis,
	})
}

// analyzeRun diagnoses one stored run. Analysis failures do not fail the
// request; they land in the run record as analysis_failed.
func (h *Handler) analyzeRun(ctx context.Context, run *storage.Run) (string, json.RawMessage) {
	report, err := h.analyzer.Diagnose(ctx, run.Trace())
	if err != nil {
		h.logger.Error("analysis failed",
			slog.String("run_id", run.ID),
			slog.String("error", err.Error()),
		)
		failure, _ := json.Marshal(map[string]string{"error": err.Error()})
		return storage.RunStatusAnalysisFailed, failure
	}

	encoded, err := json.Marshal(report)
	if err != nil {
		failure, _ := json.Marshal(map[string]string{"error": err.Error()})
		return storage.RunStatusAnalysisFailed, failure
	}
	return storage.RunStatusAnalyzed, encoded
}
