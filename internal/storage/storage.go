// Package storage defines the persistence boundary for traces and their
// diagnosis results.
package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/RonitGandotra05/agent-xray/internal/domain"
)

// Run statuses. A run moves received → stored/analyzed/analysis_failed.
const (
	RunStatusReceived       = "received"
	RunStatusStored         = "stored"
	RunStatusAnalyzed       = "analyzed"
	RunStatusAnalysisFailed = "analysis_failed"
)

// Pipeline is a named type of workflow; runs hang off it.
type Pipeline struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Run is one stored execution of a pipeline.
type Run struct {
	ID             string            `json:"id"`
	PipelineID     string            `json:"pipeline_id"`
	PipelineName   string            `json:"pipeline_name,omitempty"`
	Status         string            `json:"status"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	AnalysisResult json.RawMessage   `json:"analysis_result,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	Steps          []*StoredStep     `json:"steps,omitempty"`
}

// StoredStep is one persisted step of a run.
type StoredStep struct {
	ID          string       `json:"id"`
	RunID       string       `json:"run_id"`
	Name        string       `json:"step_name"`
	Order       float64      `json:"step_order"`
	Description string       `json:"description,omitempty"`
	Inputs      domain.Value `json:"inputs"`
	Outputs     domain.Value `json:"outputs"`
	Reasons     domain.Value `json:"reasons,omitempty"`
	Metrics     domain.Value `json:"metrics,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Trace rebuilds the engine's input from a stored run.
func (r *Run) Trace() *domain.PipelineTrace {
	trace := &domain.PipelineTrace{
		Name:     r.PipelineName,
		Metadata: r.Metadata,
		Steps:    make([]domain.StepRecord, len(r.Steps)),
	}
	for i, s := range r.Steps {
		trace.Steps[i] = domain.StepRecord{
			Name:        s.Name,
			Order:       s.Order,
			Description: s.Description,
			Inputs:      s.Inputs,
			Outputs:     s.Outputs,
			Reasons:     s.Reasons,
			Metrics:     s.Metrics,
		}
	}
	return trace
}

// ListRunsOptions filters ListRuns.
type ListRunsOptions struct {
	PipelineName string
	Status       string
	Limit        int
}

// SearchStepsOptions filters SearchSteps. StepName matches as a
// case-insensitive substring.
type SearchStepsOptions struct {
	StepName     string
	PipelineName string
	Limit        int
}

// TraceStore persists pipelines, runs and steps.
type TraceStore interface {
	// GetOrCreatePipeline returns the pipeline named name, creating it on
	// first sight.
	GetOrCreatePipeline(ctx context.Context, name string) (*Pipeline, error)

	// CreateRun stores a run together with its steps.
	CreateRun(ctx context.Context, run *Run) error

	// UpdateRunAnalysis records an analysis outcome and the new run status.
	UpdateRunAnalysis(ctx context.Context, runID, status string, result json.RawMessage) error

	// GetRun returns a run with its steps ordered by step order, or
	// domain.ErrRunNotFound.
	GetRun(ctx context.Context, id string) (*Run, error)

	// ListRuns returns runs newest first, without steps.
	ListRuns(ctx context.Context, opts ListRunsOptions) ([]*Run, error)

	// ListPipelines returns all pipelines newest first.
	ListPipelines(ctx context.Context) ([]*Pipeline, error)

	// SearchSteps returns steps across runs, newest first.
	SearchSteps(ctx context.Context, opts SearchStepsOptions) ([]*StoredStep, error)

	// Close releases the underlying resources.
	Close() error
}
