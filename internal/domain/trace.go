// Package domain holds the trace data model shared by the diagnosis engine,
// the HTTP API and the storage layer.
package domain

import "sort"

// PipelineTrace is the complete ordered record of one pipeline execution
// submitted for diagnosis.
type PipelineTrace struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Steps       []StepRecord      `json:"steps"`
}

// StepRecord is one stage of a traced pipeline. The engine never mutates a
// step; normalization works on copies.
type StepRecord struct {
	Name        string  `json:"name"`
	Order       float64 `json:"order"`
	Description string  `json:"description,omitempty"`
	Inputs      Value   `json:"inputs,omitempty"`
	Outputs     Value   `json:"outputs,omitempty"`
	Reasons     Value   `json:"reasons,omitempty"`
	Metrics     Value   `json:"metrics,omitempty"`
}

// SortedSteps returns the trace's steps sorted ascending by order. The sort
// is stable, so steps sharing an order (or missing one) keep their original
// array position as the tiebreak.
func (t *PipelineTrace) SortedSteps() []StepRecord {
	steps := make([]StepRecord, len(t.Steps))
	copy(steps, t.Steps)
	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].Order < steps[j].Order
	})
	return steps
}
