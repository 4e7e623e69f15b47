// Package xray is the client SDK for instrumenting AI pipelines: build a
// run step by step, then send it to the trace service for diagnosis. Runs
// that cannot reach the service are spooled to disk and flushed later.
package xray

import (
	"github.com/RonitGandotra05/agent-xray/internal/api"
	"github.com/RonitGandotra05/agent-xray/internal/domain"
	"github.com/RonitGandotra05/agent-xray/internal/payload"
)

// DefaultMaxPayloadBytes is the serialized size above which a step's inputs
// and outputs are summarized before they leave the process.
const DefaultMaxPayloadBytes = 20000

// RunOption configures a Run.
type RunOption func(*Run)

// WithDescription attaches a free-form pipeline description.
func WithDescription(description string) RunOption {
	return func(r *Run) {
		r.description = description
	}
}

// WithMetadata attaches run-level metadata such as entity IDs.
func WithMetadata(metadata map[string]string) RunOption {
	return func(r *Run) {
		r.metadata = metadata
	}
}

// WithMaxPayloadBytes overrides the per-step summarization budget.
func WithMaxPayloadBytes(maxBytes int) RunOption {
	return func(r *Run) {
		r.maxPayloadBytes = maxBytes
	}
}

// Step is one recorded pipeline step. Inputs, Outputs, Reasons and Metrics
// accept any JSON-serializable Go value.
type Step struct {
	Name        string
	Order       float64
	Description string
	Inputs      any
	Outputs     any
	Reasons     any
	Metrics     any
}

// Run accumulates steps for one pipeline execution. Oversized step payloads
// are summarized on add, so a run stays cheap to hold and cheap to ship.
type Run struct {
	pipelineName    string
	description     string
	metadata        map[string]string
	steps           []api.IngestStep
	maxPayloadBytes int
	normalizer      *payload.Normalizer
}

// NewRun starts recording a run of the named pipeline.
func NewRun(pipelineName string, opts ...RunOption) *Run {
	r := &Run{
		pipelineName:    pipelineName,
		maxPayloadBytes: DefaultMaxPayloadBytes,
		normalizer:      payload.NewNormalizer(payload.Limits{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddStep records one step. Inputs and outputs whose serialized form exceeds
// the payload budget are summarized immediately.
func (r *Run) AddStep(step Step) {
	inputs := domain.FromGo(step.Inputs)
	outputs := domain.FromGo(step.Outputs)

	if inputs.EncodedSize() > r.maxPayloadBytes {
		inputs = r.normalizer.Normalize(inputs, r.maxPayloadBytes)
	}
	if outputs.EncodedSize() > r.maxPayloadBytes {
		outputs = r.normalizer.Normalize(outputs, r.maxPayloadBytes)
	}

	r.steps = append(r.steps, api.IngestStep{
		Name:        step.Name,
		Order:       step.Order,
		Description: step.Description,
		Inputs:      inputs,
		Outputs:     outputs,
		Reasons:     domain.FromGo(step.Reasons),
		Metrics:     domain.FromGo(step.Metrics),
	})
}

// Len reports how many steps the run holds.
func (r *Run) Len() int { return len(r.steps) }

// request builds the wire payload for this run.
func (r *Run) request(analyze bool) api.IngestRequest {
	return api.IngestRequest{
		PipelineName: r.pipelineName,
		Description:  r.description,
		Metadata:     r.metadata,
		Steps:        r.steps,
		Analyze:      &analyze,
	}
}
