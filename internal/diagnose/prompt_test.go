package diagnose

import (
	"strings"
	"testing"

	"github.com/RonitGandotra05/agent-xray/internal/domain"
)

func TestBuildWindowPrompt(t *testing.T) {
	inputs := domain.Object()
	inputs.Set("threshold", domain.Number(0.5))
	outputs := domain.Object()
	outputs.Set("kept", domain.Number(12))
	reasons := domain.Object()
	reasons.Set("item_9", domain.String("below threshold"))
	metrics := domain.Object()
	metrics.Set("duration_ms", domain.Number(42))

	trace := &domain.PipelineTrace{
		Name:        "competitor_selection",
		Description: "selects rival listings",
		Metadata:    map[string]string{"product_id": "123"},
	}
	window := []domain.StepRecord{
		{Name: "filter", Order: 2, Description: "drops weak candidates", Inputs: inputs, Outputs: outputs, Reasons: reasons, Metrics: metrics},
		{Name: "rank", Order: 3},
	}

	prompt := buildWindowPrompt(trace, window, 1)

	for _, want := range []string{
		"## Pipeline: competitor_selection",
		"## Description: selects rival listings",
		"product_id",
		"## Window 2: Steps 2 → 3",
		"### Step 2: filter",
		"drops weak candidates",
		"threshold",
		"**Reasons:**",
		"below threshold",
		"**Metrics:**",
		"duration_ms",
		"### Step 3: rank",
		"Description: not provided",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}

	// Second step has no reasons or metrics; its section must not grow them.
	rankSection := prompt[strings.Index(prompt, "### Step 3"):]
	if strings.Contains(rankSection, "**Reasons:**") || strings.Contains(rankSection, "**Metrics:**") {
		t.Errorf("absent reasons/metrics rendered for rank step:\n%s", rankSection)
	}
}

func TestBuildWindowPrompt_NoDescriptionMarker(t *testing.T) {
	trace := &domain.PipelineTrace{Name: "p"}
	window := []domain.StepRecord{{Name: "only", Order: 1}}

	prompt := buildWindowPrompt(trace, window, 0)

	if !strings.Contains(prompt, "## Description: no description provided") {
		t.Errorf("missing trace no-description marker:\n%s", prompt)
	}
	if !strings.Contains(prompt, "## Window 1: Steps 1 → 1") {
		t.Errorf("single-step window range wrong:\n%s", prompt)
	}
}

func TestWindowSystemInstructions_PinSchema(t *testing.T) {
	for _, want := range []string{
		"faulty_step",
		"faulty_step_order",
		"transition_status",
		"ok|warning|error",
	} {
		if !strings.Contains(windowSystemInstructions, want) {
			t.Errorf("system instructions missing %q", want)
		}
	}
}
