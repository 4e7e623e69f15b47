package diagnose

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/RonitGandotra05/agent-xray/internal/domain"
)

// windowSystemInstructions is the fixed instruction block sent with every
// window. It pins the oracle to the response schema the parser expects.
const windowSystemInstructions = `You are analyzing a WINDOW of consecutive steps from a pipeline execution trace.

Check whether the data flows correctly between these steps:
1. Is the later step's output consistent with the earlier step's output?
2. Are there semantic mismatches (e.g., phone case input producing laptop-related output)?
3. Did anything get lost or corrupted in the transition?

Some inputs configure a step rather than flow into it from upstream: filters,
thresholds, limits and similar settings. Never report configuration inputs as
missing upstream data. Treat any "reasons" or "metrics" shown for a step as
supporting evidence for its behavior.

Respond in valid JSON:
{
    "faulty_step": "step_name or null if the transition looks OK",
    "faulty_step_order": step_number or null,
    "reason": "What went wrong between these steps",
    "suggestion": "How to fix it",
    "transition_status": "ok|warning|error"
}`

// buildWindowPrompt renders one window (one or two adjacent steps) plus
// trace-level context into the oracle request body.
func buildWindowPrompt(trace *domain.PipelineTrace, steps []domain.StepRecord, windowIndex int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## Pipeline: %s\n", trace.Name)
	if trace.Description != "" {
		fmt.Fprintf(&b, "## Description: %s\n", trace.Description)
	} else {
		b.WriteString("## Description: no description provided\n")
	}
	if len(trace.Metadata) > 0 {
		meta, err := json.Marshal(trace.Metadata)
		if err == nil {
			fmt.Fprintf(&b, "## Metadata: %s\n", meta)
		}
	}
	fmt.Fprintf(&b, "## Window %d: Steps %s → %s\n\n",
		windowIndex+1, formatOrder(steps[0].Order), formatOrder(steps[len(steps)-1].Order))

	for _, step := range steps {
		fmt.Fprintf(&b, "### Step %s: %s\n", formatOrder(step.Order), step.Name)
		if step.Description != "" {
			fmt.Fprintf(&b, "Description: %s\n", step.Description)
		} else {
			b.WriteString("Description: not provided\n")
		}
		fmt.Fprintf(&b, "**Inputs:** %s\n", renderValue(step.Inputs))
		fmt.Fprintf(&b, "**Outputs:** %s\n", renderValue(step.Outputs))
		if !step.Reasons.IsNull() {
			fmt.Fprintf(&b, "**Reasons:** %s\n", renderValue(step.Reasons))
		}
		if !step.Metrics.IsNull() {
			fmt.Fprintf(&b, "**Metrics:** %s\n", renderValue(step.Metrics))
		}
		b.WriteString("\n")
	}

	b.WriteString("Analyze the transition between these steps. Is the data flow correct?")
	return b.String()
}

func renderValue(v domain.Value) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "null"
	}
	return string(b)
}

func formatOrder(order float64) string {
	return strconv.FormatFloat(order, 'g', -1, 64)
}
