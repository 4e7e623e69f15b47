package xray

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestRun_AddStepConvertsPayloads(t *testing.T) {
	run := NewRun("competitor_selection",
		WithDescription("selects comparable products"),
		WithMetadata(map[string]string{"product_id": "123"}),
	)
	run.AddStep(Step{
		Name:    "keyword_gen",
		Order:   1,
		Inputs:  map[string]any{"query": "phone case"},
		Outputs: map[string]any{"keywords": []any{"a", "b"}},
		Metrics: map[string]any{"latency_ms": 42},
	})

	if run.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", run.Len())
	}

	body, err := json.Marshal(run.request(true))
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	for _, want := range []string{
		`"pipeline_name":"competitor_selection"`,
		`"product_id":"123"`,
		`"query":"phone case"`,
		`"latency_ms":42`,
		`"analyze":true`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("request missing %s:\n%s", want, body)
		}
	}
}

func TestRun_AddStepSummarizesOversizedOutputs(t *testing.T) {
	items := make([]any, 500)
	for i := range items {
		items[i] = map[string]any{"asin": strings.Repeat("B", 40), "title": strings.Repeat("t", 80)}
	}

	run := NewRun("competitor_selection")
	run.AddStep(Step{
		Name:    "fetch_candidates",
		Order:   1,
		Outputs: map[string]any{"candidates": items},
	})

	outputs := run.steps[0].Outputs
	if size := outputs.EncodedSize(); size > DefaultMaxPayloadBytes {
		t.Errorf("outputs size = %d, want <= %d", size, DefaultMaxPayloadBytes)
	}

	total, ok := outputs.Get("candidates_total_count")
	if !ok {
		t.Fatal("summarized outputs missing candidates_total_count")
	}
	if got := total.NumberVal(); got != 500 {
		t.Errorf("candidates_total_count = %v, want 500", got)
	}
}

func TestRun_SmallPayloadsPassThrough(t *testing.T) {
	run := NewRun("p")
	run.AddStep(Step{
		Name:    "s",
		Order:   1,
		Outputs: map[string]any{"items": []any{"a", "b", "c"}},
	})

	if _, ok := run.steps[0].Outputs.Get("items_total_count"); ok {
		t.Error("small payload gained a total_count sibling")
	}
}
