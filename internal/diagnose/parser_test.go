package diagnose

import (
	"testing"

	"github.com/RonitGandotra05/agent-xray/internal/domain"
)

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantFaulty string
		wantStatus domain.TransitionStatus
	}{
		{
			name:       "plain json",
			text:       `{"faulty_step": "filter", "faulty_step_order": 2, "reason": "dropped everything", "transition_status": "error"}`,
			wantFaulty: "filter",
			wantStatus: domain.StatusError,
		},
		{
			name:       "json fenced with language tag",
			text:       "```json\n{\"faulty_step\": \"rank\", \"reason\": \"scores inverted\", \"transition_status\": \"warning\"}\n```",
			wantFaulty: "rank",
			wantStatus: domain.StatusWarning,
		},
		{
			name:       "json fenced without language tag",
			text:       "```\n{\"faulty_step\": \"rank\", \"reason\": \"x\", \"transition_status\": \"ok\"}\n```",
			wantFaulty: "rank",
			wantStatus: domain.StatusOK,
		},
		{
			name:       "surrounding whitespace",
			text:       "\n\n  {\"faulty_step\": \"merge\", \"reason\": \"y\"}  \n",
			wantFaulty: "merge",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseVerdict(tt.text)
			if got.FaultyStep == nil || *got.FaultyStep != tt.wantFaulty {
				t.Errorf("FaultyStep = %v, want %q", got.FaultyStep, tt.wantFaulty)
			}
			if got.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", got.Status, tt.wantStatus)
			}
			if got.RawResponse != "" {
				t.Errorf("RawResponse = %q, want empty on successful parse", got.RawResponse)
			}
		})
	}
}

func TestParseVerdict_NullFaultyStep(t *testing.T) {
	got := parseVerdict(`{"faulty_step": null, "faulty_step_order": null, "reason": "fine", "transition_status": "ok"}`)
	if got.FaultyStep != nil {
		t.Errorf("FaultyStep = %v, want nil", *got.FaultyStep)
	}
	if got.FaultyStepOrder != nil {
		t.Errorf("FaultyStepOrder = %v, want nil", *got.FaultyStepOrder)
	}
	if got.Reason != "fine" {
		t.Errorf("Reason = %q", got.Reason)
	}
}

func TestParseVerdict_ProseDegrades(t *testing.T) {
	text := "The second step seems odd but I cannot produce JSON right now."

	got := parseVerdict(text)

	if got.FaultyStep != nil {
		t.Errorf("FaultyStep = %v, want nil", *got.FaultyStep)
	}
	if got.Reason != text {
		t.Errorf("Reason = %q, want raw text", got.Reason)
	}
	if got.Suggestion != unparseableSuggestion {
		t.Errorf("Suggestion = %q", got.Suggestion)
	}
	if got.RawResponse != text {
		t.Errorf("RawResponse = %q, want verbatim oracle text", got.RawResponse)
	}
}
