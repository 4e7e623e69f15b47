package domain

// TransitionStatus tags the oracle's judgment of one step transition.
type TransitionStatus string

const (
	StatusOK      TransitionStatus = "ok"
	StatusWarning TransitionStatus = "warning"
	StatusError   TransitionStatus = "error"
)

// AnalysisMethodSlidingWindow is the only analysis method the engine
// implements; every report carries it.
const AnalysisMethodSlidingWindow = "sliding_window"

// Verdict is the structured judgment returned for one window. FaultyStep and
// FaultyStepOrder are nil when the transition looked correct (or when the
// oracle response could not be interpreted).
type Verdict struct {
	FaultyStep      *string          `json:"faulty_step"`
	FaultyStepOrder *float64         `json:"faulty_step_order"`
	Reason          string           `json:"reason"`
	Suggestion      string           `json:"suggestion,omitempty"`
	Status          TransitionStatus `json:"transition_status,omitempty"`
	RawResponse     string           `json:"raw_response,omitempty"`
}

// StepAnalysis is one per-step entry in a clean diagnostic report.
type StepAnalysis struct {
	Step   string           `json:"step"`
	Status TransitionStatus `json:"status"`
	Note   string           `json:"note"`
}

// DiagnosticReport is the single result of diagnosing one trace: either the
// first faulty verdict found, or a clean bill for every step.
type DiagnosticReport struct {
	FaultyStep      *string        `json:"faulty_step"`
	FaultyStepOrder *float64       `json:"faulty_step_order"`
	Reason          string         `json:"reason"`
	Suggestion      *string        `json:"suggestion"`
	AnalysisMethod  string         `json:"analysis_method"`
	WindowsAnalyzed int            `json:"windows_analyzed"`
	AllSteps        []StepAnalysis `json:"all_steps_analysis,omitempty"`
}
