package diagnose

import (
	"context"
	"log/slog"
)

// EventKind names one observability event emitted during a scan.
type EventKind string

const (
	// EventWindowStarted fires before a window is rendered and sent.
	EventWindowStarted EventKind = "window_started"

	// EventOracleCalled fires after the oracle round trip, successful or not.
	EventOracleCalled EventKind = "oracle_called"

	// EventVerdictParsed fires once the response text became a verdict.
	EventVerdictParsed EventKind = "verdict_parsed"

	// EventPayloadOverBudget fires when a step's payload still exceeds the
	// byte budget after the minimum sample size pass.
	EventPayloadOverBudget EventKind = "payload_over_budget"

	// EventPromptOverTokenBudget fires when a rendered window exceeds the
	// context token budget.
	EventPromptOverTokenBudget EventKind = "prompt_over_token_budget"
)

// Event is one observability record. Events are advisory; the scan never
// depends on a sink being present.
type Event struct {
	Kind   EventKind
	Window int
	Steps  []string
	Detail string
}

// EventSink receives engine events. Implementations must be safe for
// concurrent use across independent diagnosis calls.
type EventSink interface {
	Publish(ctx context.Context, ev Event)
}

// LogSink publishes events through a slog logger at debug level.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Publish(ctx context.Context, ev Event) {
	s.Logger.LogAttrs(ctx, slog.LevelDebug, string(ev.Kind),
		slog.Int("window", ev.Window),
		slog.Any("steps", ev.Steps),
		slog.String("detail", ev.Detail),
	)
}

type nopSink struct{}

func (nopSink) Publish(context.Context, Event) {}
