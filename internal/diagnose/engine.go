// Package diagnose implements the sliding-window trace diagnosis engine: it
// normalizes step payloads, walks adjacent step pairs in order, consults the
// reasoning oracle per window and reduces the verdicts into one report.
package diagnose

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/RonitGandotra05/agent-xray/internal/domain"
	"github.com/RonitGandotra05/agent-xray/internal/oracle"
	"github.com/RonitGandotra05/agent-xray/internal/payload"
)

// cleanReason is the report reason when no window found a fault.
const cleanReason = "All step transitions appear correct"

// Option configures the engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithEventSink sets the observability event sink.
func WithEventSink(sink EventSink) Option {
	return func(e *Engine) {
		e.events = sink
	}
}

// Engine diagnoses pipeline traces. It is stateless per Diagnose call and
// safe for concurrent use across independent traces.
type Engine struct {
	oracle     oracle.Client
	normalizer *payload.Normalizer
	cfg        Config
	logger     *slog.Logger
	events     EventSink
	tracer     oteltrace.Tracer
}

// New creates an engine around the given oracle client.
func New(client oracle.Client, cfg Config, opts ...Option) *Engine {
	cfg = cfg.withDefaults()
	e := &Engine{
		oracle: client,
		normalizer: payload.NewNormalizer(payload.Limits{
			SampleSize:     cfg.SampleSize,
			MinSampleSize:  cfg.MinSampleSize,
			StringTruncate: cfg.StringTruncate,
		}),
		cfg:    cfg,
		logger: slog.Default(),
		events: nopSink{},
		tracer: otel.Tracer("agent-xray/diagnose"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Diagnose analyzes one trace and returns exactly one report. The only
// fatal condition is an empty trace; every other failure is absorbed into
// the report as a degraded or error verdict.
func (e *Engine) Diagnose(ctx context.Context, trace *domain.PipelineTrace) (*domain.DiagnosticReport, error) {
	if len(trace.Steps) == 0 {
		return nil, domain.ErrEmptyTrace
	}

	ctx, span := e.tracer.Start(ctx, "diagnose",
		oteltrace.WithAttributes(
			attribute.String("pipeline", trace.Name),
			attribute.Int("steps", len(trace.Steps)),
		))
	defer span.End()

	steps := trace.SortedSteps()
	for i := range steps {
		steps[i] = e.normalizer.NormalizeStep(steps[i], e.cfg.MaxPayloadBytes)
		if size := steps[i].Outputs.EncodedSize(); size > e.cfg.MaxPayloadBytes {
			// Best-effort degradation: the floor pass could not reach the
			// budget. Report it and carry on with the oversized payload.
			e.events.Publish(ctx, Event{
				Kind:   EventPayloadOverBudget,
				Steps:  []string{steps[i].Name},
				Detail: fmt.Sprintf("outputs still %d bytes after minimum sample pass", size),
			})
		}
	}

	var verdicts []domain.Verdict
	if len(steps) <= e.cfg.WindowSize {
		verdicts = append(verdicts, e.evaluateWindow(ctx, trace, steps, 0))
	} else {
		for i := 0; i <= len(steps)-e.cfg.WindowSize; i++ {
			verdict := e.evaluateWindow(ctx, trace, steps[i:i+e.cfg.WindowSize], i)
			verdicts = append(verdicts, verdict)
			if verdict.FaultyStep != nil {
				// First fault wins; remaining windows stay unscanned.
				break
			}
		}
	}

	report := combineVerdicts(verdicts, steps)
	span.SetAttributes(attribute.Int("windows_analyzed", report.WindowsAnalyzed))
	return report, nil
}

// evaluateWindow runs one prompt → oracle → parse round trip. Oracle
// failures become local error verdicts so the scan can continue.
func (e *Engine) evaluateWindow(ctx context.Context, trace *domain.PipelineTrace, window []domain.StepRecord, index int) domain.Verdict {
	names := make([]string, len(window))
	for i, step := range window {
		names[i] = step.Name
	}

	ctx, span := e.tracer.Start(ctx, "diagnose.window",
		oteltrace.WithAttributes(attribute.Int("window", index)))
	defer span.End()

	e.events.Publish(ctx, Event{Kind: EventWindowStarted, Window: index, Steps: names})

	prompt := buildWindowPrompt(trace, window, index)

	if tokens := estimateTokens(prompt); tokens > e.cfg.ContextTokenBudget {
		e.logger.Warn("window prompt exceeds context token budget",
			slog.Int("window", index),
			slog.Int("tokens", tokens),
			slog.Int("budget", e.cfg.ContextTokenBudget),
		)
		e.events.Publish(ctx, Event{
			Kind:   EventPromptOverTokenBudget,
			Window: index,
			Steps:  names,
			Detail: strconv.Itoa(tokens) + " tokens",
		})
	}

	text, err := e.oracle.Complete(ctx, oracle.Request{
		SystemInstructions: windowSystemInstructions,
		Prompt:             prompt,
		MaxOutputTokens:    e.cfg.MaxOutputTokens,
		Temperature:        e.cfg.Temperature,
	})
	e.events.Publish(ctx, Event{Kind: EventOracleCalled, Window: index, Steps: names})

	if err != nil {
		// A single flaky call must not prevent fault localization elsewhere
		// in the trace.
		e.logger.Warn("oracle call failed for window",
			slog.Int("window", index),
			slog.String("error", err.Error()),
		)
		return domain.Verdict{
			Status: domain.StatusError,
			Reason: fmt.Sprintf("oracle call failed: %v", err),
		}
	}

	verdict := parseVerdict(text)
	e.events.Publish(ctx, Event{Kind: EventVerdictParsed, Window: index, Steps: names, Detail: string(verdict.Status)})
	return verdict
}

// combineVerdicts reduces per-window verdicts into one report: the first
// faulty verdict in scan order, or a clean bill for every step.
func combineVerdicts(verdicts []domain.Verdict, steps []domain.StepRecord) *domain.DiagnosticReport {
	for i, v := range verdicts {
		if v.FaultyStep == nil {
			continue
		}
		report := &domain.DiagnosticReport{
			FaultyStep:      v.FaultyStep,
			FaultyStepOrder: v.FaultyStepOrder,
			Reason:          v.Reason,
			AnalysisMethod:  domain.AnalysisMethodSlidingWindow,
			WindowsAnalyzed: i + 1,
		}
		if v.Suggestion != "" {
			suggestion := v.Suggestion
			report.Suggestion = &suggestion
		}
		return report
	}

	all := make([]domain.StepAnalysis, len(steps))
	for i, step := range steps {
		all[i] = domain.StepAnalysis{
			Step:   step.Name,
			Status: domain.StatusOK,
			Note:   "Transition verified",
		}
	}
	return &domain.DiagnosticReport{
		Reason:          cleanReason,
		AnalysisMethod:  domain.AnalysisMethodSlidingWindow,
		WindowsAnalyzed: len(verdicts),
		AllSteps:        all,
	}
}
