package diagnose

import "github.com/RonitGandotra05/agent-xray/internal/payload"

// Config holds the engine's budgets and scan parameters. Zero fields take
// the documented defaults.
type Config struct {
	// MaxPayloadBytes is the serialized size each step's inputs and outputs
	// are normalized to before prompting.
	MaxPayloadBytes int

	// SampleSize, MinSampleSize and StringTruncate parameterize payload
	// normalization (see internal/payload).
	SampleSize     int
	MinSampleSize  int
	StringTruncate int

	// WindowSize is the number of adjacent steps evaluated per oracle call.
	WindowSize int

	// MaxOutputTokens bounds each oracle response.
	MaxOutputTokens int

	// Temperature is the oracle determinism hint.
	Temperature float64

	// ContextTokenBudget is the prompt size above which the engine emits a
	// warning event. Informational only; the request is still sent.
	ContextTokenBudget int
}

const (
	// DefaultMaxPayloadBytes keeps one step at roughly 5K tokens so two
	// steps plus instructions stay well inside the model context.
	DefaultMaxPayloadBytes = 20000

	// DefaultWindowSize is the number of steps per window.
	DefaultWindowSize = 2

	// DefaultMaxOutputTokens bounds the verdict length.
	DefaultMaxOutputTokens = 1000

	// DefaultTemperature keeps decoding near-greedy for reproducible
	// verdicts.
	DefaultTemperature = 0.1

	// DefaultContextTokenBudget mirrors the 65K context of the default
	// oracle model.
	DefaultContextTokenBudget = 65536
)

func (c Config) withDefaults() Config {
	if c.MaxPayloadBytes <= 0 {
		c.MaxPayloadBytes = DefaultMaxPayloadBytes
	}
	if c.SampleSize <= 0 {
		c.SampleSize = payload.DefaultSampleSize
	}
	if c.MinSampleSize <= 0 {
		c.MinSampleSize = payload.DefaultMinSampleSize
	}
	if c.StringTruncate <= 0 {
		c.StringTruncate = payload.DefaultStringTruncate
	}
	if c.WindowSize <= 0 {
		c.WindowSize = DefaultWindowSize
	}
	if c.MaxOutputTokens <= 0 {
		c.MaxOutputTokens = DefaultMaxOutputTokens
	}
	if c.Temperature <= 0 {
		c.Temperature = DefaultTemperature
	}
	if c.ContextTokenBudget <= 0 {
		c.ContextTokenBudget = DefaultContextTokenBudget
	}
	return c
}
