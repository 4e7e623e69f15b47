// Package payload shrinks step payloads to fit a serialized byte budget
// without losing document shape. Large lists become head+tail samples, long
// strings are truncated with an omission marker, and everything else passes
// through untouched.
package payload

import (
	"fmt"

	"github.com/RonitGandotra05/agent-xray/internal/domain"
)

const (
	// DefaultSampleSize is the list length a summarization pass starts from.
	DefaultSampleSize = 100

	// DefaultMinSampleSize is the floor the sample size halves down to.
	DefaultMinSampleSize = 10

	// DefaultStringTruncate is the rune length long strings truncate to.
	DefaultStringTruncate = 2000
)

// Limits configures a Normalizer. Zero fields take the package defaults.
type Limits struct {
	SampleSize     int
	MinSampleSize  int
	StringTruncate int
}

// Normalizer reduces Value trees to a byte budget. Safe for concurrent use;
// it holds only its configuration.
type Normalizer struct {
	sampleSize     int
	minSampleSize  int
	stringTruncate int
}

// NewNormalizer returns a Normalizer with the given limits.
func NewNormalizer(limits Limits) *Normalizer {
	n := &Normalizer{
		sampleSize:     limits.SampleSize,
		minSampleSize:  limits.MinSampleSize,
		stringTruncate: limits.StringTruncate,
	}
	if n.sampleSize <= 0 {
		n.sampleSize = DefaultSampleSize
	}
	if n.minSampleSize <= 0 {
		n.minSampleSize = DefaultMinSampleSize
	}
	if n.stringTruncate <= 0 {
		n.stringTruncate = DefaultStringTruncate
	}
	return n
}

// Normalize returns a value whose serialized size fits maxBytes whenever
// structurally possible. Values already within budget return unchanged.
// When even the minimum sample size cannot reach the budget, the floor pass
// result is returned as-is: best-effort degradation, never an error.
func (n *Normalizer) Normalize(v domain.Value, maxBytes int) domain.Value {
	if maxBytes <= 0 || v.EncodedSize() <= maxBytes {
		return v
	}

	sample := n.sampleSize
	for {
		if sample < n.minSampleSize {
			sample = n.minSampleSize
		}
		out := n.pass(v, sample)
		if out.EncodedSize() <= maxBytes || sample == n.minSampleSize {
			return out
		}
		sample /= 2
	}
}

// NormalizeStep returns a copy of the step with its inputs and outputs
// normalized to maxBytes each. The original step is never touched.
func (n *Normalizer) NormalizeStep(step domain.StepRecord, maxBytes int) domain.StepRecord {
	out := step
	out.Inputs = n.Normalize(step.Inputs, maxBytes)
	out.Outputs = n.Normalize(step.Outputs, maxBytes)
	return out
}

// pass runs one summarization sweep over the tree with a fixed sample size.
func (n *Normalizer) pass(v domain.Value, sample int) domain.Value {
	switch v.Kind() {
	case domain.KindObject:
		out := domain.Object()
		for _, key := range v.Keys() {
			val, _ := v.Get(key)
			if val.Kind() == domain.KindArray && val.Len() > sample {
				out.Set(key, n.sampleArray(val, sample))
				// The sibling count tells the reader truncation happened
				// rather than silently dropping data.
				out.Set(key+"_total_count", domain.Number(float64(val.Len())))
				continue
			}
			out.Set(key, n.pass(val, sample))
		}
		return out

	case domain.KindArray:
		if v.Len() > sample {
			// Bare sequence: no key name to attach a count sibling to.
			return n.sampleArray(v, sample)
		}
		items := make([]domain.Value, v.Len())
		for i, item := range v.Items() {
			items[i] = n.pass(item, sample)
		}
		return domain.Array(items...)

	case domain.KindString:
		runes := []rune(v.StringVal())
		if len(runes) <= n.stringTruncate {
			return v
		}
		omitted := len(runes) - n.stringTruncate
		return domain.String(fmt.Sprintf("%s... [omitted %d chars]", string(runes[:n.stringTruncate]), omitted))

	default:
		return v
	}
}

// sampleArray keeps the first sample/2 and the trailing remainder of the
// elements in original order. Head+tail preserves both the earliest and the
// most recent evidence in order-sensitive payloads.
func (n *Normalizer) sampleArray(v domain.Value, sample int) domain.Value {
	items := v.Items()
	head := sample / 2
	tail := sample - head

	kept := make([]domain.Value, 0, sample)
	for _, item := range items[:head] {
		kept = append(kept, n.pass(item, sample))
	}
	for _, item := range items[len(items)-tail:] {
		kept = append(kept, n.pass(item, sample))
	}
	return domain.Array(kept...)
}
