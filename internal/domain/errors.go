package domain

import "errors"

// ErrEmptyTrace rejects a trace with zero steps. It is the only condition
// fatal to a whole diagnosis call; every other failure degrades into the
// returned report.
var ErrEmptyTrace = errors.New("trace has no steps to analyze")

// ErrRunNotFound is returned by storage lookups for unknown run IDs.
var ErrRunNotFound = errors.New("run not found")
