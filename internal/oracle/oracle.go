// Package oracle defines the narrow boundary to the external text-reasoning
// service consulted during diagnosis. The engine depends only on this
// interface; transport, authentication and retries belong to implementations.
package oracle

import (
	"context"
	"fmt"
)

// Request is one completion request to the reasoning service.
type Request struct {
	// SystemInstructions is the fixed instruction block sent ahead of the
	// prompt.
	SystemInstructions string

	// Prompt is the rendered window content.
	Prompt string

	// MaxOutputTokens bounds the response length.
	MaxOutputTokens int

	// Temperature is the determinism hint; diagnosis wants near-greedy
	// decoding.
	Temperature float64
}

// Client is the completion capability injected into the engine. Tests supply
// a scripted fake; production uses the Cerebras client.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Error wraps any failure talking to the reasoning service: timeout,
// transport failure, non-2xx status, rejected auth. The engine treats these
// as local, non-fatal window failures.
type Error struct {
	// StatusCode is the HTTP status when the service answered, 0 otherwise.
	StatusCode int

	// Message describes the failure.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("oracle error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("oracle error: %s", e.Message)
}

func (e *Error) Unwrap() error { return e.Err }
