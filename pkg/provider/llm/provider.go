// Package llm defines the Responder interface for language-model backends.
//
// A responder wraps an LLM (a hosted API via any-llm-go, or an arbitrary
// local command) behind a single-turn interface: one accepted voice query in,
// one text response out. The pipeline speaks the response and returns to
// listening — conversation state, if any, lives behind the implementation.
//
// Implementations must be safe for concurrent use.
package llm

import "context"

// Responder is the abstraction over any LLM backend.
type Responder interface {
	// Respond produces a text answer for a single user prompt. The ctx
	// deadline is a hard cap on inference time; implementations must abandon
	// work and return ctx.Err() promptly when it expires. An empty string
	// with a nil error means the model declined to answer.
	Respond(ctx context.Context, prompt string) (string, error)
}
