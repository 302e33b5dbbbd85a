package resilience

import (
	"context"

	"github.com/wakepal/wakepal/pkg/provider/llm"
)

// LLMFallback implements [llm.Responder] with automatic failover across
// multiple LLM backends. Each backend has its own circuit breaker; when the
// primary fails or its breaker is open, the next healthy fallback is tried.
type LLMFallback struct {
	group *FallbackGroup[llm.Responder]
}

// Compile-time interface assertion.
var _ llm.Responder = (*LLMFallback)(nil)

// NewLLMFallback creates an [LLMFallback] with primary as the preferred backend.
func NewLLMFallback(primary llm.Responder, primaryName string, cfg FallbackConfig) *LLMFallback {
	return &LLMFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional responder as a fallback.
func (f *LLMFallback) AddFallback(name string, responder llm.Responder) {
	f.group.AddFallback(name, responder)
}

// Respond sends the prompt to the first healthy backend and returns its
// answer. The caller's ctx deadline caps the total time across all attempts,
// so a hung primary eats into the fallback's budget.
func (f *LLMFallback) Respond(ctx context.Context, prompt string) (string, error) {
	return ExecuteWithResult(f.group, func(r llm.Responder) (string, error) {
		return r.Respond(ctx, prompt)
	})
}
