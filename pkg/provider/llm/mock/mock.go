// Package mock provides a test double for the llm package interfaces.
//
// Responder returns scripted responses in call order and records every
// prompt. Set Delay to exercise timeout handling.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/wakepal/wakepal/pkg/provider/llm"
)

// RespondCall records a single invocation of Responder.Respond.
type RespondCall struct {
	// Prompt is the prompt passed to Respond.
	Prompt string
}

// Responder is a mock implementation of llm.Responder.
type Responder struct {
	mu sync.Mutex

	// Responses holds per-call return values consumed in order. When the
	// script is exhausted (or nil), Default is returned.
	Responses []string

	// Default is returned once Responses runs out.
	Default string

	// RespondErr, if non-nil, is returned by every Respond call.
	RespondErr error

	// Delay, if positive, is how long Respond blocks before returning.
	// Context expiry during the delay wins and returns ctx.Err().
	Delay time.Duration

	// RespondCalls records every call to Respond in order.
	RespondCalls []RespondCall

	responseIdx int
}

// Respond records the call and returns the next scripted response.
func (r *Responder) Respond(ctx context.Context, prompt string) (string, error) {
	r.mu.Lock()
	r.RespondCalls = append(r.RespondCalls, RespondCall{Prompt: prompt})
	delay := r.Delay
	r.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.RespondErr != nil {
		return "", r.RespondErr
	}
	if r.responseIdx < len(r.Responses) {
		resp := r.Responses[r.responseIdx]
		r.responseIdx++
		return resp, nil
	}
	return r.Default, nil
}

// CallCount returns the number of Respond invocations so far. Thread-safe.
func (r *Responder) CallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.RespondCalls)
}

// Ensure Responder implements llm.Responder at compile time.
var _ llm.Responder = (*Responder)(nil)
