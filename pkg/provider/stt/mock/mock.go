// Package mock provides a test double for the stt package interfaces.
//
// Transcriber returns scripted results in call order and records the samples
// submitted for each call.
//
// Example:
//
//	tr := &mock.Transcriber{Results: []string{"hey pal what time is it"}}
//	text, _ := tr.Transcribe(ctx, samples)
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/wakepal/wakepal/pkg/provider/stt"
)

// TranscribeCall records a single invocation of Transcriber.Transcribe.
type TranscribeCall struct {
	// Samples is a copy of the samples passed to Transcribe.
	Samples []float32
}

// Transcriber is a mock implementation of stt.Transcriber.
type Transcriber struct {
	mu sync.Mutex

	// Results holds per-call return values consumed in order. When the
	// script is exhausted (or nil), Default is returned.
	Results []string

	// Default is returned once Results runs out.
	Default string

	// TranscribeErr, if non-nil, is returned by every Transcribe call.
	TranscribeErr error

	// Delay is slept before each Transcribe returns, for timing tests.
	Delay time.Duration

	// ModelName is returned by Model. Defaults to "mock".
	ModelName string

	// TranscribeCalls records every call to Transcribe in order.
	TranscribeCalls []TranscribeCall

	resultIdx int
}

// Transcribe records the call and returns the next scripted result.
// Context cancellation is honoured so that timeout paths can be tested.
func (t *Transcriber) Transcribe(ctx context.Context, samples []float32) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if t.Delay > 0 {
		select {
		case <-time.After(t.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	cp := make([]float32, len(samples))
	copy(cp, samples)
	t.TranscribeCalls = append(t.TranscribeCalls, TranscribeCall{Samples: cp})
	if t.TranscribeErr != nil {
		return "", t.TranscribeErr
	}
	if t.resultIdx < len(t.Results) {
		result := t.Results[t.resultIdx]
		t.resultIdx++
		return result, nil
	}
	return t.Default, nil
}

// Model returns ModelName, or "mock" if unset.
func (t *Transcriber) Model() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ModelName == "" {
		return "mock"
	}
	return t.ModelName
}

// CallCount returns the number of Transcribe invocations so far. Thread-safe.
func (t *Transcriber) CallCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.TranscribeCalls)
}

// ResetCalls clears all recorded call history and rewinds the script.
// Thread-safe.
func (t *Transcriber) ResetCalls() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.TranscribeCalls = nil
	t.resultIdx = 0
}

// Ensure Transcriber implements stt.Transcriber at compile time.
var _ stt.Transcriber = (*Transcriber)(nil)
