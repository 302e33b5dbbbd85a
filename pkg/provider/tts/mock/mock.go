// Package mock provides a test double for the tts package interfaces.
//
// Synthesizer generates a short deterministic clip per call (or scripted
// errors) and records every request, letting player tests assert on chunk
// order and cancellation behaviour.
package mock

import (
	"context"
	"sync"

	"github.com/wakepal/wakepal/pkg/audio"
	"github.com/wakepal/wakepal/pkg/provider/tts"
)

// SynthesizeCall records a single invocation of Synthesizer.Synthesize.
type SynthesizeCall struct {
	// Voice is the voice passed to Synthesize.
	Voice tts.Voice

	// Text is the text passed to Synthesize.
	Text string
}

// Synthesizer is a mock implementation of tts.Synthesizer.
type Synthesizer struct {
	mu sync.Mutex

	// SampleRate of generated clips. Defaults to 22050.
	SampleRate int

	// SamplesPerClip is the length of each generated clip. Defaults to 64.
	SamplesPerClip int

	// FailTexts lists texts for which Synthesize returns ErrFor. Used to
	// exercise the player's per-chunk failure skip.
	FailTexts []string

	// ErrFor is returned when the requested text is in FailTexts.
	// If nil, a generic error is returned.
	ErrFor error

	// SynthesizeErr, if non-nil, is returned by every Synthesize call.
	SynthesizeErr error

	// Block, if non-nil, is closed by the test to release in-flight calls.
	// When set, Synthesize waits for it (or ctx) before returning.
	Block chan struct{}

	// SynthesizeCalls records every call to Synthesize in order.
	SynthesizeCalls []SynthesizeCall
}

// Synthesize records the call and returns a deterministic clip whose first
// sample encodes the call index, so tests can verify playback order.
func (s *Synthesizer) Synthesize(ctx context.Context, voice tts.Voice, text string) (audio.Clip, error) {
	s.mu.Lock()
	idx := len(s.SynthesizeCalls)
	s.SynthesizeCalls = append(s.SynthesizeCalls, SynthesizeCall{Voice: voice, Text: text})
	block := s.Block
	s.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return audio.Clip{}, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return audio.Clip{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SynthesizeErr != nil {
		return audio.Clip{}, s.SynthesizeErr
	}
	for _, fail := range s.FailTexts {
		if fail == text {
			if s.ErrFor != nil {
				return audio.Clip{}, s.ErrFor
			}
			return audio.Clip{}, errSynthesisFailed
		}
	}

	rate := s.SampleRate
	if rate <= 0 {
		rate = 22050
	}
	n := s.SamplesPerClip
	if n <= 0 {
		n = 64
	}
	samples := make([]float32, n)
	samples[0] = float32(idx+1) / 100
	return audio.Clip{Samples: samples, SampleRate: rate}, nil
}

// CallCount returns the number of Synthesize invocations so far. Thread-safe.
func (s *Synthesizer) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.SynthesizeCalls)
}

// Texts returns the texts submitted so far, in order. Thread-safe.
func (s *Synthesizer) Texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.SynthesizeCalls))
	for i, c := range s.SynthesizeCalls {
		out[i] = c.Text
	}
	return out
}

type synthesisError string

func (e synthesisError) Error() string { return string(e) }

const errSynthesisFailed = synthesisError("mock: synthesis failed")

// Ensure Synthesizer implements tts.Synthesizer at compile time.
var _ tts.Synthesizer = (*Synthesizer)(nil)
