// Package tts defines the Synthesizer interface for Text-to-Speech backends.
//
// A TTS synthesizer wraps a speech synthesis engine (e.g., a local Coqui TTS
// server) and exposes a uniform batch interface: one call synthesises one
// chunk of text into a playable clip. The pipelined player issues these calls
// with a one-chunk look-ahead, so implementations must tolerate concurrent
// Synthesize calls against a shared immutable Voice.
package tts

import (
	"context"

	"github.com/wakepal/wakepal/pkg/audio"
)

// Voice identifies the voice to synthesise with. It is immutable once
// configured; the same value is passed to every Synthesize call in a session.
type Voice struct {
	// ID is the backend-specific voice identifier (e.g., a Coqui speaker_id).
	// May be empty for single-voice models.
	ID string

	// Language is the BCP-47 language tag (e.g., "en"). May be empty if the
	// backend has a fixed language.
	Language string
}

// Synthesizer is the abstraction over any TTS backend.
//
// Implementations must be safe for concurrent use.
type Synthesizer interface {
	// Synthesize converts text to a playable clip. Returns an error if the
	// backend fails or ctx expires; the player treats per-chunk failures as
	// skippable and carries on with the next chunk.
	Synthesize(ctx context.Context, voice Voice, text string) (audio.Clip, error)
}
