// Package stt defines the Transcriber interface for Speech-to-Text backends.
//
// An STT transcriber wraps a transcription engine (a local whisper.cpp model,
// or the wakepal-sttd HTTP daemon fronting one) and exposes a uniform batch
// interface: the segmenter hands over a complete speech segment and receives
// the recognised text. Batch transcription fits the wake-phrase pipeline —
// segments are short and bounded, and the pipeline only acts on complete
// utterances.
//
// Implementations must be safe for concurrent use. The pipeline transcribes
// primary segments and barge-in segments from different goroutines against
// the same Transcriber.
package stt

import "context"

// Transcriber is the abstraction over any STT backend.
type Transcriber interface {
	// Transcribe converts a complete speech segment to text. Samples are mono
	// float32 PCM in [-1, 1] at 16 kHz, the rate Whisper-family models are
	// trained on. Returns the recognised text with surrounding whitespace
	// trimmed; an empty string means the backend heard nothing intelligible.
	//
	// The ctx deadline bounds the inference; implementations must abandon
	// work promptly when it expires.
	Transcribe(ctx context.Context, samples []float32) (string, error)

	// Model returns a short identifier for the active model (e.g., the model
	// file's base name), used by health endpoints and startup logging.
	Model() string
}
