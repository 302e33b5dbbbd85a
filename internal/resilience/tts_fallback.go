package resilience

import (
	"context"

	"github.com/wakepal/wakepal/pkg/audio"
	"github.com/wakepal/wakepal/pkg/provider/tts"
)

// TTSFallback implements [tts.Synthesizer] with automatic failover across
// multiple TTS backends. Each backend has its own circuit breaker.
type TTSFallback struct {
	group *FallbackGroup[tts.Synthesizer]
}

// Compile-time interface assertion.
var _ tts.Synthesizer = (*TTSFallback)(nil)

// NewTTSFallback creates a [TTSFallback] with primary as the preferred backend.
func NewTTSFallback(primary tts.Synthesizer, primaryName string, cfg FallbackConfig) *TTSFallback {
	return &TTSFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional synthesizer as a fallback.
func (f *TTSFallback) AddFallback(name string, synthesizer tts.Synthesizer) {
	f.group.AddFallback(name, synthesizer)
}

// Synthesize renders the chunk with the first healthy backend. Note that a
// failover mid-response changes the speaking voice; the player's per-chunk
// error handling makes that preferable to dropping the chunk entirely.
func (f *TTSFallback) Synthesize(ctx context.Context, voice tts.Voice, text string) (audio.Clip, error) {
	return ExecuteWithResult(f.group, func(s tts.Synthesizer) (audio.Clip, error) {
		return s.Synthesize(ctx, voice, text)
	})
}
