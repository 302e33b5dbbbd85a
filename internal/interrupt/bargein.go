package interrupt

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/wakepal/wakepal/internal/listen"
	"github.com/wakepal/wakepal/pkg/audio"
	"github.com/wakepal/wakepal/pkg/provider/stt"
	"github.com/wakepal/wakepal/pkg/provider/vad"
)

// DefaultStopWords are the utterances that interrupt a response when heard
// over playback. Matching is a case-insensitive substring check, so "please
// stop now" triggers too.
var DefaultStopWords = []string{"stop", "shush", "shut up", "quiet", "enough"}

// BargeIn listens on its own capture stream while a response plays and fires
// its Token when a stop word is heard. It uses a short-fuse segmenter so a
// bare "stop" finalises in about half a second instead of a full silence
// timeout.
type BargeIn struct {
	platform  audio.Platform
	engine    vad.Engine
	stt       stt.Transcriber
	token     *Token
	stopWords []string
	capture   audio.CaptureConfig
	params    listen.Params
	log       *slog.Logger
}

// BargeInOption configures a BargeIn.
type BargeInOption func(*BargeIn)

// WithStopWords replaces the default stop words.
func WithStopWords(words []string) BargeInOption {
	return func(b *BargeIn) {
		if len(words) > 0 {
			b.stopWords = words
		}
	}
}

// WithCaptureConfig overrides the capture stream configuration.
func WithCaptureConfig(cfg audio.CaptureConfig) BargeInOption {
	return func(b *BargeIn) {
		b.capture = cfg
	}
}

// WithSegmenterParams overrides the segmentation parameters.
func WithSegmenterParams(params listen.Params) BargeInOption {
	return func(b *BargeIn) {
		b.params = params
	}
}

// WithBargeInLogger sets the logger.
func WithBargeInLogger(log *slog.Logger) BargeInOption {
	return func(b *BargeIn) {
		b.log = log
	}
}

// NewBargeIn builds a barge-in detector that fires token when a stop word is
// transcribed from the microphone.
func NewBargeIn(platform audio.Platform, engine vad.Engine, transcriber stt.Transcriber, token *Token, opts ...BargeInOption) *BargeIn {
	b := &BargeIn{
		platform:  platform,
		engine:    engine,
		stt:       transcriber,
		token:     token,
		stopWords: DefaultStopWords,
		capture: audio.CaptureConfig{
			SampleRate:   16000,
			FrameSamples: 320,
			BufferFrames: 32,
		},
		params: listen.BargeInParams(),
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run listens until the context is cancelled, a stop word fires the token,
// or the capture stream fails. A microphone that cannot be opened at all is
// logged and tolerated (Run returns nil): playback simply proceeds without
// voice interruption. A device error mid-stream is returned.
func (b *BargeIn) Run(ctx context.Context) error {
	stream, err := b.platform.OpenCapture(ctx, b.capture)
	if err != nil {
		b.log.Warn("barge-in capture unavailable, voice interruption disabled", "error", err)
		return nil
	}
	defer stream.Close()

	detector, err := b.engine.NewDetector(vad.Config{
		SampleRate:     b.capture.SampleRate,
		FrameSizeMs:    b.capture.FrameSamples * 1000 / b.capture.SampleRate,
		Aggressiveness: 2,
	})
	if err != nil {
		b.log.Warn("barge-in VAD unavailable, voice interruption disabled", "error", err)
		return nil
	}
	defer detector.Close()

	seg := listen.New(detector, b.params)
	for {
		segment, err := listen.Capture(ctx, stream, seg)
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil
		case errors.Is(err, listen.ErrStreamClosed):
			return nil
		default:
			return err
		}

		text, err := b.stt.Transcribe(ctx, audio.PCM16ToFloat32(segment.PCM))
		if err != nil {
			b.log.Debug("barge-in transcription failed", "error", err)
			continue
		}
		if word, ok := b.matchStopWord(text); ok {
			b.log.Info("stop word heard", "word", word, "transcript", text)
			b.token.Cancel()
			return nil
		}
	}
}

// matchStopWord returns the first stop word contained in the transcript.
func (b *BargeIn) matchStopWord(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, word := range b.stopWords {
		if strings.Contains(lower, strings.ToLower(word)) {
			return word, true
		}
	}
	return "", false
}
