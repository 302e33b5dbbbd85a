// Package app wires the pipeline subsystems into a running assistant.
//
// The App owns the main loop: an explicit two-state machine that alternates
// between listening for a wake-phrase query and responding to it. Each
// response session arms its own interrupt sources (barge-in listener,
// keypress listener) on a session-scoped context, so nothing about a
// finished or aborted response leaks into the next listening turn.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wakepal/wakepal/internal/config"
	"github.com/wakepal/wakepal/internal/interrupt"
	"github.com/wakepal/wakepal/internal/listen"
	"github.com/wakepal/wakepal/internal/observe"
	"github.com/wakepal/wakepal/internal/speak"
	"github.com/wakepal/wakepal/internal/typing"
	"github.com/wakepal/wakepal/internal/wake"
	"github.com/wakepal/wakepal/pkg/audio"
	"github.com/wakepal/wakepal/pkg/provider/llm"
	"github.com/wakepal/wakepal/pkg/provider/stt"
	"github.com/wakepal/wakepal/pkg/provider/tts"
	"github.com/wakepal/wakepal/pkg/provider/vad"
)

// Providers holds one interface value per provider slot. Populated by
// main.go via the config registry, or with mocks in tests.
type Providers struct {
	VAD   vad.Engine
	STT   stt.Transcriber
	TTS   tts.Synthesizer
	LLM   llm.Responder
	Audio audio.Platform
}

// App owns the wake-phrase assistant's main loop.
type App struct {
	cfg       *config.Config
	providers Providers
	player    *speak.Player
	metrics   *observe.Metrics
	log       *slog.Logger

	// mu guards the hot-reloadable fields below; the config watcher swaps
	// them while Run is looping.
	mu        sync.RWMutex
	matcher   *wake.Matcher
	stopWords []string
	typing    *typing.Player

	keypress bool
	state    State
}

// Option is a functional option for New. Use these to inject test doubles
// and tune test timing.
type Option func(*App)

// WithLogger sets the application logger.
func WithLogger(log *slog.Logger) Option {
	return func(a *App) { a.log = log }
}

// WithMetrics injects a metrics instance instead of the process-wide default.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithTypingSounds injects a typing sound player to run while the LLM is
// thinking.
func WithTypingSounds(p *typing.Player) Option {
	return func(a *App) { a.typing = p }
}

// WithoutKeypress disables the Esc listener. Used in tests, where there is
// no terminal to read from.
func WithoutKeypress() Option {
	return func(a *App) { a.keypress = false }
}

// WithPlayer overrides the speech player, letting tests shrink the playback
// poll interval.
func WithPlayer(p *speak.Player) Option {
	return func(a *App) { a.player = p }
}

// New builds the App from validated config and constructed providers.
func New(cfg *config.Config, providers Providers, opts ...Option) (*App, error) {
	matcher, err := wake.New(cfg.Wake.Phrases)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	a := &App{
		cfg:       cfg,
		providers: providers,
		matcher:   matcher,
		stopWords: slices.Clone(cfg.BargeIn.StopWords),
		metrics:   observe.DefaultMetrics(),
		log:       slog.Default(),
		keypress:  true,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.player == nil {
		a.player = speak.NewPlayer(providers.TTS, voiceFromEntry(cfg.Providers.TTS), providers.Audio,
			speak.WithLogger(a.log), speak.WithMetrics(a.metrics))
	}
	return a, nil
}

// ApplyDiff applies the hot-reloadable parts of a config change to the
// running app. Restart-only fields (devices, providers, segmenter timing) are
// ignored; the watcher's diff never includes them.
func (a *App) ApplyDiff(d config.ConfigDiff) error {
	if d.WakePhrasesChanged {
		m, err := wake.New(d.NewWakePhrases)
		if err != nil {
			return fmt.Errorf("app: reload wake phrases: %w", err)
		}
		a.mu.Lock()
		a.matcher = m
		a.mu.Unlock()
		a.log.Info("wake phrases reloaded", "phrases", d.NewWakePhrases)
	}
	if d.StopWordsChanged {
		a.mu.Lock()
		a.stopWords = slices.Clone(d.NewStopWords)
		a.mu.Unlock()
		a.log.Info("stop words reloaded", "stop_words", d.NewStopWords)
	}
	return nil
}

// SetTypingSounds swaps (or with nil, removes) the typing sound player. Takes
// effect on the next response.
func (a *App) SetTypingSounds(p *typing.Player) {
	a.mu.Lock()
	a.typing = p
	a.mu.Unlock()
}

func (a *App) currentMatcher() *wake.Matcher {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.matcher
}

func (a *App) currentStopWords() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stopWords
}

func (a *App) currentTyping() *typing.Player {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.typing
}

// voiceFromEntry maps the TTS provider entry onto a synthesis voice.
func voiceFromEntry(entry config.ProviderEntry) tts.Voice {
	v := tts.Voice{}
	if id, ok := entry.Options["voice_id"].(string); ok {
		v.ID = id
	}
	if lang, ok := entry.Options["language"].(string); ok {
		v.Language = lang
	}
	return v
}

// Run executes the main loop until the context is cancelled or the audio
// device fails. Transcription and LLM failures are logged and the loop
// returns to listening; device failures (including capture overruns) are
// fatal so the supervisor can restart the process with a healthy device.
func (a *App) Run(ctx context.Context) error {
	a.log.Info("assistant ready", "wake_phrases", a.cfg.Wake.Phrases)
	for {
		a.setState(StateListening)
		query, err := a.listenOnce(ctx)
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil
		case err != nil:
			return fmt.Errorf("app: listening: %w", err)
		case query == "":
			continue
		}

		a.setState(StateResponding)
		a.respond(ctx, query)
	}
}

func (a *App) setState(s State) {
	if a.state != s {
		a.log.Debug("state change", "from", a.state.String(), "to", s.String())
		a.state = s
	}
}

// listenOnce captures one speech segment, transcribes it, and returns the
// wake-stripped query. It returns "" with a nil error when the utterance
// should simply be ignored (no wake phrase, failed transcription).
func (a *App) listenOnce(ctx context.Context) (string, error) {
	stream, err := a.providers.Audio.OpenCapture(ctx, a.captureConfig())
	if err != nil {
		return "", fmt.Errorf("open capture: %w", err)
	}
	defer stream.Close()

	detector, err := a.providers.VAD.NewDetector(vad.Config{
		SampleRate:     a.cfg.Audio.SampleRate,
		FrameSizeMs:    a.cfg.Audio.FrameMS,
		Aggressiveness: 2,
	})
	if err != nil {
		return "", fmt.Errorf("create vad detector: %w", err)
	}
	defer detector.Close()

	seg := listen.New(detector, a.listenParams())
	segment, err := listen.Capture(ctx, stream, seg)
	if err != nil {
		return "", err
	}
	a.metrics.RecordSegment(ctx, segment.Reason.String(), segment.Duration().Seconds())
	a.log.Debug("segment captured",
		"reason", segment.Reason.String(),
		"duration", segment.Duration(),
		"speech_frames", segment.SpeechFrames,
	)
	if a.cfg.Listen.DumpDir != "" {
		a.dumpSegment(segment)
	}

	start := time.Now()
	text, err := a.providers.STT.Transcribe(ctx, audio.PCM16ToFloat32(segment.PCM))
	a.metrics.STTDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		a.metrics.RecordProviderError(ctx, a.providers.STT.Model(), "stt")
		a.log.Warn("transcription failed, discarding segment", "error", err)
		return "", nil
	}
	if text == "" {
		return "", nil
	}
	matcher := a.currentMatcher()
	if !matcher.Match(text) {
		a.log.Debug("no wake phrase", "transcript", text)
		return "", nil
	}

	a.metrics.WakeMatches.Add(ctx, 1)
	query := matcher.Strip(text)
	a.log.Info("wake phrase heard", "query", query)
	return query, nil
}

// dumpSegment writes captured audio under listen.dump_dir so segmentation
// problems can be replayed offline.
func (a *App) dumpSegment(segment *audio.Segment) {
	name := "segment-" + time.Now().Format("20060102-150405.000") + ".wav"
	path := filepath.Join(a.cfg.Listen.DumpDir, name)
	wav := audio.EncodeWAV(segment.PCM, a.cfg.Audio.SampleRate, 1)
	if err := os.WriteFile(path, wav, 0o644); err != nil {
		a.log.Warn("segment dump failed", "path", path, "error", err)
		return
	}
	a.log.Debug("segment dumped", "path", path)
}

// respond generates and speaks one response. All failures inside a response
// are non-fatal: they are logged and the loop returns to listening.
func (a *App) respond(ctx context.Context, query string) {
	a.metrics.ActivePlaybacks.Add(ctx, 1)
	defer a.metrics.ActivePlaybacks.Add(ctx, -1)

	response := a.think(ctx, query)
	if response == "" {
		return
	}

	if a.providers.TTS == nil {
		a.log.Warn("no TTS provider; response not spoken", "response", response)
		return
	}
	chunks := speak.Chunk(response)
	if len(chunks) == 0 {
		a.log.Warn("response contained nothing speakable")
		return
	}

	// The interrupt sources live on a session context separate from the
	// player: cancelling them must not abort playback mid-clip, and a
	// finished playback must tear them down.
	voiceToken := &interrupt.Token{}
	keyToken := &interrupt.Token{}
	controller := interrupt.NewController(voiceToken, keyToken)

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, sessionCtx := errgroup.WithContext(sessionCtx)
	if a.cfg.BargeIn.BargeInEnabled() {
		bargeIn := interrupt.NewBargeIn(a.providers.Audio, a.providers.VAD, a.providers.STT, voiceToken,
			interrupt.WithStopWords(a.currentStopWords()),
			interrupt.WithCaptureConfig(a.captureConfig()),
			interrupt.WithSegmenterParams(a.bargeInParams()),
			interrupt.WithBargeInLogger(a.log),
		)
		g.Go(func() error { return bargeIn.Run(sessionCtx) })
	}
	if a.keypress {
		kp := interrupt.NewKeypress(keyToken, a.log)
		g.Go(func() error { return kp.Run(sessionCtx) })
	}

	played, err := a.player.Speak(ctx, chunks, controller.ShouldStop)
	a.metrics.ChunksSpoken.Add(ctx, int64(played))
	if err != nil {
		a.log.Error("playback failed", "error", err, "chunks_played", played)
	}

	cancel()
	if err := g.Wait(); err != nil {
		a.log.Warn("interrupt listener failed", "error", err)
	}

	switch {
	case voiceToken.Triggered():
		a.metrics.RecordInterrupt(ctx, "voice")
		a.log.Info("response interrupted by voice", "chunks_played", played, "chunks_total", len(chunks))
	case keyToken.Triggered():
		a.metrics.RecordInterrupt(ctx, "key")
		a.log.Info("response interrupted by keypress", "chunks_played", played, "chunks_total", len(chunks))
	default:
		a.log.Info("response complete", "chunks_played", played)
	}
}

// think runs the LLM under its hard timeout, with typing sounds if
// configured. A failed or empty completion returns "" and the caller drops
// back to listening.
func (a *App) think(ctx context.Context, query string) string {
	if a.providers.LLM == nil {
		a.log.Warn("no LLM provider; query dropped", "query", query)
		return ""
	}
	if sounds := a.currentTyping(); sounds != nil {
		if err := sounds.Start(); err != nil {
			a.log.Warn("typing sounds unavailable", "error", err)
		} else {
			defer sounds.Stop()
		}
	}

	timeout := time.Duration(a.cfg.Providers.LLM.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = config.DefaultLLMTimeoutSeconds * time.Second
	}
	llmCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	response, err := a.providers.LLM.Respond(llmCtx, query)
	a.metrics.LLMDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		a.metrics.RecordProviderError(ctx, a.cfg.Providers.LLM.Name, "llm")
		a.log.Warn("llm request failed", "error", err)
		return ""
	}
	if response == "" {
		a.log.Warn("llm returned an empty response")
	}
	return response
}

func (a *App) captureConfig() audio.CaptureConfig {
	return audio.CaptureConfig{
		SampleRate:   a.cfg.Audio.SampleRate,
		FrameSamples: a.cfg.Audio.SampleRate * a.cfg.Audio.FrameMS / 1000,
		BufferFrames: 32,
	}
}

func (a *App) listenParams() listen.Params {
	return listen.Params{
		FrameDuration:       time.Duration(a.cfg.Audio.FrameMS) * time.Millisecond,
		SilenceTimeout:      time.Duration(a.cfg.Listen.SilenceMS) * time.Millisecond,
		MinSpeech:           time.Duration(a.cfg.Listen.MinSpeechMS) * time.Millisecond,
		MaxSpeech:           time.Duration(a.cfg.Listen.MaxSegmentS) * time.Second,
		EnergyThresholdDBFS: a.cfg.Listen.EnergyThresholdDBFS,
	}
}

func (a *App) bargeInParams() listen.Params {
	frame := time.Duration(a.cfg.Audio.FrameMS) * time.Millisecond
	return listen.Params{
		FrameDuration:       frame,
		SilenceTimeout:      time.Duration(a.cfg.BargeIn.SilenceMS) * time.Millisecond,
		MinSpeech:           time.Duration(a.cfg.BargeIn.MinSpeechFrames) * frame,
		MaxSpeech:           time.Duration(a.cfg.Listen.MaxSegmentS) * time.Second,
		EnergyThresholdDBFS: a.cfg.Listen.EnergyThresholdDBFS,
	}
}
