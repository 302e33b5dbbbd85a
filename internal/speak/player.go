package speak

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wakepal/wakepal/internal/observe"
	"github.com/wakepal/wakepal/pkg/audio"
	"github.com/wakepal/wakepal/pkg/provider/tts"
)

// defaultPollInterval is how often playback is checked for completion and
// cancellation while a clip is sounding.
const defaultPollInterval = 50 * time.Millisecond

// Player speaks chunked text by pipelining synthesis against playback: while
// one clip plays, the next chunk is already being synthesised, so the gap
// between chunks is the synthesis latency only when synthesis is slower than
// speech.
type Player struct {
	synth   tts.Synthesizer
	voice   tts.Voice
	audio   audio.Platform
	poll    time.Duration
	metrics *observe.Metrics
	log     *slog.Logger
}

// Option configures a Player.
type Option func(*Player)

// WithPollInterval overrides the playback poll interval. Useful in tests.
func WithPollInterval(d time.Duration) Option {
	return func(p *Player) {
		p.poll = d
	}
}

// WithLogger sets the logger used for per-chunk failures.
func WithLogger(log *slog.Logger) Option {
	return func(p *Player) {
		p.log = log
	}
}

// WithMetrics injects a metrics instance instead of the process-wide default.
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Player) {
		p.metrics = m
	}
}

// NewPlayer builds a Player speaking with the given voice on the given audio
// platform.
func NewPlayer(synth tts.Synthesizer, voice tts.Voice, platform audio.Platform, opts ...Option) *Player {
	p := &Player{
		synth:   synth,
		voice:   voice,
		audio:   platform,
		poll:    defaultPollInterval,
		metrics: observe.DefaultMetrics(),
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// synthResult carries one chunk's synthesis outcome through the look-ahead
// channel.
type synthResult struct {
	index int
	clip  audio.Clip
	err   error
}

// Speak synthesises and plays the chunks in order. The first chunk is
// synthesised synchronously so the caller's latency to first audio is one
// synthesis call; after that each chunk's synthesis overlaps the previous
// chunk's playback, one chunk ahead at most.
//
// A chunk whose synthesis fails is logged and skipped; playback continues
// with the next chunk. Cancellation is checked between chunks and every poll
// interval during playback: once cancelled reports true, the current clip is
// stopped, no further chunks are played, and any in-flight synthesis result
// is discarded. Playback device errors are fatal.
//
// Speak returns the number of chunks actually played to completion or start.
func (p *Player) Speak(ctx context.Context, chunks []string, cancelled func() bool) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	if cancelled == nil {
		cancelled = func() bool { return false }
	}

	// Look-ahead synthesis: the buffered channel means the goroutine never
	// blocks on an abandoned result, so a cancelled Speak leaks nothing.
	results := make(chan synthResult, 1)
	synthesize := func(index int) {
		clip, err := p.synthesizeChunk(ctx, chunks[index])
		results <- synthResult{index: index, clip: clip, err: err}
	}

	clip, err := p.synthesizeChunk(ctx, chunks[0])
	pending := synthResult{index: 0, clip: clip, err: err}

	var stream audio.PlaybackStream
	defer func() {
		if stream != nil {
			stream.Close()
		}
	}()

	played := 0
	for i := 0; i < len(chunks); i++ {
		if cancelled() || ctx.Err() != nil {
			return played, ctx.Err()
		}
		cur := pending
		if i+1 < len(chunks) {
			go synthesize(i + 1)
		}

		if cur.err != nil {
			p.log.Warn("synthesis failed, skipping chunk",
				"chunk", cur.index, "error", cur.err)
		} else if !cur.clip.Empty() {
			if stream == nil {
				stream, err = p.audio.OpenPlayback(cur.clip.SampleRate)
				if err != nil {
					return played, fmt.Errorf("open playback: %w", err)
				}
			}
			if err := stream.Play(cur.clip); err != nil {
				return played, fmt.Errorf("play chunk %d: %w", cur.index, err)
			}
			played++
			stopped, err := p.waitForClip(ctx, stream, cancelled)
			if err != nil {
				return played, err
			}
			if stopped {
				return played, nil
			}
		}

		if i+1 < len(chunks) {
			pending = <-results
		}
	}
	return played, nil
}

// synthesizeChunk times one synthesis call for the per-chunk latency
// histogram.
func (p *Player) synthesizeChunk(ctx context.Context, text string) (audio.Clip, error) {
	start := time.Now()
	clip, err := p.synth.Synthesize(ctx, p.voice, text)
	p.metrics.TTSChunkDuration.Record(ctx, time.Since(start).Seconds())
	return clip, err
}

// waitForClip polls the stream until the clip finishes or playback is
// cancelled. On cancellation the clip is stopped mid-play and stopped is
// true.
func (p *Player) waitForClip(ctx context.Context, stream audio.PlaybackStream, cancelled func() bool) (stopped bool, err error) {
	ticker := time.NewTicker(p.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			stream.Stop()
			return false, ctx.Err()
		case <-ticker.C:
			if cancelled() {
				if err := stream.Stop(); err != nil {
					p.log.Warn("stopping playback", "error", err)
				}
				return true, nil
			}
			if !stream.Playing() {
				return false, nil
			}
		}
	}
}
