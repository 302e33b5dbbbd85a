// Package portaudio implements [audio.Platform] on the host sound device,
// using PortAudio for microphone capture and oto for speaker playback.
//
// Capture runs in callback mode: the PortAudio audio thread converts each
// fixed-size int16 buffer to a frame and pushes it onto a buffered channel
// without ever blocking. A consumer that falls behind kills the stream with
// [audio.ErrOverrun] instead of stalling the audio thread.
//
// Playback goes through a single process-wide oto context running at a fixed
// device rate; clips at other rates are resampled on the way in.
package portaudio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	pa "github.com/gordonklaus/portaudio"

	"github.com/wakepal/wakepal/pkg/audio"
)

// defaultBufferFrames is the capture channel capacity when the caller does
// not specify one. At 20 ms per frame this buys the consumer well over half a
// second of slack.
const defaultBufferFrames = 32

// defaultOutputRate is the fixed rate of the oto playback context. oto allows
// only one context per process, so all clips are resampled to this rate.
const defaultOutputRate = 48000

// Option configures a [Platform].
type Option func(*Platform)

// WithOutputSampleRate sets the fixed device rate of the playback context.
func WithOutputSampleRate(rate int) Option {
	return func(p *Platform) {
		if rate > 0 {
			p.outputRate = rate
		}
	}
}

// Platform implements [audio.Platform] on the host sound device.
type Platform struct {
	outputRate int

	mu     sync.Mutex
	otoCtx *oto.Context
	closed bool
}

var _ audio.Platform = (*Platform)(nil)

// New initialises PortAudio and returns a ready [Platform]. The caller must
// call [Platform.Close] to release the host API when done.
func New(opts ...Option) (*Platform, error) {
	if err := pa.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio: initialize: %w", err)
	}
	p := &Platform{outputRate: defaultOutputRate}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Close terminates the PortAudio host API. Open streams must be closed first.
func (p *Platform) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if err := pa.Terminate(); err != nil {
		return fmt.Errorf("portaudio: terminate: %w", err)
	}
	return nil
}

// OpenCapture implements [audio.Platform].
func (p *Platform) OpenCapture(ctx context.Context, cfg audio.CaptureConfig) (audio.CaptureStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.SampleRate <= 0 || cfg.FrameSamples <= 0 {
		return nil, fmt.Errorf("portaudio: invalid capture config: rate=%d frame=%d", cfg.SampleRate, cfg.FrameSamples)
	}
	buffer := cfg.BufferFrames
	if buffer <= 0 {
		buffer = defaultBufferFrames
	}

	s := &captureStream{
		rate:    cfg.SampleRate,
		frames:  make(chan audio.Frame, buffer),
		overrun: make(chan struct{}),
		done:    make(chan struct{}),
	}
	stream, err := pa.OpenDefaultStream(1, 0, float64(cfg.SampleRate), cfg.FrameSamples, s.callback)
	if err != nil {
		return nil, fmt.Errorf("portaudio: open capture stream: %w", err)
	}
	s.pa = stream
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("portaudio: start capture stream: %w", err)
	}
	go s.watchOverrun()
	return s, nil
}

// OpenPlayback implements [audio.Platform]. The preferred rate is advisory;
// the device runs at the platform's fixed output rate and clips are resampled.
func (p *Platform) OpenPlayback(int) (audio.PlaybackStream, error) {
	otoCtx, err := p.playbackContext()
	if err != nil {
		return nil, err
	}
	return &playbackStream{ctx: otoCtx, deviceRate: p.outputRate}, nil
}

// playbackContext lazily creates the process-wide oto context.
func (p *Platform) playbackContext() (*oto.Context, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, fmt.Errorf("portaudio: platform closed")
	}
	if p.otoCtx != nil {
		return p.otoCtx, nil
	}
	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   p.outputRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return nil, fmt.Errorf("portaudio: create playback context: %w", err)
	}
	<-ready
	p.otoCtx = otoCtx
	return otoCtx, nil
}

// ─── Capture ──────────────────────────────────────────────────────────────────

type captureStream struct {
	pa      *pa.Stream
	rate    int
	frames  chan audio.Frame
	elapsed time.Duration

	overrunOnce sync.Once
	overrun     chan struct{}
	closeOnce   sync.Once
	done        chan struct{}

	mu  sync.Mutex
	err error
}

var _ audio.CaptureStream = (*captureStream)(nil)

// callback runs on the PortAudio audio thread. It must never block: frames
// are delivered with a non-blocking send, and a full channel flags the stream
// for teardown instead of waiting.
func (s *captureStream) callback(in []int16) {
	pcm := make([]byte, len(in)*2)
	for i, v := range in {
		pcm[i*2] = byte(v)
		pcm[i*2+1] = byte(v >> 8)
	}
	frame := audio.Frame{PCM: pcm, SampleRate: s.rate, Timestamp: s.elapsed}
	s.elapsed += frame.Duration()

	select {
	case <-s.done:
	case s.frames <- frame:
	default:
		s.overrunOnce.Do(func() { close(s.overrun) })
	}
}

// watchOverrun tears the stream down off the audio thread when the callback
// flags an overrun. Stream teardown calls into PortAudio and must not happen
// inside the callback itself.
func (s *captureStream) watchOverrun() {
	select {
	case <-s.overrun:
		s.terminate(audio.ErrOverrun, true)
	case <-s.done:
	}
}

func (s *captureStream) terminate(err error, abort bool) {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(s.done)
		if abort {
			s.pa.Abort()
		} else {
			s.pa.Stop()
		}
		s.pa.Close()
		close(s.frames)
	})
}

// Frames implements [audio.CaptureStream].
func (s *captureStream) Frames() <-chan audio.Frame {
	return s.frames
}

// Err implements [audio.CaptureStream].
func (s *captureStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close implements [audio.CaptureStream].
func (s *captureStream) Close() error {
	s.terminate(nil, false)
	return nil
}

// ─── Playback ─────────────────────────────────────────────────────────────────

type playbackStream struct {
	ctx        *oto.Context
	deviceRate int

	mu     sync.Mutex
	player *oto.Player
	closed bool
}

var _ audio.PlaybackStream = (*playbackStream)(nil)

// Play implements [audio.PlaybackStream]. The clip is resampled to the device
// rate and handed to a fresh oto player; any clip still playing is dropped.
func (s *playbackStream) Play(clip audio.Clip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("portaudio: playback stream closed")
	}
	if s.player != nil {
		s.player.Close()
		s.player = nil
	}
	if clip.Empty() {
		return nil
	}

	samples := audio.ResampleFloat32(clip.Samples, clip.SampleRate, s.deviceRate)
	buf := make([]byte, len(samples)*4)
	for i, f := range samples {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	s.player = s.ctx.NewPlayer(bytes.NewReader(buf))
	s.player.Play()
	return nil
}

// Playing implements [audio.PlaybackStream].
func (s *playbackStream) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player != nil && s.player.IsPlaying()
}

// Stop implements [audio.PlaybackStream].
func (s *playbackStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked()
}

func (s *playbackStream) stopLocked() error {
	if s.player == nil {
		return nil
	}
	s.player.Pause()
	err := s.player.Close()
	s.player = nil
	if err != nil {
		return fmt.Errorf("portaudio: close player: %w", err)
	}
	return nil
}

// Close implements [audio.PlaybackStream]. The shared oto context stays up;
// only this stream's player is released.
func (s *playbackStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.stopLocked()
}
