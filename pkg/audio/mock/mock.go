// Package mock provides in-memory mock implementations of the
// [audio.Platform], [audio.CaptureStream], and [audio.PlaybackStream]
// interfaces for use in unit tests.
//
// All mocks are safe for concurrent use. They record every method call so
// that tests can assert on call counts and arguments, and they expose
// exported fields that the test can set to control return values.
//
// Typical usage:
//
//	cap := mock.NewCaptureStream(16)
//	platform := &mock.Platform{CaptureStreams: []*mock.CaptureStream{cap}}
//	go func() {
//	    cap.Push(audio.Frame{PCM: speech, SampleRate: 16000})
//	    cap.Close()
//	}()
//	stream, err := platform.OpenCapture(ctx, cfg)
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/wakepal/wakepal/pkg/audio"
)

// ─── CaptureStream ────────────────────────────────────────────────────────────

// CaptureStream is a mock implementation of [audio.CaptureStream]. Tests feed
// frames with [CaptureStream.Push] and terminate the stream with Close or
// [CaptureStream.Fail].
type CaptureStream struct {
	mu     sync.Mutex
	ch     chan audio.Frame
	err    error
	closed bool

	// CallCountClose records how many times Close was called.
	CallCountClose int
}

// NewCaptureStream returns a mock capture stream whose frame channel has the
// given buffer capacity.
func NewCaptureStream(buffer int) *CaptureStream {
	return &CaptureStream{ch: make(chan audio.Frame, buffer)}
}

// Push delivers a frame to the consumer. Blocks if the buffer is full.
// Panics if the stream has been closed, mirroring a send on a closed channel.
func (s *CaptureStream) Push(f audio.Frame) {
	s.ch <- f
}

// Fail terminates the stream with err, as a device failure would.
func (s *CaptureStream) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.err = err
	close(s.ch)
}

// Frames implements [audio.CaptureStream].
func (s *CaptureStream) Frames() <-chan audio.Frame {
	return s.ch
}

// Err implements [audio.CaptureStream].
func (s *CaptureStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close implements [audio.CaptureStream]. Closes the frame channel cleanly.
func (s *CaptureStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountClose++
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	return nil
}

// ─── PlaybackStream ───────────────────────────────────────────────────────────

// PlaybackStream is a mock implementation of [audio.PlaybackStream].
// Every played clip is recorded. Playing reports true for PollsPerClip calls
// after each Play, letting tests exercise the cancellation poll loop.
type PlaybackStream struct {
	mu sync.Mutex

	// PollsPerClip is how many Playing calls report true after each Play.
	// Zero means clips finish instantly.
	PollsPerClip int

	// PlayError is returned by Play.
	PlayError error

	// PlayedClips records every clip passed to Play, in order.
	PlayedClips []audio.Clip

	// CallCountStop records how many times Stop was called.
	CallCountStop int

	// CallCountClose records how many times Close was called.
	CallCountClose int

	pollsLeft int
}

// Play implements [audio.PlaybackStream]. Records the clip.
func (p *PlaybackStream) Play(clip audio.Clip) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.PlayError != nil {
		return p.PlayError
	}
	p.PlayedClips = append(p.PlayedClips, clip)
	p.pollsLeft = p.PollsPerClip
	return nil
}

// Playing implements [audio.PlaybackStream]. Counts down PollsPerClip.
func (p *PlaybackStream) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pollsLeft > 0 {
		p.pollsLeft--
		return true
	}
	return false
}

// Stop implements [audio.PlaybackStream]. Ends the current clip immediately.
func (p *PlaybackStream) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CallCountStop++
	p.pollsLeft = 0
	return nil
}

// Close implements [audio.PlaybackStream].
func (p *PlaybackStream) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CallCountClose++
	p.pollsLeft = 0
	return nil
}

// ─── Platform ─────────────────────────────────────────────────────────────────

// OpenCaptureCall records the arguments of a single [Platform.OpenCapture]
// invocation.
type OpenCaptureCall struct {
	// Config is the capture configuration passed to OpenCapture.
	Config audio.CaptureConfig
}

// Platform is a mock implementation of [audio.Platform]. OpenCapture hands
// out the streams in CaptureStreams in order; OpenPlayback creates a fresh
// recording [PlaybackStream] per call and appends it to Playbacks.
type Platform struct {
	mu sync.Mutex

	// CaptureStreams are returned by successive OpenCapture calls.
	CaptureStreams []*CaptureStream

	// OpenCaptureError is returned by OpenCapture when set.
	OpenCaptureError error

	// OpenPlaybackError is returned by OpenPlayback when set.
	OpenPlaybackError error

	// PlaybackPollsPerClip sets PollsPerClip on playback streams this
	// platform creates.
	PlaybackPollsPerClip int

	// OpenCaptureCalls records all OpenCapture invocations.
	OpenCaptureCalls []OpenCaptureCall

	// Playbacks records the playback streams handed out, in order.
	Playbacks []*PlaybackStream

	captureIdx int
}

// OpenCapture implements [audio.Platform]. Returns the next scripted stream.
func (p *Platform) OpenCapture(_ context.Context, cfg audio.CaptureConfig) (audio.CaptureStream, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.OpenCaptureCalls = append(p.OpenCaptureCalls, OpenCaptureCall{Config: cfg})
	if p.OpenCaptureError != nil {
		return nil, p.OpenCaptureError
	}
	if p.captureIdx >= len(p.CaptureStreams) {
		return nil, fmt.Errorf("mock: no capture stream scripted for call %d", p.captureIdx+1)
	}
	s := p.CaptureStreams[p.captureIdx]
	p.captureIdx++
	return s, nil
}

// OpenPlayback implements [audio.Platform]. Returns a fresh recording stream.
func (p *Platform) OpenPlayback(int) (audio.PlaybackStream, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.OpenPlaybackError != nil {
		return nil, p.OpenPlaybackError
	}
	s := &PlaybackStream{PollsPerClip: p.PlaybackPollsPerClip}
	p.Playbacks = append(p.Playbacks, s)
	return s, nil
}
