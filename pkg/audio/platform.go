// Package audio defines the interfaces and types for audio device access and
// stream management within Wakepal.
//
// The two primary abstractions are:
//
//   - [Platform] — opens capture and playback streams on the host audio device.
//   - [CaptureStream] / [PlaybackStream] — an open microphone stream delivering
//     fixed-size frames, and a speaker stream accepting synthesised clips.
//
// Implementations of these interfaces are provided by device-specific adapter
// packages (e.g., audio/portaudio). The interfaces are intentionally narrow to
// keep the pipeline decoupled from device details.
//
// This package lives under pkg/ because external code (alternative device
// adapters) is expected to implement [Platform].
package audio

import (
	"context"
	"errors"
)

// ErrOverrun is reported by a capture stream whose consumer fell behind the
// device callback. The stream is dead once this surfaces; callers must close
// it and decide whether to reopen.
var ErrOverrun = errors.New("audio: capture buffer overrun")

// CaptureConfig describes the capture stream to open.
type CaptureConfig struct {
	// SampleRate in Hz.
	SampleRate int

	// FrameSamples is the number of samples per delivered frame
	// (e.g., 320 for 20 ms at 16 kHz).
	FrameSamples int

	// BufferFrames is the capacity of the frame channel. Zero selects an
	// implementation default.
	BufferFrames int
}

// CaptureStream is an open microphone stream delivering fixed-size mono
// s16le frames. The device callback pushes frames into a buffered channel
// and never blocks; if the consumer falls behind, the stream fails with
// [ErrOverrun] rather than stalling the audio thread.
//
// Implementations must be safe for concurrent use.
type CaptureStream interface {
	// Frames returns the channel on which captured frames arrive. The channel
	// is closed when the stream terminates, whether by Close or by a fatal
	// device error; check Err after the channel closes.
	Frames() <-chan Frame

	// Err returns the fatal error that terminated the stream, or nil if the
	// stream was closed cleanly. Valid only after Frames is closed.
	Err() error

	// Close stops capture and releases the device. Safe to call more than
	// once; subsequent calls are no-ops and return nil.
	Close() error
}

// PlaybackStream is an open speaker stream. Play is asynchronous: it starts
// output and returns immediately so that the caller can poll for cancellation
// while audio drains.
//
// Implementations must be safe for concurrent use.
type PlaybackStream interface {
	// Play starts playback of clip, resampling if the clip's rate differs
	// from the device rate. Any clip still playing is replaced.
	Play(clip Clip) error

	// Playing reports whether audio is currently being output.
	Playing() bool

	// Stop halts output immediately, discarding any unplayed audio.
	// Safe to call when nothing is playing.
	Stop() error

	// Close stops playback and releases the device. Safe to call more than
	// once; subsequent calls are no-ops and return nil.
	Close() error
}

// Platform is the entry point for a host audio device provider.
// Implementations wrap device-specific libraries (PortAudio, ALSA, …) and
// expose uniform capture and playback abstractions.
//
// Implementations must be safe for concurrent use. Multiple capture streams
// may be open at once — the pipeline opens a second stream for barge-in
// detection while a response is playing.
type Platform interface {
	// OpenCapture opens a microphone stream with the given configuration.
	// The supplied ctx governs the lifetime of the open attempt only; once
	// open, the stream remains alive until [CaptureStream.Close] is called.
	OpenCapture(ctx context.Context, cfg CaptureConfig) (CaptureStream, error)

	// OpenPlayback opens a speaker stream that accepts clips at the given
	// preferred sample rate. Implementations may run the device at a fixed
	// rate and resample internally.
	OpenPlayback(sampleRate int) (PlaybackStream, error)
}
