// Package listen turns a stream of fixed-size audio frames into finalised
// speech segments.
//
// The segmenter is a two-state machine. In Idle it waits for the first frame
// that is both loud enough (energy gate) and classified as speech (VAD); that
// frame starts a segment. In Recording it accumulates every frame, speech and
// silence alike, and finalises when the trailing-silence window elapses or
// the segment hits its maximum speech length. Segments whose speech content
// falls short of the minimum are discarded as false triggers.
//
// The energy gate runs before the VAD on every frame: frames below the
// threshold are treated as silence without consulting the VAD at all, which
// keeps the detector's smoothing history free of ambient noise and saves the
// per-frame classification cost.
package listen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wakepal/wakepal/pkg/audio"
	"github.com/wakepal/wakepal/pkg/provider/vad"
)

// Default segmentation parameters, shared by the primary and barge-in
// parameterisations.
const (
	// DefaultFrameDuration is the fixed frame length the pipeline captures.
	DefaultFrameDuration = 20 * time.Millisecond

	// DefaultEnergyThresholdDBFS is the gate below which frames count as
	// silence without running VAD.
	DefaultEnergyThresholdDBFS = -35.0
)

// Params configures a [Segmenter]. All durations are rounded down to whole
// frames.
type Params struct {
	// FrameDuration is the expected length of each fed frame.
	FrameDuration time.Duration

	// SilenceTimeout is the trailing-silence span that finalises a segment.
	SilenceTimeout time.Duration

	// MinSpeech is the least speech a segment must contain; segments below
	// it are discarded as false triggers.
	MinSpeech time.Duration

	// MaxSpeech is the speech span at which a segment is finalised
	// immediately, silence timeout or not. Zero disables the cap.
	MaxSpeech time.Duration

	// EnergyThresholdDBFS gates frames before the VAD sees them.
	EnergyThresholdDBFS float64
}

// PrimaryParams returns the segmentation parameters for the main listening
// loop: patient enough for a full spoken query.
func PrimaryParams() Params {
	return Params{
		FrameDuration:       DefaultFrameDuration,
		SilenceTimeout:      1000 * time.Millisecond,
		MinSpeech:           300 * time.Millisecond,
		MaxSpeech:           10 * time.Second,
		EnergyThresholdDBFS: DefaultEnergyThresholdDBFS,
	}
}

// BargeInParams returns the short-fuse parameters used while a response is
// playing: a three-frame utterance ("stop") should interrupt within about
// half a second.
func BargeInParams() Params {
	return Params{
		FrameDuration:       DefaultFrameDuration,
		SilenceTimeout:      500 * time.Millisecond,
		MinSpeech:           3 * DefaultFrameDuration,
		MaxSpeech:           10 * time.Second,
		EnergyThresholdDBFS: DefaultEnergyThresholdDBFS,
	}
}

func (p Params) silenceFrames() int {
	return int(p.SilenceTimeout / p.FrameDuration)
}

func (p Params) minSpeechFrames() int {
	return int(p.MinSpeech / p.FrameDuration)
}

func (p Params) maxSpeechFrames() int {
	if p.MaxSpeech <= 0 {
		return 0
	}
	return int(p.MaxSpeech / p.FrameDuration)
}

// Validate reports configuration errors. Used by config loading; New also
// calls it defensively via Capture.
func (p Params) Validate() error {
	var errs []error
	if p.FrameDuration <= 0 {
		errs = append(errs, errors.New("frame duration must be positive"))
	}
	if p.SilenceTimeout < p.FrameDuration {
		errs = append(errs, errors.New("silence timeout must cover at least one frame"))
	}
	if p.MinSpeech < 0 {
		errs = append(errs, errors.New("min speech must not be negative"))
	}
	if p.MaxSpeech > 0 && p.MaxSpeech < p.MinSpeech {
		errs = append(errs, errors.New("max speech must not be below min speech"))
	}
	return errors.Join(errs...)
}

type state int

const (
	stateIdle state = iota
	stateRecording
)

// Segmenter accumulates frames into speech segments. It is not safe for
// concurrent use; each capture stream gets its own instance.
type Segmenter struct {
	det    vad.Detector
	gate   audio.EnergyGate
	params Params

	state        state
	buf          []byte
	sampleRate   int
	totalFrames  int
	speechFrames int
	silentRun    int
}

// New creates a Segmenter classifying frames with det under the given
// parameters.
func New(det vad.Detector, params Params) *Segmenter {
	return &Segmenter{
		det:    det,
		gate:   audio.EnergyGate{ThresholdDBFS: params.EnergyThresholdDBFS},
		params: params,
	}
}

// Feed advances the state machine by one frame. It returns a finalised
// segment, or nil while one is still accumulating. Frames the VAD fails on
// are treated as non-speech; a VAD hiccup should cost at most one frame, not
// the whole capture.
func (s *Segmenter) Feed(frame audio.Frame) *audio.Segment {
	speech := s.classify(frame)

	switch s.state {
	case stateIdle:
		if !speech {
			return nil
		}
		s.state = stateRecording
		s.sampleRate = frame.SampleRate
		s.buf = append(s.buf[:0], frame.PCM...)
		s.totalFrames = 1
		s.speechFrames = 1
		s.silentRun = 0
		if max := s.params.maxSpeechFrames(); max > 0 && s.speechFrames >= max {
			return s.finalize(audio.ReasonMaxDuration)
		}
		return nil

	case stateRecording:
		s.buf = append(s.buf, frame.PCM...)
		s.totalFrames++
		if speech {
			s.speechFrames++
			s.silentRun = 0
			if max := s.params.maxSpeechFrames(); max > 0 && s.speechFrames >= max {
				return s.finalize(audio.ReasonMaxDuration)
			}
			return nil
		}
		s.silentRun++
		if s.silentRun >= s.params.silenceFrames() {
			return s.finalize(audio.ReasonSilenceTimeout)
		}
		return nil
	}
	return nil
}

// classify runs the energy gate and, only for loud-enough frames, the VAD.
func (s *Segmenter) classify(frame audio.Frame) bool {
	if s.gate.TooQuiet(frame) {
		return false
	}
	speech, err := s.det.IsSpeech(frame.PCM)
	if err != nil {
		slog.Debug("vad classification failed, treating frame as silence", "error", err)
		return false
	}
	return speech
}

// finalize emits the accumulated segment and returns to Idle. Segments with
// too little speech are dropped.
func (s *Segmenter) finalize(reason audio.CaptureReason) *audio.Segment {
	seg := &audio.Segment{
		PCM:          append([]byte(nil), s.buf...),
		SampleRate:   s.sampleRate,
		SpeechFrames: s.speechFrames,
		TotalFrames:  s.totalFrames,
		Reason:       reason,
	}
	discard := s.speechFrames < s.params.minSpeechFrames()
	s.Reset()
	if discard {
		slog.Debug("discarding false trigger",
			"speech_frames", seg.SpeechFrames,
			"min_frames", s.params.minSpeechFrames(),
		)
		return nil
	}
	return seg
}

// Reset returns the segmenter to Idle, dropping any partial segment. The VAD
// detector's own state is reset as well.
func (s *Segmenter) Reset() {
	s.state = stateIdle
	s.buf = s.buf[:0]
	s.totalFrames = 0
	s.speechFrames = 0
	s.silentRun = 0
	if err := s.det.Reset(); err != nil {
		slog.Debug("vad reset failed", "error", err)
	}
}

// ErrStreamClosed is returned by [Capture] when the capture stream ends
// cleanly before a segment was finalised.
var ErrStreamClosed = errors.New("listen: capture stream closed")

// Capture drains frames from stream through the segmenter until a segment is
// finalised, ctx is cancelled, or the stream dies. The stream stays open for
// the caller to reuse or close.
func Capture(ctx context.Context, stream audio.CaptureStream, seg *Segmenter) (*audio.Segment, error) {
	if err := seg.params.Validate(); err != nil {
		return nil, fmt.Errorf("listen: invalid params: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			seg.Reset()
			return nil, ctx.Err()
		case frame, ok := <-stream.Frames():
			if !ok {
				seg.Reset()
				if err := stream.Err(); err != nil {
					return nil, fmt.Errorf("listen: capture stream failed: %w", err)
				}
				return nil, ErrStreamClosed
			}
			if segment := seg.Feed(frame); segment != nil {
				return segment, nil
			}
		}
	}
}
