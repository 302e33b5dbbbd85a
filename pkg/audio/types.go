package audio

import "time"

// Frame represents a single fixed-duration frame of captured audio.
// Frames are the atomic unit of audio transport — produced by capture
// streams, classified by the energy gate and VAD, and accumulated into
// segments by the speech segmenter.
type Frame struct {
	// PCM holds little-endian signed 16-bit mono samples.
	PCM []byte

	// SampleRate in Hz (e.g., 16000 for STT input).
	SampleRate int

	// Timestamp marks when this frame was captured, relative to stream start.
	Timestamp time.Duration
}

// Samples returns the number of 16-bit samples in the frame.
func (f Frame) Samples() int {
	return len(f.PCM) / 2
}

// Duration returns the wall-clock length of the frame.
func (f Frame) Duration() time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(f.Samples()) * time.Second / time.Duration(f.SampleRate)
}

// CaptureReason explains why the segmenter finalised a speech segment.
type CaptureReason int

const (
	// ReasonSilenceTimeout means the trailing-silence window elapsed after speech.
	ReasonSilenceTimeout CaptureReason = iota

	// ReasonMaxDuration means the segment hit the maximum speech length.
	ReasonMaxDuration
)

// String returns the human-readable name of the capture reason.
func (r CaptureReason) String() string {
	switch r {
	case ReasonSilenceTimeout:
		return "silence_timeout"
	case ReasonMaxDuration:
		return "max_duration"
	default:
		return "unknown"
	}
}

// Segment is a finalised stretch of captured speech, including any trailing
// silence that accumulated before the silence timeout fired.
type Segment struct {
	// PCM holds little-endian signed 16-bit mono samples for the whole segment.
	PCM []byte

	// SampleRate in Hz.
	SampleRate int

	// SpeechFrames counts the frames the VAD classified as speech.
	SpeechFrames int

	// TotalFrames counts all frames in the segment, silence included.
	TotalFrames int

	// Reason records why the segment was finalised.
	Reason CaptureReason
}

// Duration returns the wall-clock length of the segment.
func (s *Segment) Duration() time.Duration {
	if s.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(s.PCM)/2) * time.Second / time.Duration(s.SampleRate)
}

// Clip is a unit of synthesised audio ready for playback: float32 samples in
// [-1, 1] at a given sample rate, mono.
type Clip struct {
	// Samples holds mono float32 PCM in [-1, 1].
	Samples []float32

	// SampleRate in Hz.
	SampleRate int
}

// Empty reports whether the clip carries no audio.
func (c Clip) Empty() bool {
	return len(c.Samples) == 0
}

// Duration returns the wall-clock length of the clip.
func (c Clip) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(c.Samples)) * time.Second / time.Duration(c.SampleRate)
}
