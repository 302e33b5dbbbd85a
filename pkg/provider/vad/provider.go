// Package vad defines the Engine interface for Voice Activity Detection backends.
//
// A VAD engine wraps a frame-level speech classifier (e.g., WebRTC VAD) and
// surfaces it as a stateful, per-stream detector. Each detector maintains its
// own internal state (smoothing history) so that multiple concurrent audio
// streams can be classified independently — the pipeline runs one detector on
// the primary capture stream and a second on the barge-in stream.
//
// VAD is synchronous by design: IsSpeech returns immediately with a detection
// result, making it suitable for low-latency pipeline stages that gate STT
// input.
//
// Implementations must be safe for concurrent use across different detectors.
// A single Detector should not be shared across goroutines unless the
// implementation explicitly documents thread safety for that type.
package vad

// Config holds the parameters for a VAD detector.
type Config struct {
	// SampleRate is the audio sample rate in Hz. Must match the rate of the
	// PCM frames passed to IsSpeech. Common values: 8000, 16000, 32000, 48000.
	SampleRate int

	// FrameSizeMs is the duration of each audio frame in milliseconds. Most
	// VAD models operate on fixed frame sizes (10, 20, or 30 ms). IsSpeech
	// returns an error if the supplied frame does not match this size.
	FrameSizeMs int

	// Aggressiveness tunes how strict the classifier is about labelling a
	// frame as speech, on the backend's native scale. For WebRTC VAD the
	// range is 0 (least aggressive filtering) to 3 (most aggressive).
	Aggressiveness int
}

// Detector represents an active VAD detector for a single audio stream. It is
// an interface so that test code can supply mock implementations without a
// live engine. Each detector maintains its own state; Reset clears this state
// without closing the detector.
//
// A Detector should not be shared between goroutines unless the implementation
// explicitly guarantees concurrent safety.
type Detector interface {
	// IsSpeech classifies a single audio frame. The frame must be raw
	// little-endian s16 mono PCM at the SampleRate and FrameSizeMs configured
	// when the detector was created. Returns an error if the frame size is
	// wrong or if the engine encounters an internal failure.
	//
	// This method is designed to be called synchronously in the audio
	// pipeline loop; it must not block.
	IsSpeech(frame []byte) (bool, error)

	// Reset clears all accumulated detection state without closing the
	// detector. Use this when the audio stream is interrupted or restarted
	// to avoid stale state from the previous segment affecting subsequent
	// frames.
	Reset() error

	// Close releases all resources associated with the detector. After
	// Close, IsSpeech and Reset must return errors or be no-ops. Calling
	// Close more than once is safe and returns nil.
	Close() error
}

// Engine is the factory for VAD detectors. It is the top-level interface
// implemented by each VAD backend.
//
// Implementations must be safe for concurrent use: multiple goroutines may
// call NewDetector simultaneously to create independent detectors.
type Engine interface {
	// NewDetector creates a new VAD detector with the given configuration.
	// The detector is immediately ready to accept audio frames.
	//
	// Returns an error if the configuration is invalid (e.g., unsupported
	// sample rate, frame size, or aggressiveness out of range) or if the
	// engine cannot allocate resources for the detector.
	NewDetector(cfg Config) (Detector, error)
}
