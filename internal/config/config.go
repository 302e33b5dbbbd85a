// Package config provides the configuration schema, loader, provider
// registry, and hot-reload watcher for the voice assistant.
package config

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure. It is typically loaded from a
// YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Audio     AudioConfig     `yaml:"audio"`
	Listen    ListenConfig    `yaml:"listen"`
	Wake      WakeConfig      `yaml:"wake"`
	BargeIn   BargeInConfig   `yaml:"barge_in"`
	Typing    TypingConfig    `yaml:"typing"`
	Providers ProvidersConfig `yaml:"providers"`
}

// ServerConfig holds logging and metrics settings for the assistant process.
type ServerConfig struct {
	// MetricsAddr is the TCP address the metrics/health endpoint listens on
	// (e.g., ":9090"). Empty disables the endpoint.
	MetricsAddr string `yaml:"metrics_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// AudioConfig holds capture and playback device settings.
type AudioConfig struct {
	// SampleRate is the capture sample rate in Hz.
	SampleRate int `yaml:"sample_rate"`

	// FrameMS is the capture frame length in milliseconds.
	FrameMS int `yaml:"frame_ms"`

	// OutputSampleRate is the playback device rate in Hz; synthesised audio
	// is resampled to it.
	OutputSampleRate int `yaml:"output_sample_rate"`
}

// ListenConfig tunes the primary speech segmenter.
type ListenConfig struct {
	// SilenceMS is the trailing-silence span that ends an utterance.
	SilenceMS int `yaml:"silence_ms"`

	// MinSpeechMS is the least speech an utterance must contain; shorter
	// captures are discarded as false triggers.
	MinSpeechMS int `yaml:"min_speech_ms"`

	// MaxSegmentS caps an utterance's speech length in seconds.
	MaxSegmentS int `yaml:"max_segment_s"`

	// EnergyThresholdDBFS gates frames before the VAD sees them.
	EnergyThresholdDBFS float64 `yaml:"energy_threshold_dbfs"`

	// DumpDir, when set, receives every captured segment as a WAV file so
	// gating and segmentation problems can be replayed offline. Empty
	// disables dumping.
	DumpDir string `yaml:"dump_dir"`
}

// WakeConfig holds the wake phrases the assistant answers to.
type WakeConfig struct {
	// Phrases lists accepted wake phrases. At least one is required.
	Phrases []string `yaml:"phrases"`
}

// BargeInConfig tunes voice interruption of a playing response.
type BargeInConfig struct {
	// Enabled turns barge-in detection on. Defaults to true.
	Enabled *bool `yaml:"enabled"`

	// StopWords lists utterances that interrupt playback. Empty keeps the
	// built-in defaults.
	StopWords []string `yaml:"stop_words"`

	// SilenceMS is the trailing-silence span that ends a barge-in utterance.
	SilenceMS int `yaml:"silence_ms"`

	// MinSpeechFrames is the least speech frames a barge-in utterance must
	// contain.
	MinSpeechFrames int `yaml:"min_speech_frames"`
}

// TypingConfig controls the keyboard sounds played while the LLM thinks.
type TypingConfig struct {
	// Enabled turns typing sounds on.
	Enabled bool `yaml:"enabled"`

	// WAVPath is the typing recording sliced into keystrokes.
	WAVPath string `yaml:"wav_path"`
}

// ProvidersConfig declares which provider implementation to use for each
// pipeline stage. Each field selects a named provider registered in the
// [Registry].
type ProvidersConfig struct {
	VAD   ProviderEntry `yaml:"vad"`
	STT   ProviderEntry `yaml:"stt"`
	TTS   ProviderEntry `yaml:"tts"`
	LLM   ProviderEntry `yaml:"llm"`
	Audio ProviderEntry `yaml:"audio"`
}

// ProviderEntry is the common configuration block shared by all provider
// types. The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "coqui",
	// "whisperd").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "gpt-4o", a
	// whisper model path, or a Coqui voice ID).
	Model string `yaml:"model"`

	// TimeoutSeconds bounds a single provider call. Zero applies the
	// provider kind's default (180 s for LLM calls).
	TimeoutSeconds int `yaml:"timeout_s"`

	// Options holds provider-specific configuration values not covered by
	// the standard fields above. Values may be strings, numbers, booleans,
	// or nested maps.
	Options map[string]any `yaml:"options"`

	// Fallback names a second provider of the same kind to fail over to when
	// this one's circuit breaker opens. Nil disables failover.
	Fallback *ProviderEntry `yaml:"fallback"`
}

// BargeInEnabled reports whether barge-in detection is on, defaulting to
// true when unset.
func (c BargeInConfig) BargeInEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}
