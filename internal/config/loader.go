package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"vad":   {"libfvad"},
	"stt":   {"whisperd", "native"},
	"tts":   {"coqui"},
	"llm":   {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile", "command"},
	"audio": {"portaudio"},
}

// DefaultLLMTimeoutSeconds bounds a single LLM call when the config does not
// override it.
const DefaultLLMTimeoutSeconds = 180

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied. It is a convenience wrapper around
// [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills zero-valued tunables with the pipeline defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Audio.SampleRate == 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.FrameMS == 0 {
		cfg.Audio.FrameMS = 20
	}
	if cfg.Audio.OutputSampleRate == 0 {
		cfg.Audio.OutputSampleRate = 48000
	}
	if cfg.Listen.SilenceMS == 0 {
		cfg.Listen.SilenceMS = 1000
	}
	if cfg.Listen.MinSpeechMS == 0 {
		cfg.Listen.MinSpeechMS = 300
	}
	if cfg.Listen.MaxSegmentS == 0 {
		cfg.Listen.MaxSegmentS = 10
	}
	if cfg.Listen.EnergyThresholdDBFS == 0 {
		cfg.Listen.EnergyThresholdDBFS = -35
	}
	if cfg.BargeIn.SilenceMS == 0 {
		cfg.BargeIn.SilenceMS = 500
	}
	if cfg.BargeIn.MinSpeechFrames == 0 {
		cfg.BargeIn.MinSpeechFrames = 3
	}
	if cfg.Providers.LLM.TimeoutSeconds == 0 {
		cfg.Providers.LLM.TimeoutSeconds = DefaultLLMTimeoutSeconds
	}
	if cfg.Providers.VAD.Name == "" {
		cfg.Providers.VAD.Name = "libfvad"
	}
	if cfg.Providers.Audio.Name == "" {
		cfg.Providers.Audio.Name = "portaudio"
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d must be positive", cfg.Audio.SampleRate))
	}
	switch cfg.Audio.FrameMS {
	case 10, 20, 30:
	default:
		errs = append(errs, fmt.Errorf("audio.frame_ms %d is invalid; the VAD accepts 10, 20, or 30", cfg.Audio.FrameMS))
	}

	if cfg.Listen.SilenceMS < cfg.Audio.FrameMS {
		errs = append(errs, fmt.Errorf("listen.silence_ms %d must cover at least one frame", cfg.Listen.SilenceMS))
	}
	if cfg.Listen.MinSpeechMS < 0 {
		errs = append(errs, errors.New("listen.min_speech_ms must not be negative"))
	}
	if cfg.Listen.EnergyThresholdDBFS > 0 {
		errs = append(errs, fmt.Errorf("listen.energy_threshold_dbfs %.1f must not be positive", cfg.Listen.EnergyThresholdDBFS))
	}

	if len(cfg.Wake.Phrases) == 0 {
		errs = append(errs, errors.New("wake.phrases requires at least one phrase"))
	}
	for i, p := range cfg.Wake.Phrases {
		if p == "" {
			errs = append(errs, fmt.Errorf("wake.phrases[%d] is empty", i))
		}
	}

	if cfg.BargeIn.BargeInEnabled() && cfg.BargeIn.MinSpeechFrames <= 0 {
		errs = append(errs, errors.New("barge_in.min_speech_frames must be positive"))
	}

	if cfg.Typing.Enabled && cfg.Typing.WAVPath == "" {
		errs = append(errs, errors.New("typing.wav_path is required when typing sounds are enabled"))
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("vad", cfg.Providers.VAD.Name)
	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)
	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("audio", cfg.Providers.Audio.Name)
	for kind, entry := range map[string]ProviderEntry{
		"stt": cfg.Providers.STT, "tts": cfg.Providers.TTS, "llm": cfg.Providers.LLM,
	} {
		if entry.Fallback != nil {
			if entry.Fallback.Name == "" {
				errs = append(errs, fmt.Errorf("providers.%s.fallback.name is required when a fallback is configured", kind))
			}
			validateProviderName(kind, entry.Fallback.Name)
		}
	}

	if cfg.Providers.STT.Name == "" {
		slog.Warn("no STT provider configured; captured speech cannot be transcribed")
	}
	if cfg.Providers.LLM.Name == "" {
		slog.Warn("no LLM provider configured; the assistant will hear but never answer")
	}
	if cfg.Providers.TTS.Name == "" {
		slog.Warn("no TTS provider configured; responses will not be spoken")
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
