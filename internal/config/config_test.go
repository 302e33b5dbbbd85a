package config

import (
	"strings"
	"testing"
)

const validYAML = `
server:
  metrics_addr: ":9090"
  log_level: info
audio:
  sample_rate: 16000
  frame_ms: 20
listen:
  silence_ms: 800
  min_speech_ms: 250
wake:
  phrases:
    - hey pal
    - computer
barge_in:
  stop_words: [stop, enough]
typing:
  enabled: true
  wav_path: /usr/share/wakepal/typing.wav
providers:
  vad:
    name: libfvad
  stt:
    name: whisperd
    base_url: http://localhost:8090
  tts:
    name: coqui
    base_url: http://localhost:5002
  llm:
    name: ollama
    model: llama3
  audio:
    name: portaudio
`

func TestLoadFromReader_Valid(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.MetricsAddr != ":9090" {
		t.Errorf("metrics_addr = %q", cfg.Server.MetricsAddr)
	}
	if got := cfg.Wake.Phrases; len(got) != 2 || got[0] != "hey pal" {
		t.Errorf("wake phrases = %q", got)
	}
	if cfg.Providers.STT.Name != "whisperd" || cfg.Providers.STT.BaseURL != "http://localhost:8090" {
		t.Errorf("stt entry = %+v", cfg.Providers.STT)
	}
	if !cfg.BargeIn.BargeInEnabled() {
		t.Error("barge-in should default to enabled")
	}
}

func TestLoadFromReader_AppliesDefaults(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader("wake:\n  phrases: [hey pal]\n"))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Audio.SampleRate != 16000 {
		t.Errorf("sample_rate default = %d, want 16000", cfg.Audio.SampleRate)
	}
	if cfg.Audio.FrameMS != 20 {
		t.Errorf("frame_ms default = %d, want 20", cfg.Audio.FrameMS)
	}
	if cfg.Audio.OutputSampleRate != 48000 {
		t.Errorf("output_sample_rate default = %d, want 48000", cfg.Audio.OutputSampleRate)
	}
	if cfg.Listen.SilenceMS != 1000 || cfg.Listen.MinSpeechMS != 300 || cfg.Listen.MaxSegmentS != 10 {
		t.Errorf("listen defaults = %+v", cfg.Listen)
	}
	if cfg.Listen.EnergyThresholdDBFS != -35 {
		t.Errorf("energy threshold default = %v, want -35", cfg.Listen.EnergyThresholdDBFS)
	}
	if cfg.BargeIn.SilenceMS != 500 || cfg.BargeIn.MinSpeechFrames != 3 {
		t.Errorf("barge-in defaults = %+v", cfg.BargeIn)
	}
	if cfg.Providers.LLM.TimeoutSeconds != 180 {
		t.Errorf("llm timeout default = %d, want 180", cfg.Providers.LLM.TimeoutSeconds)
	}
	if cfg.Providers.VAD.Name != "libfvad" || cfg.Providers.Audio.Name != "portaudio" {
		t.Errorf("provider name defaults = vad %q, audio %q", cfg.Providers.VAD.Name, cfg.Providers.Audio.Name)
	}
}

func TestLoadFromReader_RejectsUnknownFields(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader("wake:\n  phrases: [hi]\n  sensitivity: 3\n"))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Server.LogLevel = "verbose" },
			wantErr: "log_level",
		},
		{
			name:    "bad frame length",
			mutate:  func(c *Config) { c.Audio.FrameMS = 25 },
			wantErr: "frame_ms",
		},
		{
			name:    "no wake phrases",
			mutate:  func(c *Config) { c.Wake.Phrases = nil },
			wantErr: "wake.phrases",
		},
		{
			name:    "empty wake phrase",
			mutate:  func(c *Config) { c.Wake.Phrases = []string{"hey pal", ""} },
			wantErr: "wake.phrases[1]",
		},
		{
			name:    "typing without recording",
			mutate:  func(c *Config) { c.Typing = TypingConfig{Enabled: true} },
			wantErr: "typing.wav_path",
		},
		{
			name:    "positive energy threshold",
			mutate:  func(c *Config) { c.Listen.EnergyThresholdDBFS = 5 },
			wantErr: "energy_threshold_dbfs",
		},
		{
			name: "fallback without name",
			mutate: func(c *Config) {
				c.Providers.STT = ProviderEntry{Name: "whisperd", Fallback: &ProviderEntry{}}
			},
			wantErr: "fallback.name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Wake: WakeConfig{Phrases: []string{"hey pal"}}}
			ApplyDefaults(cfg)
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.Server.LogLevel = "chatty"
	cfg.Wake.Phrases = nil

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"log_level", "wake.phrases"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("joined error %q missing %q", err, want)
		}
	}
}

func TestBargeInEnabled(t *testing.T) {
	var c BargeInConfig
	if !c.BargeInEnabled() {
		t.Error("unset barge-in should be enabled")
	}
	off := false
	c.Enabled = &off
	if c.BargeInEnabled() {
		t.Error("explicitly disabled barge-in reported enabled")
	}
}
