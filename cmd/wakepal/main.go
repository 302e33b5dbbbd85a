// Command wakepal is the wake-phrase voice assistant. It listens on the host
// microphone, answers queries through a configured LLM, and speaks the
// responses, watching for voice or keypress interruptions while it talks.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wakepal/wakepal/internal/app"
	"github.com/wakepal/wakepal/internal/config"
	"github.com/wakepal/wakepal/internal/health"
	"github.com/wakepal/wakepal/internal/observe"
	"github.com/wakepal/wakepal/internal/resilience"
	"github.com/wakepal/wakepal/internal/typing"
	"github.com/wakepal/wakepal/pkg/audio"
	"github.com/wakepal/wakepal/pkg/audio/portaudio"
	"github.com/wakepal/wakepal/pkg/provider/llm"
	"github.com/wakepal/wakepal/pkg/provider/llm/anyllm"
	"github.com/wakepal/wakepal/pkg/provider/llm/command"
	"github.com/wakepal/wakepal/pkg/provider/stt"
	"github.com/wakepal/wakepal/pkg/provider/stt/native"
	"github.com/wakepal/wakepal/pkg/provider/stt/whisperd"
	"github.com/wakepal/wakepal/pkg/provider/tts"
	"github.com/wakepal/wakepal/pkg/provider/tts/coqui"
	"github.com/wakepal/wakepal/pkg/provider/vad"
	"github.com/wakepal/wakepal/pkg/provider/vad/libfvad"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "wakepal.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "wakepal: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "wakepal: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	// The level lives in a LevelVar so a config reload can adjust it without
	// swapping the handler.
	levelVar := new(slog.LevelVar)
	levelVar.Set(slogLevel(cfg.Server.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar}))
	slog.SetDefault(logger)

	slog.Info("wakepal starting",
		"config", *configPath,
		"wake_phrases", cfg.Wake.Phrases,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Metrics provider ──────────────────────────────────────────────────────
	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "wakepal"})
	if err != nil {
		slog.Error("failed to initialise metrics", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownMetrics(shutdownCtx); err != nil {
			slog.Warn("metrics shutdown error", "err", err)
		}
	}()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg, cfg)

	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}
	defer closeProviders(providers)

	// ── Metrics / health endpoint ─────────────────────────────────────────────
	if cfg.Server.MetricsAddr != "" {
		srv := newMetricsServer(cfg)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server error", "err", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Warn("metrics server shutdown error", "err", err)
			}
		}()
		slog.Info("metrics endpoint up", "addr", cfg.Server.MetricsAddr)
	}

	// ── Application ───────────────────────────────────────────────────────────
	application, err := app.New(cfg, providers, app.WithLogger(logger))
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}
	application.SetTypingSounds(loadTyping(cfg.Typing, providers.Audio))

	// ── Config hot reload ─────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		d := config.Diff(old, new)
		if !d.Any() {
			return
		}
		if d.LogLevelChanged {
			levelVar.Set(slogLevel(d.NewLogLevel))
			slog.Info("log level reloaded", "level", d.NewLogLevel)
		}
		if err := application.ApplyDiff(d); err != nil {
			slog.Warn("config reload partially applied", "err", err)
		}
		if d.TypingChanged {
			application.SetTypingSounds(loadTyping(d.NewTyping, providers.Audio))
		}
	})
	if err != nil {
		slog.Warn("config hot reload unavailable", "err", err)
	} else {
		defer watcher.Stop()
	}

	slog.Info("assistant ready — press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the appropriate
// provider from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry, cfg *config.Config) {
	// ── VAD ───────────────────────────────────────────────────────────────────

	reg.RegisterVAD("libfvad", func(config.ProviderEntry) (vad.Engine, error) {
		return libfvad.New(), nil
	})

	// ── STT ───────────────────────────────────────────────────────────────────

	reg.RegisterSTT("whisperd", func(entry config.ProviderEntry) (stt.Transcriber, error) {
		var opts []whisperd.Option
		if entry.TimeoutSeconds > 0 {
			opts = append(opts, whisperd.WithTimeout(time.Duration(entry.TimeoutSeconds)*time.Second))
		}
		return whisperd.New(entry.BaseURL, opts...)
	})

	reg.RegisterSTT("native", func(entry config.ProviderEntry) (stt.Transcriber, error) {
		modelPath := entry.Model
		if modelPath == "" {
			modelPath = optString(entry.Options, "model_path")
		}
		var opts []native.Option
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, native.WithLanguage(lang))
		}
		return native.New(modelPath, opts...)
	})

	// ── TTS ───────────────────────────────────────────────────────────────────

	reg.RegisterTTS("coqui", func(entry config.ProviderEntry) (tts.Synthesizer, error) {
		var opts []coqui.Option
		if mode := optString(entry.Options, "api_mode"); mode != "" {
			opts = append(opts, coqui.WithAPIMode(coqui.APIMode(mode)))
		}
		if entry.TimeoutSeconds > 0 {
			opts = append(opts, coqui.WithTimeout(time.Duration(entry.TimeoutSeconds)*time.Second))
		}
		return coqui.New(entry.BaseURL, opts...)
	})

	// ── LLM ───────────────────────────────────────────────────────────────────
	// openai, anthropic, gemini, deepseek, mistral, groq, llamacpp, llamafile
	// all share the same pattern: optional APIKey + optional BaseURL.
	for _, providerName := range []string{
		"openai", "anthropic", "gemini",
		"deepseek", "mistral", "groq", "llamacpp", "llamafile",
	} {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Responder, error) {
			var backendOpts []anyllmlib.Option
			if entry.APIKey != "" {
				backendOpts = append(backendOpts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				backendOpts = append(backendOpts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(providerName, entry.Model, backendOpts, anyllmOpts(entry)...)
		})
	}

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.RegisterLLM("ollama", func(entry config.ProviderEntry) (llm.Responder, error) {
		var backendOpts []anyllmlib.Option
		if entry.BaseURL != "" {
			backendOpts = append(backendOpts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New("ollama", entry.Model, backendOpts, anyllmOpts(entry)...)
	})

	reg.RegisterLLM("command", func(entry config.ProviderEntry) (llm.Responder, error) {
		commandLine := optString(entry.Options, "command")
		if commandLine == "" {
			commandLine = entry.Model
		}
		return command.New(commandLine)
	})

	// ── Audio ─────────────────────────────────────────────────────────────────

	reg.RegisterAudio("portaudio", func(config.ProviderEntry) (audio.Platform, error) {
		return portaudio.New(portaudio.WithOutputSampleRate(cfg.Audio.OutputSampleRate))
	})
}

func anyllmOpts(entry config.ProviderEntry) []anyllm.Option {
	var opts []anyllm.Option
	if prompt := optString(entry.Options, "system_prompt"); prompt != "" {
		opts = append(opts, anyllm.WithSystemPrompt(prompt))
	}
	return opts
}

// buildProviders instantiates all providers named in cfg using the registry
// and returns them in an [app.Providers] struct. STT, TTS, and LLM entries
// with a fallback block are wrapped in circuit-breaker failover groups.
func buildProviders(cfg *config.Config, reg *config.Registry) (app.Providers, error) {
	var ps app.Providers

	p, err := reg.CreateVAD(cfg.Providers.VAD)
	if err != nil {
		return ps, fmt.Errorf("create vad provider %q: %w", cfg.Providers.VAD.Name, err)
	}
	ps.VAD = p

	platform, err := reg.CreateAudio(cfg.Providers.Audio)
	if err != nil {
		return ps, fmt.Errorf("create audio provider %q: %w", cfg.Providers.Audio.Name, err)
	}
	ps.Audio = platform

	if cfg.Providers.STT.Name == "" {
		return ps, errors.New("providers.stt.name is required to run the assistant")
	}
	transcriber, err := reg.CreateSTT(cfg.Providers.STT)
	if err != nil {
		return ps, fmt.Errorf("create stt provider %q: %w", cfg.Providers.STT.Name, err)
	}
	if fb := cfg.Providers.STT.Fallback; fb != nil {
		backup, err := reg.CreateSTT(*fb)
		if err != nil {
			return ps, fmt.Errorf("create stt fallback %q: %w", fb.Name, err)
		}
		group := resilience.NewSTTFallback(transcriber, cfg.Providers.STT.Name, resilience.FallbackConfig{})
		group.AddFallback(fb.Name, backup)
		ps.STT = group
		slog.Info("stt failover armed", "primary", cfg.Providers.STT.Name, "fallback", fb.Name)
	} else {
		ps.STT = transcriber
	}

	if name := cfg.Providers.TTS.Name; name != "" {
		synthesizer, err := reg.CreateTTS(cfg.Providers.TTS)
		if err != nil {
			return ps, fmt.Errorf("create tts provider %q: %w", name, err)
		}
		if fb := cfg.Providers.TTS.Fallback; fb != nil {
			backup, err := reg.CreateTTS(*fb)
			if err != nil {
				return ps, fmt.Errorf("create tts fallback %q: %w", fb.Name, err)
			}
			group := resilience.NewTTSFallback(synthesizer, name, resilience.FallbackConfig{})
			group.AddFallback(fb.Name, backup)
			ps.TTS = group
			slog.Info("tts failover armed", "primary", name, "fallback", fb.Name)
		} else {
			ps.TTS = synthesizer
		}
	}

	if name := cfg.Providers.LLM.Name; name != "" {
		responder, err := reg.CreateLLM(cfg.Providers.LLM)
		if err != nil {
			return ps, fmt.Errorf("create llm provider %q: %w", name, err)
		}
		if fb := cfg.Providers.LLM.Fallback; fb != nil {
			backup, err := reg.CreateLLM(*fb)
			if err != nil {
				return ps, fmt.Errorf("create llm fallback %q: %w", fb.Name, err)
			}
			group := resilience.NewLLMFallback(responder, name, resilience.FallbackConfig{})
			group.AddFallback(fb.Name, backup)
			ps.LLM = group
			slog.Info("llm failover armed", "primary", name, "fallback", fb.Name)
		} else {
			ps.LLM = responder
		}
	}

	return ps, nil
}

// closeProviders releases providers that hold OS or model resources.
func closeProviders(ps app.Providers) {
	for _, p := range []any{ps.STT, ps.VAD, ps.Audio} {
		if c, ok := p.(io.Closer); ok {
			if err := c.Close(); err != nil {
				slog.Warn("provider close error", "err", err)
			}
		}
	}
}

// ── Metrics / health endpoint ─────────────────────────────────────────────────

// newMetricsServer serves Prometheus metrics plus liveness and readiness
// probes. Readiness covers the HTTP backends the pipeline depends on.
func newMetricsServer(cfg *config.Config) *http.Server {
	var checkers []health.Checker
	if cfg.Providers.STT.Name == "whisperd" && cfg.Providers.STT.BaseURL != "" {
		checkers = append(checkers, health.CheckHTTP("stt", cfg.Providers.STT.BaseURL+"/health", nil))
	}
	if cfg.Providers.TTS.Name == "coqui" && cfg.Providers.TTS.BaseURL != "" {
		checkers = append(checkers, health.CheckHTTP("tts", cfg.Providers.TTS.BaseURL, nil))
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	health.New(checkers...).Register(mux)
	return &http.Server{Addr: cfg.Server.MetricsAddr, Handler: mux}
}

// ── Typing sounds ─────────────────────────────────────────────────────────────

// loadTyping builds the typing sound player, or nil when disabled or broken.
// A bad recording should never stop the assistant from starting.
func loadTyping(cfg config.TypingConfig, platform audio.Platform) *typing.Player {
	if !cfg.Enabled {
		return nil
	}
	sounds, err := typing.Load(cfg.WAVPath)
	if err != nil {
		slog.Warn("typing sounds disabled", "path", cfg.WAVPath, "err", err)
		return nil
	}
	slog.Info("typing sounds loaded", "path", cfg.WAVPath, "keys", len(sounds.Keys))
	return typing.NewPlayer(sounds, platform)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}
