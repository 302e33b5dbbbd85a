// Command wakepal-sttd is the speech-to-text daemon. It loads a whisper.cpp
// model once and serves transcriptions over HTTP, so the assistant process
// (and anything else on the machine) can transcribe without paying the model
// load on every restart.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wakepal/wakepal/internal/observe"
	"github.com/wakepal/wakepal/internal/sttserver"
	"github.com/wakepal/wakepal/pkg/provider/stt/native"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	listenAddr := flag.String("listen", ":8112", "TCP address to serve on")
	modelPath := flag.String("model", "", "path to the whisper.cpp model file (required)")
	language := flag.String("language", "en", "BCP-47 language code for transcription")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if *modelPath == "" {
		fmt.Fprintln(os.Stderr, "wakepal-sttd: -model is required")
		flag.Usage()
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Metrics provider ──────────────────────────────────────────────────────
	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "wakepal-sttd"})
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

	// ── Model ─────────────────────────────────────────────────────────────────
	slog.Info("loading whisper model", "path", *modelPath)
	start := time.Now()
	transcriber, err := native.New(*modelPath, native.WithLanguage(*language))
	if err != nil {
		slog.Error("failed to load model", "err", err)
		return 1
	}
	defer transcriber.Close()
	slog.Info("model loaded", "model", transcriber.Model(), "took", time.Since(start))

	// ── HTTP server ───────────────────────────────────────────────────────────
	server := sttserver.New(transcriber, observe.DefaultMetrics(), sttserver.WithLogger(logger))
	srv := &http.Server{
		Addr:         *listenAddr,
		Handler:      server.Handler(),
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: 2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("serving", "addr", *listenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received, stopping…")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("serve error", "err", err)
			return 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}
