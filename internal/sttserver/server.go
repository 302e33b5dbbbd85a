// Package sttserver exposes a speech-to-text model over HTTP so that several
// assistant processes can share one loaded model.
//
// The wire format is deliberately primitive: POST /transcribe takes raw
// 16 kHz mono s16le PCM in the request body and returns the transcript as
// JSON. GET /health reports the loaded model and GET /metrics serves
// Prometheus metrics.
package sttserver

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/metric"

	"github.com/wakepal/wakepal/internal/observe"
	"github.com/wakepal/wakepal/pkg/audio"
	"github.com/wakepal/wakepal/pkg/provider/stt"
)

// maxBodyBytes caps the PCM payload at two minutes of 16 kHz mono s16le.
const maxBodyBytes = 2 * 60 * 16000 * 2

// Server handles transcription requests against a single shared transcriber.
type Server struct {
	stt        stt.Transcriber
	sampleRate int
	metrics    *observe.Metrics
	log        *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithSampleRate sets the sample rate submitted PCM is interpreted at.
// Defaults to 16000.
func WithSampleRate(rate int) Option {
	return func(s *Server) {
		s.sampleRate = rate
	}
}

// WithLogger sets the request logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		s.log = log
	}
}

// New creates a Server transcribing with tr and recording to m.
func New(tr stt.Transcriber, m *observe.Metrics, opts ...Option) *Server {
	s := &Server{
		stt:        tr,
		sampleRate: 16000,
		metrics:    m,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// transcribeResponse is the JSON body returned by POST /transcribe.
// DurationMS is the wall time the model spent on the request, not the
// length of the submitted audio.
type transcribeResponse struct {
	Text       string `json:"text"`
	DurationMS int64  `json:"duration_ms"`
}

// healthResponse is the JSON body returned by GET /health.
type healthResponse struct {
	Status string `json:"status"`
	Model  string `json:"model"`
}

// Handler returns the full HTTP handler with routes and middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /transcribe", s.handleTranscribe)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	return observe.Middleware(s.metrics)(mux)
}

// handleTranscribe decodes the PCM body and runs it through the model. An
// empty body short-circuits to an empty transcript without touching the
// model, so clients can blindly forward segments that turned out empty.
func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		http.Error(w, "reading request body", http.StatusBadRequest)
		return
	}
	if len(body) > maxBodyBytes {
		http.Error(w, "audio payload too large", http.StatusRequestEntityTooLarge)
		return
	}
	if len(body) == 0 {
		writeJSON(w, http.StatusOK, transcribeResponse{})
		return
	}
	if len(body)%2 != 0 {
		http.Error(w, "PCM body must contain whole 16-bit samples", http.StatusBadRequest)
		return
	}

	samples := audio.PCM16ToFloat32(body)
	audioSeconds := float64(len(samples)) / float64(s.sampleRate)

	start := time.Now()
	text, err := s.stt.Transcribe(r.Context(), samples)
	elapsed := time.Since(start)
	s.metrics.STTDuration.Record(r.Context(), elapsed.Seconds())
	if err != nil {
		s.metrics.RecordProviderError(r.Context(), s.stt.Model(), "stt")
		s.log.Error("transcription failed", "error", err, "audio_s", audioSeconds)
		http.Error(w, "transcription failed", http.StatusInternalServerError)
		return
	}

	s.metrics.SegmentDuration.Record(r.Context(), audioSeconds,
		metric.WithAttributes(observe.Attr("source", "http")))
	writeJSON(w, http.StatusOK, transcribeResponse{Text: text, DurationMS: elapsed.Milliseconds()})
}

// handleHealth reports the loaded model.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Model: s.stt.Model()})
}

// writeJSON encodes v as JSON and writes it with the given status code. On
// encoding failure it falls back to a plain-text 500 response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
