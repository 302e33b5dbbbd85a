package sttserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/wakepal/wakepal/internal/observe"
	sttmock "github.com/wakepal/wakepal/pkg/provider/stt/mock"
)

func newTestServer(t *testing.T, tr *sttmock.Transcriber) *httptest.Server {
	t.Helper()
	mp := sdkmetric.NewMeterProvider()
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	srv := httptest.NewServer(New(tr, m).Handler())
	t.Cleanup(srv.Close)
	return srv
}

// pcm returns n samples of arbitrary s16le audio.
func pcm(n int) []byte {
	out := make([]byte, n*2)
	for i := range n {
		out[i*2] = byte(i)
		out[i*2+1] = byte(i >> 8)
	}
	return out
}

func TestTranscribe(t *testing.T) {
	t.Parallel()

	tr := &sttmock.Transcriber{Results: []string{"hello there"}}
	srv := newTestServer(t, tr)

	// One second of audio at 16 kHz.
	resp, err := http.Post(srv.URL+"/transcribe", "application/octet-stream",
		bytes.NewReader(pcm(16000)))
	if err != nil {
		t.Fatalf("POST /transcribe: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Text != "hello there" {
		t.Errorf("text = %q, want %q", body.Text, "hello there")
	}
	if got := len(tr.TranscribeCalls[0].Samples); got != 16000 {
		t.Errorf("transcriber got %d samples, want 16000", got)
	}
}

func TestTranscribeReportsModelWallTime(t *testing.T) {
	t.Parallel()

	// One second of audio against a model that takes 50 ms: duration_ms must
	// track the model call, not the audio length.
	tr := &sttmock.Transcriber{Default: "ok", Delay: 50 * time.Millisecond}
	srv := newTestServer(t, tr)

	resp, err := http.Post(srv.URL+"/transcribe", "application/octet-stream",
		bytes.NewReader(pcm(16000)))
	if err != nil {
		t.Fatalf("POST /transcribe: %v", err)
	}
	defer resp.Body.Close()

	var body transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.DurationMS < 50 {
		t.Errorf("duration_ms = %d, want at least the model's 50ms", body.DurationMS)
	}
	if body.DurationMS >= 1000 {
		t.Errorf("duration_ms = %d, looks like the audio length", body.DurationMS)
	}
}

func TestTranscribeEmptyBodySkipsModel(t *testing.T) {
	t.Parallel()

	tr := &sttmock.Transcriber{Default: "should never appear"}
	srv := newTestServer(t, tr)

	resp, err := http.Post(srv.URL+"/transcribe", "application/octet-stream", nil)
	if err != nil {
		t.Fatalf("POST /transcribe: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Text != "" || body.DurationMS != 0 {
		t.Errorf("got %+v, want empty result", body)
	}
	if tr.CallCount() != 0 {
		t.Errorf("model invoked %d times for empty body, want 0", tr.CallCount())
	}
}

func TestTranscribeOddLengthRejected(t *testing.T) {
	t.Parallel()

	tr := &sttmock.Transcriber{}
	srv := newTestServer(t, tr)

	resp, err := http.Post(srv.URL+"/transcribe", "application/octet-stream",
		bytes.NewReader([]byte{1, 2, 3}))
	if err != nil {
		t.Fatalf("POST /transcribe: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	if tr.CallCount() != 0 {
		t.Errorf("model invoked for malformed body")
	}
}

func TestTranscribeModelFailure(t *testing.T) {
	t.Parallel()

	tr := &sttmock.Transcriber{TranscribeErr: errors.New("model exploded")}
	srv := newTestServer(t, tr)

	resp, err := http.Post(srv.URL+"/transcribe", "application/octet-stream",
		bytes.NewReader(pcm(320)))
	if err != nil {
		t.Fatalf("POST /transcribe: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	tr := &sttmock.Transcriber{ModelName: "base.en"}
	srv := newTestServer(t, tr)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Status != "ok" || body.Model != "base.en" {
		t.Errorf("got %+v, want status ok and model base.en", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &sttmock.Transcriber{})

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}
