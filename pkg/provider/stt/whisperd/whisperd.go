// Package whisperd implements [stt.Transcriber] as an HTTP client for the
// wakepal-sttd daemon. Keeping the Whisper model in a long-lived daemon
// avoids reloading weights on every pipeline restart and lets several
// processes share one GPU.
package whisperd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/wakepal/wakepal/pkg/audio"
	"github.com/wakepal/wakepal/pkg/provider/stt"
)

const (
	defaultTimeout = 30 * time.Second

	transcribePath = "/transcribe"
	healthPath     = "/health"
)

// Transcriber implements [stt.Transcriber] against a wakepal-sttd instance.
type Transcriber struct {
	baseURL string
	client  *http.Client

	modelOnce sync.Once
	modelName string
}

var _ stt.Transcriber = (*Transcriber)(nil)

// Option is a functional option for configuring a [Transcriber].
type Option func(*Transcriber)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Transcriber) {
		if c != nil {
			t.client = c
		}
	}
}

// WithTimeout sets the per-request timeout. Defaults to 30 s.
func WithTimeout(d time.Duration) Option {
	return func(t *Transcriber) {
		if d > 0 {
			t.client.Timeout = d
		}
	}
}

// New creates a Transcriber that talks to the daemon at baseURL
// (e.g., "http://localhost:8112").
func New(baseURL string, opts ...Option) (*Transcriber, error) {
	if baseURL == "" {
		return nil, errors.New("whisperd: baseURL must not be empty")
	}
	t := &Transcriber{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

// transcribeResponse mirrors the daemon's POST /transcribe response body.
type transcribeResponse struct {
	Text       string `json:"text"`
	DurationMs int64  `json:"duration_ms"`
}

// healthResponse mirrors the daemon's GET /health response body.
type healthResponse struct {
	Status string `json:"status"`
	Model  string `json:"model"`
}

// Transcribe implements [stt.Transcriber]. Samples are converted to raw
// little-endian s16 PCM and posted to the daemon.
func (t *Transcriber) Transcribe(ctx context.Context, samples []float32) (string, error) {
	if len(samples) == 0 {
		return "", nil
	}
	pcm := audio.Float32ToPCM16(samples)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+transcribePath, bytes.NewReader(pcm))
	if err != nil {
		return "", fmt.Errorf("whisperd: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("whisperd: transcribe request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("whisperd: transcribe returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tr transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("whisperd: decode response: %w", err)
	}
	return strings.TrimSpace(tr.Text), nil
}

// Model implements [stt.Transcriber]. The model name is fetched from the
// daemon's health endpoint on first use and cached.
func (t *Transcriber) Model() string {
	t.modelOnce.Do(func() {
		t.modelName = "whisperd"

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+healthPath, nil)
		if err != nil {
			return
		}
		resp, err := t.client.Do(req)
		if err != nil {
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return
		}
		var hr healthResponse
		if err := json.NewDecoder(resp.Body).Decode(&hr); err != nil {
			return
		}
		if hr.Model != "" {
			t.modelName = hr.Model
		}
	})
	return t.modelName
}
