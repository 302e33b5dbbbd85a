package coqui

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wakepal/wakepal/pkg/audio"
	"github.com/wakepal/wakepal/pkg/provider/tts"
)

func wavBody(samples []float32, rate int) []byte {
	return audio.EncodeWAV(audio.Float32ToPCM16(samples), rate, 1)
}

func TestNewRequiresServerURL(t *testing.T) {
	t.Parallel()

	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty serverURL")
	}
}

func TestSynthesizeStandard(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/tts" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		q := r.URL.Query()
		if got := q.Get("text"); got != "Hello there." {
			t.Errorf("got text %q", got)
		}
		if got := q.Get("speaker_id"); got != "p225" {
			t.Errorf("got speaker_id %q", got)
		}
		if got := q.Get("language_id"); got != "en" {
			t.Errorf("got language_id %q", got)
		}
		w.Write(wavBody([]float32{0.1, 0.2, 0.3, 0.4}, 22050))
	}))
	defer srv.Close()

	s, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	clip, err := s.Synthesize(context.Background(), tts.Voice{ID: "p225", Language: "en"}, "Hello there.")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if clip.SampleRate != 22050 {
		t.Errorf("got rate %d, want 22050", clip.SampleRate)
	}
	if len(clip.Samples) != 4 {
		t.Errorf("got %d samples, want 4", len(clip.Samples))
	}
}

func TestSynthesizeXTTSRequiresVoiceID(t *testing.T) {
	t.Parallel()

	s, err := New("http://localhost:8002", WithAPIMode(APIModeXTTS))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.Synthesize(context.Background(), tts.Voice{}, "hi there"); err == nil {
		t.Fatal("expected error for missing voice ID in XTTS mode")
	}
}

func TestSynthesizeEmptyTextSkipsRequest(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for blank text")
	}))
	defer srv.Close()

	s, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	clip, err := s.Synthesize(context.Background(), tts.Voice{}, "   ")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !clip.Empty() {
		t.Error("expected empty clip for blank text")
	}
}

func TestSynthesizeServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	s, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.Synthesize(context.Background(), tts.Voice{}, "hi there"); err == nil {
		t.Fatal("expected error on 502 response")
	}
}

func TestSynthesizeRejectsNonWAVBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not audio</html>"))
	}))
	defer srv.Close()

	s, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.Synthesize(context.Background(), tts.Voice{}, "hi there"); err == nil {
		t.Fatal("expected error for non-WAV body")
	}
}
