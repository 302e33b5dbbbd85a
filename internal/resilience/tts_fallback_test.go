package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/wakepal/wakepal/pkg/provider/tts"
	ttsmock "github.com/wakepal/wakepal/pkg/provider/tts/mock"
)

func TestTTSFallback_PrimarySuccess(t *testing.T) {
	primary := &ttsmock.Synthesizer{}
	secondary := &ttsmock.Synthesizer{}

	fb := NewTTSFallback(primary, "coqui", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("backup", secondary)

	clip, err := fb.Synthesize(context.Background(), tts.Voice{}, "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(clip.Samples) == 0 {
		t.Fatal("empty clip from healthy primary")
	}
	if secondary.CallCount() != 0 {
		t.Fatalf("secondary called %d times, want 0", secondary.CallCount())
	}
}

func TestTTSFallback_Failover(t *testing.T) {
	primary := &ttsmock.Synthesizer{SynthesizeErr: errors.New("server down")}
	secondary := &ttsmock.Synthesizer{}

	fb := NewTTSFallback(primary, "coqui", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("backup", secondary)

	clip, err := fb.Synthesize(context.Background(), tts.Voice{}, "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(clip.Samples) == 0 {
		t.Fatal("empty clip from fallback")
	}
	if got := secondary.Texts(); len(got) != 1 || got[0] != "hello" {
		t.Fatalf("fallback texts = %q, want [hello]", got)
	}
}

func TestTTSFallback_AllFail(t *testing.T) {
	primary := &ttsmock.Synthesizer{SynthesizeErr: errors.New("down")}
	secondary := &ttsmock.Synthesizer{SynthesizeErr: errors.New("also down")}

	fb := NewTTSFallback(primary, "coqui", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("backup", secondary)

	if _, err := fb.Synthesize(context.Background(), tts.Voice{}, "hello"); !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}
