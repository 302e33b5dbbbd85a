package resilience

import (
	"errors"
	"testing"
	"time"
)

// chainOf builds a whisperd-then-native chain, the shape the assistant
// configures for STT.
func chainOf(cfg CircuitBreakerConfig) *FallbackGroup[string] {
	fg := NewFallbackGroup("whisperd", "whisperd", FallbackConfig{CircuitBreaker: cfg})
	fg.AddFallback("native", "native")
	return fg
}

func TestFallbackGroupPrefersPrimary(t *testing.T) {
	t.Parallel()

	fg := chainOf(CircuitBreakerConfig{MaxFailures: 3})

	var served string
	err := fg.Execute(func(v string) error {
		served = v
		return nil
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if served != "whisperd" {
		t.Fatalf("served by %q, want the primary", served)
	}
}

func TestFallbackGroupFailsOver(t *testing.T) {
	t.Parallel()

	fg := chainOf(CircuitBreakerConfig{MaxFailures: 3})

	var served string
	err := fg.Execute(func(v string) error {
		if v == "whisperd" {
			return errDaemonDown
		}
		served = v
		return nil
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if served != "native" {
		t.Fatalf("served by %q, want the fallback", served)
	}
}

func TestFallbackGroupAllDown(t *testing.T) {
	t.Parallel()

	fg := chainOf(CircuitBreakerConfig{MaxFailures: 3})

	err := fg.Execute(func(string) error { return errDaemonDown })
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("Execute = %v, want ErrAllFailed", err)
	}
}

func TestFallbackGroupSkipsOpenBreaker(t *testing.T) {
	t.Parallel()

	fg := chainOf(CircuitBreakerConfig{
		MaxFailures:  2,
		ResetTimeout: time.Hour,
	})

	// Two failed calls open the primary's breaker.
	calls := map[string]int{}
	for range 2 {
		_ = fg.Execute(func(v string) error {
			calls[v]++
			if v == "whisperd" {
				return errDaemonDown
			}
			return nil
		})
	}

	// The third call must go straight to the fallback.
	_ = fg.Execute(func(v string) error {
		calls[v]++
		return nil
	})
	if calls["whisperd"] != 2 {
		t.Errorf("primary called %d times, want 2 (breaker should shield it)", calls["whisperd"])
	}
	if calls["native"] != 3 {
		t.Errorf("fallback called %d times, want 3", calls["native"])
	}
}

func TestFallbackGroupPrimaryAccessor(t *testing.T) {
	t.Parallel()

	fg := chainOf(CircuitBreakerConfig{})
	if got := fg.Primary(); got != "whisperd" {
		t.Fatalf("Primary() = %q, want whisperd", got)
	}
}

func TestExecuteWithResultReturnsPrimaryValue(t *testing.T) {
	t.Parallel()

	fg := chainOf(CircuitBreakerConfig{MaxFailures: 3})

	text, err := ExecuteWithResult(fg, func(v string) (string, error) {
		return "transcript from " + v, nil
	})
	if err != nil {
		t.Fatalf("ExecuteWithResult: %v", err)
	}
	if text != "transcript from whisperd" {
		t.Fatalf("result = %q, want the primary's", text)
	}
}

func TestExecuteWithResultFailsOver(t *testing.T) {
	t.Parallel()

	fg := chainOf(CircuitBreakerConfig{MaxFailures: 3})

	text, err := ExecuteWithResult(fg, func(v string) (string, error) {
		if v == "whisperd" {
			return "", errDaemonDown
		}
		return "transcript from " + v, nil
	})
	if err != nil {
		t.Fatalf("ExecuteWithResult: %v", err)
	}
	if text != "transcript from native" {
		t.Fatalf("result = %q, want the fallback's", text)
	}
}

func TestExecuteWithResultAllDown(t *testing.T) {
	t.Parallel()

	fg := chainOf(CircuitBreakerConfig{MaxFailures: 3})

	_, err := ExecuteWithResult(fg, func(string) (string, error) {
		return "", errDaemonDown
	})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("ExecuteWithResult = %v, want ErrAllFailed", err)
	}
}
