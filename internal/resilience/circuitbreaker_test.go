package resilience

import (
	"errors"
	"testing"
	"time"
)

var errDaemonDown = errors.New("whisperd: connection refused")

func TestBreakerDefaults(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "whisperd"})
	if cb.failureLimit != 5 {
		t.Errorf("failure limit = %d, want 5", cb.failureLimit)
	}
	if cb.cooldown != 30*time.Second {
		t.Errorf("cooldown = %v, want 30s", cb.cooldown)
	}
	if cb.probeLimit != 3 {
		t.Errorf("probe limit = %d, want 3", cb.probeLimit)
	}
	if cb.State() != StateClosed {
		t.Errorf("fresh breaker state = %v, want closed", cb.State())
	}
}

func TestBreakerPassesCallsWhileClosed(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "whisperd", MaxFailures: 3})
	called := false
	if err := cb.Execute(func() error { called = true; return nil }); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !called {
		t.Fatal("closed breaker did not run the call")
	}
}

func TestBreakerOpensAfterFailureStreak(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:         "whisperd",
		MaxFailures:  3,
		ResetTimeout: time.Hour,
	})

	for range 3 {
		_ = cb.Execute(func() error { return errDaemonDown })
	}
	if cb.State() != StateOpen {
		t.Fatalf("state after 3 failures = %v, want open", cb.State())
	}

	// The provider must not see calls while the breaker is open.
	err := cb.Execute(func() error {
		t.Error("open breaker ran the call")
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("Execute = %v, want ErrCircuitOpen", err)
	}
}

func TestBreakerSuccessClearsTheStreak(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "whisperd", MaxFailures: 3})

	_ = cb.Execute(func() error { return errDaemonDown })
	_ = cb.Execute(func() error { return errDaemonDown })
	_ = cb.Execute(func() error { return nil })

	// The streak restarted at zero, so two more failures must not open it.
	_ = cb.Execute(func() error { return errDaemonDown })
	_ = cb.Execute(func() error { return errDaemonDown })
	if cb.State() != StateClosed {
		t.Fatalf("state = %v, want closed after an interrupted streak", cb.State())
	}
}

func TestBreakerProbesAfterCooldown(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:         "whisperd",
		MaxFailures:  2,
		ResetTimeout: 10 * time.Millisecond,
		HalfOpenMax:  2,
	})

	_ = cb.Execute(func() error { return errDaemonDown })
	_ = cb.Execute(func() error { return errDaemonDown })
	if cb.State() != StateOpen {
		t.Fatal("breaker did not open")
	}

	time.Sleep(15 * time.Millisecond)
	if cb.State() != StateHalfOpen {
		t.Fatalf("state after cooldown = %v, want half-open", cb.State())
	}
}

func TestBreakerClosesAfterCleanProbes(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:         "whisperd",
		MaxFailures:  2,
		ResetTimeout: 10 * time.Millisecond,
		HalfOpenMax:  2,
	})

	_ = cb.Execute(func() error { return errDaemonDown })
	_ = cb.Execute(func() error { return errDaemonDown })
	time.Sleep(15 * time.Millisecond)

	for i := range 2 {
		if err := cb.Execute(func() error { return nil }); err != nil {
			t.Fatalf("probe %d: %v", i, err)
		}
	}
	if cb.State() != StateClosed {
		t.Fatalf("state = %v, want closed after clean probes", cb.State())
	}
}

func TestBreakerReopensOnFailedProbe(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:         "whisperd",
		MaxFailures:  2,
		ResetTimeout: 10 * time.Millisecond,
		HalfOpenMax:  3,
	})

	_ = cb.Execute(func() error { return errDaemonDown })
	_ = cb.Execute(func() error { return errDaemonDown })
	time.Sleep(15 * time.Millisecond)

	if err := cb.Execute(func() error { return errDaemonDown }); err == nil {
		t.Fatal("failing probe returned nil")
	}

	// Freshly re-opened: the cooldown restarted, so State() must not report
	// half-open again yet.
	cb.mu.Lock()
	s := cb.state
	cb.mu.Unlock()
	if s != StateOpen {
		t.Fatalf("state = %v, want open after a failed probe", s)
	}
}

func TestBreakerReset(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:         "whisperd",
		MaxFailures:  2,
		ResetTimeout: time.Hour,
	})

	_ = cb.Execute(func() error { return errDaemonDown })
	_ = cb.Execute(func() error { return errDaemonDown })
	if cb.State() != StateOpen {
		t.Fatal("breaker did not open")
	}

	cb.Reset()
	if cb.State() != StateClosed {
		t.Fatalf("state = %v, want closed after Reset", cb.State())
	}
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("Execute after Reset: %v", err)
	}
}

func TestStateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{State(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
