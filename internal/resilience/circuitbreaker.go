// Package resilience keeps the assistant answering when a provider dies
// mid-conversation. [CircuitBreaker] stops the pipeline from hammering a
// backend that is clearly down (a whisperd daemon being restarted, a Coqui
// server mid-deploy), and [FallbackGroup] chains same-kind providers so the
// next healthy one takes the call instead. STTFallback, TTSFallback and
// LLMFallback put a group behind the corresponding provider interface.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [CircuitBreaker.Execute] when the call was
// rejected without running because the breaker is open.
var ErrCircuitOpen = errors.New("resilience: circuit open")

// State is a [CircuitBreaker] operating mode.
type State int

const (
	// StateClosed admits every call.
	StateClosed State = iota

	// StateOpen rejects every call with [ErrCircuitOpen] until the cooldown
	// elapses.
	StateOpen

	// StateHalfOpen admits a bounded number of probe calls to find out
	// whether the provider has recovered.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig tunes a [CircuitBreaker]. Zero values pick the
// package defaults.
type CircuitBreakerConfig struct {
	// Name labels the breaker in logs, usually the provider name.
	Name string

	// MaxFailures is the consecutive-failure streak that opens the breaker.
	// Default 5.
	MaxFailures int

	// ResetTimeout is the cooldown an open breaker sits out before probing
	// the provider again. Default 30s.
	ResetTimeout time.Duration

	// HalfOpenMax bounds the probe calls admitted while half-open; that many
	// clean probes close the breaker. Default 3.
	HalfOpenMax int

	// Logger receives state transitions. Nil falls back to slog.Default().
	Logger *slog.Logger
}

// CircuitBreaker gates calls to one provider. Repeated failures open it,
// open calls are rejected without reaching the provider, and after a
// cooldown a few probe calls decide whether it closes again.
type CircuitBreaker struct {
	name         string
	failureLimit int
	cooldown     time.Duration
	probeLimit   int
	log          *slog.Logger

	mu        sync.Mutex
	state     State
	failures  int
	failedAt  time.Time
	probes    int
	probeWins int
}

// NewCircuitBreaker builds a closed breaker from cfg.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = 3
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &CircuitBreaker{
		name:         cfg.Name,
		failureLimit: cfg.MaxFailures,
		cooldown:     cfg.ResetTimeout,
		probeLimit:   cfg.HalfOpenMax,
		log:          cfg.Logger,
	}
}

// Execute runs fn under the breaker's admission policy: rejected outright
// while open, rationed while half-open, free while closed. The returned
// error is fn's own unless the call was rejected with [ErrCircuitOpen].
func (cb *CircuitBreaker) Execute(fn func() error) error {
	probe, err := cb.admit()
	if err != nil {
		return err
	}
	err = fn()
	cb.settle(probe, err)
	return err
}

// admit decides whether a call may proceed and whether it counts against
// the half-open probe budget.
func (cb *CircuitBreaker) admit() (probe bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if time.Since(cb.failedAt) < cb.cooldown {
			return false, ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		cb.probes = 0
		cb.probeWins = 0
		cb.log.Info("breaker cooldown over, probing provider", "breaker", cb.name)
	}
	if cb.state == StateHalfOpen {
		if cb.probes >= cb.probeLimit {
			return false, ErrCircuitOpen
		}
		cb.probes++
		return true, nil
	}
	return false, nil
}

// settle folds one call outcome into the breaker state.
func (cb *CircuitBreaker) settle(probe bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.failedAt = time.Now()
		if probe {
			// One bad probe and the provider sits out another cooldown.
			cb.state = StateOpen
			cb.failures = cb.failureLimit
			cb.log.Warn("probe failed, breaker re-opened", "breaker", cb.name)
			return
		}
		cb.failures++
		if cb.state == StateClosed && cb.failures >= cb.failureLimit {
			cb.state = StateOpen
			cb.log.Warn("breaker opened, provider sidelined",
				"breaker", cb.name, "failures", cb.failures)
		}
		return
	}

	if probe {
		cb.probeWins++
		if cb.probeWins >= cb.probeLimit {
			cb.state = StateClosed
			cb.failures = 0
			cb.log.Info("breaker closed, provider recovered", "breaker", cb.name)
		}
		return
	}
	cb.failures = 0
}

// State reports the breaker's effective state. An open breaker whose
// cooldown has elapsed reports half-open; the actual transition happens on
// the next [CircuitBreaker.Execute].
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == StateOpen && time.Since(cb.failedAt) >= cb.cooldown {
		return StateHalfOpen
	}
	return cb.state
}

// Reset forces the breaker closed and clears its failure streak.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
	cb.probes = 0
	cb.probeWins = 0
	cb.log.Info("breaker reset by hand", "breaker", cb.name)
}
