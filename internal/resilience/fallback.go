package resilience

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllFailed means every provider in the chain refused the call, whether
// by failing it or by sitting behind an open breaker.
var ErrAllFailed = errors.New("resilience: every provider failed")

// FallbackConfig configures a [FallbackGroup].
type FallbackConfig struct {
	// CircuitBreaker tunes the breaker each provider in the chain gets.
	// The Name field is overwritten with the provider's own name.
	CircuitBreaker CircuitBreakerConfig

	// Logger receives failover decisions. Nil falls back to slog.Default().
	Logger *slog.Logger
}

// chainEntry is one provider in the failover order with its breaker.
type chainEntry[T any] struct {
	name    string
	value   T
	breaker *CircuitBreaker
}

// FallbackGroup chains same-kind providers in failover order. A call goes
// to the first provider whose breaker admits it; a failure moves on to the
// next, so a dead primary costs one failed attempt at most and nothing at
// all once its breaker opens.
//
// FallbackGroup is safe for concurrent use after the chain is assembled.
type FallbackGroup[T any] struct {
	entries []chainEntry[T]
	cbCfg   CircuitBreakerConfig
	log     *slog.Logger
}

// NewFallbackGroup starts a chain with primary as its preferred provider.
// Further providers join via [FallbackGroup.AddFallback].
func NewFallbackGroup[T any](primary T, primaryName string, cfg FallbackConfig) *FallbackGroup[T] {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	cfg.CircuitBreaker.Logger = cfg.Logger
	fg := &FallbackGroup[T]{cbCfg: cfg.CircuitBreaker, log: cfg.Logger}
	fg.AddFallback(primaryName, primary)
	return fg
}

// AddFallback appends a provider to the end of the failover order.
func (fg *FallbackGroup[T]) AddFallback(name string, value T) {
	cbCfg := fg.cbCfg
	cbCfg.Name = name
	fg.entries = append(fg.entries, chainEntry[T]{
		name:    name,
		value:   value,
		breaker: NewCircuitBreaker(cbCfg),
	})
}

// Primary returns the first provider in the chain.
func (fg *FallbackGroup[T]) Primary() T {
	return fg.entries[0].value
}

// Execute tries fn against each provider in failover order until one
// succeeds.
func (fg *FallbackGroup[T]) Execute(fn func(T) error) error {
	_, err := ExecuteWithResult(fg, func(v T) (struct{}, error) {
		return struct{}{}, fn(v)
	})
	return err
}

// ExecuteWithResult tries fn against each provider in failover order and
// returns the first successful result. Providers behind an open breaker are
// skipped without being called. When the whole chain fails, the error wraps
// [ErrAllFailed] around the last provider's failure.
//
// A free function because methods cannot add type parameters.
func ExecuteWithResult[T, R any](fg *FallbackGroup[T], fn func(T) (R, error)) (R, error) {
	var lastErr error
	for i := range fg.entries {
		e := &fg.entries[i]
		var out R
		err := e.breaker.Execute(func() error {
			var callErr error
			out, callErr = fn(e.value)
			return callErr
		})
		if err == nil {
			if i > 0 {
				fg.log.Info("call served by fallback provider", "provider", e.name)
			}
			return out, nil
		}
		lastErr = err
		if errors.Is(err, ErrCircuitOpen) {
			fg.log.Debug("provider skipped, breaker open", "provider", e.name)
		} else {
			fg.log.Warn("provider failed, moving down the chain",
				"provider", e.name, "error", err)
		}
	}
	var zero R
	return zero, fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}
