// Package resilience keeps optional output backends from dragging the
// assistant down when they misbehave.
//
// A [Breaker] stops calling a backend after repeated failures and probes it
// again after a cool-down. A [FallbackGroup] orders several backends of the
// same kind, each behind its own breaker, and uses the first healthy one.
// [SpeechFallback] and [NotifyFallback] adapt groups of error-returning
// backends to the fire-and-forget capability ports.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [Breaker.Execute] while the breaker rejects
// calls.
var ErrCircuitOpen = errors.New("resilience: circuit open")

// State is the operating mode of a [Breaker].
type State int

const (
	// StateClosed forwards every call.
	StateClosed State = iota

	// StateOpen rejects calls until the cool-down has elapsed.
	StateOpen

	// StateHalfOpen lets a limited number of probe calls through. One failed
	// probe re-opens the breaker; enough successful probes close it.
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

// BreakerConfig tunes a [Breaker]. Zero fields take defaults.
type BreakerConfig struct {
	// Name labels the breaker in logs.
	Name string `yaml:"-"`

	// MaxFailures is the number of consecutive failures that opens the
	// breaker. Default: 3.
	MaxFailures int `yaml:"max_failures"`

	// Cooldown is how long an open breaker waits before probing. Default: 30s.
	Cooldown time.Duration `yaml:"cooldown"`

	// Probes is the number of successful half-open calls needed to close the
	// breaker again. Default: 1.
	Probes int `yaml:"probes"`

	// Now returns the current time. Default: time.Now.
	Now func() time.Time `yaml:"-"`

	// IsFailure reports whether an error returned by the guarded call says
	// the backend is unhealthy. Errors it rejects are returned to the caller
	// but leave the breaker untouched. Default: every non-nil error counts.
	IsFailure func(error) bool `yaml:"-"`
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.MaxFailures <= 0 {
		c.MaxFailures = 3
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 30 * time.Second
	}
	if c.Probes <= 0 {
		c.Probes = 1
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.IsFailure == nil {
		c.IsFailure = func(error) bool { return true }
	}
	return c
}

// Breaker is a three-state circuit breaker.
type Breaker struct {
	cfg BreakerConfig

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	inFlight int // half-open probes started
	passed   int // half-open probes succeeded
}

// NewBreaker returns a closed Breaker.
func NewBreaker(cfg BreakerConfig) *Breaker {
	return &Breaker{cfg: cfg.withDefaults()}
}

// Execute calls fn unless the breaker is open. fn's error is returned as is
// and counts as a failure when [BreakerConfig.IsFailure] accepts it.
func (b *Breaker) Execute(fn func() error) error {
	probe, ok := b.admit()
	if !ok {
		return ErrCircuitOpen
	}
	err := fn()
	b.settle(probe, err)
	return err
}

func (b *Breaker) admit() (probe bool, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		if b.cfg.Now().Sub(b.openedAt) < b.cfg.Cooldown {
			return false, false
		}
		b.state = StateHalfOpen
		b.inFlight, b.passed = 0, 0
		slog.Info("resilience: breaker half-open", "name", b.cfg.Name)
	}
	if b.state == StateHalfOpen {
		if b.inFlight >= b.cfg.Probes {
			return false, false
		}
		b.inFlight++
		return true, true
	}
	return false, true
}

func (b *Breaker) settle(probe bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case err != nil && !b.cfg.IsFailure(err):
		if probe {
			b.inFlight--
		}
	case err != nil && probe:
		b.tripLocked()
		slog.Warn("resilience: probe failed, breaker re-opened", "name", b.cfg.Name, "err", err)
	case err != nil:
		b.failures++
		if b.failures >= b.cfg.MaxFailures && b.state == StateClosed {
			b.tripLocked()
			slog.Warn("resilience: breaker opened", "name", b.cfg.Name, "failures", b.failures, "err", err)
		}
	case probe:
		b.passed++
		if b.passed >= b.cfg.Probes && b.state == StateHalfOpen {
			b.state = StateClosed
			b.failures = 0
			slog.Info("resilience: breaker closed", "name", b.cfg.Name)
		}
	default:
		b.failures = 0
	}
}

func (b *Breaker) tripLocked() {
	b.state = StateOpen
	b.openedAt = b.cfg.Now()
}

// State reports the breaker state. An open breaker whose cool-down has
// elapsed reports [StateHalfOpen]; the transition itself happens on the next
// call to Execute.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.cfg.Now().Sub(b.openedAt) >= b.cfg.Cooldown {
		return StateHalfOpen
	}
	return b.state
}

// Reset closes the breaker and clears its counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures, b.inFlight, b.passed = 0, 0, 0
}
