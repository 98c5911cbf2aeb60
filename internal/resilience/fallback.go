package resilience

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrAllFailed is returned when no backend in a [FallbackGroup] succeeded.
var ErrAllFailed = errors.New("resilience: all backends failed")

type member[T any] struct {
	name    string
	value   T
	breaker *Breaker
}

// FallbackGroup tries backends of one kind in registration order, skipping
// those whose breaker is open.
type FallbackGroup[T any] struct {
	cfg BreakerConfig

	mu      sync.RWMutex
	members []member[T]
}

// NewFallbackGroup returns an empty group. cfg is copied into a breaker for
// every backend added later.
func NewFallbackGroup[T any](cfg BreakerConfig) *FallbackGroup[T] {
	return &FallbackGroup[T]{cfg: cfg}
}

// Add appends a backend. Backends are tried in the order they are added.
func (g *FallbackGroup[T]) Add(name string, backend T) {
	cfg := g.cfg
	cfg.Name = name

	g.mu.Lock()
	defer g.mu.Unlock()
	g.members = append(g.members, member[T]{name: name, value: backend, breaker: NewBreaker(cfg)})
}

// Len returns the number of backends.
func (g *FallbackGroup[T]) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.members)
}

// States returns the breaker state of every backend keyed by name.
func (g *FallbackGroup[T]) States() map[string]State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make(map[string]State, len(g.members))
	for _, m := range g.members {
		out[m.name] = m.breaker.State()
	}
	return out
}

// Execute calls fn with each backend until one returns nil and reports the
// name of that backend. When every backend fails or is open the returned
// error wraps [ErrAllFailed] together with each backend's error.
func (g *FallbackGroup[T]) Execute(fn func(T) error) (string, error) {
	g.mu.RLock()
	members := g.members
	g.mu.RUnlock()

	if len(members) == 0 {
		return "", fmt.Errorf("%w: no backends configured", ErrAllFailed)
	}

	errs := make([]error, 0, len(members))
	for _, m := range members {
		err := m.breaker.Execute(func() error { return fn(m.value) })
		if err == nil {
			return m.name, nil
		}
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("resilience: skipping backend", "backend", m.name, "reason", "circuit open")
		} else {
			slog.Debug("resilience: backend failed, trying next", "backend", m.name, "err", err)
		}
		errs = append(errs, fmt.Errorf("%s: %w", m.name, err))
	}
	return "", fmt.Errorf("%w: %w", ErrAllFailed, errors.Join(errs...))
}
