package config

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/MrWong99/shifra/internal/resilience"
	"github.com/MrWong99/shifra/pkg/kv"
)

// ErrNotRegistered is returned by the Create methods when no factory exists
// for the requested name.
var ErrNotRegistered = errors.New("config: backend not registered")

// Factory signatures per backend kind.
type (
	StoreFactory  func(ctx context.Context, cfg StoreConfig) (kv.Store, error)
	SpeechFactory func(entry BackendEntry) (resilience.TextSpeaker, error)
	NotifyFactory func(entry BackendEntry) (resilience.NotificationSender, error)
)

// Registry maps backend names to constructors. It is safe for concurrent
// use.
type Registry struct {
	mu     sync.RWMutex
	stores map[StoreBackend]StoreFactory
	speech map[string]SpeechFactory
	notify map[string]NotifyFactory
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		stores: make(map[StoreBackend]StoreFactory),
		speech: make(map[string]SpeechFactory),
		notify: make(map[string]NotifyFactory),
	}
}

// RegisterStore registers a key-value store factory. A later registration
// under the same name replaces the earlier one.
func (r *Registry) RegisterStore(backend StoreBackend, f StoreFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores[backend] = f
}

// RegisterSpeech registers a speech backend factory.
func (r *Registry) RegisterSpeech(name string, f SpeechFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.speech[name] = f
}

// RegisterNotify registers a notification backend factory.
func (r *Registry) RegisterNotify(name string, f NotifyFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notify[name] = f
}

// CreateStore opens the store selected by cfg.Backend.
func (r *Registry) CreateStore(ctx context.Context, cfg StoreConfig) (kv.Store, error) {
	r.mu.RLock()
	f, ok := r.stores[cfg.Backend]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: store/%q", ErrNotRegistered, cfg.Backend)
	}
	return f(ctx, cfg)
}

// CreateSpeech builds the speech backend named by entry.Name.
func (r *Registry) CreateSpeech(entry BackendEntry) (resilience.TextSpeaker, error) {
	r.mu.RLock()
	f, ok := r.speech[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: speech/%q", ErrNotRegistered, entry.Name)
	}
	return f(entry)
}

// CreateNotify builds the notification backend named by entry.Name.
func (r *Registry) CreateNotify(entry BackendEntry) (resilience.NotificationSender, error) {
	r.mu.RLock()
	f, ok := r.notify[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: notify/%q", ErrNotRegistered, entry.Name)
	}
	return f(entry)
}
