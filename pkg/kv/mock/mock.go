// Package mock provides an in-memory [kv.Store] test double.
//
// Store keeps values in a map, records every call and lets tests inject
// errors per method:
//
//	s := mock.New()
//	s.SetErr = errors.New("disk full")
//	// inject s into the system under test …
//	if got := s.CallCount("Set"); got != 1 { … }
package mock

import (
	"context"
	"slices"
	"sync"

	"github.com/MrWong99/shifra/pkg/kv"
)

// Compile-time interface check.
var _ kv.Store = (*Store)(nil)

// Call records the method name and key of a single invocation.
type Call struct {
	Method string
	Key    string
}

// Store is a configurable in-memory [kv.Store]. Safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	values map[string][]byte
	calls  []Call

	// GetErr, when non-nil, is returned by Get.
	GetErr error

	// SetErr, when non-nil, is returned by Set and the value is not stored.
	SetErr error

	// PingErr, when non-nil, is returned by Ping.
	PingErr error
}

// New returns an empty Store.
func New() *Store {
	return &Store{values: make(map[string][]byte)}
}

// Get implements [kv.Store].
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Method: "Get", Key: key})
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	v, ok := s.values[key]
	if !ok {
		return nil, kv.ErrNotFound
	}
	return slices.Clone(v), nil
}

// Set implements [kv.Store].
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Method: "Set", Key: key})
	if s.SetErr != nil {
		return s.SetErr
	}
	if s.values == nil {
		s.values = make(map[string][]byte)
	}
	s.values[key] = slices.Clone(value)
	return nil
}

// Ping implements [kv.Store].
func (s *Store) Ping(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Method: "Ping"})
	return s.PingErr
}

// Close implements [kv.Store].
func (s *Store) Close() error { return nil }

// Put seeds key with value without recording a call.
func (s *Store) Put(key string, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values == nil {
		s.values = make(map[string][]byte)
	}
	s.values[key] = slices.Clone(value)
}

// Value returns the raw bytes stored under key and whether it exists.
func (s *Store) Value(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return slices.Clone(v), ok
}

// CallCount returns how many times method was invoked.
func (s *Store) CallCount(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}
