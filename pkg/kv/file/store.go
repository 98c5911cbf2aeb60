// Package file provides a [kv.Store] that keeps all slots in a single JSON
// document on local disk. It suits a single-user assistant where the whole
// state is a handful of small values.
//
// Writes go to a temporary file in the same directory which is then renamed
// over the original, so a crash never leaves a half-written document behind.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/MrWong99/shifra/pkg/kv"
)

// Compile-time interface check.
var _ kv.Store = (*Store)(nil)

// Store persists slots as one JSON object mapping key to raw JSON value.
// Thread-safe for concurrent use.
type Store struct {
	mu   sync.Mutex
	path string
}

// New creates a Store backed by the file at path. The file and its parent
// directory are created lazily on the first Set.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Get implements [kv.Store].
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readLocked()
	if err != nil {
		return nil, err
	}
	v, ok := doc[key]
	if !ok {
		return nil, kv.ErrNotFound
	}
	return []byte(v), nil
}

// Set implements [kv.Store]. value must be valid JSON because it is embedded
// verbatim into the document.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	if !json.Valid(value) {
		return fmt.Errorf("file store: set %q: value is not valid JSON", key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readLocked()
	if err != nil {
		// A corrupt document is replaced rather than blocking all writes.
		doc = make(map[string]json.RawMessage)
	}
	doc[key] = json.RawMessage(value)

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("file store: marshal: %w", err)
	}
	return s.writeLocked(data)
}

// Ping implements [kv.Store]. It checks that the parent directory exists or
// can be created.
func (s *Store) Ping(_ context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("file store: ping: %w", err)
	}
	return nil
}

// Close implements [kv.Store]. It is a no-op.
func (s *Store) Close() error { return nil }

// readLocked loads the whole document. A missing file is an empty document.
func (s *Store) readLocked() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]json.RawMessage), nil
	}
	if err != nil {
		return nil, fmt.Errorf("file store: read: %w", err)
	}
	doc := make(map[string]json.RawMessage)
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("file store: decode %q: %w", s.path, err)
	}
	return doc, nil
}

func (s *Store) writeLocked(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("file store: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".kv-*.json")
	if err != nil {
		return fmt.Errorf("file store: create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("file store: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("file store: close temp: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("file store: rename: %w", err)
	}
	return nil
}
