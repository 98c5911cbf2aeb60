// Package kv defines the durable key-value storage abstraction used to
// persist assistant state.
//
// A Store holds opaque byte values under string keys. The assistant only ever
// uses a single logical slot (the alarm list) but the interface stays general
// so that backends can be swapped through configuration:
//
//   - [github.com/MrWong99/shifra/pkg/kv/file] keeps every slot in one JSON
//     document on local disk.
//   - [github.com/MrWong99/shifra/pkg/kv/postgres] keeps slots in a
//     PostgreSQL table.
//   - [github.com/MrWong99/shifra/pkg/kv/mock] is an in-memory test double.
//
// Implementations must be safe for concurrent use.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by [Store.Get] when no value exists under the key.
var ErrNotFound = errors.New("kv: key not found")

// Store is a durable key-value store.
type Store interface {
	// Get returns the value stored under key, or [ErrNotFound].
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases resources held by the store.
	Close() error
}
