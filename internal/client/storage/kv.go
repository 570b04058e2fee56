// Package storage implements the local record store: a namespaced
// key-value layer with a SQLite-backed implementation, and the NoteStore
// that persists note records plus a UUID index on top of it.
package storage

import "context"

// KV is the local key-value contract. It mirrors the shape of browser
// local storage: whole-value reads and writes under string keys, plus an
// availability probe so callers can degrade to in-memory operation.
type KV interface {
	// GetItem returns the stored value and whether the key exists.
	GetItem(ctx context.Context, key string) (string, bool, error)

	// SetItem stores value under key, overwriting any previous value.
	SetItem(ctx context.Context, key, value string) error

	// RemoveItem deletes the key. Removing a missing key is not an error.
	RemoveItem(ctx context.Context, key string) error

	// Probe reports whether the backing store is usable.
	Probe(ctx context.Context) error
}
