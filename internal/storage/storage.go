// Package storage defines the narrow key-value contract the journal and
// instance registry are written against. Two backends implement it: a
// durable Pebble store and an in-memory fallback for environments with no
// durable backend (development and testing only).
package storage

import "context"

// Op is a single mutation inside an atomic batch.
type Op struct {
	Key    []byte
	Value  []byte
	Delete bool
}

// Store is the minimal ordered key-value surface the runtime needs.
type Store interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(key []byte) (value []byte, ok bool, err error)

	// Set writes a single key respecting the backend's durability policy.
	Set(key, value []byte) error

	// Delete removes a single key.
	Delete(key []byte) error

	// Apply commits all ops atomically.
	Apply(ctx context.Context, ops []Op) error

	// Scan visits keys in [low, high) in ascending byte order. Returning
	// false from fn stops the scan early.
	Scan(low, high []byte, fn func(key, value []byte) bool) error

	Close() error
}
