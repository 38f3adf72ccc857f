// Package cache provides the two-tier read cache the model layer and
// entity modules compute through: a lock-free in-process near tier in
// front of a shared store, with single-flight protection so one
// process computes a missing entry once no matter how many callers
// ask for it concurrently.
package cache

import (
	"context"
	"time"
)

// Store is the shared cache tier. Every backend exposes the same four
// operations; anything meeting this contract is substitutable (the
// Redis manager in production, MemoryStore in tests and single-node
// deployments).
type Store interface {
	// Get returns the stored value, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with a time-to-live. A non-positive ttl
	// stores the value without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// TTL returns the remaining lifetime of a key, or 0 when the key
	// is absent or has no expiry.
	TTL(ctx context.Context, key string) (time.Duration, error)
}

// Incrementer is an optional store capability: an atomic counter bump
// that starts the key's window on first increment. The rate limiter
// prefers it over its read-modify-write fallback.
type Incrementer interface {
	// Increment adds one to the integer at key, setting expiry if the
	// key was created by this call, and returns the new count and the
	// remaining window.
	Increment(ctx context.Context, key string, expiry time.Duration) (int64, time.Duration, error)
}

// PrefixDeleter is an optional store capability: bulk removal of every
// key under a prefix, used for namespace-wide invalidation.
type PrefixDeleter interface {
	DeletePrefix(ctx context.Context, prefix string) error
}
