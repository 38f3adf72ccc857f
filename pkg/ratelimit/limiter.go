// Package ratelimit implements a fixed-window rate limiter on top of
// the shared cache store. It never consults the local cache tier:
// admission decisions need a single source of truth across processes.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/substratehq/substrate/pkg/cache"
)

// windowReuseThreshold guards the read-modify-write fallback: a key
// whose remaining TTL is above it still belongs to a live window,
// anything at or below starts a fresh one instead of pinning the
// counter to a dying expiry.
const windowReuseThreshold = 2 * time.Second

// Limiter counts calls per (scope, client) pair inside fixed windows.
type Limiter struct {
	store cache.Store
}

// New creates a limiter backed by the given shared store.
func New(store cache.Store) (*Limiter, error) {
	if store == nil {
		return nil, fmt.Errorf("ratelimit: store is required")
	}
	return &Limiter{store: store}, nil
}

// Key returns the store key counting one client's calls in one scope.
func Key(scope, client string) string {
	return fmt.Sprintf("ratelimit::%s::%s", scope, client)
}

// Check records one call for client in scope and reports whether it is
// admitted. A limit of N admits N calls per window; the next call
// fails with *LimitExceededError carrying the time until the window
// resets. Store failures surface as plain errors, never as a
// rejection.
func (l *Limiter) Check(ctx context.Context, scope string, limit int64, window time.Duration, client string) error {
	key := Key(scope, client)

	count, remaining, err := l.increment(ctx, key, window)
	if err != nil {
		return fmt.Errorf("rate limit %s: %w", key, err)
	}

	if count > limit {
		return &LimitExceededError{
			Scope:      scope,
			Client:     client,
			Limit:      limit,
			RetryAfter: remaining,
		}
	}
	return nil
}

// increment bumps the window counter, atomically when the store
// supports it.
func (l *Limiter) increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if inc, ok := l.store.(cache.Incrementer); ok {
		return inc.Increment(ctx, key, window)
	}
	return l.incrementReadModifyWrite(ctx, key, window)
}

// incrementReadModifyWrite is the portable path for stores without an
// atomic increment. Concurrent calls can under-count in the gap
// between the read and the write-back, briefly over-admitting a
// bursting client.
func (l *Limiter) incrementReadModifyWrite(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	remaining, err := l.store.TTL(ctx, key)
	if err != nil {
		return 0, 0, err
	}
	if remaining <= windowReuseThreshold {
		remaining = window
	}

	var count int64
	data, err := l.store.Get(ctx, key)
	switch {
	case cache.IsKeyNotFound(err):
		// First call of the window.
	case err != nil:
		return 0, 0, err
	default:
		// An unreadable counter restarts the count rather than
		// locking the client out.
		if n, parseErr := strconv.ParseInt(string(data), 10, 64); parseErr == nil {
			count = n
		}
	}

	count++
	if err := l.store.Set(ctx, key, []byte(strconv.FormatInt(count, 10)), remaining); err != nil {
		return 0, 0, err
	}
	return count, remaining, nil
}
