package cache

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// MemoryStore is an in-process Store for tests and single-node
// deployments. All operations are safe for concurrent use; expired
// entries are dropped lazily on access.
type MemoryStore struct {
	entries *xsync.MapOf[string, memoryEntry]
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time // zero means no expiry
}

var (
	_ Store         = (*MemoryStore)(nil)
	_ Incrementer   = (*MemoryStore)(nil)
	_ PrefixDeleter = (*MemoryStore)(nil)
)

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: xsync.NewMapOf[string, memoryEntry]()}
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Get returns the stored value, or ErrKeyNotFound.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	e, ok := s.entries.Load(key)
	if !ok {
		return nil, ErrKeyNotFound
	}
	if e.expired(time.Now()) {
		s.entries.Delete(key)
		return nil, ErrKeyNotFound
	}
	return e.data, nil
}

// Set stores a value; a non-positive ttl stores it without expiry.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := memoryEntry{data: value}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	s.entries.Store(key, e)
	return nil
}

// Delete removes a key. Absent keys are not an error.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.entries.Delete(key)
	return nil
}

// TTL returns the remaining lifetime, or 0 when the key is absent,
// expired, or has no expiry.
func (s *MemoryStore) TTL(_ context.Context, key string) (time.Duration, error) {
	e, ok := s.entries.Load(key)
	if !ok || e.expiresAt.IsZero() {
		return 0, nil
	}
	remaining := time.Until(e.expiresAt)
	if remaining <= 0 {
		s.entries.Delete(key)
		return 0, nil
	}
	return remaining, nil
}

// Increment atomically bumps the counter at key. The expiry is set
// when this call creates the key (or revives an expired one) and kept
// otherwise, matching Redis INCR semantics.
func (s *MemoryStore) Increment(_ context.Context, key string, expiry time.Duration) (int64, time.Duration, error) {
	var (
		count     int64
		remaining time.Duration
	)
	s.entries.Compute(key, func(old memoryEntry, loaded bool) (memoryEntry, bool) {
		now := time.Now()
		if loaded && !old.expired(now) {
			n, _ := strconv.ParseInt(string(old.data), 10, 64)
			n++
			count = n
			expiresAt := old.expiresAt
			if expiresAt.IsZero() {
				expiresAt = now.Add(expiry)
			}
			remaining = time.Until(expiresAt)
			return memoryEntry{data: strconv.AppendInt(nil, n, 10), expiresAt: expiresAt}, false
		}
		count = 1
		remaining = expiry
		return memoryEntry{data: []byte("1"), expiresAt: now.Add(expiry)}, false
	})
	return count, remaining, nil
}

// DeletePrefix removes every key under the prefix.
func (s *MemoryStore) DeletePrefix(_ context.Context, prefix string) error {
	s.entries.Range(func(k string, _ memoryEntry) bool {
		if strings.HasPrefix(k, prefix) {
			s.entries.Delete(k)
		}
		return true
	})
	return nil
}

// Len returns the number of live entries, counting expired ones not
// yet collected.
func (s *MemoryStore) Len() int {
	return s.entries.Size()
}
