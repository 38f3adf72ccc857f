package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/singleflight"
)

type localEntry struct {
	data      []byte
	expiresAt time.Time
}

// Cache is the hybrid two-tier cache. Values are held serialized
// (msgpack) in both tiers, so one entry serves differently typed
// callers and the local tier never leaks mutable state.
type Cache struct {
	store   Store
	local   *xsync.MapOf[string, localEntry]
	group   singleflight.Group
	policy  ExpiryPolicy
	metrics *Metrics
	config  *Config

	stop      chan struct{}
	closeOnce sync.Once
}

// New creates a hybrid cache over the given shared store with the
// default per-entry expiry policy derived from the configuration. A
// nil config uses DefaultConfig.
func New(store Store, config *Config) (*Cache, error) {
	if config == nil {
		config = DefaultConfig()
	}
	return NewWithPolicy(store, config, tieredExpiry{
		localEnabled: config.LocalEnabled,
		disabledTTL:  config.DisabledTTL,
	})
}

// NewWithPolicy creates a hybrid cache with a caller-supplied expiry
// policy for the local tier.
func NewWithPolicy(store Store, config *Config, policy ExpiryPolicy) (*Cache, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	c := &Cache{
		store:   store,
		local:   xsync.NewMapOf[string, localEntry](),
		policy:  policy,
		metrics: NewMetrics(),
		config:  config,
		stop:    make(chan struct{}),
	}

	if config.CleanupInterval > 0 {
		go c.sweep(config.CleanupInterval)
	}
	return c, nil
}

// Close stops the background sweeper. The cache itself keeps working;
// expired local entries are then only dropped when read.
func (c *Cache) Close() {
	c.closeOnce.Do(func() { close(c.stop) })
}

// Metrics returns the cache's metrics instance.
func (c *Cache) Metrics() *Metrics {
	return c.metrics
}

// Store returns the shared tier the cache was built over.
func (c *Cache) Store() Store {
	return c.store
}

// Cached returns the value under key, computing it at most once per
// process across concurrent callers.
//
// Lookup order: unexpired local entry, then the shared store, then
// compute. Concurrent callers for the same key share one in-flight
// lookup and receive the same value, or the same error, verbatim;
// errors are never cached. Shared-store failures degrade to compute
// rather than failing the read. The computed value is written to the
// shared store with ttl and to the local tier with the expiry
// policy's lifetime.
//
// The computation runs with the first caller's context, so a later
// caller can see a cancellation it did not trigger.
func Cached[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, compute func(ctx context.Context) (T, error)) (T, error) {
	start := time.Now()

	if data, ok := c.localGet(key); ok {
		var v T
		if err := msgpack.Unmarshal(data, &v); err == nil {
			c.metrics.RecordLocalHit()
			c.metrics.RecordCall(time.Since(start))
			return v, nil
		}
		// Undecodable local entry: drop it and fall through.
		c.local.Delete(key)
	}

	data, err, _ := c.group.Do(key, func() (interface{}, error) {
		// A caller that lost the race right after a flight finished
		// lands here with the local tier already populated.
		if data, ok := c.localGet(key); ok {
			return data, nil
		}

		if data, getErr := c.store.Get(ctx, key); getErr == nil {
			c.metrics.RecordRemoteHit()
			c.localSet(key, data, ttl)
			return data, nil
		} else if !IsKeyNotFound(getErr) {
			slog.Debug("shared cache read failed", "key", key, "error", getErr)
		}

		c.metrics.RecordMiss()
		v, computeErr := compute(ctx)
		if computeErr != nil {
			return nil, computeErr
		}

		data, encErr := msgpack.Marshal(v)
		if encErr != nil {
			return nil, fmt.Errorf("encode cached value: %w", encErr)
		}
		if setErr := c.store.Set(ctx, key, data, ttl); setErr != nil {
			slog.Debug("shared cache write failed", "key", key, "error", setErr)
		}
		c.localSet(key, data, ttl)
		return data, nil
	})

	c.metrics.RecordCall(time.Since(start))
	var v T
	if err != nil {
		c.metrics.RecordError()
		return v, err
	}
	if decErr := msgpack.Unmarshal(data.([]byte), &v); decErr != nil {
		c.metrics.RecordError()
		return v, fmt.Errorf("decode cached value: %w", decErr)
	}
	return v, nil
}

// Invalidate drops the key from both tiers.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	c.local.Delete(key)
	c.metrics.RecordInvalidation()
	if err := c.store.Delete(ctx, key); err != nil && !IsKeyNotFound(err) {
		return err
	}
	return nil
}

// InvalidatePrefix drops every key under the prefix from the local
// tier, and from the shared store when it supports prefix deletion.
func (c *Cache) InvalidatePrefix(ctx context.Context, prefix string) error {
	c.local.Range(func(k string, _ localEntry) bool {
		if strings.HasPrefix(k, prefix) {
			c.local.Delete(k)
		}
		return true
	})
	c.metrics.RecordInvalidation()

	if pd, ok := c.store.(PrefixDeleter); ok {
		return pd.DeletePrefix(ctx, prefix)
	}
	slog.Debug("shared store does not support prefix invalidation", "prefix", prefix)
	return nil
}

func (c *Cache) localGet(key string) ([]byte, bool) {
	e, ok := c.local.Load(key)
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		c.local.Delete(key)
		return nil, false
	}
	return e.data, true
}

func (c *Cache) localSet(key string, data []byte, ttl time.Duration) {
	localTTL := c.policy.LocalTTL(key, ttl)
	if localTTL <= 0 {
		return
	}
	c.local.Store(key, localEntry{data: data, expiresAt: time.Now().Add(localTTL)})
}

func (c *Cache) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			now := time.Now()
			c.local.Range(func(k string, e localEntry) bool {
				if now.After(e.expiresAt) {
					c.local.Delete(k)
				}
				return true
			})
		}
	}
}
