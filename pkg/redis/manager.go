// Package redis provides the Redis-backed shared cache tier. The
// manager speaks to a single instance or a Redis Cluster and exposes
// the store contract consumed by pkg/cache, including the optional
// capabilities: atomic counter increments for rate limiting and
// prefix-wide invalidation for namespace flushes.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/substratehq/substrate/pkg/cache"
)

// scanBatchSize limits how many keys one SCAN iteration returns during
// prefix invalidation.
const scanBatchSize = 100

// Manager manages Redis connections and cache operations
type Manager struct {
	config  *Config
	client  redis.UniversalClient
	metrics *Metrics
}

// The manager is substitutable wherever the cache accepts a shared
// store.
var (
	_ cache.Store         = (*Manager)(nil)
	_ cache.Incrementer   = (*Manager)(nil)
	_ cache.PrefixDeleter = (*Manager)(nil)
)

// NewManager creates a new Redis cache manager
func NewManager(config *Config) (*Manager, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid redis config: %w", err)
	}

	manager := &Manager{
		config:  config,
		metrics: NewMetrics(),
	}

	manager.initializeClient()

	return manager, nil
}

// initializeClient sets up the Redis client based on configuration
func (m *Manager) initializeClient() {
	if !m.config.Enabled {
		return // Skip initialization if cache is disabled
	}

	if m.config.IsClusterMode() {
		// Redis Cluster configuration
		m.client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:           m.config.Cluster.Addresses,
			Username:        m.config.Cluster.Username,
			Password:        m.config.Cluster.Password,
			PoolSize:        m.config.PoolSize,
			MinIdleConns:    m.config.MinIdleConns,
			ConnMaxLifetime: m.config.MaxConnAge,
			PoolTimeout:     m.config.PoolTimeout,
			ConnMaxIdleTime: m.config.IdleTimeout,
			ReadTimeout:     m.config.ReadTimeout,
			WriteTimeout:    m.config.WriteTimeout,
			DialTimeout:     m.config.DialTimeout,
		})
	} else {
		// Single Redis instance configuration
		m.client = redis.NewClient(&redis.Options{
			Addr:            m.config.GetAddr(),
			Password:        m.config.Password,
			DB:              m.config.Database,
			PoolSize:        m.config.PoolSize,
			MinIdleConns:    m.config.MinIdleConns,
			ConnMaxLifetime: m.config.MaxConnAge,
			PoolTimeout:     m.config.PoolTimeout,
			ConnMaxIdleTime: m.config.IdleTimeout,
			ReadTimeout:     m.config.ReadTimeout,
			WriteTimeout:    m.config.WriteTimeout,
			DialTimeout:     m.config.DialTimeout,
		})
	}
}

// Config returns the manager's configuration
func (m *Manager) Config() *Config {
	return m.config
}

// Close closes the Redis connection
func (m *Manager) Close() error {
	if m.client != nil {
		return m.client.Close()
	}
	return nil
}

// Ping tests the Redis connection
// Returns nil if cache is disabled (not an error condition)
// Returns ErrClientNotInitialized if client is not initialized
// Returns ErrConnectionFailed if ping fails
func (m *Manager) Ping(ctx context.Context) error {
	// Cache disabled is not an error - it's a valid configuration state
	if !m.config.Enabled {
		return nil
	}

	// Client not initialized when cache is enabled - this is an error
	if m.client == nil {
		return ErrClientNotInitialized
	}

	// Test actual connection
	result := m.client.Ping(ctx)
	if result.Err() != nil {
		return fmt.Errorf("%w: %v", ErrConnectionFailed, result.Err())
	}

	return nil
}

// checkClient validates that cache is enabled and client is initialized
// Returns ErrCacheDisabled if cache is disabled
// Returns ErrClientNotInitialized if client is nil
func (m *Manager) checkClient() error {
	if !m.config.Enabled {
		return ErrCacheDisabled
	}
	if m.client == nil {
		return ErrClientNotInitialized
	}
	return nil
}

// Get retrieves a value from cache
func (m *Manager) Get(ctx context.Context, key string) ([]byte, error) {
	if err := m.checkClient(); err != nil {
		return nil, err
	}

	start := time.Now()
	result := m.client.Get(ctx, key)
	m.metrics.RecordGet(time.Since(start))

	if result.Err() == redis.Nil {
		m.metrics.RecordCacheMiss()
		return nil, cache.ErrKeyNotFound
	}

	if result.Err() != nil {
		m.metrics.RecordCacheError()
		return nil, fmt.Errorf("redis get error: %w", result.Err())
	}

	m.metrics.RecordCacheHit()
	return []byte(result.Val()), nil
}

// Set stores a value in cache. A non-positive TTL stores the value
// without expiry.
func (m *Manager) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := m.checkClient(); err != nil {
		return err
	}

	if ttl < 0 {
		ttl = 0
	}

	start := time.Now()
	result := m.client.Set(ctx, key, value, ttl)
	m.metrics.RecordSet(time.Since(start))

	return result.Err()
}

// Delete removes a key from cache
func (m *Manager) Delete(ctx context.Context, key string) error {
	if err := m.checkClient(); err != nil {
		return err
	}

	start := time.Now()
	result := m.client.Del(ctx, key)
	m.metrics.RecordDelete(time.Since(start))

	return result.Err()
}

// TTL returns the remaining lifetime of a key, or 0 when the key is
// absent or has no expiry.
func (m *Manager) TTL(ctx context.Context, key string) (time.Duration, error) {
	if err := m.checkClient(); err != nil {
		return 0, err
	}

	result := m.client.PTTL(ctx, key)
	if result.Err() != nil {
		return 0, fmt.Errorf("redis pttl error: %w", result.Err())
	}

	// PTTL reports -2 for a missing key and -1 for a key without expiry
	remaining := result.Val()
	if remaining < 0 {
		return 0, nil
	}
	return remaining, nil
}

// Increment atomically adds one to the counter at key. The expiry is
// applied only when the key has none yet, so every increment inside a
// window counts against the window started by the first one.
func (m *Manager) Increment(ctx context.Context, key string, expiry time.Duration) (int64, time.Duration, error) {
	if err := m.checkClient(); err != nil {
		return 0, 0, err
	}

	start := time.Now()
	pipe := m.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	if expiry > 0 {
		pipe.ExpireNX(ctx, key, expiry)
	}
	pttl := pipe.PTTL(ctx, key)
	_, err := pipe.Exec(ctx)
	m.metrics.RecordIncrement(time.Since(start))

	if err != nil {
		m.metrics.RecordCacheError()
		return 0, 0, fmt.Errorf("redis increment error: %w", err)
	}

	remaining := pttl.Val()
	if remaining < 0 {
		remaining = 0
	}
	return incr.Val(), remaining, nil
}

// DeletePrefix removes every key under a prefix using SCAN instead of
// KEYS. SCAN is non-blocking and production-safe, unlike KEYS which
// blocks the Redis server.
func (m *Manager) DeletePrefix(ctx context.Context, prefix string) error {
	if err := m.checkClient(); err != nil {
		return err
	}

	pattern := prefix + "*"

	// Use SCAN to iterate through keys without blocking Redis
	var cursor uint64
	for {
		// SCAN returns a cursor and a batch of keys
		batch, next, err := m.client.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			return fmt.Errorf("failed to scan keys with prefix %s: %w", prefix, err)
		}
		cursor = next

		// Delete keys in batches to avoid large atomic operations
		if len(batch) > 0 {
			if err := m.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("failed to delete batch: %w", err)
			}
			m.metrics.RecordInvalidation()
		}

		// cursor == 0 means we've iterated through all keys
		if cursor == 0 {
			break
		}
	}

	return nil
}

// FlushDB removes every key in the manager's logical database. It
// exists for tests and development tooling; production invalidation
// goes through Delete and DeletePrefix.
func (m *Manager) FlushDB(ctx context.Context) error {
	if err := m.checkClient(); err != nil {
		return err
	}

	return m.client.FlushDB(ctx).Err()
}

// GetStats returns Redis connection and performance statistics
func (m *Manager) GetStats(ctx context.Context) (map[string]interface{}, error) {
	if err := m.checkClient(); err != nil {
		return nil, err
	}

	stats := make(map[string]interface{})

	// Get Redis server info
	info := m.client.Info(ctx, "memory", "stats")
	if info.Err() != nil {
		return nil, fmt.Errorf("failed to get redis info: %w", info.Err())
	}

	stats["redis_info"] = info.Val()
	return stats, nil
}

// GetMetrics returns current cache performance metrics
func (m *Manager) GetMetrics() MetricsSnapshot {
	return m.metrics.GetSnapshot()
}

// ResetMetrics resets all performance metrics counters
func (m *Manager) ResetMetrics() {
	m.metrics.Reset()
}
