// Package substrate is a persistence extensibility framework for
// high read, low write applications: entity modules declare a record
// contract and get cached identity reads, dynamic insert/update
// statements, and lifecycle hooks other modules attach to.
package substrate

import (
	"github.com/substratehq/substrate/pkg/cache"
	"github.com/substratehq/substrate/pkg/db"
	"github.com/substratehq/substrate/pkg/model"
	"github.com/substratehq/substrate/pkg/redis"
	"github.com/substratehq/substrate/pkg/repository"
)

// Config represents database configuration
type Config = db.Config

// NewManager creates a new database manager
func NewManager(config *Config) (*db.Manager, error) {
	return db.NewManager(config)
}

// RedisConfig represents the shared cache store configuration
type RedisConfig = redis.Config

// NewRedisManager creates a Redis-backed shared store
func NewRedisManager(config *RedisConfig) (*redis.Manager, error) {
	return redis.NewManager(config)
}

// CacheConfig represents hybrid cache configuration
type CacheConfig = cache.Config

// NewCache creates a hybrid cache over the given shared store.
// Pass a *redis.Manager for cross-process sharing or
// cache.NewMemoryStore() for a process-local setup.
func NewCache(store cache.Store, config *CacheConfig) (*cache.Cache, error) {
	return cache.New(store, config)
}

// Model is the contract every record type implements
type Model = model.Model

// NewRepository creates a bound accessor for one record type.
// If c is nil, the repository operates in database-only mode; with a
// cache it serves identity and query reads cache-first and
// invalidates on every write.
func NewRepository[M any, PM model.Record[M]](manager *db.Manager, c *cache.Cache) (*repository.Repository[M, PM], error) {
	return repository.New[M, PM](manager, c)
}
