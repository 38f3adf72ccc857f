package cache

import (
	"fmt"
	"time"
)

// Config holds hybrid cache configuration
type Config struct {
	// LocalEnabled toggles the in-process near tier. When disabled,
	// entries still pass through it with DisabledTTL so the read path
	// degrades to near-passthrough instead of changing shape.
	LocalEnabled bool `json:"local_enabled" yaml:"local_enabled"`

	// DisabledTTL is the local lifetime applied while the near tier is
	// disabled. Zero skips the local tier entirely.
	DisabledTTL time.Duration `json:"disabled_ttl" yaml:"disabled_ttl"`

	// CleanupInterval is how often expired local entries are swept.
	// Zero disables the sweeper; expired entries are then only dropped
	// when read.
	CleanupInterval time.Duration `json:"cleanup_interval" yaml:"cleanup_interval"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		LocalEnabled:    true,
		DisabledTTL:     500 * time.Millisecond,
		CleanupInterval: time.Minute,
	}
}

// Validate checks if the cache configuration is valid
func (c *Config) Validate() error {
	if c.DisabledTTL < 0 {
		return fmt.Errorf("disabled_ttl cannot be negative")
	}
	if c.CleanupInterval < 0 {
		return fmt.Errorf("cleanup_interval cannot be negative")
	}
	return nil
}

// ExpiryPolicy decides the local-tier lifetime attached to each entry
// at insertion. Policies may vary the lifetime per key.
type ExpiryPolicy interface {
	LocalTTL(key string, ttl time.Duration) time.Duration
}

// ExpiryPolicyFunc adapts a function to the ExpiryPolicy interface.
type ExpiryPolicyFunc func(key string, ttl time.Duration) time.Duration

// LocalTTL implements ExpiryPolicy.
func (f ExpiryPolicyFunc) LocalTTL(key string, ttl time.Duration) time.Duration {
	return f(key, ttl)
}

// tieredExpiry is the default policy: the caller's ttl while the near
// tier is enabled, the configured short ttl otherwise.
type tieredExpiry struct {
	localEnabled bool
	disabledTTL  time.Duration
}

func (p tieredExpiry) LocalTTL(_ string, ttl time.Duration) time.Duration {
	if !p.localEnabled {
		return p.disabledTTL
	}
	return ttl
}
