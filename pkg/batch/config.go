package batch

import (
	"fmt"
	"time"
)

// Config controls the scheduler's drain cadence.
type Config struct {
	// Interval is how often the background loop drains the pending map
	// and executes what it collected.
	Interval time.Duration `json:"interval" yaml:"interval"`
}

// DefaultConfig returns a scheduler configuration with sensible
// defaults.
func DefaultConfig() *Config {
	return &Config{
		Interval: 5 * time.Second,
	}
}

// Validate checks if the scheduler configuration is valid
func (c *Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	return nil
}
