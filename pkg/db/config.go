package db

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// DefaultConfig returns a configuration with production defaults.
// Connection identity (host, database, credentials) must still be
// filled in by the caller.
func DefaultConfig() *Config {
	return &Config{
		Port:            5432,
		Driver:          "pgx",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 30 * time.Minute,
		SSL: SSLConfig{
			Mode: "disable",
		},
		Logging: LoggingConfig{
			LogSlowStatements:  true,
			SlowStatementLimit: 200 * time.Millisecond,
		},
	}
}

// Validate checks if the database configuration is valid
func (c *Config) Validate() error {
	if c.Driver == "" {
		return fmt.Errorf("database driver is required")
	}

	// A verbatim DSN skips the structured connection checks.
	if c.DSN == "" {
		if c.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Port < 1 || c.Port > 65535 {
			return fmt.Errorf("database port must be between 1 and 65535, got %d", c.Port)
		}
		if c.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Username == "" {
			return fmt.Errorf("database username is required")
		}
	}

	if c.MaxOpenConns < 1 {
		return fmt.Errorf("max_open_conns must be at least 1")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return fmt.Errorf("max_idle_conns cannot be greater than max_open_conns")
	}

	if err := c.validateSSL(); err != nil {
		return fmt.Errorf("TLS configuration error: %w", err)
	}

	return nil
}

// validateSSL validates the sslmode value and that referenced
// certificate files exist and are readable
func (c *Config) validateSSL() error {
	switch c.SSL.Mode {
	case "", "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
	default:
		return fmt.Errorf("unknown ssl mode %q", c.SSL.Mode)
	}

	if c.SSL.RootCertFile != "" {
		if _, err := os.Stat(c.SSL.RootCertFile); err != nil {
			return fmt.Errorf("root certificate file not accessible: %w", err)
		}
	}

	if c.SSL.CertFile != "" || c.SSL.KeyFile != "" {
		// Both cert and key must be provided together
		if c.SSL.CertFile == "" || c.SSL.KeyFile == "" {
			return fmt.Errorf("both CertFile and KeyFile must be provided together")
		}
		if _, err := os.Stat(c.SSL.CertFile); err != nil {
			return fmt.Errorf("client certificate file not accessible: %w", err)
		}
		if _, err := os.Stat(c.SSL.KeyFile); err != nil {
			return fmt.Errorf("client key file not accessible: %w", err)
		}
	}

	return nil
}

// GetDSN returns the data source name handed to the driver. An
// explicit DSN wins; otherwise a libpq keyword/value string is
// assembled from the structured settings.
func (c *Config) GetDSN() string {
	if c.DSN != "" {
		return c.DSN
	}

	parts := []string{
		fmt.Sprintf("host=%s", c.Host),
		fmt.Sprintf("port=%d", c.Port),
		fmt.Sprintf("dbname=%s", c.Database),
		fmt.Sprintf("user=%s", c.Username),
	}
	if c.Password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", c.Password))
	}
	if c.SSL.Mode != "" {
		parts = append(parts, fmt.Sprintf("sslmode=%s", c.SSL.Mode))
	}
	if c.SSL.RootCertFile != "" {
		parts = append(parts, fmt.Sprintf("sslrootcert=%s", c.SSL.RootCertFile))
	}
	if c.SSL.CertFile != "" {
		parts = append(parts, fmt.Sprintf("sslcert=%s", c.SSL.CertFile))
	}
	if c.SSL.KeyFile != "" {
		parts = append(parts, fmt.Sprintf("sslkey=%s", c.SSL.KeyFile))
	}

	return strings.Join(parts, " ")
}
