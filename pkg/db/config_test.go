package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConfig_Validate tests the accept and reject paths of
// configuration validation.
func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.Host = "db.internal"
		cfg.Database = "panel"
		cfg.Username = "svc"
		return cfg
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing driver", func(c *Config) { c.Driver = "" }, "driver is required"},
		{"missing host", func(c *Config) { c.Host = "" }, "host is required"},
		{"bad port", func(c *Config) { c.Port = 70000 }, "port must be between"},
		{"missing database", func(c *Config) { c.Database = "" }, "name is required"},
		{"missing username", func(c *Config) { c.Username = "" }, "username is required"},
		{"zero open conns", func(c *Config) { c.MaxOpenConns = 0 }, "max_open_conns"},
		{"idle above open", func(c *Config) { c.MaxIdleConns = 100 }, "max_idle_conns"},
		{"unknown ssl mode", func(c *Config) { c.SSL.Mode = "mandatory" }, "unknown ssl mode"},
		{"dangling key file", func(c *Config) { c.SSL.KeyFile = "/tmp/client.key" }, "CertFile and KeyFile"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// TestConfig_Validate_VerbatimDSN tests that an explicit DSN skips the
// structured connection checks.
func TestConfig_Validate_VerbatimDSN(t *testing.T) {
	cfg := &Config{
		Driver:       "sqlite",
		DSN:          ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}
	require.NoError(t, cfg.Validate())
}

// TestConfig_GetDSN tests keyword/value assembly and the verbatim
// override.
func TestConfig_GetDSN(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Host = "db.internal"
	cfg.Database = "panel"
	cfg.Username = "svc"
	cfg.Password = "hunter2"

	assert.Equal(t,
		"host=db.internal port=5432 dbname=panel user=svc password=hunter2 sslmode=disable",
		cfg.GetDSN())

	cfg.SSL = SSLConfig{Mode: "verify-full", RootCertFile: "/etc/ssl/root.pem"}
	assert.Equal(t,
		"host=db.internal port=5432 dbname=panel user=svc password=hunter2 sslmode=verify-full sslrootcert=/etc/ssl/root.pem",
		cfg.GetDSN())

	cfg.DSN = "host=other dbname=override"
	assert.Equal(t, "host=other dbname=override", cfg.GetDSN())
}
