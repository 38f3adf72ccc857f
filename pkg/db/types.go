package db

import (
	"database/sql"
	"time"
)

// Config holds PostgreSQL connection configuration
type Config struct {
	// Connection Settings
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Database string `json:"database" yaml:"database"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`

	// Driver selects the database/sql driver. The default "pgx" targets
	// PostgreSQL; tests run the same statements against "sqlite".
	Driver string `json:"driver" yaml:"driver"`

	// DSN, when set, is passed to the driver verbatim and the
	// connection settings above are ignored.
	DSN string `json:"dsn" yaml:"dsn"`

	// Connection Pool Settings
	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time" yaml:"conn_max_idle_time"`

	// SSL Configuration
	SSL SSLConfig `json:"ssl" yaml:"ssl"`

	// Logging Configuration
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// SSLConfig holds TLS configuration, mapped onto the libpq-style
// sslmode/sslcert parameters of the DSN
type SSLConfig struct {
	Mode         string `json:"mode" yaml:"mode"` // disable, require, verify-ca, verify-full
	RootCertFile string `json:"root_cert_file" yaml:"root_cert_file"`
	CertFile     string `json:"cert_file" yaml:"cert_file"`
	KeyFile      string `json:"key_file" yaml:"key_file"`
}

// LoggingConfig controls statement logging behavior
type LoggingConfig struct {
	LogStatements      bool          `json:"log_statements" yaml:"log_statements"`
	LogSlowStatements  bool          `json:"log_slow_statements" yaml:"log_slow_statements"`
	SlowStatementLimit time.Duration `json:"slow_statement_limit" yaml:"slow_statement_limit"`
}

// Manager manages the connection pool and hands out instrumented
// transactions
type Manager struct {
	config *Config
	db     *sql.DB
}
