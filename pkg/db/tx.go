package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/VictoriaMetrics/metrics"

	"github.com/substratehq/substrate/pkg/query"
)

var (
	statementsTotal   = metrics.NewCounter("substrate_db_statements_total")
	statementErrors   = metrics.NewCounter("substrate_db_statement_errors_total")
	statementDuration = metrics.NewSummary("substrate_db_statement_duration_seconds")
)

// Tx is one open transaction. It carries the same statement surface as
// the manager, so query builders and hook callbacks run against either
// without caring which they were handed.
type Tx struct {
	tx     *sql.Tx
	config *Config
}

// Both the manager and its transactions back the query builders.
var (
	_ query.Executor = (*Tx)(nil)
	_ query.Querier  = (*Tx)(nil)
	_ query.Executor = (*Manager)(nil)
	_ query.Querier  = (*Manager)(nil)
)

// Transaction runs fn inside a transaction. fn returning an error, or
// panicking, rolls everything back; otherwise the transaction commits.
// Lifecycle hooks run inside fn, so a failing hook discards the
// staged writes of every hook before it as well as the caller's own.
func (m *Manager) Transaction(ctx context.Context, fn func(*Tx) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	t := &Tx{tx: tx, config: m.config}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				slog.Error("rollback after panic failed", "error", rbErr)
			}
			panic(p)
		}
	}()

	if err := fn(t); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			slog.Error("transaction rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ExecContext executes a statement inside the transaction. Driver
// errors come back classified (see Classify).
func (t *Tx) ExecContext(ctx context.Context, stmt string, args ...interface{}) (sql.Result, error) {
	start := time.Now()
	res, err := t.tx.ExecContext(ctx, stmt, args...)
	observeStatement(t.config, start, stmt, err)
	return res, Classify(err)
}

// QueryContext executes a row-returning statement inside the transaction.
func (t *Tx) QueryContext(ctx context.Context, stmt string, args ...interface{}) (*sql.Rows, error) {
	start := time.Now()
	rows, err := t.tx.QueryContext(ctx, stmt, args...)
	observeStatement(t.config, start, stmt, err)
	return rows, Classify(err)
}

// QueryRowContext executes a single-row statement inside the
// transaction. Errors, including constraint violations raised by
// RETURNING statements, surface at Scan; run them through Classify.
func (t *Tx) QueryRowContext(ctx context.Context, stmt string, args ...interface{}) *sql.Row {
	start := time.Now()
	row := t.tx.QueryRowContext(ctx, stmt, args...)
	observeStatement(t.config, start, stmt, nil)
	return row
}

// Raw exposes the underlying sql.Tx for hooks that need statement
// surfaces the builders do not cover.
func (t *Tx) Raw() *sql.Tx {
	return t.tx
}

// ExecContext executes a statement on the pool, outside any transaction.
func (m *Manager) ExecContext(ctx context.Context, stmt string, args ...interface{}) (sql.Result, error) {
	start := time.Now()
	res, err := m.db.ExecContext(ctx, stmt, args...)
	observeStatement(m.config, start, stmt, err)
	return res, Classify(err)
}

// QueryContext executes a row-returning statement on the pool.
func (m *Manager) QueryContext(ctx context.Context, stmt string, args ...interface{}) (*sql.Rows, error) {
	start := time.Now()
	rows, err := m.db.QueryContext(ctx, stmt, args...)
	observeStatement(m.config, start, stmt, err)
	return rows, Classify(err)
}

// QueryRowContext executes a single-row statement on the pool.
func (m *Manager) QueryRowContext(ctx context.Context, stmt string, args ...interface{}) *sql.Row {
	start := time.Now()
	row := m.db.QueryRowContext(ctx, stmt, args...)
	observeStatement(m.config, start, stmt, nil)
	return row
}

func observeStatement(cfg *Config, start time.Time, stmt string, err error) {
	elapsed := time.Since(start)
	statementsTotal.Inc()
	statementDuration.UpdateDuration(start)
	if err != nil {
		statementErrors.Inc()
	}

	if cfg.Logging.LogStatements {
		slog.Debug("statement executed", "duration", elapsed, "statement", compactStatement(stmt))
	}
	if cfg.Logging.LogSlowStatements && cfg.Logging.SlowStatementLimit > 0 && elapsed >= cfg.Logging.SlowStatementLimit {
		slog.Warn("slow statement", "duration", elapsed, "statement", compactStatement(stmt))
	}
}

// compactStatement bounds what statement logging emits; parameters are
// never logged.
func compactStatement(stmt string) string {
	const max = 200
	if len(stmt) <= max {
		return stmt
	}
	return stmt[:max] + "..."
}
