package query

import (
	"context"
	"database/sql"
	"strings"
)

// InsertBuilder assembles a single-row INSERT statement. Columns are
// staged one at a time; the first write to a column wins and later
// writes to the same column are silently dropped, so hooks that run
// before an entity module's own writes can pre-empt its values.
type InsertBuilder struct {
	table     string
	columns   []string
	exprs     []string
	args      []interface{}
	returning []string
	decided   map[string]struct{}
}

// NewInsert creates an insert builder for the given table.
// SECURITY: the table parameter must be a validated, trusted identifier.
func NewInsert(table string) *InsertBuilder {
	return &InsertBuilder{
		table:   table,
		decided: make(map[string]struct{}),
	}
}

// Set stages a column with a bound value. If the column was already
// decided the call is a no-op.
// SECURITY: the column name is NOT escaped - it must be a trusted
// identifier. The value is properly parameterized.
func (b *InsertBuilder) Set(column string, value interface{}) *InsertBuilder {
	if _, done := b.decided[column]; done {
		return b
	}
	b.decided[column] = struct{}{}
	b.args = append(b.args, value)
	b.columns = append(b.columns, column)
	b.exprs = append(b.exprs, placeholder(len(b.args)))
	return b
}

// SetExpr stages a column whose value is a raw SQL expression, for
// writes that must be computed inside the database (one-way password
// hashes, server-side timestamps). The template's own placeholders are
// written $1..$n against values and renumbered to follow the
// parameters already bound on the statement. First write wins, as with
// Set.
// SECURITY: the expression template is NOT escaped - only the values
// are parameterized. Never interpolate user input into the template.
func (b *InsertBuilder) SetExpr(column, expr string, values ...interface{}) *InsertBuilder {
	if _, done := b.decided[column]; done {
		return b
	}
	b.decided[column] = struct{}{}
	shifted := shiftPlaceholders(expr, len(b.args))
	b.args = append(b.args, values...)
	b.columns = append(b.columns, column)
	b.exprs = append(b.exprs, shifted)
	return b
}

// Returning sets the RETURNING clause, replacing any previous one.
func (b *InsertBuilder) Returning(columns ...string) *InsertBuilder {
	b.returning = columns
	return b
}

// Columns returns the column names staged so far, in insertion order.
func (b *InsertBuilder) Columns() []string {
	out := make([]string, len(b.columns))
	copy(out, b.columns)
	return out
}

// Has reports whether the column has already been decided.
func (b *InsertBuilder) Has(column string) bool {
	_, done := b.decided[column]
	return done
}

// SQL renders the statement and its bound arguments.
func (b *InsertBuilder) SQL() (string, []interface{}, error) {
	if len(b.columns) == 0 {
		return "", nil, ErrNoColumns
	}

	var query strings.Builder
	query.WriteString("INSERT INTO ")
	query.WriteString(b.table)
	query.WriteString(" (")
	query.WriteString(strings.Join(b.columns, ", "))
	query.WriteString(") VALUES (")
	query.WriteString(strings.Join(b.exprs, ", "))
	query.WriteString(")")
	if len(b.returning) > 0 {
		query.WriteString(" RETURNING ")
		query.WriteString(strings.Join(b.returning, ", "))
	}

	return query.String(), b.args, nil
}

// Exec renders and executes the insert without reading anything back.
func (b *InsertBuilder) Exec(ctx context.Context, e Executor) error {
	stmt, args, err := b.SQL()
	if err != nil {
		return err
	}
	_, err = e.ExecContext(ctx, stmt, args...)
	return err
}

// QueryRow renders and executes the insert, returning the single row
// produced by the RETURNING clause.
func (b *InsertBuilder) QueryRow(ctx context.Context, q Querier) (*sql.Row, error) {
	stmt, args, err := b.SQL()
	if err != nil {
		return nil, err
	}
	return q.QueryRowContext(ctx, stmt, args...), nil
}
