package query

import (
	"context"
	"database/sql"
	"strings"
)

type fieldState uint8

const (
	fieldUnchanged fieldState = iota
	fieldNull
	fieldValue
)

// Field is the tri-state value of one update column: leave the stored
// value alone, clear it to NULL, or set it. The zero Field is
// Unchanged.
type Field struct {
	state fieldState
	value interface{}
}

// Unchanged leaves the column as it is. Staging an Unchanged field is
// a no-op and does not claim the column.
func Unchanged() Field { return Field{} }

// Null clears the column to SQL NULL.
func Null() Field { return Field{state: fieldNull} }

// Value sets the column to a bound value.
func Value(v interface{}) Field { return Field{state: fieldValue, value: v} }

// FromPtr converts an optional-style pointer into a Field: nil means
// Unchanged, non-nil sets the pointed-to value. Useful for PATCH-like
// option structs.
func FromPtr[T any](p *T) Field {
	if p == nil {
		return Unchanged()
	}
	return Value(*p)
}

// IsSet reports whether the field carries a write (Null or Value).
func (f Field) IsSet() bool { return f.state != fieldUnchanged }

// UpdateBuilder assembles an UPDATE statement from tri-state fields.
// A column already decided is not re-decided; fields staged as
// Unchanged never claim their column. Executing with zero written
// fields fails with ErrNoFieldsSet, and the single equality predicate
// set by WhereEq is required.
type UpdateBuilder struct {
	table     string
	sets      []string
	args      []interface{}
	returning []string
	decided   map[string]struct{}

	hasWhere   bool
	whereCol   string
	whereValue interface{}
}

// NewUpdate creates an update builder for the given table.
// SECURITY: the table parameter must be a validated, trusted identifier.
func NewUpdate(table string) *UpdateBuilder {
	return &UpdateBuilder{
		table:   table,
		decided: make(map[string]struct{}),
	}
}

// Set stages one column. Unchanged fields are dropped here, so option
// structs can be forwarded wholesale and only the populated members
// reach the statement.
// SECURITY: the column name is NOT escaped - it must be a trusted
// identifier. The value is properly parameterized.
func (b *UpdateBuilder) Set(column string, f Field) *UpdateBuilder {
	if !f.IsSet() {
		return b
	}
	if _, done := b.decided[column]; done {
		return b
	}
	b.decided[column] = struct{}{}
	switch f.state {
	case fieldNull:
		b.sets = append(b.sets, column+" = NULL")
	case fieldValue:
		b.args = append(b.args, f.value)
		b.sets = append(b.sets, column+" = "+placeholder(len(b.args)))
	}
	return b
}

// SetExpr stages a column computed by a raw SQL expression, with the
// same placeholder renumbering and first-write-wins semantics as the
// insert builder.
// SECURITY: the expression template is NOT escaped - only the values
// are parameterized.
func (b *UpdateBuilder) SetExpr(column, expr string, values ...interface{}) *UpdateBuilder {
	if _, done := b.decided[column]; done {
		return b
	}
	b.decided[column] = struct{}{}
	shifted := shiftPlaceholders(expr, len(b.args))
	b.args = append(b.args, values...)
	b.sets = append(b.sets, column+" = "+shifted)
	return b
}

// WhereEq sets the row-selection predicate. Calling it again replaces
// the previous predicate; the builder renders exactly one.
func (b *UpdateBuilder) WhereEq(column string, value interface{}) *UpdateBuilder {
	b.hasWhere = true
	b.whereCol = column
	b.whereValue = value
	return b
}

// Returning sets the RETURNING clause, replacing any previous one.
func (b *UpdateBuilder) Returning(columns ...string) *UpdateBuilder {
	b.returning = columns
	return b
}

// FieldCount returns the number of columns the builder will write.
func (b *UpdateBuilder) FieldCount() int { return len(b.sets) }

// SQL renders the statement and its bound arguments. The predicate
// parameter is bound after every SET parameter.
func (b *UpdateBuilder) SQL() (string, []interface{}, error) {
	if len(b.sets) == 0 {
		return "", nil, ErrNoFieldsSet
	}
	if !b.hasWhere {
		return "", nil, ErrNoPredicate
	}

	args := make([]interface{}, 0, len(b.args)+1)
	args = append(args, b.args...)
	args = append(args, b.whereValue)

	var query strings.Builder
	query.WriteString("UPDATE ")
	query.WriteString(b.table)
	query.WriteString(" SET ")
	query.WriteString(strings.Join(b.sets, ", "))
	query.WriteString(" WHERE ")
	query.WriteString(b.whereCol)
	query.WriteString(" = ")
	query.WriteString(placeholder(len(args)))
	if len(b.returning) > 0 {
		query.WriteString(" RETURNING ")
		query.WriteString(strings.Join(b.returning, ", "))
	}

	return query.String(), args, nil
}

// Exec renders and executes the update without reading anything back.
func (b *UpdateBuilder) Exec(ctx context.Context, e Executor) error {
	stmt, args, err := b.SQL()
	if err != nil {
		return err
	}
	_, err = e.ExecContext(ctx, stmt, args...)
	return err
}

// QueryRow renders and executes the update, returning the single row
// produced by the RETURNING clause.
func (b *UpdateBuilder) QueryRow(ctx context.Context, q Querier) (*sql.Row, error) {
	stmt, args, err := b.SQL()
	if err != nil {
		return nil, err
	}
	return q.QueryRowContext(ctx, stmt, args...), nil
}
