// Package query builds parameterized INSERT and UPDATE statements
// column by column, so lifecycle hooks and entity modules can stage
// writes on the same statement before it executes.
//
// All statements render PostgreSQL-style positional placeholders ($1,
// $2, ...). Values are always bound as parameters.
//
// SECURITY WARNING:
// This package does NOT escape or validate table names, column names,
// or raw expression templates. Identifiers MUST come from trusted,
// hardcoded sources. User input is only safe as a bound value (the
// value arguments of Set, SetExpr and WhereEq).
//
// Example - SAFE:
//
//	query.NewInsert("users").Set("email", email)
//
// Example - UNSAFE (DO NOT DO THIS):
//
//	query.NewInsert(userInput).Set(userProvidedColumn, v) // SQL INJECTION RISK!
package query

import (
	"context"
	"database/sql"
	"regexp"
	"strconv"
)

// Executor runs statements that do not return rows. *sql.DB, *sql.Tx
// and the db package's instrumented transaction all satisfy it.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Querier runs statements that return rows, for RETURNING fetches.
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

var placeholderPattern = regexp.MustCompile(`\$(\d+)`)

// shiftPlaceholders renumbers the $1..$n placeholders of a raw
// expression template so they continue the statement's existing
// parameter sequence. Templates number their placeholders from $1
// against their own value list.
func shiftPlaceholders(expr string, offset int) string {
	if offset == 0 {
		return expr
	}
	return placeholderPattern.ReplaceAllStringFunc(expr, func(m string) string {
		n, err := strconv.Atoi(m[1:])
		if err != nil {
			return m
		}
		return "$" + strconv.Itoa(n+offset)
	})
}

// placeholder renders the positional placeholder for the n-th (1-based)
// bound parameter.
func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}
