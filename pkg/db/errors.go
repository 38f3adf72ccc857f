package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// ConstraintKind names the class of a violated database constraint
type ConstraintKind string

const (
	ConstraintUnique     ConstraintKind = "unique"
	ConstraintForeignKey ConstraintKind = "foreign_key"
	ConstraintCheck      ConstraintKind = "check"
	ConstraintNotNull    ConstraintKind = "not_null"
)

// ConstraintError wraps a driver error that was recognized as a
// constraint violation, so callers can map it to a conflict response
// instead of a server fault.
type ConstraintError struct {
	Kind       ConstraintKind
	Constraint string // constraint or column name when the driver reports one
	err        error
}

func (e *ConstraintError) Error() string {
	if e.Constraint != "" {
		return fmt.Sprintf("%s constraint %q violated: %v", e.Kind, e.Constraint, e.err)
	}
	return fmt.Sprintf("%s constraint violated: %v", e.Kind, e.err)
}

func (e *ConstraintError) Unwrap() error {
	return e.err
}

// Classify inspects a driver error and wraps recognized constraint
// violations in *ConstraintError. PostgreSQL violations are matched by
// SQLSTATE; the SQLite test driver only reports them through its
// message text. Unrecognized errors pass through unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return &ConstraintError{Kind: ConstraintUnique, Constraint: pgErr.ConstraintName, err: err}
		case "23503":
			return &ConstraintError{Kind: ConstraintForeignKey, Constraint: pgErr.ConstraintName, err: err}
		case "23514":
			return &ConstraintError{Kind: ConstraintCheck, Constraint: pgErr.ConstraintName, err: err}
		case "23502":
			return &ConstraintError{Kind: ConstraintNotNull, Constraint: pgErr.ColumnName, err: err}
		}
		return err
	}

	msg := err.Error()
	for _, m := range sqliteMarkers {
		if strings.Contains(msg, m.marker) {
			return &ConstraintError{Kind: m.kind, Constraint: constraintFromMessage(msg, m.marker), err: err}
		}
	}

	return err
}

var sqliteMarkers = []struct {
	marker string
	kind   ConstraintKind
}{
	{"UNIQUE constraint failed", ConstraintUnique},
	{"FOREIGN KEY constraint failed", ConstraintForeignKey},
	{"CHECK constraint failed", ConstraintCheck},
	{"NOT NULL constraint failed", ConstraintNotNull},
}

// constraintFromMessage pulls the "table.column" token SQLite appends
// after the violation marker, when present.
func constraintFromMessage(msg, marker string) string {
	i := strings.Index(msg, marker+": ")
	if i < 0 {
		return ""
	}
	rest := msg[i+len(marker)+2:]
	if j := strings.IndexAny(rest, " ("); j > 0 {
		rest = rest[:j]
	}
	return strings.TrimSpace(rest)
}

// IsConstraint checks if the error is any classified constraint
// violation.
func IsConstraint(err error) bool {
	var ce *ConstraintError
	return errors.As(err, &ce)
}

// IsUniqueViolation checks if the error is a classified unique
// constraint violation.
func IsUniqueViolation(err error) bool {
	var ce *ConstraintError
	return errors.As(err, &ce) && ce.Kind == ConstraintUnique
}

// IsForeignKeyViolation checks if the error is a classified foreign
// key violation.
func IsForeignKeyViolation(err error) bool {
	var ce *ConstraintError
	return errors.As(err, &ce) && ce.Kind == ConstraintForeignKey
}
