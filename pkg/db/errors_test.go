package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestClassify_PostgresSQLSTATE tests SQLSTATE-based classification,
// including through error wrapping.
func TestClassify_PostgresSQLSTATE(t *testing.T) {
	tests := []struct {
		code string
		kind ConstraintKind
	}{
		{"23505", ConstraintUnique},
		{"23503", ConstraintForeignKey},
		{"23514", ConstraintCheck},
		{"23502", ConstraintNotNull},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			pgErr := &pgconn.PgError{Code: tt.code, ConstraintName: "users_email_key", ColumnName: "email"}
			err := Classify(fmt.Errorf("exec insert: %w", pgErr))

			var ce *ConstraintError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.kind, ce.Kind)
			// The wrapped original stays reachable.
			require.ErrorIs(t, err, pgErr)
		})
	}
}

// TestClassify_UnrelatedSQLSTATE tests that other PostgreSQL errors
// pass through unwrapped.
func TestClassify_UnrelatedSQLSTATE(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "42P01"} // undefined_table
	err := Classify(pgErr)
	assert.False(t, IsConstraint(err))
	assert.Same(t, error(pgErr), err)
}

// TestClassify_SQLiteMessages tests the message-based fallback used
// by the test driver.
func TestClassify_SQLiteMessages(t *testing.T) {
	err := Classify(errors.New("constraint failed: UNIQUE constraint failed: servers.name (2067)"))

	var ce *ConstraintError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ConstraintUnique, ce.Kind)
	assert.Equal(t, "servers.name", ce.Constraint)

	err = Classify(errors.New("constraint failed: FOREIGN KEY constraint failed (787)"))
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ConstraintForeignKey, ce.Kind)
	assert.Empty(t, ce.Constraint)
}

// TestClassify_PassThrough tests nil and unrecognized errors.
func TestClassify_PassThrough(t *testing.T) {
	require.NoError(t, Classify(nil))

	plain := errors.New("connection refused")
	assert.Same(t, plain, Classify(plain))
}
