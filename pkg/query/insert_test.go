package query

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

// openTestDB opens an in-memory SQLite database limited to a single
// connection so the in-memory store is shared across the test.
func openTestDB(t *testing.T, schema string) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.ExecContext(context.Background(), schema)
	require.NoError(t, err)
	return db
}

const serversSchema = `
CREATE TABLE servers (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL,
	description TEXT,
	memory      INTEGER NOT NULL DEFAULT 0,
	token       TEXT
);`

// TestInsertBuilder_RendersInStagingOrder tests placeholder numbering
// and column order.
func TestInsertBuilder_RendersInStagingOrder(t *testing.T) {
	stmt, args, err := NewInsert("servers").
		Set("name", "db-1").
		Set("memory", 2048).
		Returning("id", "name").
		SQL()

	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO servers (name, memory) VALUES ($1, $2) RETURNING id, name", stmt)
	assert.Equal(t, []interface{}{"db-1", 2048}, args)
}

// TestInsertBuilder_FirstWriteWins tests that a column set twice keeps
// the first value, both in the rendered statement and in the database.
func TestInsertBuilder_FirstWriteWins(t *testing.T) {
	b := NewInsert("servers").
		Set("name", "a").
		Set("name", "b")

	stmt, args, err := b.SQL()
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO servers (name) VALUES ($1)", stmt)
	assert.Equal(t, []interface{}{"a"}, args)

	db := openTestDB(t, serversSchema)
	require.NoError(t, b.Exec(context.Background(), db))

	var name string
	require.NoError(t, db.QueryRow("SELECT name FROM servers").Scan(&name))
	assert.Equal(t, "a", name)
}

// TestInsertBuilder_SetExprRenumbering tests that a raw expression's
// own placeholders are shifted past the already-bound parameters.
func TestInsertBuilder_SetExprRenumbering(t *testing.T) {
	stmt, args, err := NewInsert("users").
		Set("email", "ops@example.test").
		SetExpr("password_hash", "crypt($1, gen_salt('bf'))", "s3cret").
		Set("age", 41).
		SQL()

	require.NoError(t, err)
	assert.Equal(t,
		"INSERT INTO users (email, password_hash, age) VALUES ($1, crypt($2, gen_salt('bf')), $3)",
		stmt)
	assert.Equal(t, []interface{}{"ops@example.test", "s3cret", 41}, args)
}

// TestInsertBuilder_SetExprMultipleValues tests renumbering of a
// template binding more than one value.
func TestInsertBuilder_SetExprMultipleValues(t *testing.T) {
	stmt, args, err := NewInsert("servers").
		Set("name", "db-1").
		SetExpr("token", "substr($1 || $2, 1, 16)", "left", "right").
		SQL()

	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO servers (name, token) VALUES ($1, substr($2 || $3, 1, 16))", stmt)
	assert.Equal(t, []interface{}{"db-1", "left", "right"}, args)
}

// TestInsertBuilder_NoColumns tests the guard against executing an
// empty insert.
func TestInsertBuilder_NoColumns(t *testing.T) {
	_, _, err := NewInsert("servers").SQL()
	require.ErrorIs(t, err, ErrNoColumns)

	err = NewInsert("servers").Exec(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoColumns)
}

// TestInsertBuilder_QueryRowReturning tests a full round trip through
// the RETURNING clause.
func TestInsertBuilder_QueryRowReturning(t *testing.T) {
	db := openTestDB(t, serversSchema)

	b := NewInsert("servers").
		Set("name", "db-1").
		SetExpr("token", "lower($1)", "ABCDEF").
		Set("memory", 1024).
		Returning("id", "name", "token")

	row, err := b.QueryRow(context.Background(), db)
	require.NoError(t, err)

	var (
		id    int64
		name  string
		token string
	)
	require.NoError(t, row.Scan(&id, &name, &token))
	assert.Equal(t, int64(1), id)
	assert.Equal(t, "db-1", name)
	assert.Equal(t, "abcdef", token)
}

// TestInsertBuilder_Introspection tests Has and Columns, which hooks
// use to avoid clobbering module writes.
func TestInsertBuilder_Introspection(t *testing.T) {
	b := NewInsert("servers").Set("name", "db-1")

	assert.True(t, b.Has("name"))
	assert.False(t, b.Has("memory"))
	assert.Equal(t, []string{"name"}, b.Columns())
}
