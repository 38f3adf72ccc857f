package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestUpdateBuilder_TriStateFields tests that Value writes, Null
// clears and Unchanged stays out of the statement entirely.
func TestUpdateBuilder_TriStateFields(t *testing.T) {
	stmt, args, err := NewUpdate("servers").
		Set("name", Value("db-2")).
		Set("description", Null()).
		Set("memory", Unchanged()).
		WhereEq("id", 7).
		SQL()

	require.NoError(t, err)
	assert.Equal(t, "UPDATE servers SET name = $1, description = NULL WHERE id = $2", stmt)
	assert.Equal(t, []interface{}{"db-2", 7}, args)
}

// TestUpdateBuilder_NoFieldsSet tests the distinguished error when
// every staged field was Unchanged.
func TestUpdateBuilder_NoFieldsSet(t *testing.T) {
	b := NewUpdate("servers").
		Set("name", Unchanged()).
		Set("description", Unchanged()).
		WhereEq("id", 7)

	assert.Equal(t, 0, b.FieldCount())

	_, _, err := b.SQL()
	require.ErrorIs(t, err, ErrNoFieldsSet)
	assert.True(t, IsNoFieldsSet(err))

	err = b.Exec(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoFieldsSet)
}

// TestUpdateBuilder_NoPredicate tests that an update never renders
// without its equality predicate.
func TestUpdateBuilder_NoPredicate(t *testing.T) {
	_, _, err := NewUpdate("servers").
		Set("name", Value("db-2")).
		SQL()

	require.ErrorIs(t, err, ErrNoPredicate)
	assert.True(t, IsNoPredicate(err))
}

// TestUpdateBuilder_WhereEqReplaces tests that a later predicate
// replaces the earlier one instead of stacking.
func TestUpdateBuilder_WhereEqReplaces(t *testing.T) {
	stmt, args, err := NewUpdate("servers").
		Set("name", Value("db-2")).
		WhereEq("id", 1).
		WhereEq("id", 2).
		SQL()

	require.NoError(t, err)
	assert.Equal(t, "UPDATE servers SET name = $1 WHERE id = $2", stmt)
	assert.Equal(t, []interface{}{"db-2", 2}, args)
}

// TestUpdateBuilder_ColumnDecidedOnce tests first-write-wins for
// written fields, and that Unchanged does not claim the column.
func TestUpdateBuilder_ColumnDecidedOnce(t *testing.T) {
	stmt, args, err := NewUpdate("servers").
		Set("name", Value("first")).
		Set("name", Value("second")).
		Set("memory", Unchanged()).
		Set("memory", Value(512)).
		WhereEq("id", 1).
		SQL()

	require.NoError(t, err)
	assert.Equal(t, "UPDATE servers SET name = $1, memory = $2 WHERE id = $3", stmt)
	assert.Equal(t, []interface{}{"first", 512, 1}, args)
}

// TestUpdateBuilder_SetExprRenumbering tests placeholder shifting in
// raw update expressions and predicate numbering after them.
func TestUpdateBuilder_SetExprRenumbering(t *testing.T) {
	stmt, args, err := NewUpdate("users").
		Set("email", Value("ops@example.test")).
		SetExpr("password_hash", "crypt($1, gen_salt('bf'))", "s3cret").
		WhereEq("id", 9).
		SQL()

	require.NoError(t, err)
	assert.Equal(t,
		"UPDATE users SET email = $1, password_hash = crypt($2, gen_salt('bf')) WHERE id = $3",
		stmt)
	assert.Equal(t, []interface{}{"ops@example.test", "s3cret", 9}, args)
}

// TestUpdateBuilder_ExecutesAgainstDatabase tests a seeded row being
// updated through the builder, including a NULL clear.
func TestUpdateBuilder_ExecutesAgainstDatabase(t *testing.T) {
	db := openTestDB(t, serversSchema)
	ctx := context.Background()

	seed := NewInsert("servers").
		Set("name", "db-1").
		Set("description", "primary database").
		Set("memory", 1024)
	require.NoError(t, seed.Exec(ctx, db))

	err := NewUpdate("servers").
		Set("name", Value("db-2")).
		Set("description", Null()).
		WhereEq("id", 1).
		Exec(ctx, db)
	require.NoError(t, err)

	var (
		name        string
		description *string
		memory      int
	)
	require.NoError(t, db.QueryRow("SELECT name, description, memory FROM servers WHERE id = 1").
		Scan(&name, &description, &memory))
	assert.Equal(t, "db-2", name)
	assert.Nil(t, description)
	assert.Equal(t, 1024, memory)
}

// TestFromPtr tests the pointer-to-Field conversion used by PATCH
// style option structs.
func TestFromPtr(t *testing.T) {
	assert.False(t, FromPtr[string](nil).IsSet())

	v := "db-3"
	f := FromPtr(&v)
	require.True(t, f.IsSet())

	stmt, args, err := NewUpdate("servers").
		Set("name", f).
		WhereEq("id", 1).
		SQL()
	require.NoError(t, err)
	assert.Equal(t, "UPDATE servers SET name = $1 WHERE id = $2", stmt)
	assert.Equal(t, []interface{}{"db-3", 1}, args)
}
