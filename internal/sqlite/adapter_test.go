// Unit tests for the SQLite adapter: DDL generation, transaction
// behavior, row materialization, and lifecycle.
package sqlite

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pantrydb/pantry/pkg/types"
)

func bookDef() types.TableDef {
	return types.TableDef{
		Name: "book",
		Columns: []types.Column{
			{Name: "id", Type: types.TypeText},
			{Name: "title", Type: types.TypeText},
			{Name: "pages", Type: types.TypeInteger},
			{Name: "price", Type: types.TypeReal, Nullable: true},
			{Name: "in_print", Type: types.TypeBoolean, Nullable: true},
			{Name: "published_at", Type: types.TypeTimestamp, Nullable: true},
		},
		PrimaryKey: "id",
	}
}

func setupAdapter(t *testing.T) *Adapter {
	t.Helper()
	a, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	require.NoError(t, a.EnsureTable(bookDef()))
	return a
}

func TestOpen_Dialect(t *testing.T) {
	a := setupAdapter(t)
	assert.Equal(t, types.BackendSQLite, a.Dialect())
}

func TestEnsureTable_CreatesAndIsIdempotent(t *testing.T) {
	a := setupAdapter(t)

	exists, err := a.TableExists("book")
	require.NoError(t, err)
	assert.True(t, exists)

	// Second call is a no-op, not an error.
	require.NoError(t, a.EnsureTable(bookDef()))
}

func TestEnsureTable_RejectsInvalidDef(t *testing.T) {
	a := setupAdapter(t)
	err := a.EnsureTable(types.TableDef{Name: "bad"})
	assert.ErrorIs(t, err, types.ErrNoColumns)
}

func TestTableExists_Missing(t *testing.T) {
	a := setupAdapter(t)
	exists, err := a.TableExists("shelf")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCreateTableSQL(t *testing.T) {
	ddl, err := createTableSQL(bookDef())
	require.NoError(t, err)
	assert.Equal(t,
		`CREATE TABLE IF NOT EXISTS "book" (`+
			`"id" TEXT PRIMARY KEY, "title" TEXT NOT NULL, "pages" INTEGER NOT NULL, `+
			`"price" REAL, "in_print" BOOLEAN, "published_at" TIMESTAMP)`,
		ddl)
}

func TestTx_InsertAndQueryRoundTrip(t *testing.T) {
	a := setupAdapter(t)

	tx, err := a.Begin()
	require.NoError(t, err)
	n, err := tx.Exec(
		`INSERT INTO "book" ("id", "title", "pages", "price", "in_print", "published_at") VALUES (?, ?, ?, ?, ?, ?)`,
		[]any{"b1", "Dune", int64(412), 9.99, true, time.Date(1965, 8, 1, 0, 0, 0, 0, time.UTC)},
	)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.NoError(t, tx.Commit())

	tx, err = a.Begin()
	require.NoError(t, err)
	rows, err := tx.Query(`SELECT * FROM "book" WHERE "id" = ?`, []any{"b1"})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	require.Len(t, rows, 1)
	rec := rows[0]
	assert.Equal(t, "Dune", rec["title"])
	assert.Equal(t, int64(412), rec["pages"])
	assert.Equal(t, 9.99, rec["price"])
	// Booleans store as 0/1, timestamps as RFC3339 text.
	assert.EqualValues(t, 1, rec["in_print"])
	assert.Equal(t, "1965-08-01T00:00:00Z", rec["published_at"])
}

func TestTx_RollbackDiscardsWrite(t *testing.T) {
	a := setupAdapter(t)

	tx, err := a.Begin()
	require.NoError(t, err)
	_, err = tx.Exec(
		`INSERT INTO "book" ("id", "title", "pages") VALUES (?, ?, ?)`,
		[]any{"b1", "Dune", int64(412)},
	)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	tx, err = a.Begin()
	require.NoError(t, err)
	rows, err := tx.Query(`SELECT * FROM "book"`, nil)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.Empty(t, rows)
}

func TestTx_ConstraintViolation(t *testing.T) {
	a := setupAdapter(t)

	tx, err := a.Begin()
	require.NoError(t, err)
	_, err = tx.Exec(
		`INSERT INTO "book" ("id", "title") VALUES (?, ?)`,
		[]any{"b1", nil}, // title is NOT NULL
	)
	require.Error(t, err)
	var ae *types.AdapterError
	assert.ErrorAs(t, err, &ae)
	require.NoError(t, tx.Rollback())
}

func TestAdapter_IntegerPrimaryKeyAutoincrements(t *testing.T) {
	a, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	require.NoError(t, a.EnsureTable(types.TableDef{
		Name: "event",
		Columns: []types.Column{
			{Name: "seq", Type: types.TypeInteger},
			{Name: "label", Type: types.TypeText},
		},
		PrimaryKey: "seq",
	}))

	tx, err := a.Begin()
	require.NoError(t, err)
	for _, label := range []string{"first", "second"} {
		_, err = tx.Exec(`INSERT INTO "event" ("label") VALUES (?)`, []any{label})
		require.NoError(t, err)
	}
	require.NoError(t, tx.Commit())

	tx, err = a.Begin()
	require.NoError(t, err)
	rows, err := tx.Query(`SELECT * FROM "event" ORDER BY "seq"`, nil)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	require.Len(t, rows, 2)
	assert.Equal(t, int64(1), rows[0]["seq"])
	assert.Equal(t, int64(2), rows[1]["seq"])
}

func TestClose_Idempotent(t *testing.T) {
	a, err := Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())

	_, err = a.Begin()
	assert.ErrorIs(t, err, types.ErrClosed)
	_, err = a.TableExists("book")
	assert.ErrorIs(t, err, types.ErrClosed)
	assert.ErrorIs(t, a.EnsureTable(bookDef()), types.ErrClosed)
}
