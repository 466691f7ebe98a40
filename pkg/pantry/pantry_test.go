// End-to-end tests of the facade over the in-memory SQLite backend.
package pantry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pantrydb/pantry/pkg/types"
)

func setupDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(types.Config{Backend: types.BackendSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Define(types.TableDef{
		Name: "book",
		Columns: []types.Column{
			{Name: "id", Type: types.TypeText},
			{Name: "title", Type: types.TypeText},
			{Name: "author", Type: types.TypeText},
			{Name: "pages", Type: types.TypeInteger},
			{Name: "price", Type: types.TypeReal, Nullable: true},
		},
		PrimaryKey: "id",
	}))
	require.NoError(t, db.EnsureTables())
	return db
}

func seedBooks(t *testing.T, s *Session) map[string]any {
	t.Helper()
	books, err := s.Table("book")
	require.NoError(t, err)

	keys := make(map[string]any)
	for _, rec := range []types.Record{
		{"title": "Dune", "author": "Herbert", "pages": 412, "price": 9.99},
		{"title": "Clean Code", "author": "Martin", "pages": 464, "price": 32.50},
		{"title": "The Go Programming Language", "author": "Donovan", "pages": 380},
	} {
		key, err := books.Insert(rec)
		require.NoError(t, err)
		keys[rec["title"].(string)] = key
	}
	return keys
}

func TestInsertAndGet(t *testing.T) {
	db := setupDB(t)
	s := db.Session()
	defer s.Close()

	books, err := s.Table("book")
	require.NoError(t, err)

	key, err := books.Insert(types.Record{"title": "Dune", "author": "Herbert", "pages": 412})
	require.NoError(t, err)
	require.IsType(t, "", key, "text primary key is generated")

	rec, err := books.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "Dune", rec["title"])
	assert.Equal(t, int64(412), rec["pages"])
	assert.Nil(t, rec["price"])
}

func TestFind_NotationAgainstStore(t *testing.T) {
	db := setupDB(t)
	s := db.Session()
	defer s.Close()
	seedBooks(t, s)

	books, err := s.Table("book")
	require.NoError(t, err)

	rows, err := books.Find("$pages > :min AND $author != 'Martin' order: $title", map[string]any{"min": 100})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Dune", rows[0]["title"])
	assert.Equal(t, "The Go Programming Language", rows[1]["title"])

	rows, err = books.Find("$price IS NULL", nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Donovan", rows[0]["author"])

	rows, err = books.Find("$title LIKE :pat", map[string]any{"pat": "%Code%"})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	rows, err = books.Find("order: $pages desc limit: 2", nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Clean Code", rows[0]["title"])
}

func TestUpdate_MergesAndPersists(t *testing.T) {
	db := setupDB(t)
	s := db.Session()
	defer s.Close()
	keys := seedBooks(t, s)

	books, _ := s.Table("book")
	require.NoError(t, books.Update(keys["Dune"], types.Record{"pages": 500}))

	rec, err := books.Get(keys["Dune"])
	require.NoError(t, err)
	assert.Equal(t, int64(500), rec["pages"])
	assert.Equal(t, "Herbert", rec["author"], "unpatched columns survive")
}

func TestUpdate_BooleanColumnRoundTrip(t *testing.T) {
	db, err := Open(types.Config{Backend: types.BackendSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Define(types.TableDef{
		Name: "book",
		Columns: []types.Column{
			{Name: "id", Type: types.TypeText},
			{Name: "title", Type: types.TypeText},
			{Name: "in_print", Type: types.TypeBoolean},
		},
		PrimaryKey: "id",
	}))
	require.NoError(t, db.EnsureTables())

	s := db.Session()
	defer s.Close()
	books, err := s.Table("book")
	require.NoError(t, err)

	key, err := books.Insert(types.Record{"title": "Dune", "in_print": true})
	require.NoError(t, err)

	// The patch leaves in_print alone; the merged record carries the
	// stored 0/1 form and must still validate.
	require.NoError(t, books.Update(key, types.Record{"title": "Dune (reissue)"}))

	rec, err := books.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "Dune (reissue)", rec["title"])
	assert.EqualValues(t, 1, rec["in_print"])
}

func TestDelete_RemovesRecord(t *testing.T) {
	db := setupDB(t)
	s := db.Session()
	defer s.Close()
	keys := seedBooks(t, s)

	books, _ := s.Table("book")
	require.NoError(t, books.Delete(keys["Dune"]))

	_, err := books.Get(keys["Dune"])
	assert.ErrorIs(t, err, types.ErrNotFound)

	err = books.Delete(keys["Dune"])
	assert.ErrorIs(t, err, types.ErrNotFound)
}

// ddlAdapter records DDL traffic so tests can watch what EnsureTables
// sends to the backend.
type ddlAdapter struct {
	existing map[string]bool
	ensured  []string
}

func (a *ddlAdapter) Dialect() string                       { return types.BackendSQLite }
func (a *ddlAdapter) Begin() (types.Tx, error)              { return nil, types.ErrClosed }
func (a *ddlAdapter) TableExists(name string) (bool, error) { return a.existing[name], nil }
func (a *ddlAdapter) Close() error                          { return nil }

func (a *ddlAdapter) EnsureTable(def types.TableDef) error {
	a.ensured = append(a.ensured, def.Name)
	return nil
}

func TestEnsureTables_SkipsExisting(t *testing.T) {
	adapter := &ddlAdapter{existing: map[string]bool{"shelf": true}}
	db, err := New(adapter)
	require.NoError(t, err)

	require.NoError(t, db.Define(types.TableDef{
		Name:       "shelf",
		Columns:    []types.Column{{Name: "id", Type: types.TypeText}},
		PrimaryKey: "id",
	}))
	require.NoError(t, db.Define(types.TableDef{
		Name:       "book",
		Columns:    []types.Column{{Name: "id", Type: types.TypeText}},
		PrimaryKey: "id",
	}))

	require.NoError(t, db.EnsureTables())
	assert.Equal(t, []string{"book"}, adapter.ensured, "existing table gets no DDL")
}

func TestTable_Unknown(t *testing.T) {
	db := setupDB(t)
	s := db.Session()
	defer s.Close()

	_, err := s.Table("shelf")
	assert.ErrorIs(t, err, types.ErrUnknownTable)
}

func TestHook_RejectsBadRecord(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, db.RegisterFunc("book", types.OnInserting, "positive_pages",
		func(fc *types.FireContext, rec types.Record) error {
			if p, ok := rec["pages"].(int); ok && p <= 0 {
				return errors.New("pages must be positive")
			}
			return nil
		}))

	s := db.Session()
	defer s.Close()
	books, _ := s.Table("book")

	_, err := books.Insert(types.Record{"title": "Broken", "author": "X", "pages": -5})
	var te *types.TriggerError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "positive_pages", te.Hook)

	rows, err := books.Find("", nil)
	require.NoError(t, err)
	assert.Empty(t, rows, "rejected insert left no row")
}

func TestHook_NestedSaveIsGuarded(t *testing.T) {
	db := setupDB(t)

	// An audit-style hook that re-saves the record it is fired for; the
	// nested update must not fire the hook again.
	require.NoError(t, db.RegisterFunc("book", types.OnUpdated, "touch",
		func(fc *types.FireContext, rec types.Record) error {
			books, err := fc.Session.Table("book")
			if err != nil {
				return err
			}
			return books.Update(rec["id"], types.Record{"author": rec["author"]})
		}))

	s := db.Session()
	defer s.Close()
	keys := seedBooks(t, s)

	books, _ := s.Table("book")
	require.NoError(t, books.Update(keys["Dune"], types.Record{"pages": 500}))

	assert.Equal(t, 1, s.TriggerSkips())

	rec, err := books.Get(keys["Dune"])
	require.NoError(t, err)
	assert.Equal(t, int64(500), rec["pages"])
}

func TestEnv_CurrentUserVisibleToHook(t *testing.T) {
	db := setupDB(t)

	var seen any
	require.NoError(t, db.RegisterFunc("book", types.OnInserting, "whoami",
		func(fc *types.FireContext, rec types.Record) error {
			seen, _ = fc.Env.Get(types.EnvCurrentUser)
			return nil
		}))

	s := db.Session()
	defer s.Close()
	require.NoError(t, s.Set(types.EnvCurrentUser, "alice"))

	books, _ := s.Table("book")
	_, err := books.Insert(types.Record{"title": "Dune", "author": "Herbert", "pages": 412})
	require.NoError(t, err)
	assert.Equal(t, "alice", seen)
}

func TestScope_OverrideVanishesOnRelease(t *testing.T) {
	db := setupDB(t)
	s := db.Session()
	defer s.Close()

	require.NoError(t, s.Set("tenant", "main"))

	sc := s.Scope()
	require.NoError(t, s.Set("tenant", "trial"))
	v, _ := s.Get("tenant")
	assert.Equal(t, "trial", v)

	sc.Release()
	v, _ = s.Get("tenant")
	assert.Equal(t, "main", v)
}

func TestSkipTriggersFlag(t *testing.T) {
	db := setupDB(t)
	fired := false
	require.NoError(t, db.RegisterFunc("book", types.OnInserting, "spy",
		func(fc *types.FireContext, rec types.Record) error {
			fired = true
			return nil
		}))

	s := db.Session()
	defer s.Close()
	require.NoError(t, s.Set(types.EnvSkipTriggers, true))

	books, _ := s.Table("book")
	_, err := books.Insert(types.Record{"title": "Quiet", "author": "X", "pages": 1})
	require.NoError(t, err)
	assert.False(t, fired)
}

func TestBranch_IndependentChain(t *testing.T) {
	db := setupDB(t)
	s := db.Session()
	defer s.Close()
	require.NoError(t, s.Set(types.EnvCurrentUser, "alice"))

	b := s.Branch()
	defer b.Close()

	v, ok := b.Get(types.EnvCurrentUser)
	require.True(t, ok)
	assert.Equal(t, "alice", v)

	// Writes on the branch do not leak back.
	require.NoError(t, b.Set(types.EnvCurrentUser, "bob"))
	v, _ = s.Get(types.EnvCurrentUser)
	assert.Equal(t, "alice", v)
}

func TestOpen_BadConfig(t *testing.T) {
	_, err := Open(types.Config{})
	assert.ErrorIs(t, err, types.ErrBackendEmpty)

	_, err = Open(types.Config{Backend: "oracle", DSN: "x"})
	assert.ErrorIs(t, err, types.ErrBackendUnknown)
}

func TestClose_OperationsFail(t *testing.T) {
	db := setupDB(t)
	s := db.Session()
	defer s.Close()
	require.NoError(t, db.Close())
	require.NoError(t, db.Close(), "close is idempotent")

	books, _ := s.Table("book")
	_, err := books.Insert(types.Record{"title": "Late", "author": "X", "pages": 1})
	assert.ErrorIs(t, err, types.ErrClosed)
}
