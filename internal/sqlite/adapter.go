// Package sqlite implements the SQLite storage adapter.
// See docs/ARCHITECTURE.md § Storage Adapters.
package sqlite

import (
	"database/sql"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/pantrydb/pantry/pkg/types"
)

// Adapter is the SQLite implementation of types.Adapter. It wraps a
// database/sql pool opened through the modernc driver and is safe for
// concurrent use.
type Adapter struct {
	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

// Open opens (or creates) the SQLite database at dsn. A dsn of
// ":memory:" gives a private in-memory database, useful in tests.
func Open(dsn string) (*Adapter, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &types.AdapterError{Op: "open", Err: err}
	}
	// The modernc driver serializes writes per connection; a single
	// connection avoids SQLITE_BUSY under concurrent transactions and
	// keeps ":memory:" databases from silently forking per connection.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, &types.AdapterError{Op: "open", Err: err}
	}
	return &Adapter{db: db}, nil
}

// Dialect identifies the placeholder and DDL dialect this adapter speaks.
func (a *Adapter) Dialect() string { return types.BackendSQLite }

// Begin starts a transaction. Returns types.ErrClosed after Close.
func (a *Adapter) Begin() (types.Tx, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return nil, types.ErrClosed
	}
	tx, err := a.db.Begin()
	if err != nil {
		return nil, &types.AdapterError{Op: "begin", Err: err}
	}
	return &Tx{tx: tx}, nil
}

// TableExists reports whether a table with the given name exists.
func (a *Adapter) TableExists(name string) (bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return false, types.ErrClosed
	}
	var n int
	err := a.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name,
	).Scan(&n)
	if err != nil {
		return false, &types.AdapterError{Op: "table_exists", Err: err}
	}
	return n > 0, nil
}

// Close releases the connection pool. Close is idempotent; all
// operations after it return types.ErrClosed.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true
	if err := a.db.Close(); err != nil {
		return &types.AdapterError{Op: "close", Err: err}
	}
	return nil
}

var _ types.Adapter = (*Adapter)(nil)
