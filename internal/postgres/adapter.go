// Package postgres implements the PostgreSQL storage adapter on top of
// the pgx driver's database/sql interface.
// See docs/ARCHITECTURE.md § Storage Adapters.
package postgres

import (
	"database/sql"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/pantrydb/pantry/pkg/types"
)

// Adapter is the PostgreSQL implementation of types.Adapter. It is
// safe for concurrent use; connection pooling is left to database/sql.
type Adapter struct {
	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

// Open connects to the PostgreSQL server at dsn (a pgx connection
// string or URL) and verifies the connection.
func Open(dsn string) (*Adapter, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, &types.AdapterError{Op: "open", Err: err}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &types.AdapterError{Op: "open", Err: err}
	}
	return &Adapter{db: db}, nil
}

// Dialect identifies the placeholder and DDL dialect this adapter speaks.
func (a *Adapter) Dialect() string { return types.BackendPostgres }

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

// TableExists reports whether a table with the given name exists in
// the current schema search path.
func (a *Adapter) TableExists(name string) (bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return false, types.ErrClosed
	}
	var n int
	err := a.db.QueryRow(
		`SELECT COUNT(*) FROM information_schema.tables
		 WHERE table_schema = current_schema() AND table_name = $1`, name,
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
