// Package pantry is the main entry point: a schema-checked,
// trigger-aware access layer over a SQL storage adapter. Open a DB,
// define tables, register hooks, then run operations through sessions.
// See docs/ARCHITECTURE.md § Main Interface.
package pantry

import (
	"fmt"
	"sync"

	"github.com/pantrydb/pantry/internal/pipeline"
	"github.com/pantrydb/pantry/internal/postgres"
	"github.com/pantrydb/pantry/internal/query"
	"github.com/pantrydb/pantry/internal/sqlite"
	"github.com/pantrydb/pantry/internal/trigger"
	"github.com/pantrydb/pantry/internal/validate"
	"github.com/pantrydb/pantry/pkg/types"
)

// DB owns the storage adapter and the shared, read-mostly collaborators:
// schema registry, trigger registry, validator, dialect renderer, and
// statement cache. A DB is safe for concurrent sessions.
type DB struct {
	mu     sync.Mutex
	closed bool

	adapter  types.Adapter
	schema   *types.Schema
	registry *trigger.Registry
	runner   *pipeline.Runner
}

// Open connects to the backend named by cfg and wraps it in a DB.
func Open(cfg types.Config) (*DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var (
		adapter types.Adapter
		err     error
	)
	switch cfg.Backend {
	case types.BackendSQLite:
		adapter, err = sqlite.Open(cfg.DSN)
	case types.BackendPostgres:
		adapter, err = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("backend %q: %w", cfg.Backend, types.ErrBackendUnknown)
	}
	if err != nil {
		return nil, err
	}
	db, err := New(adapter)
	if err != nil {
		adapter.Close()
		return nil, err
	}
	return db, nil
}

// New wraps an already-open adapter. The renderer is chosen from the
// adapter's dialect; unknown dialects are rejected here, not at first
// use.
func New(adapter types.Adapter) (*DB, error) {
	renderer, err := query.For(adapter.Dialect())
	if err != nil {
		return nil, err
	}
	schema := types.NewSchema()
	registry := trigger.NewRegistry()
	db := &DB{
		adapter:  adapter,
		schema:   schema,
		registry: registry,
		runner: &pipeline.Runner{
			Schema:    schema,
			Adapter:   adapter,
			Validator: validate.New(),
			Registry:  registry,
			Renderer:  renderer,
			Cache:     query.NewCache(),
		},
	}
	if err := db.runner.CheckDialect(); err != nil {
		return nil, err
	}
	return db, nil
}

// Define adds a table definition to the schema.
func (db *DB) Define(def types.TableDef) error {
	return db.schema.Define(def)
}

// Register attaches a named hook to a table's trigger phase. Hooks
// must be registered before the first operation fires.
func (db *DB) Register(table string, phase types.Phase, name string, h types.Hook) error {
	return db.registry.Register(table, phase, name, h)
}

// RegisterFunc is Register for a bare function.
func (db *DB) RegisterFunc(table string, phase types.Phase, name string, fn types.HookFunc) error {
	return db.registry.Register(table, phase, name, fn)
}

// EnsureTables creates storage for every defined table that does not
// exist yet, in definition order. Existing tables are left untouched.
func (db *DB) EnsureTables() error {
	for _, name := range db.schema.Tables() {
		def, err := db.schema.Table(name)
		if err != nil {
			return err
		}
		exists, err := db.adapter.TableExists(name)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if err := db.adapter.EnsureTable(def); err != nil {
			return err
		}
	}
	return nil
}

// Schema exposes the table definitions for read-only use.
func (db *DB) Schema() types.SchemaProvider { return db.schema }

// Close releases the adapter. Close is idempotent; sessions created
// earlier fail their next operation with types.ErrClosed.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return nil
	}
	db.closed = true
	return db.adapter.Close()
}
