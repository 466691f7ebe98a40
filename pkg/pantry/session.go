package pantry

import (
	"github.com/pantrydb/pantry/internal/env"
	"github.com/pantrydb/pantry/internal/pipeline"
	"github.com/pantrydb/pantry/internal/trigger"
	"github.com/pantrydb/pantry/pkg/types"
)

// Session is one logical call chain: it carries the environment
// context and the trigger stack every operation on it shares. Hooks
// fired during a session's operations receive the same session, so
// nested saves they issue stay on the chain and are covered by the
// re-entrancy guard. A session is confined to one goroutine; use
// Branch to hand work to another.
type Session struct {
	db    *DB
	chain *pipeline.Chain
	root  *env.Scope
}

// Session opens a new call chain with a fresh environment root scope.
// Release it with Close.
func (db *DB) Session() *Session {
	s := &Session{db: db}
	ctx := env.New()
	s.chain = &pipeline.Chain{Env: ctx, Stack: trigger.NewStack(), Session: s}
	s.root = ctx.Push()
	return s
}

// Table returns the operations facade for a defined table.
func (s *Session) Table(name string) (types.TableOps, error) {
	if _, err := s.db.schema.Table(name); err != nil {
		return nil, err
	}
	return &Table{s: s, name: name}, nil
}

// Env exposes the session's environment context.
func (s *Session) Env() types.Env { return s.chain.Env }

// Set stores a value in the innermost open scope.
func (s *Session) Set(key string, val any) error { return s.chain.Env.Set(key, val) }

// Get reads a value, innermost scope first.
func (s *Session) Get(key string) (any, bool) { return s.chain.Env.Get(key) }

// Scope opens a nested environment scope. Values set while it is open
// shadow outer values and vanish on Release.
func (s *Session) Scope() *Scope {
	return &Scope{inner: s.chain.Env.Push()}
}

// TriggerSkips reports how many trigger fires the re-entrancy guard
// has suppressed on this chain.
func (s *Session) TriggerSkips() int { return s.chain.Skips }

// Branch creates an independent session for another goroutine: the
// environment is a flattened snapshot of this session's scopes, and
// the trigger stack starts empty.
func (s *Session) Branch() *Session {
	b := &Session{db: s.db}
	ctx := s.chain.Env.Branch()
	b.chain = &pipeline.Chain{Env: ctx, Stack: trigger.NewStack(), Session: b}
	b.root = ctx.Push()
	return b
}

// Close releases the session's root scope. Idempotent.
func (s *Session) Close() {
	s.root.Release()
}

// Scope is a releasable environment scope handle.
type Scope struct {
	inner *env.Scope
}

// Release closes the scope, discarding its values. Idempotent; inner
// scopes still open are unwound first.
func (sc *Scope) Release() { sc.inner.Release() }

var _ types.Session = (*Session)(nil)

// Table runs operations against one defined table on its session's
// chain.
type Table struct {
	s    *Session
	name string
}

// Insert validates rec, fires the insert trigger phases, and writes
// the record. The returned key is the primary key used, or nil when an
// integer key was left to the backend to assign.
func (t *Table) Insert(rec types.Record) (any, error) {
	res, err := t.s.db.runner.Insert(t.s.chain, t.name, rec)
	if err != nil {
		return nil, err
	}
	return res.Key, nil
}

// Update merges patch over the stored record and writes the result
// through the update trigger phases. The primary key cannot be
// patched.
func (t *Table) Update(key any, patch types.Record) error {
	_, err := t.s.db.runner.Update(t.s.chain, t.name, key, patch)
	return err
}

// Delete removes the record; delete hooks receive its last state.
func (t *Table) Delete(key any) error {
	_, err := t.s.db.runner.Delete(t.s.chain, t.name, key)
	return err
}

// Get returns the record with the given primary key, or
// types.ErrNotFound.
func (t *Table) Get(key any) (types.Record, error) {
	return t.s.db.runner.Get(t.name, key)
}

// Find compiles the filter notation against this table's schema and
// returns matching rows. Parameter values are passed by name.
func (t *Table) Find(notation string, params map[string]any) ([]types.Record, error) {
	return t.s.db.runner.Find(t.name, notation, params)
}

var _ types.TableOps = (*Table)(nil)
