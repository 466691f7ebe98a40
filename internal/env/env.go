// Package env implements the chain-scoped environment context: a stack
// of key/value scopes confined to one logical call chain. Hooks and the
// pipeline see the nearest enclosing override for a key; releasing a
// scope discards everything written in it.
// See docs/ARCHITECTURE.md § Environment Context.
package env

import "github.com/pantrydb/pantry/pkg/types"

// Context is one call chain's ambient store. It is confined to a single
// chain and is not safe for concurrent use; a chain that spawns
// concurrent sub-operations hands each a Branch.
type Context struct {
	scopes []*Scope
}

// Scope is the handle returned by Push. Release discards the scope's
// entries and restores the enclosing view. Release is idempotent.
type Scope struct {
	ctx      *Context
	values   map[string]any
	released bool
}

// New creates a context with no active scope. Set fails and Get reports
// absence until the first Push.
func New() *Context {
	return &Context{}
}

// Push opens a new innermost scope and returns its handle. The caller
// must release the handle on every exit path.
func (c *Context) Push() *Scope {
	s := &Scope{ctx: c, values: make(map[string]any)}
	c.scopes = append(c.scopes, s)
	return s
}

// Release pops the scope and every scope pushed after it. Releasing a
// non-innermost scope unwinds the scopes above it; this keeps the stack
// consistent when an inner handle leaks on a failure path.
func (s *Scope) Release() {
	if s.released {
		return
	}
	s.released = true
	for i := len(s.ctx.scopes) - 1; i >= 0; i-- {
		top := s.ctx.scopes[i]
		top.released = true
		s.ctx.scopes = s.ctx.scopes[:i]
		if top == s {
			return
		}
	}
}

// Get resolves key against the active scopes, innermost first.
func (c *Context) Get(key string) (any, bool) {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if v, ok := c.scopes[i].values[key]; ok {
			return v, true
		}
	}
	return nil, false
}

// Set writes key into the current innermost scope only. Returns
// types.ErrNoScope when no scope is active; there is no process-wide
// fallback store.
func (c *Context) Set(key string, value any) error {
	if len(c.scopes) == 0 {
		return types.ErrNoScope
	}
	c.scopes[len(c.scopes)-1].values[key] = value
	return nil
}

// Depth returns the number of active scopes.
func (c *Context) Depth() int { return len(c.scopes) }

// Branch returns a new context whose single root scope holds a snapshot
// of the current visible entries. The branch shares nothing with the
// parent; concurrent sub-operations each get their own.
func (c *Context) Branch() *Context {
	b := New()
	root := b.Push()
	for _, s := range c.scopes {
		for k, v := range s.values {
			root.values[k] = v
		}
	}
	return b
}

var _ types.Env = (*Context)(nil)
