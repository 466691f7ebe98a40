package query

import "sync"

// Cache stores rendered statements keyed by (plan fingerprint, dialect).
// Statements are immutable, so cached entries are shared across chains.
type Cache struct {
	mu sync.RWMutex
	m  map[string]*Statement
}

// NewCache creates an empty statement cache.
func NewCache() *Cache {
	return &Cache{m: make(map[string]*Statement)}
}

func cacheKey(fingerprint, dialect string) string {
	return dialect + "\x00" + fingerprint
}

// Get returns the cached statement for the key, if present.
func (c *Cache) Get(fingerprint, dialect string) (*Statement, bool) {
	c.mu.RLock()
	st, ok := c.m[cacheKey(fingerprint, dialect)]
	c.mu.RUnlock()
	return st, ok
}

// Put stores a rendered statement.
func (c *Cache) Put(fingerprint, dialect string, st *Statement) {
	c.mu.Lock()
	c.m[cacheKey(fingerprint, dialect)] = st
	c.mu.Unlock()
}

// Render returns the cached statement for the plan or renders and caches
// it. Rendering is deterministic, so concurrent misses for the same key
// store identical statements.
func (c *Cache) Render(r Renderer, p *Plan) (*Statement, error) {
	fp := p.Fingerprint()
	if st, ok := c.Get(fp, r.Dialect()); ok {
		return st, nil
	}
	st, err := r.Render(p)
	if err != nil {
		return nil, err
	}
	c.Put(fp, r.Dialect(), st)
	return st, nil
}
