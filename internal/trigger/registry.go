// Package trigger implements the per-table hook registry and the
// call-chain frame stack that guards against re-entrant firing.
// See docs/ARCHITECTURE.md § Triggers.
package trigger

import (
	"errors"
	"sync"

	"github.com/pantrydb/pantry/pkg/types"
)

// Registration errors.
var (
	ErrDuplicateHook  = errors.New("hook already registered for this table and phase")
	ErrHookNameEmpty  = errors.New("hook name must not be empty")
	ErrRegistryFrozen = errors.New("registry is frozen; register hooks before the first operation")
)

// entry is one registered hook with its registration name.
type entry struct {
	name string
	hook types.Hook
}

// Registry maps (table, phase) to an ordered hook list. Registration
// order is firing order. The registry freezes on the first Fire; late
// registration returns ErrRegistryFrozen, so the hook lists can be read
// without synchronization from then on.
type Registry struct {
	mu     sync.Mutex
	once   sync.Once
	frozen bool
	hooks  map[string]map[types.Phase][]entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{hooks: make(map[string]map[types.Phase][]entry)}
}

// Register appends hook to the ordered list for (table, phase). The name
// identifies the registration; a second hook under the same
// (table, phase, name) is rejected with ErrDuplicateHook.
func (r *Registry) Register(table string, phase types.Phase, name string, hook types.Hook) error {
	if name == "" {
		return ErrHookNameEmpty
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return ErrRegistryFrozen
	}
	phases, ok := r.hooks[table]
	if !ok {
		phases = make(map[types.Phase][]entry)
		r.hooks[table] = phases
	}
	for _, e := range phases[phase] {
		if e.name == name {
			return ErrDuplicateHook
		}
	}
	phases[phase] = append(phases[phase], entry{name: name, hook: hook})
	return nil
}

// freeze seals the registry. Fire runs it exactly once; the Once also
// orders the freeze before any hook-list read on a concurrent chain.
func (r *Registry) freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Fire invokes every hook registered for (table, phase) in registration
// order. The first hook failure stops the phase and is returned as a
// *types.TriggerError carrying the hook's registration name.
func (r *Registry) Fire(ctx *types.FireContext, rec types.Record) error {
	r.once.Do(r.freeze)
	phases, ok := r.hooks[ctx.Table]
	if !ok {
		return nil
	}
	for _, e := range phases[ctx.Phase] {
		if err := e.hook.Fire(ctx, rec); err != nil {
			return &types.TriggerError{
				Table:  ctx.Table,
				Phase:  ctx.Phase,
				Hook:   e.name,
				Reason: err,
			}
		}
	}
	return nil
}

// Registered returns the registration names for (table, phase) in firing
// order.
func (r *Registry) Registered(table string, phase types.Phase) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	phases, ok := r.hooks[table]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(phases[phase]))
	for _, e := range phases[phase] {
		names = append(names, e.name)
	}
	return names
}
