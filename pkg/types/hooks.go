package types

// Phase identifies one of the lifecycle points around a mutation.
// The "-ing" phases fire before the write and may mutate the record in
// place; the "-ed" phases fire after commit and are observational.
type Phase string

// Lifecycle phases.
const (
	OnInserting Phase = "onInserting"
	OnInserted  Phase = "onInserted"
	OnUpdating  Phase = "onUpdating"
	OnUpdated   Phase = "onUpdated"
	OnDeleting  Phase = "onDeleting"
	OnDeleted   Phase = "onDeleted"
)

// Before reports whether the phase fires before the write reaches storage.
func (p Phase) Before() bool {
	switch p {
	case OnInserting, OnUpdating, OnDeleting:
		return true
	}
	return false
}

// Env is the ambient, chain-scoped key/value store visible to hooks and
// the pipeline. Set writes into the innermost active scope only; Get
// resolves the nearest enclosing override. A chain with no active scope
// fails fast on Set and reports absence on Get.
type Env interface {
	// Get resolves key against the active scopes, innermost first.
	Get(key string) (any, bool)

	// Set writes key into the current innermost scope. Returns
	// ErrNoScope when the chain has no active scope.
	Set(key string, value any) error
}

// Env keys the pipeline itself consults.
const (
	EnvSkipValidation = "skip_validation"
	EnvSkipTriggers   = "skip_triggers"
	EnvCurrentUser    = "current_user"
)

// FireContext carries everything a hook receives besides the record:
// the table and phase being fired, the ambient environment, and the
// session the operation runs on. Nested saves issued through Session
// share the chain's trigger stack, so a hook that re-saves its own
// record is blocked by the re-entrancy guard instead of recursing.
type FireContext struct {
	Table   string
	Phase   Phase
	Env     Env
	Session Session
}

// Hook is the single capability a trigger must provide. A hook may
// mutate rec in place during a "-ing" phase; returning a non-nil error
// aborts the phase and surfaces as a TriggerError.
type Hook interface {
	Fire(ctx *FireContext, rec Record) error
}

// HookFunc adapts a function to the Hook interface.
type HookFunc func(ctx *FireContext, rec Record) error

// Fire implements Hook.
func (f HookFunc) Fire(ctx *FireContext, rec Record) error { return f(ctx, rec) }

// Session is the per-chain operation surface handed to hooks. All
// operations issued through one Session share a single trigger stack
// and environment context.
type Session interface {
	// Table returns the operation surface for a defined table.
	// Returns ErrUnknownTable if the table is not defined.
	Table(name string) (TableOps, error)

	// Env returns the chain's ambient environment.
	Env() Env
}

// TableOps is the per-table CRUD surface.
type TableOps interface {
	// Insert stores a new record and returns the primary key value used.
	// A missing text primary key is assigned a generated UUID before the
	// onInserting phase fires.
	Insert(rec Record) (any, error)

	// Update applies patch to the record with the given primary key.
	Update(key any, patch Record) error

	// Delete removes the record with the given primary key.
	Delete(key any) error

	// Get returns the record with the given primary key.
	// Returns ErrNotFound if no record exists with that key.
	Get(key any) (Record, error)

	// Find compiles the notation against the table's declared columns
	// and returns the matching records. params supplies the values for
	// the :name placeholders used by the notation.
	Find(notation string, params map[string]any) ([]Record, error)
}
