package types

// Adapter is the physical database collaborator. The core renders
// parameterized statements and hands them to the adapter; everything
// about connections, drivers, and isolation belongs to the adapter.
type Adapter interface {
	// Dialect identifies the rendering rules for this adapter
	// ("sqlite" or "postgres").
	Dialect() string

	// Begin opens a transaction scope.
	Begin() (Tx, error)

	// EnsureTable creates the table if it does not already exist,
	// mapping semantic types per dialect. It never alters an existing
	// table.
	EnsureTable(def TableDef) error

	// TableExists reports whether a table with the given name exists
	// in the backend's catalog.
	TableExists(name string) (bool, error)

	// Close releases the underlying connection pool.
	Close() error
}

// Tx is one transaction scope with standard rollback-on-error semantics.
type Tx interface {
	// Exec runs a statement that returns no rows. Returns the number
	// of affected rows.
	Exec(sql string, args []any) (int64, error)

	// Query runs a statement and returns the result rows keyed by
	// column name.
	Query(sql string, args []any) ([]Record, error)

	Commit() error
	Rollback() error
}

// Validator checks a record against a table's declared schema before any
// trigger fires. Implementations return a *ValidationError carrying
// field-level detail, or nil when the record is acceptable.
type Validator interface {
	Validate(def TableDef, rec Record) error
}
