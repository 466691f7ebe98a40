package types

import "errors"

// SemanticType classifies a column for compile-time operator checks and
// per-dialect DDL type mapping.
type SemanticType string

// Supported semantic types.
const (
	TypeText      SemanticType = "text"
	TypeInteger   SemanticType = "integer"
	TypeReal      SemanticType = "real"
	TypeBoolean   SemanticType = "boolean"
	TypeTimestamp SemanticType = "timestamp"
	TypeBlob      SemanticType = "blob"
)

// knownTypes lists the semantic types TableDef.Validate accepts.
var knownTypes = map[SemanticType]bool{
	TypeText:      true,
	TypeInteger:   true,
	TypeReal:      true,
	TypeBoolean:   true,
	TypeTimestamp: true,
	TypeBlob:      true,
}

// Comparable reports whether ordering comparisons (<, <=, >, >=) are
// meaningful for the type.
func (t SemanticType) Comparable() bool {
	switch t {
	case TypeText, TypeInteger, TypeReal, TypeTimestamp:
		return true
	}
	return false
}

// Column declares one table column.
type Column struct {
	Name     string       `json:"name" yaml:"name"`
	Type     SemanticType `json:"type" yaml:"type"`
	Nullable bool         `json:"nullable" yaml:"nullable"`
}

// TableDef declares a table: ordered columns plus the primary key column.
// Definitions are registered once at setup time and read-only thereafter.
type TableDef struct {
	Name       string   `json:"name" yaml:"name"`
	Columns    []Column `json:"columns" yaml:"columns"`
	PrimaryKey string   `json:"primary_key" yaml:"primary_key"`
}

// Schema definition errors.
var (
	ErrTableNameEmpty  = errors.New("table name must not be empty")
	ErrNoColumns       = errors.New("table must declare at least one column")
	ErrDuplicateColumn = errors.New("duplicate column name")
	ErrUnknownType     = errors.New("unknown semantic type")
	ErrBadPrimaryKey   = errors.New("primary key must name a declared column")
	ErrDuplicateTable  = errors.New("table already defined")
	ErrUnknownTable    = errors.New("table not defined")
)

// Column returns the declared column with the given name.
func (d TableDef) Column(name string) (Column, bool) {
	for _, c := range d.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Validate checks that the definition is well-formed.
func (d TableDef) Validate() error {
	if d.Name == "" {
		return ErrTableNameEmpty
	}
	if len(d.Columns) == 0 {
		return ErrNoColumns
	}
	seen := make(map[string]bool, len(d.Columns))
	for _, c := range d.Columns {
		if seen[c.Name] {
			return ErrDuplicateColumn
		}
		seen[c.Name] = true
		if !knownTypes[c.Type] {
			return ErrUnknownType
		}
	}
	if d.PrimaryKey == "" || !seen[d.PrimaryKey] {
		return ErrBadPrimaryKey
	}
	return nil
}

// SchemaProvider resolves declared columns and primary keys. The query
// compiler and the validator consult it; implementations must be safe for
// concurrent reads once setup is complete.
type SchemaProvider interface {
	// Columns returns the ordered declared columns of the table.
	// Returns ErrUnknownTable if the table is not defined.
	Columns(table string) ([]Column, error)

	// PrimaryKey returns the primary key column name of the table.
	PrimaryKey(table string) (string, error)

	// Table returns the full definition of the table.
	Table(table string) (TableDef, error)
}
