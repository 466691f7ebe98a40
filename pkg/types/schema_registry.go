package types

import "sync"

// Schema is an in-memory registry of table definitions implementing
// SchemaProvider. Tables are defined once at setup time; reads are safe
// across concurrent chains.
type Schema struct {
	mu     sync.RWMutex
	tables map[string]TableDef
	order  []string
}

// NewSchema creates an empty schema registry.
func NewSchema() *Schema {
	return &Schema{tables: make(map[string]TableDef)}
}

// Define registers a table definition. The definition is validated and
// a duplicate table name is rejected with ErrDuplicateTable.
func (s *Schema) Define(def TableDef) error {
	if err := def.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tables[def.Name]; ok {
		return ErrDuplicateTable
	}
	s.tables[def.Name] = def
	s.order = append(s.order, def.Name)
	return nil
}

// Table returns the full definition of the table.
func (s *Schema) Table(table string) (TableDef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	def, ok := s.tables[table]
	if !ok {
		return TableDef{}, ErrUnknownTable
	}
	return def, nil
}

// Columns returns the ordered declared columns of the table.
func (s *Schema) Columns(table string) ([]Column, error) {
	def, err := s.Table(table)
	if err != nil {
		return nil, err
	}
	return def.Columns, nil
}

// PrimaryKey returns the primary key column name of the table.
func (s *Schema) PrimaryKey(table string) (string, error) {
	def, err := s.Table(table)
	if err != nil {
		return "", err
	}
	return def.PrimaryKey, nil
}

// Tables returns the defined table names in definition order.
func (s *Schema) Tables() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

var _ SchemaProvider = (*Schema)(nil)
