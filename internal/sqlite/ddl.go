package sqlite

import (
	"fmt"
	"strings"

	"github.com/pantrydb/pantry/pkg/types"
)

// sqlType maps semantic column types to SQLite declared types. SQLite
// assigns affinity from the name; BOOLEAN and TIMESTAMP get NUMERIC
// affinity and store 0/1 integers and RFC3339 text respectively.
var sqlType = map[types.SemanticType]string{
	types.TypeText:      "TEXT",
	types.TypeInteger:   "INTEGER",
	types.TypeReal:      "REAL",
	types.TypeBoolean:   "BOOLEAN",
	types.TypeTimestamp: "TIMESTAMP",
	types.TypeBlob:      "BLOB",
}

// EnsureTable creates the table for def if it does not already exist.
// An INTEGER primary key aliases the rowid and autoincrements.
func (a *Adapter) EnsureTable(def types.TableDef) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return types.ErrClosed
	}
	if err := def.Validate(); err != nil {
		return err
	}

	ddl, err := createTableSQL(def)
	if err != nil {
		return err
	}
	if _, err := a.db.Exec(ddl); err != nil {
		return &types.AdapterError{Op: "ensure_table", Err: err}
	}
	return nil
}

func createTableSQL(def types.TableDef) (string, error) {
	var cols []string
	for _, c := range def.Columns {
		decl, ok := sqlType[c.Type]
		if !ok {
			return "", fmt.Errorf("column %q: %w", c.Name, types.ErrUnknownType)
		}
		col := fmt.Sprintf("%q %s", c.Name, decl)
		if c.Name == def.PrimaryKey {
			col += " PRIMARY KEY"
		} else if !c.Nullable {
			col += " NOT NULL"
		}
		cols = append(cols, col)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %q (%s)",
		def.Name, strings.Join(cols, ", ")), nil
}
