package postgres

import (
	"fmt"
	"strings"

	"github.com/pantrydb/pantry/pkg/types"
)

// sqlType maps semantic column types to PostgreSQL column types.
var sqlType = map[types.SemanticType]string{
	types.TypeText:      "TEXT",
	types.TypeInteger:   "BIGINT",
	types.TypeReal:      "DOUBLE PRECISION",
	types.TypeBoolean:   "BOOLEAN",
	types.TypeTimestamp: "TIMESTAMPTZ",
	types.TypeBlob:      "BYTEA",
}

// EnsureTable creates the table for def if it does not already exist.
// An integer primary key becomes BIGSERIAL so inserts may omit it.
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
		if c.Name == def.PrimaryKey && c.Type == types.TypeInteger {
			decl = "BIGSERIAL"
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
