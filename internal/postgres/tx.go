package postgres

import (
	"database/sql"

	"github.com/pantrydb/pantry/pkg/types"
)

// Tx wraps one PostgreSQL transaction.
type Tx struct {
	tx *sql.Tx
}

// Exec runs a statement and returns the number of affected rows.
func (t *Tx) Exec(query string, args []any) (int64, error) {
	res, err := t.tx.Exec(query, args...)
	if err != nil {
		return 0, &types.AdapterError{Op: "exec", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, &types.AdapterError{Op: "exec", Err: err}
	}
	return n, nil
}

// Query runs a select and materializes each row as a Record. The
// driver returns its natural Go types: int64, float64, string, bool,
// time.Time, []byte, or nil.
func (t *Tx) Query(query string, args []any) ([]types.Record, error) {
	rows, err := t.tx.Query(query, args...)
	if err != nil {
		return nil, &types.AdapterError{Op: "query", Err: err}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, &types.AdapterError{Op: "query", Err: err}
	}

	var out []types.Record
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &types.AdapterError{Op: "scan", Err: err}
		}
		rec := make(types.Record, len(cols))
		for i, c := range cols {
			rec[c] = vals[i]
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &types.AdapterError{Op: "query", Err: err}
	}
	return out, nil
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return &types.AdapterError{Op: "commit", Err: err}
	}
	return nil
}

// Rollback aborts the transaction.
func (t *Tx) Rollback() error {
	if err := t.tx.Rollback(); err != nil {
		return &types.AdapterError{Op: "rollback", Err: err}
	}
	return nil
}

var _ types.Tx = (*Tx)(nil)
