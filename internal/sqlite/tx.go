package sqlite

import (
	"database/sql"
	"time"

	"github.com/pantrydb/pantry/pkg/types"
)

// Tx wraps one SQLite transaction.
type Tx struct {
	tx *sql.Tx
}

// Exec runs a statement and returns the number of affected rows.
func (t *Tx) Exec(query string, args []any) (int64, error) {
	res, err := t.tx.Exec(query, normalize(args)...)
	if err != nil {
		return 0, &types.AdapterError{Op: "exec", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, &types.AdapterError{Op: "exec", Err: err}
	}
	return n, nil
}

// Query runs a select and materializes each row as a Record. Column
// values come back as the driver's natural Go types: int64, float64,
// string, []byte, or nil. Booleans read back as 0/1 integers and
// timestamps as RFC3339 text.
func (t *Tx) Query(query string, args []any) ([]types.Record, error) {
	rows, err := t.tx.Query(query, normalize(args)...)
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

// normalize rewrites argument types the driver would otherwise encode
// in its own format. Timestamps are always stored as RFC3339 text so
// comparisons in notation filters sort correctly.
func normalize(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case time.Time:
			out[i] = v.UTC().Format(time.RFC3339)
		case bool:
			if v {
				out[i] = int64(1)
			} else {
				out[i] = int64(0)
			}
		default:
			out[i] = a
		}
	}
	return out
}

var _ types.Tx = (*Tx)(nil)
