package types

// Record is a single row keyed by column name. Hooks registered for the
// "-ing" phases may mutate a Record in place before it reaches storage.
type Record map[string]any

// Clone returns a shallow copy of the record. Column values are shared;
// callers that hand a record to a concurrent chain should clone first.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Has reports whether the record carries a non-nil value for the column.
func (r Record) Has(column string) bool {
	v, ok := r[column]
	return ok && v != nil
}
