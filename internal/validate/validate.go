// Package validate implements the default schema validator: required
// column presence, unknown column rejection, and value/semantic-type
// agreement. It produces field-level ValidationErrors.
package validate

import (
	"fmt"
	"time"

	"github.com/pantrydb/pantry/pkg/types"
)

// Validator is the default types.Validator implementation.
type Validator struct{}

// New creates the default validator.
func New() *Validator { return &Validator{} }

// Validate checks rec against def. A nil return means the record is
// acceptable; otherwise the error is a *types.ValidationError listing
// every failing field.
func (v *Validator) Validate(def types.TableDef, rec types.Record) error {
	var fields []types.FieldError

	declared := make(map[string]types.Column, len(def.Columns))
	for _, c := range def.Columns {
		declared[c.Name] = c
	}

	for name := range rec {
		if _, ok := declared[name]; !ok {
			fields = append(fields, types.FieldError{
				Field: name,
				Msg:   "not a declared column",
			})
		}
	}

	for _, c := range def.Columns {
		val, present := rec[c.Name]
		if !present || val == nil {
			// The primary key may be absent on insert; the pipeline
			// assigns it before validation when it can.
			if !c.Nullable && c.Name != def.PrimaryKey {
				fields = append(fields, types.FieldError{
					Field: c.Name,
					Msg:   "value required",
				})
			}
			continue
		}
		if msg := checkValue(c.Type, val); msg != "" {
			fields = append(fields, types.FieldError{Field: c.Name, Msg: msg})
		}
	}

	if len(fields) > 0 {
		return &types.ValidationError{Table: def.Name, Fields: fields}
	}
	return nil
}

// checkValue reports why val cannot serve a column of type t, or ""
// when it can.
func checkValue(t types.SemanticType, val any) string {
	ok := false
	switch t {
	case types.TypeText:
		_, ok = val.(string)
	case types.TypeInteger:
		switch val.(type) {
		case int, int32, int64:
			ok = true
		}
	case types.TypeReal:
		switch val.(type) {
		case float32, float64, int, int64:
			ok = true
		}
	case types.TypeBoolean:
		switch v := val.(type) {
		case bool:
			ok = true
		case int64:
			// The SQLite adapter stores booleans as 0/1 and reads them
			// back as int64, so fetched records revalidate cleanly.
			ok = v == 0 || v == 1
		}
	case types.TypeTimestamp:
		switch v := val.(type) {
		case time.Time:
			ok = true
		case string:
			_, err := time.Parse(time.RFC3339, v)
			ok = err == nil
		}
	case types.TypeBlob:
		_, ok = val.([]byte)
	}
	if !ok {
		return fmt.Sprintf("value of type %T not valid for %s column", val, t)
	}
	return ""
}

var _ types.Validator = (*Validator)(nil)
