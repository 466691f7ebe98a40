package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pantrydb/pantry/pkg/types"
)

// Rendering errors.
var (
	ErrUnknownDialect = errors.New("unknown dialect")
	ErrEmptyPlan      = errors.New("plan has no columns")
)

// Slot is one placeholder position in a rendered statement, in
// left-to-right order: either a parameter name resolved at Bind time or
// a literal captured from the notation.
type Slot struct {
	Param   string
	Literal any
	IsParam bool
}

// Statement is rendered SQL plus its ordered placeholder slots. It
// carries no literal values in the SQL text, so it is immutable and safe
// to cache and share by (plan fingerprint, dialect).
type Statement struct {
	SQL   string
	Slots []Slot
}

// Bind resolves the slots against the supplied parameter values,
// returning the argument list in placeholder order. Every parameter
// slot must have a supplied value.
func (st *Statement) Bind(params map[string]any) ([]any, error) {
	args := make([]any, len(st.Slots))
	for i, s := range st.Slots {
		if !s.IsParam {
			args[i] = s.Literal
			continue
		}
		v, ok := params[s.Param]
		if !ok {
			return nil, fmt.Errorf("no value supplied for parameter %q", s.Param)
		}
		args[i] = v
	}
	return args, nil
}

// Renderer turns a Plan into a dialect-specific Statement. Rendering is
// pure and deterministic: identical plan and dialect always produce
// byte-identical output. Renderers form a closed set selected once at
// configuration time.
type Renderer interface {
	Dialect() string
	Render(p *Plan) (*Statement, error)
}

// For returns the renderer for the dialect.
func For(dialect string) (Renderer, error) {
	switch dialect {
	case types.BackendSQLite:
		return sqliteRenderer{}, nil
	case types.BackendPostgres:
		return postgresRenderer{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDialect, dialect)
}

// sqliteRenderer renders `?` placeholders. SQLite requires a LIMIT
// before OFFSET, so an offset without a limit renders `LIMIT -1`.
type sqliteRenderer struct{}

func (sqliteRenderer) Dialect() string { return types.BackendSQLite }

func (sqliteRenderer) Render(p *Plan) (*Statement, error) {
	w := &sqlWriter{placeholder: func(int) string { return "?" }, bareOffset: false}
	return w.render(p)
}

// postgresRenderer renders `$1`..`$n` placeholders.
type postgresRenderer struct{}

func (postgresRenderer) Dialect() string { return types.BackendPostgres }

func (postgresRenderer) Render(p *Plan) (*Statement, error) {
	w := &sqlWriter{
		placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
		bareOffset:  true,
	}
	return w.render(p)
}

// sqlWriter walks a plan once, appending SQL text and recording a slot
// for every placeholder it emits. Both dialects quote identifiers with
// double quotes; only placeholder syntax and offset handling differ.
type sqlWriter struct {
	placeholder func(n int) string
	bareOffset  bool
	b           strings.Builder
	slots       []Slot
}

func (w *sqlWriter) ident(name string) {
	w.b.WriteByte('"')
	w.b.WriteString(name)
	w.b.WriteByte('"')
}

func (w *sqlWriter) operand(op Operand) {
	switch v := op.(type) {
	case Param:
		w.slots = append(w.slots, Slot{Param: v.Name, IsParam: true})
	case Literal:
		w.slots = append(w.slots, Slot{Literal: v.Val})
	}
	w.b.WriteString(w.placeholder(len(w.slots)))
}

func (w *sqlWriter) render(p *Plan) (*Statement, error) {
	switch p.Kind {
	case KindSelect:
		w.renderSelect(p)
	case KindInsert:
		if err := w.renderInsert(p); err != nil {
			return nil, err
		}
	case KindUpdate:
		if err := w.renderUpdate(p); err != nil {
			return nil, err
		}
	case KindDelete:
		w.renderDelete(p)
	default:
		return nil, fmt.Errorf("unknown plan kind %d", p.Kind)
	}
	return &Statement{SQL: w.b.String(), Slots: w.slots}, nil
}

func (w *sqlWriter) renderSelect(p *Plan) {
	w.b.WriteString("SELECT ")
	for i, c := range p.Columns {
		if i > 0 {
			w.b.WriteString(", ")
		}
		w.ident(c)
	}
	w.b.WriteString(" FROM ")
	w.ident(p.Table)
	w.renderWhere(p.Where)

	if len(p.Order) > 0 {
		w.b.WriteString(" ORDER BY ")
		for i, o := range p.Order {
			if i > 0 {
				w.b.WriteString(", ")
			}
			w.ident(o.Field)
			if o.Desc {
				w.b.WriteString(" DESC")
			} else {
				w.b.WriteString(" ASC")
			}
		}
	}

	if p.Limit != nil {
		w.b.WriteString(" LIMIT ")
		w.operand(p.Limit)
	} else if p.Offset != nil && !w.bareOffset {
		w.b.WriteString(" LIMIT -1")
	}
	if p.Offset != nil {
		w.b.WriteString(" OFFSET ")
		w.operand(p.Offset)
	}
}

func (w *sqlWriter) renderInsert(p *Plan) error {
	if len(p.Columns) == 0 || len(p.Columns) != len(p.Values) {
		return ErrEmptyPlan
	}
	w.b.WriteString("INSERT INTO ")
	w.ident(p.Table)
	w.b.WriteString(" (")
	for i, c := range p.Columns {
		if i > 0 {
			w.b.WriteString(", ")
		}
		w.ident(c)
	}
	w.b.WriteString(") VALUES (")
	for i, v := range p.Values {
		if i > 0 {
			w.b.WriteString(", ")
		}
		w.operand(v)
	}
	w.b.WriteString(")")
	return nil
}

func (w *sqlWriter) renderUpdate(p *Plan) error {
	if len(p.Columns) == 0 || len(p.Columns) != len(p.Values) {
		return ErrEmptyPlan
	}
	w.b.WriteString("UPDATE ")
	w.ident(p.Table)
	w.b.WriteString(" SET ")
	for i, c := range p.Columns {
		if i > 0 {
			w.b.WriteString(", ")
		}
		w.ident(c)
		w.b.WriteString(" = ")
		w.operand(p.Values[i])
	}
	w.renderWhere(p.Where)
	return nil
}

func (w *sqlWriter) renderDelete(p *Plan) {
	w.b.WriteString("DELETE FROM ")
	w.ident(p.Table)
	w.renderWhere(p.Where)
}

func (w *sqlWriter) renderWhere(pred Predicate) {
	if pred == nil {
		return
	}
	w.b.WriteString(" WHERE ")
	w.predicate(pred, false)
}

// predicate renders a node. Nested boolean nodes of the opposite
// connective are parenthesized; same-field comparison and IN terms under
// one AND render side by side with no merging.
func (w *sqlWriter) predicate(pred Predicate, nested bool) {
	switch n := pred.(type) {
	case Compare:
		w.ident(n.Field)
		w.b.WriteByte(' ')
		w.b.WriteString(string(n.Op))
		w.b.WriteByte(' ')
		w.operand(n.Value)

	case InSet:
		w.ident(n.Field)
		w.b.WriteString(" IN (")
		for i, v := range n.Values {
			if i > 0 {
				w.b.WriteString(", ")
			}
			w.operand(v)
		}
		w.b.WriteString(")")

	case IsNull:
		w.ident(n.Field)
		if n.Negated {
			w.b.WriteString(" IS NOT NULL")
		} else {
			w.b.WriteString(" IS NULL")
		}

	case And:
		if nested {
			w.b.WriteString("(")
		}
		for i, t := range n.Terms {
			if i > 0 {
				w.b.WriteString(" AND ")
			}
			w.predicate(t, true)
		}
		if nested {
			w.b.WriteString(")")
		}

	case Or:
		if nested {
			w.b.WriteString("(")
		}
		for i, t := range n.Terms {
			if i > 0 {
				w.b.WriteString(" OR ")
			}
			w.predicate(t, true)
		}
		if nested {
			w.b.WriteString(")")
		}
	}
}
