// Package query implements the compact query notation: a lexer and
// parser for `$field`/`:param` expressions, a dialect-neutral Plan, and
// a closed set of dialect renderers producing parameterized SQL.
// See docs/ARCHITECTURE.md § Query Compiler.
package query

import (
	"fmt"
	"strings"
)

// Kind selects the statement shape a Plan renders to.
type Kind int

// Statement kinds.
const (
	KindSelect Kind = iota
	KindInsert
	KindUpdate
	KindDelete
)

// CmpOp is a comparison operator in a predicate term.
type CmpOp string

// Comparison operators.
const (
	OpEq   CmpOp = "="
	OpNe   CmpOp = "<>"
	OpLt   CmpOp = "<"
	OpLe   CmpOp = "<="
	OpGt   CmpOp = ">"
	OpGe   CmpOp = ">="
	OpLike CmpOp = "LIKE"
)

// Ordering reports whether the operator is an ordering comparison.
func (op CmpOp) Ordering() bool {
	switch op {
	case OpLt, OpLe, OpGt, OpGe:
		return true
	}
	return false
}

// Operand is a value position in a plan: either a literal captured from
// the notation or a named parameter bound at execution time.
type Operand interface {
	fingerprint(b *strings.Builder)
}

// Literal is a constant value from the notation text. It still renders
// as a placeholder, so rendered statements never embed literal values.
type Literal struct {
	Val any
}

func (l Literal) fingerprint(b *strings.Builder) {
	fmt.Fprintf(b, "lit(%T:%v)", l.Val, l.Val)
}

// Param is a named `:param` placeholder resolved at execution time.
type Param struct {
	Name string
}

func (p Param) fingerprint(b *strings.Builder) {
	b.WriteString("par(")
	b.WriteString(p.Name)
	b.WriteString(")")
}

// Predicate is a node of the dialect-neutral predicate tree.
type Predicate interface {
	fingerprint(b *strings.Builder)
}

// Compare is `$field OP operand`.
type Compare struct {
	Field string
	Op    CmpOp
	Value Operand
}

func (c Compare) fingerprint(b *strings.Builder) {
	b.WriteString("cmp(")
	b.WriteString(c.Field)
	b.WriteString(string(c.Op))
	c.Value.fingerprint(b)
	b.WriteString(")")
}

// InSet is `$field IN (operand, ...)`.
type InSet struct {
	Field  string
	Values []Operand
}

func (s InSet) fingerprint(b *strings.Builder) {
	b.WriteString("in(")
	b.WriteString(s.Field)
	for _, v := range s.Values {
		b.WriteString(",")
		v.fingerprint(b)
	}
	b.WriteString(")")
}

// IsNull is `$field IS [NOT] NULL`.
type IsNull struct {
	Field   string
	Negated bool
}

func (n IsNull) fingerprint(b *strings.Builder) {
	fmt.Fprintf(b, "null(%s,%t)", n.Field, n.Negated)
}

// And is a conjunction of two or more terms.
type And struct {
	Terms []Predicate
}

func (a And) fingerprint(b *strings.Builder) {
	b.WriteString("and(")
	for _, t := range a.Terms {
		t.fingerprint(b)
		b.WriteString(";")
	}
	b.WriteString(")")
}

// Or is a disjunction of two or more terms.
type Or struct {
	Terms []Predicate
}

func (o Or) fingerprint(b *strings.Builder) {
	b.WriteString("or(")
	for _, t := range o.Terms {
		t.fingerprint(b)
		b.WriteString(";")
	}
	b.WriteString(")")
}

// OrderTerm is one `$field [asc|desc]` pair.
type OrderTerm struct {
	Field string
	Desc  bool
}

// Plan is the immutable, dialect-neutral form of a compiled statement.
// A plan is built once by a compiler call (or by the pipeline for
// insert/update/delete shapes) and consumed by a renderer; nothing
// mutates it afterwards.
type Plan struct {
	Kind    Kind
	Table   string
	Columns []string  // select list, or insert/update column list
	Values  []Operand // insert/update values aligned with Columns
	Where   Predicate // nil when absent
	Order   []OrderTerm
	Limit   Operand // nil when absent
	Offset  Operand // nil when absent
}

// Fingerprint returns a deterministic identity for the plan shape, used
// with the dialect as the statement cache key.
func (p *Plan) Fingerprint() string {
	var b strings.Builder
	fmt.Fprintf(&b, "k%d|t%s|c%s|", p.Kind, p.Table, strings.Join(p.Columns, ","))
	for _, v := range p.Values {
		v.fingerprint(&b)
		b.WriteString(";")
	}
	b.WriteString("|w")
	if p.Where != nil {
		p.Where.fingerprint(&b)
	}
	b.WriteString("|o")
	for _, o := range p.Order {
		fmt.Fprintf(&b, "%s:%t,", o.Field, o.Desc)
	}
	b.WriteString("|l")
	if p.Limit != nil {
		p.Limit.fingerprint(&b)
	}
	b.WriteString("|f")
	if p.Offset != nil {
		p.Offset.fingerprint(&b)
	}
	return b.String()
}
