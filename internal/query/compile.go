package query

import (
	"fmt"
	"sort"

	"github.com/pantrydb/pantry/pkg/types"
)

// Compile parses notation against the declared columns of table and the
// caller-declared parameter names, producing a select Plan. Every
// `$field` must name a declared column and every `:param` must appear in
// paramNames; violations are *types.CompileError carrying the offending
// token and position. Declared parameters the notation never uses are
// returned as warnings, not errors.
//
// AND binds tighter than OR; parentheses group. An empty notation
// selects every row.
func Compile(schema types.SchemaProvider, table, notation string, paramNames []string) (*Plan, []string, error) {
	cols, err := schema.Columns(table)
	if err != nil {
		return nil, nil, err
	}

	p := &parser{
		lex:     lexer{src: notation},
		table:   table,
		columns: make(map[string]types.Column, len(cols)),
		params:  make(map[string]bool, len(paramNames)),
		used:    make(map[string]bool),
	}
	for _, c := range cols {
		p.columns[c.Name] = c
	}
	for _, name := range paramNames {
		p.params[name] = true
	}
	if err := p.advance(); err != nil {
		return nil, nil, err
	}

	plan := &Plan{Kind: KindSelect, Table: table}
	for _, c := range cols {
		plan.Columns = append(plan.Columns, c.Name)
	}

	if p.tok.kind != tokEOF && p.tok.kind != tokClause {
		pred, err := p.parseOr()
		if err != nil {
			return nil, nil, err
		}
		plan.Where = pred
	}
	if err := p.parseClauses(plan); err != nil {
		return nil, nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, nil, compileErr(p.tok.pos, p.tok.text, "unexpected trailing input")
	}

	var warnings []string
	for name := range p.params {
		if !p.used[name] {
			warnings = append(warnings, fmt.Sprintf("parameter %q declared but not used", name))
		}
	}
	sort.Strings(warnings)
	return plan, warnings, nil
}

// parser is a recursive-descent parser over the lexer's token stream.
// Field resolution, parameter checking, and operand type checks run
// inline so errors carry accurate positions.
type parser struct {
	lex     lexer
	tok     token
	table   string
	columns map[string]types.Column
	params  map[string]bool
	used    map[string]bool
}

func (p *parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) keyword(word string) bool {
	return p.tok.kind == tokKeyword && p.tok.text == word
}

// resolveField checks that the current tokField names a declared column.
func (p *parser) resolveField() (types.Column, error) {
	name := p.tok.text
	col, ok := p.columns[name]
	if !ok {
		return types.Column{}, compileErr(p.tok.pos, "$"+name,
			fmt.Sprintf("unknown field %q on table %q", name, p.table))
	}
	return col, nil
}

func (p *parser) parseOr() (Predicate, error) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	terms := []Predicate{first}
	for p.keyword("OR") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		next, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		terms = append(terms, next)
	}
	if len(terms) == 1 {
		return first, nil
	}
	return Or{Terms: terms}, nil
}

func (p *parser) parseAnd() (Predicate, error) {
	first, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	terms := []Predicate{first}
	for p.keyword("AND") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		next, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		terms = append(terms, next)
	}
	if len(terms) == 1 {
		return first, nil
	}
	return And{Terms: terms}, nil
}

func (p *parser) parseTerm() (Predicate, error) {
	if p.tok.kind == tokLParen {
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.tok.kind != tokRParen {
			return nil, compileErr(p.tok.pos, p.tok.text, "expected ')'")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return inner, nil
	}
	if p.tok.kind != tokField {
		return nil, compileErr(p.tok.pos, p.tok.text, "expected '$field' or '('")
	}
	col, err := p.resolveField()
	if err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	switch {
	case p.tok.kind == tokOp:
		return p.parseCompare(col)
	case p.keyword("LIKE"):
		return p.parseLike(col)
	case p.keyword("IN"):
		return p.parseInSet(col)
	case p.keyword("IS"):
		return p.parseIsNull(col)
	default:
		return nil, compileErr(p.tok.pos, p.tok.text, "expected operator after field")
	}
}

func (p *parser) parseCompare(col types.Column) (Predicate, error) {
	op := CmpOp(p.tok.text)
	opPos, opText := p.tok.pos, p.tok.text
	if err := p.advance(); err != nil {
		return nil, err
	}
	if op.Ordering() && !col.Type.Comparable() {
		return nil, compileErr(opPos, opText,
			fmt.Sprintf("operator %q not applicable to %s column %q", opText, col.Type, col.Name))
	}
	val, err := p.parseOperand(col)
	if err != nil {
		return nil, err
	}
	return Compare{Field: col.Name, Op: op, Value: val}, nil
}

func (p *parser) parseLike(col types.Column) (Predicate, error) {
	if col.Type != types.TypeText {
		return nil, compileErr(p.tok.pos, p.tok.text,
			fmt.Sprintf("LIKE requires a text column, %q is %s", col.Name, col.Type))
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	val, err := p.parseOperand(col)
	if err != nil {
		return nil, err
	}
	return Compare{Field: col.Name, Op: OpLike, Value: val}, nil
}

func (p *parser) parseInSet(col types.Column) (Predicate, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.kind != tokLParen {
		return nil, compileErr(p.tok.pos, p.tok.text, "expected '(' after IN")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	var vals []Operand
	for {
		v, err := p.parseOperand(col)
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
		if p.tok.kind == tokComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if p.tok.kind != tokRParen {
		return nil, compileErr(p.tok.pos, p.tok.text, "expected ')' to close IN set")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return InSet{Field: col.Name, Values: vals}, nil
}

func (p *parser) parseIsNull(col types.Column) (Predicate, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	negated := false
	if p.keyword("NOT") {
		negated = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if !p.keyword("NULL") {
		return nil, compileErr(p.tok.pos, p.tok.text, "expected NULL after IS")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return IsNull{Field: col.Name, Negated: negated}, nil
}

// parseOperand reads a literal or parameter and checks literal values
// against the column's semantic type. Parameters are checked for
// declaredness only; their values are type-checked by the adapter at
// execution time.
func (p *parser) parseOperand(col types.Column) (Operand, error) {
	tok := p.tok
	switch tok.kind {
	case tokParam:
		if !p.params[tok.text] {
			return nil, compileErr(tok.pos, ":"+tok.text,
				fmt.Sprintf("parameter %q not in declared parameter set", tok.text))
		}
		p.used[tok.text] = true
		if err := p.advance(); err != nil {
			return nil, err
		}
		return Param{Name: tok.text}, nil

	case tokNumber, tokString:
		if err := checkLiteral(col, tok); err != nil {
			return nil, err
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return Literal{Val: tok.val}, nil

	case tokKeyword:
		if tok.text == "TRUE" || tok.text == "FALSE" {
			if col.Type != types.TypeBoolean {
				return nil, compileErr(tok.pos, tok.text,
					fmt.Sprintf("boolean literal not compatible with %s column %q", col.Type, col.Name))
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
			return Literal{Val: tok.text == "TRUE"}, nil
		}
	}
	return nil, compileErr(tok.pos, tok.text, "expected literal or ':param'")
}

// checkLiteral rejects literals whose Go type cannot serve the column's
// semantic type.
func checkLiteral(col types.Column, tok token) error {
	compatible := false
	switch tok.val.(type) {
	case int64:
		compatible = col.Type == types.TypeInteger || col.Type == types.TypeReal
	case float64:
		compatible = col.Type == types.TypeReal
	case string:
		compatible = col.Type == types.TypeText || col.Type == types.TypeTimestamp
	}
	if !compatible {
		return compileErr(tok.pos, tok.text,
			fmt.Sprintf("literal not compatible with %s column %q", col.Type, col.Name))
	}
	return nil
}

// parseClauses reads the optional trailing order:, limit:, offset:
// clauses in any order, each at most once.
func (p *parser) parseClauses(plan *Plan) error {
	seen := make(map[string]bool)
	for p.tok.kind == tokClause {
		name := p.tok.text
		if seen[name] {
			return compileErr(p.tok.pos, p.tok.text, "duplicate "+name+" clause")
		}
		seen[name] = true
		if err := p.advance(); err != nil {
			return err
		}
		switch name {
		case "ORDER":
			if err := p.parseOrderList(plan); err != nil {
				return err
			}
		case "LIMIT":
			op, err := p.parseBound()
			if err != nil {
				return err
			}
			plan.Limit = op
		case "OFFSET":
			op, err := p.parseBound()
			if err != nil {
				return err
			}
			plan.Offset = op
		}
	}
	return nil
}

func (p *parser) parseOrderList(plan *Plan) error {
	for {
		if p.tok.kind != tokField {
			return compileErr(p.tok.pos, p.tok.text, "expected '$field' in order clause")
		}
		col, err := p.resolveField()
		if err != nil {
			return err
		}
		if err := p.advance(); err != nil {
			return err
		}
		term := OrderTerm{Field: col.Name}
		if p.keyword("ASC") || p.keyword("DESC") {
			term.Desc = p.tok.text == "DESC"
			if err := p.advance(); err != nil {
				return err
			}
		}
		plan.Order = append(plan.Order, term)
		if p.tok.kind == tokComma {
			if err := p.advance(); err != nil {
				return err
			}
			continue
		}
		return nil
	}
}

// parseBound reads a limit/offset operand: a non-negative integer
// literal or a parameter.
func (p *parser) parseBound() (Operand, error) {
	tok := p.tok
	switch tok.kind {
	case tokParam:
		if !p.params[tok.text] {
			return nil, compileErr(tok.pos, ":"+tok.text,
				fmt.Sprintf("parameter %q not in declared parameter set", tok.text))
		}
		p.used[tok.text] = true
		if err := p.advance(); err != nil {
			return nil, err
		}
		return Param{Name: tok.text}, nil
	case tokNumber:
		n, ok := tok.val.(int64)
		if !ok || n < 0 {
			return nil, compileErr(tok.pos, tok.text, "expected a non-negative integer")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return Literal{Val: n}, nil
	}
	return nil, compileErr(tok.pos, tok.text, "expected integer or ':param'")
}
