package query

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/pantrydb/pantry/pkg/types"
)

// tokenKind classifies a notation token.
type tokenKind int

const (
	tokEOF tokenKind = iota
	tokField          // $name
	tokParam          // :name
	tokKeyword        // AND, OR, IN, LIKE, IS, NOT, NULL, ASC, DESC, TRUE, FALSE
	tokClause         // order:, limit:, offset:
	tokNumber
	tokString
	tokOp // = != <> < <= > >=
	tokLParen
	tokRParen
	tokComma
)

// token is one lexed unit with its byte offset in the notation.
type token struct {
	kind tokenKind
	text string // normalized: fields/params without sigil, keywords upper-cased
	val  any    // literal value for tokNumber/tokString
	pos  int
}

// keywords recognized case-insensitively.
var keywords = map[string]bool{
	"AND": true, "OR": true, "IN": true, "LIKE": true,
	"IS": true, "NOT": true, "NULL": true,
	"ASC": true, "DESC": true, "TRUE": true, "FALSE": true,
}

// clause markers: identifier immediately followed by a colon.
var clauses = map[string]bool{
	"ORDER": true, "LIMIT": true, "OFFSET": true,
}

// lexer scans a notation string into tokens.
type lexer struct {
	src string
	pos int
}

func compileErr(pos int, tok, msg string) *types.CompileError {
	return &types.CompileError{Pos: pos, Token: tok, Msg: msg}
}

func (l *lexer) peekByte() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) && (l.src[l.pos] == ' ' || l.src[l.pos] == '\t' || l.src[l.pos] == '\n' || l.src[l.pos] == '\r') {
		l.pos++
	}
}

func isIdentStart(b byte) bool {
	return b == '_' || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}

func isIdentByte(b byte) bool {
	return isIdentStart(b) || ('0' <= b && b <= '9')
}

func (l *lexer) scanIdent() string {
	start := l.pos
	for l.pos < len(l.src) && isIdentByte(l.src[l.pos]) {
		l.pos++
	}
	return l.src[start:l.pos]
}

// next returns the next token. Lexing errors are *types.CompileError.
func (l *lexer) next() (token, error) {
	l.skipSpace()
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, pos: l.pos}, nil
	}
	start := l.pos
	b := l.src[l.pos]

	switch {
	case b == '$':
		l.pos++
		if !isIdentStart(l.peekByte()) {
			return token{}, compileErr(start, "$", "expected field name after '$'")
		}
		return token{kind: tokField, text: l.scanIdent(), pos: start}, nil

	case b == ':':
		l.pos++
		if !isIdentStart(l.peekByte()) {
			return token{}, compileErr(start, ":", "expected parameter name after ':'")
		}
		return token{kind: tokParam, text: l.scanIdent(), pos: start}, nil

	case b == '(':
		l.pos++
		return token{kind: tokLParen, text: "(", pos: start}, nil
	case b == ')':
		l.pos++
		return token{kind: tokRParen, text: ")", pos: start}, nil
	case b == ',':
		l.pos++
		return token{kind: tokComma, text: ",", pos: start}, nil

	case b == '=':
		l.pos++
		return token{kind: tokOp, text: "=", pos: start}, nil
	case b == '!':
		l.pos++
		if l.peekByte() != '=' {
			return token{}, compileErr(start, "!", "expected '=' after '!'")
		}
		l.pos++
		return token{kind: tokOp, text: "<>", pos: start}, nil
	case b == '<':
		l.pos++
		switch l.peekByte() {
		case '=':
			l.pos++
			return token{kind: tokOp, text: "<=", pos: start}, nil
		case '>':
			l.pos++
			return token{kind: tokOp, text: "<>", pos: start}, nil
		}
		return token{kind: tokOp, text: "<", pos: start}, nil
	case b == '>':
		l.pos++
		if l.peekByte() == '=' {
			l.pos++
			return token{kind: tokOp, text: ">=", pos: start}, nil
		}
		return token{kind: tokOp, text: ">", pos: start}, nil

	case b == '\'':
		return l.scanString()

	case b == '-' || ('0' <= b && b <= '9'):
		return l.scanNumber()

	case isIdentStart(b):
		word := l.scanIdent()
		upper := strings.ToUpper(word)
		if clauses[upper] && l.peekByte() == ':' {
			l.pos++
			return token{kind: tokClause, text: upper, pos: start}, nil
		}
		if keywords[upper] {
			return token{kind: tokKeyword, text: upper, pos: start}, nil
		}
		return token{}, compileErr(start, word, "unexpected word; fields use '$name', parameters use ':name'")

	default:
		r := rune(b)
		if !unicode.IsPrint(r) {
			r = '?'
		}
		return token{}, compileErr(start, string(r), "unexpected character")
	}
}

// scanString reads a single-quoted literal; '' escapes a quote.
func (l *lexer) scanString() (token, error) {
	start := l.pos
	l.pos++ // opening quote
	var b strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == '\'' {
			if l.pos+1 < len(l.src) && l.src[l.pos+1] == '\'' {
				b.WriteByte('\'')
				l.pos += 2
				continue
			}
			l.pos++
			return token{kind: tokString, text: b.String(), val: b.String(), pos: start}, nil
		}
		b.WriteByte(c)
		l.pos++
	}
	return token{}, compileErr(start, "'", "unterminated string literal")
}

// scanNumber reads an integer or decimal literal.
func (l *lexer) scanNumber() (token, error) {
	start := l.pos
	if l.src[l.pos] == '-' {
		l.pos++
	}
	digits := 0
	float := false
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if '0' <= c && c <= '9' {
			digits++
			l.pos++
			continue
		}
		if c == '.' && !float {
			float = true
			l.pos++
			continue
		}
		break
	}
	text := l.src[start:l.pos]
	if digits == 0 {
		return token{}, compileErr(start, text, "malformed number")
	}
	if float {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return token{}, compileErr(start, text, "malformed number")
		}
		return token{kind: tokNumber, text: text, val: f, pos: start}, nil
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return token{}, compileErr(start, text, "malformed number")
	}
	return token{kind: tokNumber, text: text, val: n, pos: start}, nil
}
