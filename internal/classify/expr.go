package classify

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/roach88/synthase/internal/ir"
)

// SyntaxError reports a malformed evaluator expression.
type SyntaxError struct {
	Expr    string
	Offset  int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("evaluator %q: %s at offset %d", e.Expr, e.Message, e.Offset)
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokInt
	tokAnd
	tokOr
	tokNot
	tokTrue
	tokFalse
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// Parse compiles an evaluator such as "0 and (1 or not 2)" into an
// expression tree. Keywords are case-insensitive; "&&", "||" and "!" are
// accepted as aliases. An empty or blank source yields a nil Expr, which
// rules interpret as "all requirements".
//
//	or   := and ("or" and)*
//	and  := not ("and" not)*
//	not  := "not" not | atom
//	atom := INT | "true" | "false" | "(" or ")"
func Parse(src string) (ir.Expr, error) {
	if strings.TrimSpace(src) == "" {
		return nil, nil
	}
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, toks: toks}
	e, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, p.errorf(tok, "unexpected %q", tok.text)
	}
	return e, nil
}

// MustParse is like Parse but panics on error.
// Use only in tests or for built-in expressions.
func MustParse(src string) ir.Expr {
	e, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return e
}

func tokenize(src string) ([]token, error) {
	var toks []token
	for i := 0; i < len(src); {
		c := rune(src[i])
		switch {
		case unicode.IsSpace(c):
			i++
		case c == '(':
			toks = append(toks, token{tokLParen, "(", i})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, ")", i})
			i++
		case c == '!':
			toks = append(toks, token{tokNot, "!", i})
			i++
		case strings.HasPrefix(src[i:], "&&"):
			toks = append(toks, token{tokAnd, "&&", i})
			i += 2
		case strings.HasPrefix(src[i:], "||"):
			toks = append(toks, token{tokOr, "||", i})
			i += 2
		case c >= '0' && c <= '9':
			j := i
			for j < len(src) && src[j] >= '0' && src[j] <= '9' {
				j++
			}
			toks = append(toks, token{tokInt, src[i:j], i})
			i = j
		case unicode.IsLetter(c):
			j := i
			for j < len(src) && unicode.IsLetter(rune(src[j])) {
				j++
			}
			word := src[i:j]
			kind, ok := keywords[strings.ToLower(word)]
			if !ok {
				return nil, &SyntaxError{Expr: src, Offset: i, Message: fmt.Sprintf("unknown word %q", word)}
			}
			toks = append(toks, token{kind, word, i})
			i = j
		default:
			return nil, &SyntaxError{Expr: src, Offset: i, Message: fmt.Sprintf("unexpected character %q", c)}
		}
	}
	return append(toks, token{tokEOF, "end of input", len(src)}), nil
}

var keywords = map[string]tokenKind{
	"and":   tokAnd,
	"or":    tokOr,
	"not":   tokNot,
	"true":  tokTrue,
	"false": tokFalse,
}

type parser struct {
	src  string
	toks []token
	pos  int
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) next() token {
	tok := p.toks[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) errorf(tok token, format string, args ...any) error {
	return &SyntaxError{Expr: p.src, Offset: tok.pos, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) parseOr() (ir.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOr {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = ir.Or{L: left, R: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (ir.Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokAnd {
		p.next()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = ir.And{L: left, R: right}
	}
	return left, nil
}

func (p *parser) parseNot() (ir.Expr, error) {
	if p.peek().kind == tokNot {
		p.next()
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return ir.Not{X: x}, nil
	}
	return p.parseAtom()
}

func (p *parser) parseAtom() (ir.Expr, error) {
	tok := p.next()
	switch tok.kind {
	case tokInt:
		n, err := strconv.Atoi(tok.text)
		if err != nil {
			return nil, p.errorf(tok, "index %s out of range", tok.text)
		}
		return ir.Term(n), nil
	case tokTrue:
		return ir.Lit(true), nil
	case tokFalse:
		return ir.Lit(false), nil
	case tokLParen:
		e, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, p.errorf(closing, "expected \")\", got %q", closing.text)
		}
		return e, nil
	default:
		return nil, p.errorf(tok, "expected index, \"(\" or \"not\", got %q", tok.text)
	}
}
