package rate

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse turns a rate formula into an expression tree of Ident leaves.
// Accepted grammar:
//
//	expr    = term { ("+"|"-") term }
//	term    = power { ("*"|"/") power }
//	power   = unary [ ("^"|"**") power ]
//	unary   = "-" unary | primary
//	primary = number | name | name "(" expr { "," expr } ")" | "(" expr ")"
//
// Numeric literals may carry a trailing Fortran "d0" or C "f" suffix, which
// is dropped.
func Parse(src string) (Expr, error) {
	p := &parser{src: src}
	p.skip()
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.src) {
		return nil, fmt.Errorf("unexpected %q at offset %d", p.src[p.pos], p.pos)
	}
	return e, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) skip() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) accept(c byte) bool {
	if p.peek() == c {
		p.pos++
		p.skip()
		return true
	}
	return false
}

func (p *parser) parseExpr() (Expr, error) {
	x, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek()
		if op != '+' && op != '-' {
			return x, nil
		}
		p.pos++
		p.skip()
		y, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		x = Binary{Op: op, X: x, Y: y}
	}
}

func (p *parser) parseTerm() (Expr, error) {
	x, err := p.parsePower()
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek()
		if op == '*' && p.pos+1 < len(p.src) && p.src[p.pos+1] == '*' {
			return x, nil // '**' belongs to parsePower
		}
		if op != '*' && op != '/' {
			return x, nil
		}
		p.pos++
		p.skip()
		y, err := p.parsePower()
		if err != nil {
			return nil, err
		}
		x = Binary{Op: op, X: x, Y: y}
	}
}

func (p *parser) parsePower() (Expr, error) {
	x, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if p.accept('^') {
		y, err := p.parsePower()
		if err != nil {
			return nil, err
		}
		return Binary{Op: '^', X: x, Y: y}, nil
	}
	if strings.HasPrefix(p.src[p.pos:], "**") {
		p.pos += 2
		p.skip()
		y, err := p.parsePower()
		if err != nil {
			return nil, err
		}
		return Binary{Op: '^', X: x, Y: y}, nil
	}
	return x, nil
}

func (p *parser) parseUnary() (Expr, error) {
	if p.accept('-') {
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return Unary{X: x}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expr, error) {
	c := p.peek()
	switch {
	case c == '(':
		p.pos++
		p.skip()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if !p.accept(')') {
			return nil, fmt.Errorf("missing ')' at offset %d", p.pos)
		}
		return e, nil
	case c >= '0' && c <= '9' || c == '.':
		return p.parseNumber()
	case isNameStart(c):
		return p.parseNameOrCall()
	case c == 0:
		return nil, fmt.Errorf("unexpected end of expression")
	default:
		return nil, fmt.Errorf("unexpected %q at offset %d", c, p.pos)
	}
}

func (p *parser) parseNumber() (Expr, error) {
	start := p.pos
	for p.pos < len(p.src) && (isDigit(p.src[p.pos]) || p.src[p.pos] == '.') {
		p.pos++
	}
	// exponent part: 1e-3, 2.5E4
	if p.pos < len(p.src) && (p.src[p.pos] == 'e' || p.src[p.pos] == 'E') {
		mark := p.pos
		p.pos++
		if p.pos < len(p.src) && (p.src[p.pos] == '+' || p.src[p.pos] == '-') {
			p.pos++
		}
		if p.pos < len(p.src) && isDigit(p.src[p.pos]) {
			for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
				p.pos++
			}
		} else {
			p.pos = mark
		}
	}
	text := p.src[start:p.pos]
	// host-language literal suffixes: Fortran double ("1.0d0") and C float ("1.0f")
	if strings.HasPrefix(p.src[p.pos:], "d0") {
		p.pos += 2
	} else if p.peek() == 'f' {
		p.pos++
	}
	p.skip()
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, fmt.Errorf("bad number %q at offset %d", text, start)
	}
	return Number{Value: v}, nil
}

func (p *parser) parseNameOrCall() (Expr, error) {
	start := p.pos
	for p.pos < len(p.src) && isNameChar(p.src[p.pos]) {
		p.pos++
	}
	name := p.src[start:p.pos]
	p.skip()
	if !p.accept('(') {
		return Ident{Name: name}, nil
	}
	var args []Expr
	for {
		a, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		if p.accept(',') {
			continue
		}
		if p.accept(')') {
			return Call{Name: name, Args: args}, nil
		}
		return nil, fmt.Errorf("missing ')' at offset %d", p.pos)
	}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isNameStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isNameChar(c byte) bool { return isNameStart(c) || isDigit(c) }
