package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse parses the query syntax:
//
//	*:*                   every document
//	field:value           exact match (value may be "quoted")
//	field:[lo TO hi]      inclusive range, * for an open bound
//	clause AND clause     conjunction
func Parse(s string) (Query, error) {
	p := &parser{in: s}
	var clauses []Query
	for {
		p.skipSpace()
		if p.eof() {
			break
		}
		if len(clauses) > 0 {
			if !p.consume("AND") && !p.consume("&&") {
				return nil, p.errorf("expected AND")
			}
			p.skipSpace()
		}
		q, err := p.clause()
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, q)
	}

	switch len(clauses) {
	case 0:
		return nil, fmt.Errorf("%w: empty query", ErrInvalidQuery)
	case 1:
		return clauses[0], nil
	default:
		return And(clauses), nil
	}
}

type parser struct {
	in  string
	pos int
}

func (p *parser) eof() bool { return p.pos >= len(p.in) }

func (p *parser) peek() byte { return p.in[p.pos] }

func (p *parser) skipSpace() {
	for !p.eof() && isSpace(p.peek()) {
		p.pos++
	}
}

func (p *parser) consume(tok string) bool {
	if !strings.HasPrefix(p.in[p.pos:], tok) {
		return false
	}
	end := p.pos + len(tok)
	if end < len(p.in) && !isSpace(p.in[end]) {
		return false
	}
	p.pos = end
	return true
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s at offset %d in %q", ErrInvalidQuery, fmt.Sprintf(format, args...), p.pos, p.in)
}

func (p *parser) clause() (Query, error) {
	if p.consume("*:*") {
		return MatchAll{}, nil
	}

	start := p.pos
	for !p.eof() && p.peek() != ':' && !isSpace(p.peek()) {
		p.pos++
	}
	field := p.in[start:p.pos]
	if field == "" || p.eof() || p.peek() != ':' {
		return nil, p.errorf("expected field:value")
	}
	p.pos++ // ':'

	if p.eof() {
		return nil, p.errorf("missing value for field %q", field)
	}

	if p.peek() == '[' {
		p.pos++
		p.skipSpace()
		lo, err := p.value(true)
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if !p.consume("TO") {
			return nil, p.errorf("expected TO")
		}
		p.skipSpace()
		hi, err := p.value(true)
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.eof() || p.peek() != ']' {
			return nil, p.errorf("expected ]")
		}
		p.pos++
		return Range{Field: field, Lo: lo, Hi: hi}, nil
	}

	v, err := p.value(false)
	if err != nil {
		return nil, err
	}
	return Term{Field: field, Value: v}, nil
}

// value reads a quoted or bare literal. Inside a range a bare * is an open
// bound and ] terminates the literal.
func (p *parser) value(inRange bool) (string, error) {
	if p.eof() {
		return "", p.errorf("missing value")
	}

	if p.peek() == '"' {
		start := p.pos
		p.pos++
		for !p.eof() && p.peek() != '"' {
			if p.peek() == '\\' {
				p.pos++
			}
			p.pos++
		}
		if p.eof() {
			return "", p.errorf("unterminated quote")
		}
		p.pos++
		s, err := strconv.Unquote(p.in[start:p.pos])
		if err != nil {
			return "", p.errorf("bad quoted value")
		}
		return s, nil
	}

	start := p.pos
	for !p.eof() && !isSpace(p.peek()) && !(inRange && p.peek() == ']') {
		p.pos++
	}
	v := p.in[start:p.pos]
	if v == "" {
		return "", p.errorf("missing value")
	}
	if inRange && v == "*" {
		return "", nil
	}
	return v, nil
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
