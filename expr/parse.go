package expr

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse parses expression text (the content between ${ and }) into an
// AST.
func Parse(src string) (Node, error) {
	p := &parser{src: src}
	p.ws()
	n, err := p.ternary()
	if err != nil {
		return nil, err
	}
	p.ws()
	if !p.done() {
		return nil, p.errf("unexpected '%s'", p.src[p.pos:])
	}
	return n, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) done() bool {
	return len(p.src) <= p.pos
}

func (p *parser) errf(format string, args ...interface{}) *ParseError {
	msg := format
	if 0 < len(args) {
		msg = fmt.Sprintf(format, args...)
	}
	return &ParseError{Offset: p.pos, Msg: msg}
}

func (p *parser) ws() {
	for !p.done() && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t' || p.src[p.pos] == '\n' || p.src[p.pos] == '\r') {
		p.pos++
	}
}

func (p *parser) peek() byte {
	if p.done() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) eat(s string) bool {
	if strings.HasPrefix(p.src[p.pos:], s) {
		p.pos += len(s)
		return true
	}
	return false
}

// ternary := equality ('?' ternary ':' ternary)?
func (p *parser) ternary() (Node, error) {
	cond, err := p.equality()
	if err != nil {
		return nil, err
	}
	p.ws()
	if !p.eat("?") {
		return cond, nil
	}
	p.ws()
	then, err := p.ternary()
	if err != nil {
		return nil, err
	}
	p.ws()
	if !p.eat(":") {
		return nil, p.errf("expected ':' in ternary")
	}
	p.ws()
	els, err := p.ternary()
	if err != nil {
		return nil, err
	}
	return &Cond{If: cond, Then: then, Else: els}, nil
}

// equality := primary ('==' primary)?
func (p *parser) equality() (Node, error) {
	left, err := p.primary()
	if err != nil {
		return nil, err
	}
	p.ws()
	if !p.eat("==") {
		return left, nil
	}
	p.ws()
	right, err := p.primary()
	if err != nil {
		return nil, err
	}
	return &Eq{Left: left, Right: right}, nil
}

func (p *parser) primary() (Node, error) {
	p.ws()
	if p.done() {
		return nil, p.errf("unexpected end of expression")
	}
	switch c := p.peek(); {
	case c == '(':
		p.pos++
		n, err := p.ternary()
		if err != nil {
			return nil, err
		}
		p.ws()
		if !p.eat(")") {
			return nil, p.errf("expected ')'")
		}
		return n, nil
	case c == '"':
		s, err := p.stringLit()
		if err != nil {
			return nil, err
		}
		return &Lit{Val: s}, nil
	case c == '-' || isDigit(c):
		return p.numberLit()
	case isIdentStart(c):
		return p.word()
	default:
		return nil, p.errf("unexpected character %q", string(c))
	}
}

func (p *parser) stringLit() (string, error) {
	// Opening quote.
	p.pos++
	var buf strings.Builder
	for {
		if p.done() {
			return "", p.errf("unterminated string")
		}
		c := p.src[p.pos]
		p.pos++
		switch c {
		case '"':
			return buf.String(), nil
		case '\\':
			if p.done() {
				return "", p.errf("unterminated escape")
			}
			e := p.src[p.pos]
			p.pos++
			switch e {
			case '"', '\\', '/':
				buf.WriteByte(e)
			case 'n':
				buf.WriteByte('\n')
			case 't':
				buf.WriteByte('\t')
			case 'r':
				buf.WriteByte('\r')
			default:
				return "", p.errf("bad escape '\\%s'", string(e))
			}
		default:
			buf.WriteByte(c)
		}
	}
}

func (p *parser) numberLit() (Node, error) {
	start := p.pos
	if p.peek() == '-' {
		p.pos++
	}
	for !p.done() && (isDigit(p.peek()) || p.peek() == '.') {
		p.pos++
	}
	text := p.src[start:p.pos]
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		p.pos = start
		return nil, p.errf("bad number '%s'", text)
	}
	return &Lit{Val: f}, nil
}

// word parses true/false/null or a path reference (with an optional
// ||default).
func (p *parser) word() (Node, error) {
	start := p.pos
	for !p.done() && isIdent(p.peek()) {
		p.pos++
	}
	switch p.src[start:p.pos] {
	case "true":
		return &Lit{Val: true}, nil
	case "false":
		return &Lit{Val: false}, nil
	case "null":
		return &Lit{Val: nil}, nil
	}

	// Keep going: .ident and [index] path segments.
	for !p.done() {
		if p.peek() == '.' {
			p.pos++
			if p.done() || !isIdentStart(p.peek()) {
				return nil, p.errf("expected identifier after '.'")
			}
			for !p.done() && isIdent(p.peek()) {
				p.pos++
			}
			continue
		}
		if p.peek() == '[' {
			p.pos++
			if p.done() || !isDigit(p.peek()) {
				return nil, p.errf("expected index after '['")
			}
			for !p.done() && isDigit(p.peek()) {
				p.pos++
			}
			if !p.eat("]") {
				return nil, p.errf("expected ']'")
			}
			continue
		}
		break
	}
	ref := &Ref{Path: p.src[start:p.pos]}

	save := p.pos
	p.ws()
	if p.eat("||") {
		p.ws()
		def, err := p.defaultLit()
		if err != nil {
			return nil, err
		}
		ref.Default = def
	} else {
		p.pos = save
	}

	return ref, nil
}

// defaultLit parses the literal after '||'.  A bare token that isn't
// a number or keyword is taken as a string, as in @{path||Guest}.
func (p *parser) defaultLit() (*Lit, error) {
	if p.done() {
		return nil, p.errf("missing default after '||'")
	}
	if p.peek() == '"' {
		s, err := p.stringLit()
		if err != nil {
			return nil, err
		}
		return &Lit{Val: s}, nil
	}
	start := p.pos
	for !p.done() && !isDelim(p.peek()) {
		p.pos++
	}
	text := strings.TrimSpace(p.src[start:p.pos])
	if text == "" {
		return nil, p.errf("missing default after '||'")
	}
	switch text {
	case "true":
		return &Lit{Val: true}, nil
	case "false":
		return &Lit{Val: false}, nil
	case "null":
		return &Lit{Val: nil}, nil
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return &Lit{Val: f}, nil
	}
	return &Lit{Val: text}, nil
}

func isDelim(c byte) bool {
	switch c {
	case '?', ':', ')', '}':
		return true
	}
	return false
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isIdent(c byte) bool {
	return isIdentStart(c) || isDigit(c) || c == '-'
}
