package registry

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type ExprKind int

const (
	ExprNamed ExprKind = iota
	ExprCompact
	ExprVec
	ExprOption
	ExprTuple
	ExprArray
)

var ErrTypeSyntax = errors.New("registry: invalid type expression")

// TypeExpr is a parsed type reference such as Vec<(AccountId, Compact<u32>)>.
type TypeExpr struct {
	Kind  ExprKind
	Name  string
	Elem  *TypeExpr
	Items []*TypeExpr
	Len   int
}

func (e *TypeExpr) String() string {
	switch e.Kind {
	case ExprCompact:
		return "Compact<" + e.Elem.String() + ">"
	case ExprVec:
		return "Vec<" + e.Elem.String() + ">"
	case ExprOption:
		return "Option<" + e.Elem.String() + ">"
	case ExprArray:
		return fmt.Sprintf("[%s; %d]", e.Elem.String(), e.Len)
	case ExprTuple:
		parts := make([]string, len(e.Items))
		for i, it := range e.Items {
			parts[i] = it.String()
		}
		return "(" + strings.Join(parts, ", ") + ")"
	default:
		return e.Name
	}
}

// IsByteSeq reports whether e is a Vec<u8> or [u8; N].
func (e *TypeExpr) IsByteSeq() bool {
	return (e.Kind == ExprVec || e.Kind == ExprArray) && e.Elem.Kind == ExprNamed && e.Elem.Name == "u8"
}

// walk calls fn for every named leaf in e.
func (e *TypeExpr) walk(fn func(name string)) {
	switch e.Kind {
	case ExprNamed:
		fn(e.Name)
	case ExprTuple:
		for _, it := range e.Items {
			it.walk(fn)
		}
	default:
		e.Elem.walk(fn)
	}
}

// ParseType parses a type expression.
func ParseType(s string) (*TypeExpr, error) {
	p := &exprParser{src: s}
	e, err := p.parse()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, p.errorf("unexpected %q", p.src[p.pos:])
	}
	return e, nil
}

type exprParser struct {
	src string
	pos int
}

func (p *exprParser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %q at %d: %s", ErrTypeSyntax, p.src, p.pos, fmt.Sprintf(format, args...))
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *exprParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *exprParser) expect(c byte) error {
	if p.peek() != c {
		return p.errorf("expected %q", c)
	}
	p.pos++
	return nil
}

func isIdentByte(c byte) bool {
	return c == '_' || c == ':' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func (p *exprParser) parse() (*TypeExpr, error) {
	switch p.peek() {
	case 0:
		return nil, p.errorf("unexpected end")
	case '(':
		return p.parseTuple()
	case '[':
		return p.parseArray()
	}

	start := p.pos
	for p.pos < len(p.src) && isIdentByte(p.src[p.pos]) {
		p.pos++
	}
	if start == p.pos {
		return nil, p.errorf("expected type name")
	}
	name := strings.TrimPrefix(p.src[start:p.pos], "T::")
	if p.peek() != '<' {
		return &TypeExpr{Kind: ExprNamed, Name: name}, nil
	}
	p.pos++

	var args []*TypeExpr
	for {
		arg, err := p.parse()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.peek() == ',' {
			p.pos++
			continue
		}
		if err := p.expect('>'); err != nil {
			return nil, err
		}
		break
	}

	switch name {
	case "Compact", "Vec", "Option", "Box":
		if len(args) != 1 {
			return nil, p.errorf("%s takes one argument", name)
		}
	case "BoundedVec", "WeakBoundedVec":
		name = "Vec"
	default:
		return nil, p.errorf("unsupported generic %s", name)
	}
	switch name {
	case "Compact":
		return &TypeExpr{Kind: ExprCompact, Elem: args[0]}, nil
	case "Vec":
		return &TypeExpr{Kind: ExprVec, Elem: args[0]}, nil
	case "Option":
		return &TypeExpr{Kind: ExprOption, Elem: args[0]}, nil
	default:
		return args[0], nil
	}
}

func (p *exprParser) parseTuple() (*TypeExpr, error) {
	p.pos++
	out := &TypeExpr{Kind: ExprTuple}
	if p.peek() == ')' {
		p.pos++
		return out, nil
	}
	for {
		item, err := p.parse()
		if err != nil {
			return nil, err
		}
		out.Items = append(out.Items, item)
		if p.peek() == ',' {
			p.pos++
			continue
		}
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		return out, nil
	}
}

func (p *exprParser) parseArray() (*TypeExpr, error) {
	p.pos++
	elem, err := p.parse()
	if err != nil {
		return nil, err
	}
	if err := p.expect(';'); err != nil {
		return nil, err
	}
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		p.pos++
	}
	n, err := strconv.Atoi(p.src[start:p.pos])
	if err != nil || n <= 0 {
		return nil, p.errorf("invalid array length")
	}
	if err := p.expect(']'); err != nil {
		return nil, err
	}
	return &TypeExpr{Kind: ExprArray, Elem: elem, Len: n}, nil
}
