package expr

import (
	"fmt"
	"strings"
)

var binaryPrec = map[string]int{
	"??": 1,
	"||": 2,
	"&&": 3,
	"==": 4, "!=": 4, "===": 4, "!==": 4,
	"<": 5, "<=": 5, ">": 5, ">=": 5,
	"+": 6, "-": 6,
	"*": 7, "/": 7, "%": 7,
}

type parser struct {
	lx  lexer
	tok token

	// allowAssign enables assignment expressions (event handlers only).
	allowAssign bool
}

func newParser(src string, offset int) (*parser, error) {
	p := &parser{lx: lexer{src: src, pos: offset}}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *parser) advance() error {
	t, err := p.lx.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) is(punct string) bool {
	return p.tok.kind == tokPunct && p.tok.text == punct
}

func (p *parser) errorf(pos int, format string, args ...any) error {
	return &SyntaxError{Src: p.lx.src, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) unexpected() error {
	if p.tok.kind == tokEOF {
		return p.errorf(p.tok.pos, "unexpected end of expression")
	}
	return p.errorf(p.tok.pos, "unexpected %q", p.tok.text)
}

func (p *parser) expect(punct string) error {
	if !p.is(punct) {
		if p.tok.kind == tokEOF {
			return p.errorf(p.tok.pos, "expected %q, got end of expression", punct)
		}
		return p.errorf(p.tok.pos, "expected %q, got %q", punct, p.tok.text)
	}
	return p.advance()
}

// parseProgram parses a single expression spanning the whole source.
func parseProgram(src string) (Node, error) {
	p, err := newParser(src, 0)
	if err != nil {
		return nil, err
	}
	n, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, p.unexpected()
	}
	return n, nil
}

// parseStatements parses semicolon separated statements with assignments
// enabled.
func parseStatements(src string) (Node, error) {
	p, err := newParser(src, 0)
	if err != nil {
		return nil, err
	}
	p.allowAssign = true

	seq := &Seq{At: p.tok.pos}
	for p.tok.kind != tokEOF {
		if p.is(";") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		n, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		seq.Exprs = append(seq.Exprs, n)
		if p.tok.kind != tokEOF && !p.is(";") {
			return nil, p.unexpected()
		}
	}
	return seq, nil
}

func (p *parser) parseExpr() (Node, error) {
	return p.parseAssign()
}

func (p *parser) parseAssign() (Node, error) {
	left, err := p.parseCond()
	if err != nil {
		return nil, err
	}
	if !p.allowAssign || !(p.is("=") || p.is("+=") || p.is("-=")) {
		return left, nil
	}

	switch left.(type) {
	case *Ident, *Member, *Index:
	default:
		return nil, p.errorf(p.tok.pos, "invalid assignment target")
	}
	op, pos := p.tok.text, p.tok.pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	value, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	return &Assign{At: pos, Op: op, Target: left, Value: value}, nil
}

func (p *parser) parseCond() (Node, error) {
	test, err := p.parseBinary(0)
	if err != nil {
		return nil, err
	}
	if !p.is("?") {
		return test, nil
	}
	pos := p.tok.pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	then, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	if err := p.expect(":"); err != nil {
		return nil, err
	}
	els, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	return &Cond{At: pos, Test: test, Then: then, Else: els}, nil
}

func (p *parser) parseBinary(minPrec int) (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokPunct {
		op := p.tok.text
		prec, ok := binaryPrec[op]
		if !ok || prec <= minPrec {
			break
		}
		pos := p.tok.pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseBinary(prec)
		if err != nil {
			return nil, err
		}
		switch op {
		case "&&", "||", "??":
			left = &Logical{At: pos, Op: op, L: left, R: right}
		default:
			left = &Binary{At: pos, Op: op, L: left, R: right}
		}
	}
	return left, nil
}

func (p *parser) parseUnary() (Node, error) {
	if p.is("!") || p.is("-") || p.is("+") {
		op, pos := p.tok.text, p.tok.pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{At: pos, Op: op, X: x}, nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (Node, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		pos := p.tok.pos
		switch {
		case p.is("."):
			if err := p.advance(); err != nil {
				return nil, err
			}
			name, err := p.memberName()
			if err != nil {
				return nil, err
			}
			x = &Member{At: pos, Object: x, Name: name}

		case p.is("?."):
			if err := p.advance(); err != nil {
				return nil, err
			}
			switch {
			case p.is("("):
				args, err := p.parseArgs()
				if err != nil {
					return nil, err
				}
				x = &Call{At: pos, Callee: x, Args: args, Optional: true}
			case p.is("["):
				idx, err := p.parseIndex()
				if err != nil {
					return nil, err
				}
				x = &Index{At: pos, Object: x, Index: idx, Optional: true}
			default:
				name, err := p.memberName()
				if err != nil {
					return nil, err
				}
				x = &Member{At: pos, Object: x, Name: name, Optional: true}
			}

		case p.is("["):
			idx, err := p.parseIndex()
			if err != nil {
				return nil, err
			}
			x = &Index{At: pos, Object: x, Index: idx}

		case p.is("("):
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			x = &Call{At: pos, Callee: x, Args: args}

		default:
			return x, nil
		}
	}
}

func (p *parser) memberName() (string, error) {
	if p.tok.kind != tokIdent {
		return "", p.errorf(p.tok.pos, "expected property name")
	}
	name := p.tok.text
	return name, p.advance()
}

func (p *parser) parseIndex() (Node, error) {
	if err := p.expect("["); err != nil {
		return nil, err
	}
	idx, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return idx, p.expect("]")
}

func (p *parser) parseArgs() ([]Node, error) {
	if err := p.expect("("); err != nil {
		return nil, err
	}
	var args []Node
	for !p.is(")") {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if !p.is(",") {
			break
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	return args, p.expect(")")
}

func (p *parser) parsePrimary() (Node, error) {
	t := p.tok
	switch t.kind {
	case tokNumber, tokString:
		return &Literal{At: t.pos, Value: t.val}, p.advance()

	case tokIdent:
		var n Node
		switch t.text {
		case "true":
			n = &Literal{At: t.pos, Value: true}
		case "false":
			n = &Literal{At: t.pos, Value: false}
		case "null", "undefined":
			n = &Literal{At: t.pos, Value: nil}
		default:
			n = &Ident{At: t.pos, Name: t.text}
		}
		return n, p.advance()

	case tokPunct:
		switch t.text {
		case "(":
			if err := p.advance(); err != nil {
				return nil, err
			}
			x, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			return x, p.expect(")")
		case "[":
			return p.parseArray()
		case "{":
			return p.parseObject()
		}
	}
	return nil, p.unexpected()
}

func (p *parser) parseArray() (Node, error) {
	arr := &ArrayLit{At: p.tok.pos}
	if err := p.advance(); err != nil {
		return nil, err
	}
	for !p.is("]") {
		el, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		arr.Elems = append(arr.Elems, el)
		if !p.is(",") {
			break
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	return arr, p.expect("]")
}

func (p *parser) parseObject() (Node, error) {
	obj := &ObjectLit{At: p.tok.pos}
	if err := p.advance(); err != nil {
		return nil, err
	}
	for !p.is("}") {
		t := p.tok
		var key string
		switch t.kind {
		case tokIdent:
			key = t.text
		case tokString:
			key = t.val.(string)
		case tokNumber:
			key = t.text
		default:
			return nil, p.errorf(t.pos, "expected property name")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}

		var value Node
		if p.is(":") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			v, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			value = v
		} else if t.kind == tokIdent {
			value = &Ident{At: t.pos, Name: key}
		} else {
			return nil, p.errorf(p.tok.pos, "expected \":\" after property name")
		}
		obj.Keys = append(obj.Keys, key)
		obj.Values = append(obj.Values, value)

		if !p.is(",") {
			break
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	return obj, p.expect("}")
}

// templatePart is either literal text or a placeholder expression.
type templatePart struct {
	text string
	expr Node
}

// parseTemplate splits src into literal text and ${...} placeholders.
// A backslash before ${ keeps it literal.
func parseTemplate(src string) ([]templatePart, error) {
	var parts []templatePart
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			parts = append(parts, templatePart{text: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(src); {
		if src[i] == '\\' && strings.HasPrefix(src[i+1:], "${") {
			lit.WriteString("${")
			i += 3
			continue
		}
		if !strings.HasPrefix(src[i:], "${") {
			lit.WriteByte(src[i])
			i++
			continue
		}

		flush()
		p, err := newParser(src, i+2)
		if err != nil {
			return nil, err
		}
		if p.is("}") {
			return nil, p.errorf(p.tok.pos, "empty placeholder")
		}
		n, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if !p.is("}") {
			if p.tok.kind == tokEOF {
				return nil, p.errorf(i, "unterminated placeholder")
			}
			return nil, p.unexpected()
		}
		parts = append(parts, templatePart{expr: n})
		i = p.tok.end
	}
	flush()
	return parts, nil
}
