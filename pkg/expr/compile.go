package expr

import (
	"strings"
	"sync"
)

var (
	programs  sync.Map // source -> *Program
	templates sync.Map // source -> *Template
	handlers  sync.Map // source -> *Handler
	keyFuncs  sync.Map // item name + "\x00" + source -> *KeyFunc
)

// Program is a compiled expression.
type Program struct {
	src  string
	root Node
}

// Compile parses an expression. Results are cached by source text.
func Compile(src string) (*Program, error) {
	if p, ok := programs.Load(src); ok {
		return p.(*Program), nil
	}
	root, err := parseProgram(src)
	if err != nil {
		return nil, err
	}
	p, _ := programs.LoadOrStore(src, &Program{src: src, root: root})
	return p.(*Program), nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(src string) *Program {
	p, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return p
}

// Source returns the expression text.
func (p *Program) Source() string { return p.src }

// AST returns the parsed expression.
func (p *Program) AST() Node { return p.root }

// Eval evaluates the expression against a data context and its parents.
func (p *Program) Eval(data any, parents []any) (any, error) {
	return p.EvalEnv(&Env{Data: data, Parents: parents})
}

// EvalEnv evaluates the expression in env.
func (p *Program) EvalEnv(env *Env) (any, error) {
	return env.eval(p.root)
}

// Template is compiled text with ${...} placeholders.
type Template struct {
	src   string
	parts []templatePart
}

// CompileTemplate parses text containing placeholders.
func CompileTemplate(src string) (*Template, error) {
	if t, ok := templates.Load(src); ok {
		return t.(*Template), nil
	}
	parts, err := parseTemplate(src)
	if err != nil {
		return nil, err
	}
	t, _ := templates.LoadOrStore(src, &Template{src: src, parts: parts})
	return t.(*Template), nil
}

// Dynamic reports whether the template has at least one placeholder.
func (t *Template) Dynamic() bool {
	for _, p := range t.parts {
		if p.expr != nil {
			return true
		}
	}
	return false
}

// Source returns the template text.
func (t *Template) Source() string { return t.src }

// Eval renders the template against a data context and its parents.
func (t *Template) Eval(data any, parents []any) (string, error) {
	return t.EvalEnv(&Env{Data: data, Parents: parents})
}

// EvalEnv renders the template in env.
func (t *Template) EvalEnv(env *Env) (string, error) {
	var b strings.Builder
	for _, p := range t.parts {
		if p.expr == nil {
			b.WriteString(p.text)
			continue
		}
		v, err := env.eval(p.expr)
		if err != nil {
			return "", err
		}
		b.WriteString(ToString(v))
	}
	return b.String(), nil
}

// Handler is a compiled event handler: one or more statements that may
// assign to the data context.
type Handler struct {
	src  string
	root Node
}

// CompileHandler parses event handler statements.
func CompileHandler(src string) (*Handler, error) {
	if h, ok := handlers.Load(src); ok {
		return h.(*Handler), nil
	}
	root, err := parseStatements(src)
	if err != nil {
		return nil, err
	}
	h, _ := handlers.LoadOrStore(src, &Handler{src: src, root: root})
	return h.(*Handler), nil
}

// Source returns the handler text.
func (h *Handler) Source() string { return h.src }

// Bind fixes the data context and returns a callback taking the event.
func (h *Handler) Bind(data any, parents []any) func(event any) error {
	return func(event any) error {
		return h.Call(&Env{
			Data:    data,
			Parents: parents,
			Locals:  map[string]any{"$event": event},
		})
	}
}

// Call runs the statements in env.
func (h *Handler) Call(env *Env) error {
	_, err := env.eval(h.root)
	return err
}

// KeyFunc derives the key of a list item from the item and its index.
type KeyFunc struct {
	name string
	root Node
}

// CompileKey compiles a key expression that sees only the item, under
// itemName, and $index.
func CompileKey(itemName, src string) (*KeyFunc, error) {
	cacheKey := itemName + "\x00" + src
	if k, ok := keyFuncs.Load(cacheKey); ok {
		return k.(*KeyFunc), nil
	}
	root, err := parseProgram(src)
	if err != nil {
		return nil, err
	}
	k, _ := keyFuncs.LoadOrStore(cacheKey, &KeyFunc{name: itemName, root: root})
	return k.(*KeyFunc), nil
}

// Eval computes the key of item at index.
func (k *KeyFunc) Eval(item any, index int) (any, error) {
	env := &Env{Locals: map[string]any{k.name: item, "$index": index}}
	return env.eval(k.root)
}
