package bind

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/gallia-dev/gallia/pkg/dom"
	"github.com/gallia-dev/gallia/pkg/expr"
)

// compileText compiles a text node holding ${...} placeholders. Text that
// does not compile stays literal: a stray "${" in prose is not an error.
func (c *Compiler) compileText(n *html.Node) (func(*html.Node, Context) error, bool) {
	if !strings.Contains(n.Data, "${") {
		return nil, false
	}
	tmpl, err := expr.CompileTemplate(n.Data)
	if err != nil {
		c.logger.Warn("text left unbound", "text", n.Data, "error", err)
		return nil, false
	}
	if !tmpl.Dynamic() {
		return nil, false
	}

	return func(n *html.Node, ctx Context) error {
		_, err := ctx.Scope.ObserveAndReact(
			func() (any, error) { return tmpl.Eval(ctx.Data, ctx.Parents) },
			func(v any) { n.Data = v.(string) },
		)
		if err != nil {
			return bindError("text", tmpl.Source(), err)
		}
		return nil
	}, true
}

// compileAttr compiles one attribute of a plain element. It returns a nil
// apply for attributes that are not directives.
func (c *Compiler) compileAttr(a html.Attribute) (string, func(*html.Node, Context) error, error) {
	switch {
	case hasPrefix(a.Key, c.dirs.Attr):
		return c.compileAttrBinding(a)
	case hasPrefix(a.Key, c.dirs.Prop):
		name := strings.TrimPrefix(a.Key, c.dirs.Prop)
		if hasPrefix(name, c.dirs.Event) {
			return c.compileEvent(a, strings.TrimPrefix(name, c.dirs.Event))
		}
		return c.compileProp(a, name)
	}
	return "", nil, nil
}

// compileAttrBinding binds an attribute to an expression. nil and false
// remove the attribute, true sets it empty.
func (c *Compiler) compileAttrBinding(a html.Attribute) (string, func(*html.Node, Context) error, error) {
	name := strings.TrimPrefix(a.Key, c.dirs.Attr)
	prog, err := expr.Compile(a.Val)
	if err != nil {
		return "", nil, compileError("G001", a.Key, a.Val, err)
	}

	return kindAttr, func(n *html.Node, ctx Context) error {
		_, err := ctx.Scope.ObserveAndReact(
			func() (any, error) { return prog.Eval(ctx.Data, ctx.Parents) },
			func(v any) {
				switch v {
				case nil, false:
					dom.RemoveAttr(n, name)
				case true:
					dom.SetAttr(n, name, "")
				default:
					dom.SetAttr(n, name, expr.ToString(v))
				}
			},
		)
		if err != nil {
			return bindError(a.Key, a.Val, err)
		}
		return nil
	}, nil
}

func (c *Compiler) compileProp(a html.Attribute, name string) (string, func(*html.Node, Context) error, error) {
	prog, err := expr.Compile(a.Val)
	if err != nil {
		return "", nil, compileError("G001", a.Key, a.Val, err)
	}

	return kindProp, func(n *html.Node, ctx Context) error {
		_, err := ctx.Scope.ObserveAndReact(
			func() (any, error) { return prog.Eval(ctx.Data, ctx.Parents) },
			func(v any) { c.host.SetProperty(n, name, v) },
		)
		if err != nil {
			return bindError(a.Key, a.Val, err)
		}
		if err := ctx.Scope.OnDestroy(func() { c.host.DeleteProperty(n, name) }); err != nil {
			c.host.DeleteProperty(n, name)
			return bindError(a.Key, a.Val, err)
		}
		return nil
	}, nil
}

// compileEvent attaches a handler for events of type typ. The listener is
// removed when the scope is destroyed.
func (c *Compiler) compileEvent(a html.Attribute, typ string) (string, func(*html.Node, Context) error, error) {
	h, err := expr.CompileHandler(a.Val)
	if err != nil {
		return "", nil, compileError("G004", a.Key, a.Val, err)
	}

	return kindEvent, func(n *html.Node, ctx Context) error {
		remove := c.host.AddListener(n, typ, func(ev *dom.Event) error {
			return h.Call(&expr.Env{
				Data:    ctx.Data,
				Parents: ctx.Parents,
				Locals:  map[string]any{"$event": ev},
			})
		})
		if err := ctx.Scope.OnDestroy(remove); err != nil {
			remove()
			return bindError(a.Key, a.Val, err)
		}
		return nil
	}, nil
}
