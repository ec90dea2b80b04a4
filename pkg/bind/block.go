package bind

import (
	"golang.org/x/net/html"

	"github.com/gallia-dev/gallia/pkg/dom"
	"github.com/gallia-dev/gallia/pkg/expr"
	"github.com/gallia-dev/gallia/pkg/reactive"
)

// compileTemplate compiles a <template> carrying a block directive. A
// template with neither directive compiles to nothing.
func (c *Compiler) compileTemplate(n *html.Node) (string, func(*html.Node, Context) error, error) {
	forSrc, isFor := dom.Attr(n, c.dirs.For)
	ifSrc, isIf := dom.Attr(n, c.dirs.If)
	switch {
	case isFor:
		if isIf {
			c.logger.Warn("template has both loop and conditional directives, ignoring the conditional",
				"loop", forSrc, "conditional", ifSrc)
		}
		apply, err := c.compileFor(n, forSrc)
		return kindFor, apply, err
	case isIf:
		apply, err := c.compileIf(n, ifSrc)
		return kindIf, apply, err
	}
	return "", nil, nil
}

// placeMarkers replaces the template n with a before/after comment pair.
func placeMarkers(n *html.Node, open string) (before, after *html.Node) {
	before = dom.Comment(open)
	after = dom.Comment("}")
	dom.InsertBefore(n, before)
	dom.Replace(n, after)
	return before, after
}

// compileIf compiles a conditional block. Each transition to true clones
// the template content into a fresh scope; each transition to false
// removes the clone and destroys that scope.
func (c *Compiler) compileIf(n *html.Node, src string) (func(*html.Node, Context) error, error) {
	prog, err := expr.Compile(src)
	if err != nil {
		return nil, compileError("G001", c.dirs.If, src, err)
	}
	content := dom.CloneChildren(n)
	inner, err := c.compile(content, false)
	if err != nil {
		return nil, err
	}

	return func(n *html.Node, ctx Context) error {
		if n.Parent == nil {
			return bindError(c.dirs.If, src, errNoParent)
		}
		before, after := placeMarkers(n, "if ("+src+") {")

		var sub *reactive.Scope
		_, err := ctx.Scope.ObserveAndReact(
			func() (any, error) {
				v, err := prog.Eval(ctx.Data, ctx.Parents)
				return expr.Truthy(v), err
			},
			func(v any) {
				show := v.(bool)
				switch {
				case show && sub == nil:
					s, err := ctx.Scope.CreateSubScope()
					if err != nil {
						c.report(bindError(c.dirs.If, src, err))
						return
					}
					sub = s
					clone := dom.Clone(content)
					targets := inner.resolve(clone)
					dom.InsertFragmentAfter(before, clone)
					if err := inner.apply(targets, Context{Data: ctx.Data, Parents: ctx.Parents, Scope: sub}); err != nil {
						c.report(err)
					}
				case !show && sub != nil:
					dom.RemoveBetween(before, after)
					if err := sub.Destroy(); err != nil {
						c.report(bindError(c.dirs.If, src, err))
					}
					sub = nil
				}
			},
		)
		if err != nil {
			return bindError(c.dirs.If, src, err)
		}
		return nil
	}, nil
}
