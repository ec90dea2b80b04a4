package bind

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/net/html"

	"github.com/gallia-dev/gallia/pkg/dom"
)

// Binding kinds, used as metric labels.
const (
	kindText      = "text"
	kindAttr      = "attr"
	kindProp      = "prop"
	kindEvent     = "event"
	kindIf        = "if"
	kindFor       = "for"
	kindComponent = "component"
)

// binding is one compiled directive, addressed by the child-index path from
// the root of the compiled shape to its node.
type binding struct {
	path  []int
	kind  string
	apply func(n *html.Node, c Context) error
}

// walker is the compiled form of a tree shape.
type walker struct {
	c        *Compiler
	bindings []binding
}

type frame struct {
	n    *html.Node
	path []int
	// self marks a component element compiled for its own subtree, which
	// must not be detected as a component again.
	self bool
}

// compile walks the tree rooted at root with an explicit stack and
// collects its bindings in document order.
func (c *Compiler) compile(root *html.Node, self bool) (*walker, error) {
	w := &walker{c: c}
	var errs *multierror.Error

	add := func(f frame, kind string, apply func(*html.Node, Context) error) {
		w.bindings = append(w.bindings, binding{path: f.path, kind: kind, apply: apply})
	}

	stack := []frame{{n: root, self: self}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch f.n.Type {
		case html.DocumentNode:
			stack = pushChildren(stack, f)

		case html.TextNode:
			if apply, ok := c.compileText(f.n); ok {
				add(f, kindText, apply)
			}

		case html.ElementNode:
			if !f.self && dom.HasAttr(c.dirs.Component)(f.n) {
				apply, err := c.compileComponent(f.n)
				if err != nil {
					errs = multierror.Append(errs, err)
					continue
				}
				add(f, kindComponent, apply)
				continue
			}

			if dom.IsTemplate(f.n) {
				kind, apply, err := c.compileTemplate(f.n)
				if err != nil {
					errs = multierror.Append(errs, err)
				} else if apply != nil {
					add(f, kind, apply)
				}
				// Template content is inert unless a block directive
				// instantiates it.
				continue
			}

			for _, a := range f.n.Attr {
				kind, apply, err := c.compileAttr(a)
				if err != nil {
					errs = multierror.Append(errs, err)
					continue
				}
				if apply != nil {
					add(f, kind, apply)
				}
			}
			stack = pushChildren(stack, f)
		}
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return w, nil
}

// pushChildren pushes the children of f in reverse, so that they pop in
// document order.
func pushChildren(stack []frame, f frame) []frame {
	children := dom.Children(f.n)
	for i := len(children) - 1; i >= 0; i-- {
		path := make([]int, len(f.path)+1)
		copy(path, f.path)
		path[len(f.path)] = i
		stack = append(stack, frame{n: children[i], path: path})
	}
	return stack
}

// resolve finds the node of every binding in root. It must run before any
// binding is applied, since applying blocks changes the tree.
func (w *walker) resolve(root *html.Node) []*html.Node {
	targets := make([]*html.Node, len(w.bindings))
	for i, b := range w.bindings {
		targets[i] = follow(root, b.path)
	}
	return targets
}

func follow(n *html.Node, path []int) *html.Node {
	for _, idx := range path {
		n = n.FirstChild
		for i := 0; i < idx && n != nil; i++ {
			n = n.NextSibling
		}
		if n == nil {
			return nil
		}
	}
	return n
}

// apply opens every binding against its resolved node. A failing binding
// does not prevent the others from opening.
func (w *walker) apply(targets []*html.Node, c Context) error {
	var errs *multierror.Error
	for i, b := range w.bindings {
		if targets[i] == nil {
			errs = multierror.Append(errs, fmt.Errorf("bind: no node at path %v for %s binding", b.path, b.kind))
			continue
		}
		if err := b.apply(targets[i], c); err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		w.c.metrics.BindingOpened(b.kind)
	}
	return errs.ErrorOrNil()
}

// bind is the Handler of a compiled shape.
func (w *walker) bind(n *html.Node, c Context) error {
	if c.Scope == nil {
		return fmt.Errorf("bind: context has no scope")
	}
	return w.apply(w.resolve(n), c)
}

func hasPrefix(name, prefix string) bool {
	return prefix != "" && len(name) > len(prefix) && strings.HasPrefix(name, prefix)
}
