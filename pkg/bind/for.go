package bind

import (
	"fmt"
	"regexp"

	"golang.org/x/net/html"

	gerrors "github.com/gallia-dev/gallia/internal/errors"
	"github.com/gallia-dev/gallia/pkg/dom"
	"github.com/gallia-dev/gallia/pkg/expr"
	"github.com/gallia-dev/gallia/pkg/listdiff"
	"github.com/gallia-dev/gallia/pkg/reactive"
)

var forPattern = regexp.MustCompile(`^\s*([A-Za-z_$][\w$]*)\s+of\s+(.+)$`)

// loopItem is the live state of one rendered item.
type loopItem struct {
	start, end *html.Node
	data       *reactive.Record
	scope      *reactive.Scope
}

// compileFor compiles an iteration block "name of expression".
func (c *Compiler) compileFor(n *html.Node, src string) (func(*html.Node, Context) error, error) {
	m := forPattern.FindStringSubmatch(src)
	if m == nil {
		return nil, gerrors.New("G002").Withf("%s=%q", c.dirs.For, src).WithSource(src, -1)
	}
	name, collection := m[1], m[2]

	prog, err := expr.Compile(collection)
	if err != nil {
		return nil, compileError("G001", c.dirs.For, collection, err)
	}

	keyOf := indexKey
	if keySrc, ok := dom.Attr(n, c.dirs.Key); ok {
		kf, err := expr.CompileKey(name, keySrc)
		if err != nil {
			return nil, compileError("G003", c.dirs.Key, keySrc, err)
		}
		keyOf = kf.Eval
	}

	// Every item is bracketed by a pair of comments. They are part of the
	// compiled shape so that binding paths line up with the clones.
	content := dom.NewFragment()
	content.AppendChild(dom.Comment("start of item"))
	dom.AppendChildren(content, dom.CloneChildren(n))
	content.AppendChild(dom.Comment("end of item"))
	inner, err := c.compile(content, false)
	if err != nil {
		return nil, err
	}

	return func(n *html.Node, ctx Context) error {
		if n.Parent == nil {
			return bindError(c.dirs.For, src, errNoParent)
		}
		before, _ := placeMarkers(n, "for ("+src+") {")
		rt := ctx.Scope.Runtime()

		var (
			prevKeys  []any
			prevIndex map[any]int
			live      = make(map[any]*loopItem)
		)

		update := func(items []any) {
			keys, err := itemKeys(items, keyOf)
			if err != nil {
				c.report(gerrors.New("G014").Withf("%s=%q", c.dirs.For, src).Wrap(err))
				return
			}

			at := before
			index := 0
			var stats listdiff.Stats
			prevIndex = listdiff.Diff(prevKeys, prevIndex, keys, func(e listdiff.Event[any]) {
				switch e.Op {
				case listdiff.Insert:
					stats.Inserts++
					item, err := c.insertItem(inner, content, ctx, rt, at, name, items[e.Index], index, e.Key)
					if err != nil {
						c.report(err)
					}
					if item == nil {
						return
					}
					live[e.Key] = item
					at = item.end
					index++

				case listdiff.Move, listdiff.Noop:
					item := live[e.Key]
					if item == nil {
						return
					}
					if e.Op == listdiff.Move {
						stats.Moves++
						dom.MoveRangeAfter(item.start, item.end, at)
					} else {
						stats.Noops++
					}
					item.data.Set("$index", index)
					item.data.Set(name, items[e.Index])
					at = item.end
					index++

				case listdiff.Remove:
					stats.Removes++
					item := live[e.Key]
					if item == nil {
						return
					}
					delete(live, e.Key)
					if err := item.scope.Destroy(); err != nil {
						c.report(bindError(c.dirs.For, src, err))
					}
					dom.RemoveRange(item.start, item.end)
				}
			})
			prevKeys = keys
			c.metrics.ListEdits(stats)
		}

		_, err := ctx.Scope.ObserveAndReact(
			func() (any, error) {
				v, err := prog.Eval(ctx.Data, ctx.Parents)
				if err != nil {
					return nil, err
				}
				items, ok := expr.Items(v)
				if !ok {
					return nil, gerrors.New("G013").Withf("%s evaluated to %T", collection, v)
				}
				return items, nil
			},
			func(v any) { update(v.([]any)) },
		)
		if err != nil {
			return bindError(c.dirs.For, src, err)
		}
		return nil
	}, nil
}

// insertItem renders one new item after at.
func (c *Compiler) insertItem(inner *walker, content *html.Node, ctx Context, rt *reactive.Runtime,
	at *html.Node, name string, value any, index int, key any) (*loopItem, error) {
	sub, err := ctx.Scope.CreateSubScope()
	if err != nil {
		return nil, bindError(c.dirs.For, name, err)
	}
	clone := dom.Clone(content)
	item := &loopItem{
		start: clone.FirstChild,
		end:   clone.LastChild,
		data:  rt.NewRecord(map[string]any{name: value, "$index": index}),
		scope: sub,
	}
	item.start.Data = fmt.Sprintf("start of %d with key %v", index, key)
	item.end.Data = fmt.Sprintf("end of %d", index)

	targets := inner.resolve(clone)
	dom.InsertFragmentAfter(at, clone)
	return item, inner.apply(targets, ctx.child(item.data, sub))
}

func indexKey(_ any, index int) (any, error) {
	return index, nil
}

// itemKeys computes the key of every item. Keys must be usable as map keys
// and unique within the list.
func itemKeys(items []any, keyOf func(any, int) (any, error)) ([]any, error) {
	keys := make([]any, len(items))
	seen := make(map[any]int, len(items))
	for i, item := range items {
		k, err := keyOf(item, i)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		k = normalizeKey(k)
		if !hashable(k) {
			return nil, fmt.Errorf("item %d: key of type %T is not comparable", i, k)
		}
		if j, dup := seen[k]; dup {
			return nil, fmt.Errorf("items %d and %d share the key %v", j, i, k)
		}
		seen[k] = i
		keys[i] = k
	}
	return keys, nil
}

// normalizeKey maps every integral number to float64, so that 1 and 1.0
// name the same item.
func normalizeKey(k any) any {
	switch x := k.(type) {
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case int32:
		return float64(x)
	case uint:
		return float64(x)
	case uint64:
		return float64(x)
	case float32:
		return float64(x)
	}
	return k
}

func hashable(k any) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	_ = map[any]struct{}{k: {}}
	return true
}
