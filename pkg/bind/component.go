package bind

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/net/html"
	"gopkg.in/yaml.v3"

	gerrors "github.com/gallia-dev/gallia/internal/errors"
	"github.com/gallia-dev/gallia/pkg/component"
	"github.com/gallia-dev/gallia/pkg/dom"
	"github.com/gallia-dev/gallia/pkg/expr"
	"github.com/gallia-dev/gallia/pkg/reactive"
)

// compileComponent compiles an element that mounts a component. The
// element's own directives and its children are compiled as the
// component's template and bound against the instance.
func (c *Compiler) compileComponent(n *html.Node) (func(*html.Node, Context) error, error) {
	path, _ := dom.Attr(n, c.dirs.Component)
	modelSrc, hasModel := dom.Attr(n, c.dirs.Model)
	inner, err := c.compile(n, true)
	if err != nil {
		return nil, err
	}

	return func(n *html.Node, ctx Context) error {
		if !c.startLoad(n) {
			c.logger.Warn("component load already in flight", "path", path)
			return nil
		}

		var model any
		if hasModel {
			m, err := parseModel(modelSrc)
			if err != nil {
				c.finishLoad(n)
				return gerrors.New("G021").Withf("%s=%q", c.dirs.Model, modelSrc).Wrap(err)
			}
			model = m
		}

		resolved := component.Resolve(c.base, path)
		start := time.Now()
		c.sched.Go(c.ctx, func(lctx context.Context) func() {
			f, err := c.loader.Load(lctx, resolved)
			return func() {
				c.finishLoad(n)
				c.metrics.ComponentLoaded(time.Since(start), err)
				if err != nil {
					c.report(gerrors.New("G020").Withf("%s", resolved).Wrap(err))
					return
				}
				if ctx.Scope.Destroyed() {
					c.logger.Debug("component loaded after its scope was destroyed", "path", resolved)
					return
				}
				if err := c.mount(n, ctx, inner, f, model); err != nil {
					c.report(err)
				}
			}
		})
		return nil
	}, nil
}

// mount instantiates a loaded component and binds the element to it.
func (c *Compiler) mount(n *html.Node, ctx Context, inner *walker, f component.Factory, model any) error {
	rt := ctx.Scope.Runtime()
	inst, err := f.New(rt, model)
	if err != nil {
		return gerrors.New("G022").Wrap(err)
	}
	data := rt.Wrap(inst)

	sub, err := ctx.Scope.CreateSubScope()
	if err != nil {
		return bindError(c.dirs.Component, "", err)
	}
	if err := inner.bind(n, ctx.child(data, sub)); err != nil {
		return err
	}
	c.logger.Debug("component mounted", "component", c.dirs.Component)

	return c.runHooks(inst, data, sub)
}

// runHooks calls the mount hook and registers the unmount hook. Go
// instances implement component.Mounter and component.Unmounter; other
// instances may expose $mounted and $unmounted functions. A callable
// returned by $mounted runs on teardown.
func (c *Compiler) runHooks(inst, data any, sub *reactive.Scope) error {
	if m, ok := inst.(component.Mounter); ok {
		if err := sub.OnDestroy(m.Mounted()); err != nil {
			return err
		}
	} else if fn, ok := hook(sub.Runtime(), data, "$mounted"); ok {
		ret, err := expr.CallValue(fn)
		if err != nil {
			return gerrors.New("G022").Withf("$mounted").Wrap(err)
		}
		if expr.Callable(ret) {
			if err := sub.OnDestroy(func() { c.callTeardown(ret) }); err != nil {
				return err
			}
		}
	}

	if u, ok := inst.(component.Unmounter); ok {
		return sub.OnDestroy(u.Unmounted)
	}
	if fn, ok := hook(sub.Runtime(), data, "$unmounted"); ok {
		return sub.OnDestroy(func() { c.callTeardown(fn) })
	}
	return nil
}

func (c *Compiler) callTeardown(fn any) {
	if _, err := expr.CallValue(fn); err != nil {
		c.report(gerrors.New("G022").Withf("teardown").Wrap(err))
	}
}

// hook reads a callable member of data without subscribing.
func hook(rt *reactive.Runtime, data any, name string) (fn any, ok bool) {
	rt.Untracked(func() {
		fn, ok = expr.MemberOf(data, name)
	})
	return fn, ok && expr.Callable(fn)
}

func (c *Compiler) startLoad(n *html.Node) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.loading[n]; busy {
		return false
	}
	c.loading[n] = struct{}{}
	return true
}

func (c *Compiler) finishLoad(n *html.Node) {
	c.mu.Lock()
	delete(c.loading, n)
	c.mu.Unlock()
}

// parseModel decodes an x-model value. JSON is tried first; YAML flow
// syntax such as {count: 1} is accepted as well.
func parseModel(src string) (any, error) {
	var v any
	jsonErr := json.Unmarshal([]byte(src), &v)
	if jsonErr == nil {
		return v, nil
	}
	if err := yaml.Unmarshal([]byte(src), &v); err == nil {
		return v, nil
	}
	return nil, jsonErr
}
