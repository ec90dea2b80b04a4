package bind

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/net/html"

	"github.com/gallia-dev/gallia/pkg/component"
	"github.com/gallia-dev/gallia/pkg/dom"
	"github.com/gallia-dev/gallia/pkg/loop"
	"github.com/gallia-dev/gallia/pkg/metrics"
	"github.com/gallia-dev/gallia/pkg/reactive"
)

// Context is the data a handler binds against.
type Context struct {
	// Data is the innermost data context, normally observable.
	Data any
	// Parents are the enclosing data contexts, nearest first.
	Parents []any
	// Scope owns every binding the handler opens.
	Scope *reactive.Scope
}

// child returns the context of a nested block whose enclosing data becomes
// the first parent.
func (c Context) child(data any, scope *reactive.Scope) Context {
	parents := make([]any, 0, len(c.Parents)+1)
	parents = append(parents, c.Data)
	parents = append(parents, c.Parents...)
	return Context{Data: data, Parents: parents, Scope: scope}
}

// Handler binds one instance of a compiled tree shape.
type Handler func(n *html.Node, c Context) error

// Directives are the attribute names and prefixes recognized by the
// compiler.
type Directives struct {
	Attr      string
	Prop      string
	Event     string
	Component string
	Model     string
	For       string
	Key       string
	If        string
}

// DefaultDirectives returns the standard directive names.
func DefaultDirectives() Directives {
	return Directives{
		Attr:      "@",
		Prop:      ".",
		Event:     "on-",
		Component: "x-component",
		Model:     "x-model",
		For:       "x-for",
		Key:       "x-key",
		If:        "x-if",
	}
}

// Compiler turns directive markup into handlers. A Compiler may be shared
// by several runtimes.
type Compiler struct {
	dirs    Directives
	host    *dom.Host
	loader  component.Loader
	sched   loop.Scheduler
	ctx     context.Context
	base    string
	logger  *slog.Logger
	metrics *metrics.Metrics
	onError func(error)

	// loading holds the component elements whose load is in flight.
	mu      sync.Mutex
	loading map[*html.Node]struct{}
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithDirectives overrides the directive names.
func WithDirectives(d Directives) Option {
	return func(c *Compiler) {
		c.dirs = d
	}
}

// WithHost sets the host that stores properties and listeners.
func WithHost(h *dom.Host) Option {
	return func(c *Compiler) {
		if h != nil {
			c.host = h
		}
	}
}

// WithLoader sets the component loader. Without one, every component
// fails to load with component.ErrNotFound.
func WithLoader(l component.Loader) Option {
	return func(c *Compiler) {
		c.loader = l
	}
}

// WithScheduler sets where component loads run. The default,
// loop.Immediate, loads synchronously.
func WithScheduler(s loop.Scheduler) Option {
	return func(c *Compiler) {
		if s != nil {
			c.sched = s
		}
	}
}

// WithContext sets the context passed to component loads.
func WithContext(ctx context.Context) Option {
	return func(c *Compiler) {
		if ctx != nil {
			c.ctx = ctx
		}
	}
}

// WithBase sets the path relative component paths resolve against.
func WithBase(base string) Option {
	return func(c *Compiler) {
		c.base = base
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Compiler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics enables metrics collection.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Compiler) {
		c.metrics = m
	}
}

// WithErrorHandler receives the errors that have no caller to return to:
// failed component mounts and failed re-runs of loop bindings.
func WithErrorHandler(fn func(error)) Option {
	return func(c *Compiler) {
		c.onError = fn
	}
}

// NewCompiler creates a compiler.
func NewCompiler(opts ...Option) *Compiler {
	c := &Compiler{
		dirs:    DefaultDirectives(),
		host:    dom.NewHost(),
		loader:  component.NewRegistry(),
		sched:   loop.Immediate{},
		ctx:     context.Background(),
		logger:  slog.Default(),
		loading: make(map[*html.Node]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Host returns the host holding properties and listeners of bound nodes.
func (c *Compiler) Host() *dom.Host {
	return c.host
}

// Directives returns the directive names in use.
func (c *Compiler) Directives() Directives {
	return c.dirs
}

// Compile compiles the tree rooted at n. The returned handler may be
// invoked on n itself or on any clone of it.
func (c *Compiler) Compile(n *html.Node) (Handler, error) {
	w, err := c.compile(n, false)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("compiled tree", "bindings", len(w.bindings))
	return w.bind, nil
}

// report handles an error that cannot be returned.
func (c *Compiler) report(err error) {
	if c.onError != nil {
		c.onError(err)
		return
	}
	c.logger.Error("binding failed", "error", err)
}
