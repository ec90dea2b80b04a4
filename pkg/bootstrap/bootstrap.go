package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/net/html"

	"github.com/gallia-dev/gallia/pkg/bind"
	"github.com/gallia-dev/gallia/pkg/component"
	"github.com/gallia-dev/gallia/pkg/dom"
	"github.com/gallia-dev/gallia/pkg/loop"
	"github.com/gallia-dev/gallia/pkg/metrics"
	"github.com/gallia-dev/gallia/pkg/reactive"
)

// ErrMounted is returned when Mount is called twice on one Mounter.
var ErrMounted = errors.New("bootstrap: page already mounted")

// Mounter mounts the root components of one page.
type Mounter struct {
	rt      *reactive.Runtime
	loop    *loop.Loop
	host    *dom.Host
	loader  component.Loader
	dirs    bind.Directives
	base    string
	data    any
	preload bool
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	mounted bool
	errs    *multierror.Error
}

// Option configures a Mounter.
type Option func(*Mounter)

// WithRuntime sets the runtime the page binds in. By default every
// Mounter has its own.
func WithRuntime(rt *reactive.Runtime) Option {
	return func(m *Mounter) {
		if rt != nil {
			m.rt = rt
		}
	}
}

// WithLoop sets the loop component loads complete on.
func WithLoop(l *loop.Loop) Option {
	return func(m *Mounter) {
		if l != nil {
			m.loop = l
		}
	}
}

// WithHost sets the host holding properties and listeners.
func WithHost(h *dom.Host) Option {
	return func(m *Mounter) {
		if h != nil {
			m.host = h
		}
	}
}

// WithLoader sets the component loader.
func WithLoader(l component.Loader) Option {
	return func(m *Mounter) {
		m.loader = l
	}
}

// WithDirectives overrides the directive names.
func WithDirectives(d bind.Directives) Option {
	return func(m *Mounter) {
		m.dirs = d
	}
}

// WithBase sets the page path relative component paths resolve against.
func WithBase(base string) Option {
	return func(m *Mounter) {
		m.base = base
	}
}

// WithData sets the data root components see as their parent.
func WithData(data any) Option {
	return func(m *Mounter) {
		m.data = data
	}
}

// WithPreload loads every component path of the page concurrently before
// mounting. It only pays off with a caching loader.
func WithPreload(enabled bool) Option {
	return func(m *Mounter) {
		m.preload = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Mounter) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics enables metrics collection.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Mounter) {
		m.metrics = mt
	}
}

// New creates a Mounter.
func New(opts ...Option) *Mounter {
	m := &Mounter{
		dirs:   bind.DefaultDirectives(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.rt == nil {
		m.rt = reactive.NewRuntime(reactive.WithLogger(m.logger))
	}
	if m.loop == nil {
		m.loop = loop.New(loop.WithLogger(m.logger))
	}
	if m.host == nil {
		m.host = dom.NewHost(dom.WithHostLogger(m.logger))
	}
	if m.loader == nil {
		m.loader = component.NewRegistry()
	}
	return m
}

// Runtime returns the runtime the page is bound in.
func (m *Mounter) Runtime() *reactive.Runtime {
	return m.rt
}

// Host returns the host holding properties and listeners of the page.
func (m *Mounter) Host() *dom.Host {
	return m.host
}

// Loop returns the loop the page runs on.
func (m *Mounter) Loop() *loop.Loop {
	return m.loop
}

// Roots returns the root component elements under root in document order.
func (m *Mounter) Roots(root *html.Node) []*html.Node {
	isComponent := dom.HasAttr(m.dirs.Component)
	var roots []*html.Node
	for _, n := range dom.Find(root, isComponent) {
		if dom.HasAncestor(n, isComponent) || dom.HasAncestor(n, dom.IsTemplate) {
			continue
		}
		roots = append(roots, n)
	}
	return roots
}

// Mount binds every root component under root and waits for their loads
// to settle. Errors raised while the page keeps running after Mount
// returns are logged.
func (m *Mounter) Mount(ctx context.Context, root *html.Node) error {
	m.mu.Lock()
	if m.mounted {
		m.mu.Unlock()
		return ErrMounted
	}
	m.mounted = true
	m.mu.Unlock()

	roots := m.Roots(root)
	if len(roots) == 0 {
		m.logger.Debug("no root components", "base", m.base)
		return nil
	}
	if m.preload {
		m.preloadAll(ctx, root)
	}

	c := bind.NewCompiler(
		bind.WithDirectives(m.dirs),
		bind.WithHost(m.host),
		bind.WithLoader(m.loader),
		bind.WithScheduler(m.loop),
		bind.WithContext(ctx),
		bind.WithBase(m.base),
		bind.WithLogger(m.logger),
		bind.WithMetrics(m.metrics),
		bind.WithErrorHandler(m.fail),
	)

	m.mu.Lock()
	m.errs = new(multierror.Error)
	m.mu.Unlock()

	scope := m.rt.Root()
	m.loop.Dispatch(func() {
		for _, n := range roots {
			h, err := c.Compile(n)
			if err != nil {
				m.fail(err)
				continue
			}
			if err := h(n, bind.Context{Data: m.data, Scope: scope}); err != nil {
				m.fail(err)
			}
		}
	})
	if err := m.loop.RunUntilIdle(ctx); err != nil {
		m.fail(err)
	}

	m.mu.Lock()
	errs := m.errs
	m.errs = nil
	m.mu.Unlock()

	stats := m.rt.Stats()
	m.metrics.ObserveRuntime(stats)
	m.logger.Debug("page mounted",
		"roots", len(roots),
		"failed", errs.Len(),
		"liveScopes", stats.LiveScopes())
	return errs.ErrorOrNil()
}

// fail records an error of a root. Outside of Mount it is logged.
func (m *Mounter) fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errs == nil {
		m.logger.Error("page binding failed", "error", err)
		return
	}
	m.errs = multierror.Append(m.errs, err)
	m.metrics.MountFailed()
}

// preloadAll warms the loader with every component path of the page.
func (m *Mounter) preloadAll(ctx context.Context, root *html.Node) {
	seen := make(map[string]bool)
	var paths []string
	for _, n := range dom.Find(root, dom.HasAttr(m.dirs.Component)) {
		p, _ := dom.Attr(n, m.dirs.Component)
		p = component.Resolve(m.base, p)
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}
	if err := component.Preload(ctx, m.loader, paths); err != nil {
		m.logger.Debug("preload failed", "error", err)
	}
}
