package reactive

import (
	"fmt"
	"log/slog"
)

// DefaultMaxUpdateDepth is the default limit for nested notification passes.
const DefaultMaxUpdateDepth = 100

// Runtime holds the tracking state shared by a family of observables and
// scopes: the reaction currently being tracked, the root scope, and
// bookkeeping counters.
//
// The "current reaction" follows stack discipline: Track saves the previous
// value and restores it when the getter returns, so a write inside a getter
// that re-runs another reaction cannot corrupt the outer tracking context.
type Runtime struct {
	// current is the reaction whose reads are being recorded. nil means
	// reads don't create subscriptions.
	current *Reaction

	// depth is the nesting depth of notification passes.
	depth    int
	maxDepth int

	root *Scope

	logger  *slog.Logger
	onError func(error)

	stats Stats
}

// Stats are cumulative counters for a runtime.
type Stats struct {
	// Runs counts reaction executions triggered by notifications.
	Runs uint64
	// Notifications counts writes that reached at least one subscriber.
	Notifications uint64
	// Pruned counts bindings dropped right after their first run because
	// they read no observable state.
	Pruned uint64
	// ScopesCreated and ScopesDestroyed count child scopes.
	ScopesCreated   uint64
	ScopesDestroyed uint64
	// Errors counts failures reported to the error handler.
	Errors uint64
}

// LiveScopes returns the number of child scopes not yet destroyed.
func (s Stats) LiveScopes() uint64 {
	return s.ScopesCreated - s.ScopesDestroyed
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the logger used for reaction failures.
func WithLogger(logger *slog.Logger) Option {
	return func(rt *Runtime) {
		if logger != nil {
			rt.logger = logger
		}
	}
}

// WithErrorHandler sets the function receiving errors that have no caller to
// return to: accessor failures during re-runs and update loops.
func WithErrorHandler(fn func(error)) Option {
	return func(rt *Runtime) {
		rt.onError = fn
	}
}

// WithMaxUpdateDepth limits how deeply writes made by reactions may nest.
func WithMaxUpdateDepth(depth int) Option {
	return func(rt *Runtime) {
		if depth > 0 {
			rt.maxDepth = depth
		}
	}
}

// NewRuntime creates a runtime with its root scope.
func NewRuntime(opts ...Option) *Runtime {
	rt := &Runtime{
		maxDepth: DefaultMaxUpdateDepth,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	rt.root = &Scope{
		id:   nextID(),
		rt:   rt,
		root: true,
	}
	return rt
}

// Root returns the root scope. It is created once and never destroyed.
func (rt *Runtime) Root() *Scope {
	return rt.root
}

// Stats returns a copy of the runtime counters.
func (rt *Runtime) Stats() Stats {
	return rt.stats
}

// Wrap returns an observable version of v.
//
// map[string]any becomes a *Record and []any a *List. Values that are already
// observable are returned unchanged, as is anything that cannot be observed.
func (rt *Runtime) Wrap(v any) any {
	switch x := v.(type) {
	case Observable:
		return x
	case map[string]any:
		return rt.NewRecord(x)
	case []any:
		return rt.NewList(x)
	default:
		return v
	}
}

// nested wraps a plain container read out of an observable, so that writes
// through it are observed as well. ok is false when v needs no wrapping.
func (rt *Runtime) nested(v any) (w any, ok bool) {
	switch v.(type) {
	case map[string]any, []any:
		return rt.Wrap(v), true
	}
	return v, false
}

// Track runs getter with r as the current reaction and records every
// observable read as a dependency of r.
//
// The previous dependencies of r are retracted before getter runs. When
// getter fails or panics, the dependencies gathered by that run are
// retracted as well, so a failed run leaves r with no dependencies.
func (rt *Runtime) Track(r *Reaction, getter func() (any, error)) (value any, err error) {
	r.clear()

	prev := rt.current
	rt.current = r
	completed := false
	defer func() {
		rt.current = prev
		if !completed {
			r.clear()
		}
	}()

	value, err = getter()
	if err != nil {
		return nil, err
	}
	completed = true
	return value, nil
}

// Untrack removes r from every dependency set without running it.
func (rt *Runtime) Untrack(r *Reaction) {
	r.clear()
}

// Untracked runs fn with tracking suspended, so reads inside fn create no
// subscriptions.
func (rt *Runtime) Untracked(fn func()) {
	prev := rt.current
	rt.current = nil
	defer func() { rt.current = prev }()
	fn()
}

// Tracking reports whether a reaction is currently being tracked.
func (rt *Runtime) Tracking() bool {
	return rt.current != nil
}

// depend subscribes the current reaction, if any, to o.
func (rt *Runtime) depend(o *Observed) {
	if rt.current == nil {
		return
	}
	o.subscribe(rt.current)
	rt.current.addDep(o)
}

// propagate runs a snapshot of subscribers.
func (rt *Runtime) propagate(subs []*Reaction) {
	if rt.depth >= rt.maxDepth {
		rt.report(fmt.Errorf("%w: more than %d nested updates", ErrUpdateLoop, rt.maxDepth))
		return
	}
	rt.depth++
	defer func() { rt.depth-- }()

	rt.stats.Notifications++
	for _, sub := range subs {
		// A subscriber may be released by an earlier one in the same pass,
		// e.g. a conditional destroying the scope it lives in.
		if sub.disposed {
			continue
		}
		rt.stats.Runs++
		sub.run()
	}
}

// report hands an error to the configured handler, or logs it.
func (rt *Runtime) report(err error) {
	rt.stats.Errors++
	if rt.onError != nil {
		rt.onError(err)
		return
	}
	rt.logger.Error("reaction failed", "error", err)
}
