package reactive

import "sort"

// Unsubscribe releases a single binding created by ObserveAndReact.
type Unsubscribe func() error

// noopUnsubscribe is returned for bindings that were pruned after their first
// run; releasing them is always legal.
func noopUnsubscribe() error { return nil }

// Scope is a lifecycle unit bounding a set of reactions and teardown
// callbacks. Scopes form a tree: destroying a scope destroys every child
// scope that has not been destroyed yet.
//
// The root scope of a runtime is never destroyed. Reactions created directly
// under it are not collected and teardowns registered on it never run.
type Scope struct {
	id     uint64
	rt     *Runtime
	parent *Scope
	root   bool

	// reactions created directly in this scope.
	reactions map[*Reaction]struct{}

	// entries are teardown callbacks and child scopes, keyed by a sequence
	// number so destruction visits them in registration order.
	entries map[uint64]scopeEntry
	seq     uint64

	// entryID is this scope's key in its parent's entries.
	entryID uint64

	destroyed bool
}

type scopeEntry struct {
	fn    func()
	child *Scope
}

// ID returns the unique identifier for this scope.
func (s *Scope) ID() uint64 {
	return s.id
}

// Runtime returns the runtime the scope belongs to.
func (s *Scope) Runtime() *Runtime {
	return s.rt
}

// Parent returns the parent scope, or nil for the root scope.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// IsRoot reports whether s is its runtime's root scope.
func (s *Scope) IsRoot() bool {
	return s.root
}

// Destroyed reports whether the scope has been destroyed.
func (s *Scope) Destroyed() bool {
	return s.destroyed
}

// Reactions returns the number of live reactions owned by this scope.
func (s *Scope) Reactions() int {
	return len(s.reactions)
}

// ObserveAndReact runs accessor once, tracked, and passes its result to
// reaction. Afterwards both run again every time a dependency read by the
// latest accessor run changes.
//
// If the first run reads no observable state the binding can never change;
// it is dropped at once and the returned Unsubscribe does nothing.
//
// An error from the first accessor run is returned and nothing is retained.
// Errors from later runs go to the runtime's error handler and leave the
// binding without dependencies.
func (s *Scope) ObserveAndReact(accessor func() (any, error), reaction func(any)) (Unsubscribe, error) {
	if s.destroyed {
		return nil, ErrUseAfterDestroy
	}

	r := &Reaction{id: nextID()}
	r.run = func() {
		value, err := s.observe(r, accessor)
		if err != nil {
			s.rt.report(err)
			return
		}
		reaction(value)
	}

	value, err := s.observe(r, accessor)
	if err != nil {
		s.forget(r)
		return nil, err
	}
	reaction(value)

	if len(r.deps) == 0 {
		s.forget(r)
		s.rt.stats.Pruned++
		return noopUnsubscribe, nil
	}

	return func() error { return s.unobserve(r) }, nil
}

// observe tracks one run of accessor on behalf of r.
func (s *Scope) observe(r *Reaction, accessor func() (any, error)) (any, error) {
	if s.destroyed {
		return nil, ErrUseAfterDestroy
	}
	if !s.root {
		if s.reactions == nil {
			s.reactions = make(map[*Reaction]struct{})
		}
		s.reactions[r] = struct{}{}
	}
	return s.rt.Track(r, accessor)
}

// unobserve releases r. Fails once the scope has been destroyed: the
// reaction is already gone with it.
func (s *Scope) unobserve(r *Reaction) error {
	if s.destroyed {
		return ErrUseAfterDestroy
	}
	s.forget(r)
	return nil
}

func (s *Scope) forget(r *Reaction) {
	delete(s.reactions, r)
	r.disposed = true
	s.rt.Untrack(r)
}

// OnDestroy registers fn to run once when the scope is destroyed.
// Teardowns registered on the root scope never run.
func (s *Scope) OnDestroy(fn func()) error {
	if s.destroyed {
		return ErrUseAfterDestroy
	}
	if s.root || fn == nil {
		return nil
	}
	s.add(scopeEntry{fn: fn})
	return nil
}

func (s *Scope) add(e scopeEntry) uint64 {
	if s.entries == nil {
		s.entries = make(map[uint64]scopeEntry)
	}
	s.seq++
	s.entries[s.seq] = e
	return s.seq
}

// CreateSubScope allocates a child scope. Destroying the child detaches it
// from the parent, so the parent's own destruction skips it.
func (s *Scope) CreateSubScope() (*Scope, error) {
	if s.destroyed {
		return nil, ErrUseAfterDestroy
	}
	child := &Scope{
		id:     nextID(),
		rt:     s.rt,
		parent: s,
	}
	if !s.root {
		child.entryID = s.add(scopeEntry{child: child})
	}
	s.rt.stats.ScopesCreated++
	return child, nil
}

// Destroy releases every reaction created in the scope, destroys child
// scopes and runs teardown callbacks. Destroying twice returns
// ErrDoubleDestroy.
func (s *Scope) Destroy() error {
	if s.root {
		return ErrRootDestroy
	}
	if s.destroyed {
		return ErrDoubleDestroy
	}
	s.destroyed = true
	s.rt.stats.ScopesDestroyed++

	if p := s.parent; p != nil && !p.root && p.entries != nil {
		delete(p.entries, s.entryID)
	}

	for r := range s.reactions {
		r.disposed = true
		s.rt.Untrack(r)
	}
	s.reactions = nil

	ids := make([]uint64, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	entries := s.entries
	s.entries = nil
	for _, id := range ids {
		e := entries[id]
		if e.child != nil {
			if !e.child.destroyed {
				_ = e.child.Destroy()
			}
			continue
		}
		e.fn()
	}
	return nil
}
