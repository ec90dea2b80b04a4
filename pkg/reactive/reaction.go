package reactive

// Reaction is a re-runnable unit of work that reads observable state.
//
// The dependency list always reflects the most recent tracked run: it is
// retracted in full before every run.
type Reaction struct {
	id uint64

	// run is invoked when a dependency changes.
	run func()

	// deps are the subscriber sets this reaction is currently registered in.
	deps []*Observed

	// disposed reactions are skipped by pending notifications.
	disposed bool
}

// NewReaction creates a reaction that calls run whenever one of the
// dependencies recorded by Runtime.Track changes.
func NewReaction(run func()) *Reaction {
	return &Reaction{
		id:  nextID(),
		run: run,
	}
}

// ID returns the unique identifier for this reaction.
func (r *Reaction) ID() uint64 {
	return r.id
}

// Dependencies returns how many (observable, key) pairs the reaction
// currently depends on.
func (r *Reaction) Dependencies() int {
	return len(r.deps)
}

// Disposed reports whether the reaction was released by its scope.
func (r *Reaction) Disposed() bool {
	return r.disposed
}

// addDep records a dependency. Called when an observable is read while this
// reaction is current.
func (r *Reaction) addDep(o *Observed) {
	for _, d := range r.deps {
		if d == o {
			return
		}
	}
	r.deps = append(r.deps, o)
}

// clear unsubscribes the reaction from every dependency.
func (r *Reaction) clear() {
	for len(r.deps) > 0 {
		last := len(r.deps) - 1
		r.deps[last].unsubscribe(r)
		r.deps[last] = nil
		r.deps = r.deps[:last]
	}
}
