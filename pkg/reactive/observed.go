package reactive

// Observed is the subscriber set of a single (observable, key) pair.
// It is created lazily the first time the key is read under tracking.
type Observed struct {
	subs []*Reaction
}

// subscribe adds a reaction to the subscriber set.
// Deduplicates so that a reaction reading the same key twice in one run is
// notified once.
func (o *Observed) subscribe(r *Reaction) {
	for _, existing := range o.subs {
		if existing == r {
			return
		}
	}
	o.subs = append(o.subs, r)
}

// unsubscribe removes a reaction from the subscriber set.
func (o *Observed) unsubscribe(r *Reaction) {
	for i, existing := range o.subs {
		if existing == r {
			// Order doesn't matter: swap with the last element.
			last := len(o.subs) - 1
			o.subs[i] = o.subs[last]
			o.subs[last] = nil
			o.subs = o.subs[:last]
			return
		}
	}
}

// Len returns the number of current subscribers.
func (o *Observed) Len() int {
	if o == nil {
		return 0
	}
	return len(o.subs)
}

// notify re-runs every subscriber. The subscriber set is copied first: a
// reaction re-subscribes itself while it runs, and iterating the live slice
// would pick it up again.
func (o *Observed) notify(rt *Runtime) {
	if o == nil || len(o.subs) == 0 {
		return
	}
	subs := make([]*Reaction, len(o.subs))
	copy(subs, o.subs)
	rt.propagate(subs)
}

// notifyUnion notifies the union of several subscriber sets in one pass, so
// a reaction subscribed to more than one of them runs once.
func notifyUnion(rt *Runtime, sets ...*Observed) {
	var subs []*Reaction
	var seen map[*Reaction]struct{}
	for _, o := range sets {
		if o == nil {
			continue
		}
		for _, s := range o.subs {
			if seen == nil {
				seen = make(map[*Reaction]struct{})
			}
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			subs = append(subs, s)
		}
	}
	if len(subs) > 0 {
		rt.propagate(subs)
	}
}
