package reactive

import "sort"

// Observable is implemented by values whose reads and writes are tracked by a
// Runtime.
type Observable interface {
	// Runtime returns the runtime the observable reports reads to.
	Runtime() *Runtime
}

// Record is an observable keyed record.
//
// Get, Has and Keys subscribe the current reaction; Set and Delete notify
// subscribers of the affected key.
type Record struct {
	rt     *Runtime
	fields map[string]any

	// observed is created lazily per key.
	observed map[string]*Observed

	// keys is notified when the key set changes.
	keys *Observed
}

// NewRecord creates an observable record holding a copy of fields.
func (rt *Runtime) NewRecord(fields map[string]any) *Record {
	r := &Record{
		rt:     rt,
		fields: make(map[string]any, len(fields)),
	}
	for k, v := range fields {
		r.fields[k] = v
	}
	return r
}

// Runtime implements Observable.
func (r *Record) Runtime() *Runtime {
	return r.rt
}

// observedFor returns the subscriber set for key, creating it.
func (r *Record) observedFor(key string) *Observed {
	if r.observed == nil {
		r.observed = make(map[string]*Observed)
	}
	o, ok := r.observed[key]
	if !ok {
		o = &Observed{}
		r.observed[key] = o
	}
	return o
}

// Get returns the value stored under key and subscribes the current
// reaction to it. Missing keys yield nil and still subscribe, so that a
// later Set re-runs the reader.
//
// Nested map[string]any and []any values are wrapped on first read and
// stored back, so repeated reads return the same observable.
func (r *Record) Get(key string) any {
	if r.rt.Tracking() {
		r.rt.depend(r.observedFor(key))
	}
	v := r.fields[key]
	if w, ok := r.rt.nested(v); ok {
		r.fields[key] = w
		return w
	}
	return v
}

// Peek returns the value stored under key without subscribing.
func (r *Record) Peek(key string) any {
	return r.fields[key]
}

// Has reports whether key is present, subscribing to it.
func (r *Record) Has(key string) bool {
	if r.rt.Tracking() {
		r.rt.depend(r.observedFor(key))
	}
	_, ok := r.fields[key]
	return ok
}

// Set stores value under key and notifies the key's subscribers.
// Writing a value that is the same as the stored one is a no-op.
func (r *Record) Set(key string, value any) {
	old, existed := r.fields[key]
	if existed && same(old, value) {
		return
	}
	r.fields[key] = value

	if existed {
		r.observed[key].notify(r.rt)
		return
	}
	notifyUnion(r.rt, r.keys, r.observed[key])
}

// Delete removes key. Its subscriber set is dropped and the former
// subscribers are notified once.
func (r *Record) Delete(key string) {
	if _, ok := r.fields[key]; !ok {
		return
	}
	delete(r.fields, key)

	o := r.observed[key]
	delete(r.observed, key)

	notifyUnion(r.rt, r.keys, o)
}

// Keys returns the sorted keys and subscribes to key additions and
// removals.
func (r *Record) Keys() []string {
	if r.rt.Tracking() {
		if r.keys == nil {
			r.keys = &Observed{}
		}
		r.rt.depend(r.keys)
	}
	keys := make([]string, 0, len(r.fields))
	for k := range r.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of keys without subscribing.
func (r *Record) Len() int {
	return len(r.fields)
}

// Snapshot returns an untracked shallow copy of the fields.
func (r *Record) Snapshot() map[string]any {
	out := make(map[string]any, len(r.fields))
	for k, v := range r.fields {
		out[k] = v
	}
	return out
}

// Subscribers returns the number of reactions subscribed to key.
func (r *Record) Subscribers(key string) int {
	return r.observed[key].Len()
}
