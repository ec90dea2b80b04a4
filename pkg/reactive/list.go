package reactive

// List is an observable ordered sequence.
//
// Each index is observed separately, plus the length. Items subscribes to the
// length and to every index, the way iterating a sequence reads all of them.
type List struct {
	rt    *Runtime
	items []any

	observed map[int]*Observed
	length   *Observed
}

// NewList creates an observable list holding a copy of items.
func (rt *Runtime) NewList(items []any) *List {
	l := &List{
		rt:    rt,
		items: make([]any, len(items)),
	}
	copy(l.items, items)
	return l
}

// Runtime implements Observable.
func (l *List) Runtime() *Runtime {
	return l.rt
}

func (l *List) observedAt(i int) *Observed {
	if l.observed == nil {
		l.observed = make(map[int]*Observed)
	}
	o, ok := l.observed[i]
	if !ok {
		o = &Observed{}
		l.observed[i] = o
	}
	return o
}

func (l *List) dependLength() {
	if l.rt.Tracking() {
		if l.length == nil {
			l.length = &Observed{}
		}
		l.rt.depend(l.length)
	}
}

// Len returns the number of items, subscribing to the length.
func (l *List) Len() int {
	l.dependLength()
	return len(l.items)
}

// At returns the item at index i, subscribing to that index.
// Out of range indexes yield nil.
func (l *List) At(i int) any {
	if l.rt.Tracking() {
		l.rt.depend(l.observedAt(i))
	}
	if i < 0 || i >= len(l.items) {
		return nil
	}
	return l.item(i)
}

// item returns items[i], wrapping a nested container in place.
func (l *List) item(i int) any {
	v := l.items[i]
	if w, ok := l.rt.nested(v); ok {
		l.items[i] = w
		return w
	}
	return v
}

// Items returns a copy of all items, subscribing to the length and to each
// index.
func (l *List) Items() []any {
	l.dependLength()
	if l.rt.Tracking() {
		for i := range l.items {
			l.rt.depend(l.observedAt(i))
		}
	}
	out := make([]any, len(l.items))
	for i := range l.items {
		out[i] = l.item(i)
	}
	return out
}

// SetAt replaces the item at index i. Setting index len appends.
func (l *List) SetAt(i int, value any) {
	if i == len(l.items) {
		l.Append(value)
		return
	}
	if i < 0 || i > len(l.items) {
		return
	}
	if same(l.items[i], value) {
		return
	}
	l.items[i] = value
	l.notifyIndex(i)
}

// Append adds items to the end.
func (l *List) Append(values ...any) {
	if len(values) == 0 {
		return
	}
	start := len(l.items)
	l.items = append(l.items, values...)

	sets := []*Observed{l.length}
	for i := start; i < len(l.items); i++ {
		sets = append(sets, l.observed[i])
	}
	notifyUnion(l.rt, sets...)
}

// RemoveAt removes the item at index i, shifting later items down.
func (l *List) RemoveAt(i int) {
	if i < 0 || i >= len(l.items) {
		return
	}
	oldLen := len(l.items)
	copy(l.items[i:], l.items[i+1:])
	l.items[oldLen-1] = nil
	l.items = l.items[:oldLen-1]

	sets := []*Observed{l.length}
	for j := i; j < oldLen; j++ {
		sets = append(sets, l.observed[j])
	}
	notifyUnion(l.rt, sets...)
}

// Replace swaps the whole content, notifying every index whose item changed
// and the length if it changed.
func (l *List) Replace(items []any) {
	old := l.items
	l.items = make([]any, len(items))
	copy(l.items, items)

	n := len(old)
	if len(items) > n {
		n = len(items)
	}
	var sets []*Observed
	for i := 0; i < n; i++ {
		if i < len(old) && i < len(items) && same(old[i], items[i]) {
			continue
		}
		sets = append(sets, l.observed[i])
	}
	if len(old) != len(items) {
		sets = append(sets, l.length)
	}
	notifyUnion(l.rt, sets...)
}

// Peek returns a copy of the items without subscribing.
func (l *List) Peek() []any {
	out := make([]any, len(l.items))
	copy(out, l.items)
	return out
}

func (l *List) notifyIndex(i int) {
	if o := l.observed[i]; o != nil {
		o.notify(l.rt)
	}
}
