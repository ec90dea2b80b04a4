package listdiff

import "fmt"

// Op is the kind of an edit event.
type Op uint8

const (
	Noop   Op = iota // Key stays at its relative position
	Insert           // Key is new
	Move             // Key existed elsewhere
	Remove           // Key is gone
)

// String returns the string representation of the Op.
func (op Op) String() string {
	switch op {
	case Noop:
		return "NOOP"
	case Insert:
		return "INSERT"
	case Move:
		return "MOVE"
	case Remove:
		return "REMOVE"
	default:
		return "UNKNOWN"
	}
}

// Event is a single edit.
//
// For Noop, Insert and Move, Index is the position in the new snapshot. For
// Remove it is the position the key occupies in the previous snapshot once
// the removals emitted before it have been applied.
type Event[K comparable] struct {
	Op    Op
	Key   K
	Index int
}

func (e Event[K]) String() string {
	return fmt.Sprintf("%s %v@%d", e.Op, e.Key, e.Index)
}

// Debug enables duplicate key assertions.
var Debug = false

// Index builds the key to position map for a snapshot.
func Index[K comparable](keys []K) map[K]int {
	m := make(map[K]int, len(keys))
	for i, k := range keys {
		if Debug {
			if j, dup := m[k]; dup {
				panic(fmt.Sprintf("listdiff: duplicate key %v at %d and %d", k, j, i))
			}
		}
		m[k] = i
	}
	return m
}

// Diff compares prev with next and calls emit for every edit, in the order
// the edits must be applied.
//
// prevIndex must be Index(prev); a nil map is rebuilt. The returned map is
// Index(next) and can be passed back as prevIndex on the following call.
func Diff[K comparable](prev []K, prevIndex map[K]int, next []K, emit func(Event[K])) map[K]int {
	if prevIndex == nil {
		prevIndex = Index(prev)
	}
	nextIndex := Index(next)

	removed := 0
	remove := func(key K, oldIndex int) {
		emit(Event[K]{Op: Remove, Key: key, Index: oldIndex - removed})
		removed++
	}

	oldIndex, cur := 0, 0
	for cur < len(next) {
		key := next[cur]

		if oldIndex >= len(prev) {
			// Previous snapshot exhausted.
			if _, seen := prevIndex[key]; seen {
				emit(Event[K]{Op: Move, Key: key, Index: cur})
			} else {
				emit(Event[K]{Op: Insert, Key: key, Index: cur})
			}
			cur++
			continue
		}

		oldKey := prev[oldIndex]
		if oldKey == key {
			emit(Event[K]{Op: Noop, Key: key, Index: cur})
			oldIndex++
			cur++
			continue
		}

		oldKeyNewPos, oldKeyKept := nextIndex[oldKey]
		keyOldPos, keyExisted := prevIndex[key]

		switch {
		case oldKeyKept && keyExisted:
			switch {
			case keyOldPos == oldIndex+1:
				// key lands here once oldKey is moved out; oldKey is
				// resolved when its own new position comes up.
				oldIndex++
			case oldKeyNewPos > oldIndex:
				emit(Event[K]{Op: Move, Key: key, Index: cur})
				cur++
			default:
				emit(Event[K]{Op: Move, Key: key, Index: cur})
				oldIndex++
				cur++
			}

		case !oldKeyKept && !keyExisted:
			remove(oldKey, oldIndex)
			emit(Event[K]{Op: Insert, Key: key, Index: cur})
			oldIndex++
			cur++

		case !oldKeyKept:
			// Retry key against the next previous item.
			remove(oldKey, oldIndex)
			oldIndex++

		default:
			emit(Event[K]{Op: Insert, Key: key, Index: cur})
			cur++
		}
	}

	for ; oldIndex < len(prev); oldIndex++ {
		if _, kept := nextIndex[prev[oldIndex]]; !kept {
			remove(prev[oldIndex], oldIndex)
		}
	}

	return nextIndex
}

// Collect runs Diff and returns the events as a slice.
func Collect[K comparable](prev, next []K) []Event[K] {
	var events []Event[K]
	Diff(prev, nil, next, func(e Event[K]) {
		events = append(events, e)
	})
	return events
}

// Stats counts events by Op.
type Stats struct {
	Noops, Inserts, Moves, Removes int
}

// Count tallies a slice of events.
func Count[K comparable](events []Event[K]) Stats {
	var s Stats
	for _, e := range events {
		switch e.Op {
		case Noop:
			s.Noops++
		case Insert:
			s.Inserts++
		case Move:
			s.Moves++
		case Remove:
			s.Removes++
		}
	}
	return s
}
