package listdiff

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func keys(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "")
}

func script(events []Event[string], withNoops bool) []string {
	out := []string{}
	for _, e := range events {
		if e.Op == Noop && !withNoops {
			continue
		}
		out = append(out, e.String())
	}
	return out
}

func TestDiffScenarios(t *testing.T) {
	tests := []struct {
		name       string
		prev, next string
		want       []string
	}{
		{"same", "ABCDEFG", "ABCDEFG", []string{}},
		{"append", "ABCDEF", "ABCDEFG", []string{"INSERT G@6"}},
		{"prepend", "ABCDEF", "GABCDEF", []string{"INSERT G@0"}},
		{"insert middle", "ABCDEF", "ABCGDEF", []string{"INSERT G@3"}},
		{"append and prepend", "ABCDEF", "GABCDEFH", []string{"INSERT G@0", "INSERT H@7"}},
		{"remove last", "ABCDEFG", "ABCDEF", []string{"REMOVE G@6"}},
		{"remove first", "ABCDEF", "BCDEF", []string{"REMOVE A@0"}},
		{"remove middle", "ABCDEF", "ABDEF", []string{"REMOVE C@2"}},
		{"remove first and last", "ABCDEF", "BCDE", []string{"REMOVE A@0", "REMOVE F@4"}},
		{"create", "", "ABC", []string{"INSERT A@0", "INSERT B@1", "INSERT C@2"}},
		{"clear", "ABC", "", []string{"REMOVE A@0", "REMOVE B@0", "REMOVE C@0"}},
		{"change first", "ABCDEF", "GBCDEF", []string{"REMOVE A@0", "INSERT G@0"}},
		{"change middle", "ABCDEF", "ABGDEF", []string{"REMOVE C@2", "INSERT G@2"}},
		{"change last", "ABCDEF", "ABCDEG", []string{"REMOVE F@5", "INSERT G@5"}},
		{"swap", "ABCDEF", "AECDBF", []string{"MOVE E@1", "MOVE B@4"}},
		{"shuffle", "ABCDEF", "ECFABD", []string{"MOVE E@0", "MOVE C@1", "MOVE F@2"}},
		{"rotate", "ABCDEF", "EFABCD", []string{"MOVE E@0", "MOVE F@1"}},
		{"reverse", "ABC", "CBA", []string{"MOVE C@0", "MOVE A@2"}},
		{"remove before kept", "ABC", "CD", []string{"REMOVE A@0", "REMOVE B@0", "INSERT D@1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := script(Collect(keys(tt.prev), keys(tt.next)), false)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Diff(%q, %q) mismatch (-want +got):\n%s", tt.prev, tt.next, diff)
			}
		})
	}
}

func TestDiffIdenticalIsAllNoops(t *testing.T) {
	seq := keys("ABCDEFGHIJ")
	events := Collect(seq, seq)

	s := Count(events)
	if s.Inserts+s.Moves+s.Removes != 0 {
		t.Errorf("identical snapshots produced edits: %+v", s)
	}
	if s.Noops != len(seq) {
		t.Errorf("Noops = %d, want %d", s.Noops, len(seq))
	}
}

func TestDiffFullScript(t *testing.T) {
	got := script(Collect(keys("ABCDEF"), keys("AECDBF")), true)
	want := []string{"NOOP A@0", "MOVE E@1", "NOOP C@2", "NOOP D@3", "MOVE B@4", "NOOP F@5"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestDiffReturnsNextIndex(t *testing.T) {
	prev := []int{1, 2, 3}
	next := []int{3, 1}

	idx := Diff(prev, Index(prev), next, func(Event[int]) {})
	if diff := cmp.Diff(map[int]int{3: 0, 1: 1}, idx); diff != "" {
		t.Errorf("returned index mismatch (-want +got):\n%s", diff)
	}

	// Reuse as the previous index on the next pass.
	var events []Event[int]
	Diff(next, idx, []int{3, 1, 4}, func(e Event[int]) { events = append(events, e) })
	if s := Count(events); s.Inserts != 1 || s.Noops != 2 || s.Moves+s.Removes != 0 {
		t.Errorf("second pass = %v", events)
	}
}

func TestDuplicateKeysPanicInDebug(t *testing.T) {
	Debug = true
	defer func() { Debug = false }()

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate key")
		}
	}()
	Index([]string{"A", "B", "A"})
}

// apply replays events against prev the way a sibling chain with an
// insertion cursor does, and returns the resulting order.
func apply[K comparable](t *testing.T, prev []K, events []Event[K]) []K {
	t.Helper()

	chain := append([]K(nil), prev...)
	indexOf := func(k K) int {
		for i, c := range chain {
			if c == k {
				return i
			}
		}
		return -1
	}
	// cursor is the position after which the next item goes; -1 is the
	// start of the chain.
	cursor := -1
	var last K
	placed := false
	refresh := func() {
		if placed {
			cursor = indexOf(last)
		}
	}

	for _, e := range events {
		switch e.Op {
		case Noop:
			if indexOf(e.Key) < 0 {
				t.Fatalf("noop for missing key %v", e.Key)
			}
		case Insert:
			if indexOf(e.Key) >= 0 {
				t.Fatalf("insert of present key %v", e.Key)
			}
			refresh()
			chain = append(chain[:cursor+1], append([]K{e.Key}, chain[cursor+1:]...)...)
		case Move:
			i := indexOf(e.Key)
			if i < 0 {
				t.Fatalf("move of missing key %v", e.Key)
			}
			chain = append(chain[:i], chain[i+1:]...)
			refresh()
			chain = append(chain[:cursor+1], append([]K{e.Key}, chain[cursor+1:]...)...)
		case Remove:
			i := indexOf(e.Key)
			if i < 0 {
				t.Fatalf("remove of missing key %v", e.Key)
			}
			chain = append(chain[:i], chain[i+1:]...)
			continue
		}
		last, placed = e.Key, true
	}
	return chain
}

func checkRoundTrip(t *testing.T, prev, next []int) {
	t.Helper()

	events := Collect(prev, next)
	got := apply(t, prev, events)
	if len(next) == 0 && len(got) == 0 {
		return
	}
	if diff := cmp.Diff(next, got); diff != "" {
		t.Fatalf("round trip %v -> %v failed (-want +got):\n%s\nevents: %v", prev, next, diff, events)
	}

	// Every new position is addressed exactly once, in order.
	pos := 0
	for _, e := range events {
		if e.Op == Remove {
			continue
		}
		if e.Index != pos || e.Key != next[pos] {
			t.Fatalf("event %v out of order, want index %d key %v", e, pos, next[pos])
		}
		pos++
	}
	if pos != len(next) {
		t.Fatalf("addressed %d positions, want %d", pos, len(next))
	}

	// Noop keys keep their relative order from prev.
	prevIdx := Index(prev)
	lastOld := -1
	for _, e := range events {
		if e.Op != Noop {
			continue
		}
		if prevIdx[e.Key] <= lastOld {
			t.Fatalf("noop %v breaks previous order: %v", e, events)
		}
		lastOld = prevIdx[e.Key]
	}

	nextIdx := Index(next)
	s := Count(events)
	wantRemoves, wantInserts := 0, 0
	for _, k := range prev {
		if _, ok := nextIdx[k]; !ok {
			wantRemoves++
		}
	}
	for _, k := range next {
		if _, ok := prevIdx[k]; !ok {
			wantInserts++
		}
	}
	if s.Removes != wantRemoves || s.Inserts != wantInserts {
		t.Fatalf("removes/inserts = %d/%d, want %d/%d", s.Removes, s.Inserts, wantRemoves, wantInserts)
	}
}

func TestDiffRoundTripRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for iter := 0; iter < 2000; iter++ {
		prev := rng.Perm(rng.Intn(12))
		next := make([]int, 0, len(prev)+4)
		for _, k := range rng.Perm(len(prev)) {
			if rng.Intn(4) != 0 {
				next = append(next, prev[k])
			}
		}
		for i := 0; i < rng.Intn(5); i++ {
			pos := rng.Intn(len(next) + 1)
			next = append(next[:pos], append([]int{100 + iter*10 + i}, next[pos:]...)...)
		}
		checkRoundTrip(t, prev, next)
	}
}

func TestDiffRoundTripPermutations(t *testing.T) {
	base := []int{0, 1, 2, 3}
	var permute func(prefix, rest []int)
	permute = func(prefix, rest []int) {
		if len(rest) == 0 {
			checkRoundTrip(t, base, prefix)
			return
		}
		for i := range rest {
			next := append(append([]int(nil), prefix...), rest[i])
			remaining := append(append([]int(nil), rest[:i]...), rest[i+1:]...)
			permute(next, remaining)
		}
	}
	permute(nil, base)
}

func FuzzDiff(f *testing.F) {
	f.Add([]byte("abcdef"), []byte("aecdbf"))
	f.Add([]byte(""), []byte("abc"))
	f.Add([]byte("abc"), []byte(""))
	f.Add([]byte("abcdef"), []byte("ecfabd"))

	dedupe := func(b []byte) []int {
		seen := make(map[int]bool)
		var out []int
		for _, c := range b {
			k := int(c)
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
		return out
	}

	f.Fuzz(func(t *testing.T, a, b []byte) {
		checkRoundTrip(t, dedupe(a), dedupe(b))
	})
}
