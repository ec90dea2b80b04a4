package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	gerrors "github.com/gallia-dev/gallia/internal/errors"
	"github.com/gallia-dev/gallia/pkg/listdiff"
	"github.com/gallia-dev/gallia/pkg/reactive"
)

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	return New(WithRegistry(prometheus.NewRegistry()), WithNamespace("test"))
}

func TestBindingOpened(t *testing.T) {
	m := newTestMetrics(t)
	m.BindingOpened("text")
	m.BindingOpened("text")
	m.BindingOpened("for")

	if got := testutil.ToFloat64(m.bindings.WithLabelValues("text")); got != 2 {
		t.Errorf("text bindings = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.bindings.WithLabelValues("for")); got != 1 {
		t.Errorf("for bindings = %v, want 1", got)
	}
}

func TestListEdits(t *testing.T) {
	m := newTestMetrics(t)
	events := listdiff.Collect([]string{"A", "B", "C"}, []string{"C", "A", "D"})
	m.ListEdits(listdiff.Count(events))

	s := listdiff.Count(events)
	tests := []struct {
		op   listdiff.Op
		want int
	}{
		{listdiff.Noop, s.Noops},
		{listdiff.Insert, s.Inserts},
		{listdiff.Move, s.Moves},
		{listdiff.Remove, s.Removes},
	}
	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			if got := testutil.ToFloat64(m.listEdits.WithLabelValues(tt.op.String())); got != float64(tt.want) {
				t.Errorf("%s = %v, want %d", tt.op, got, tt.want)
			}
		})
	}
}

func TestComponentLoaded(t *testing.T) {
	m := newTestMetrics(t)
	m.ComponentLoaded(10*time.Millisecond, nil)
	m.ComponentLoaded(time.Millisecond, fmt.Errorf("mount: %w", gerrors.New("G020")))
	m.ComponentLoaded(time.Millisecond, errors.New("boom"))

	if got := testutil.ToFloat64(m.loads.WithLabelValues("success", "")); got != 1 {
		t.Errorf("success = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.loads.WithLabelValues("error", "G020")); got != 1 {
		t.Errorf("G020 = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.loads.WithLabelValues("error", "internal")); got != 1 {
		t.Errorf("internal = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.loadDuration); got != 1 {
		t.Errorf("duration series = %d, want 1", got)
	}
}

func TestObserveRuntime(t *testing.T) {
	m := newTestMetrics(t)
	rt := reactive.NewRuntime()
	rec := rt.NewRecord(map[string]any{"n": 0})

	sub, err := rt.Root().CreateSubScope()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sub.ObserveAndReact(
		func() (any, error) { return rec.Get("n"), nil },
		func(any) {},
	); err != nil {
		t.Fatal(err)
	}
	rec.Set("n", 1)
	rec.Set("n", 2)

	m.ObserveRuntime(rt.Stats())

	if got := testutil.ToFloat64(m.reactionRuns); got != 2 {
		t.Errorf("reaction runs = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.liveScopes); got != 1 {
		t.Errorf("live scopes = %v, want 1", got)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.BindingOpened("text")
	m.ListEdits(listdiff.Stats{Inserts: 1})
	m.ComponentLoaded(time.Second, nil)
	m.MountFailed()
	m.ObserveRuntime(reactive.Stats{})
}

func TestMountFailed(t *testing.T) {
	m := newTestMetrics(t)
	m.MountFailed()
	if got := testutil.ToFloat64(m.mountErrors); got != 1 {
		t.Errorf("mount errors = %v, want 1", got)
	}
}
