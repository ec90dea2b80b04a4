package reactive

import (
	"errors"
	"testing"
)

func TestScopeCascade(t *testing.T) {
	rt := NewRuntime()
	rec := rt.NewRecord(map[string]any{"v": 0})

	parent, _ := rt.Root().CreateSubScope()
	child, _ := parent.CreateSubScope()
	grandchild, _ := child.CreateSubScope()

	var order []string
	parent.OnDestroy(func() { order = append(order, "parent") })
	child.OnDestroy(func() { order = append(order, "child") })
	grandchild.OnDestroy(func() { order = append(order, "grandchild") })

	runs := 0
	grandchild.ObserveAndReact(
		func() (any, error) { return rec.Get("v"), nil },
		func(any) { runs++ },
	)

	if err := parent.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}

	want := []string{"grandchild", "child", "parent"}
	if len(order) != len(want) {
		t.Fatalf("teardown order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("teardown order = %v, want %v", order, want)
		}
	}

	for _, s := range []*Scope{parent, child, grandchild} {
		if !s.Destroyed() {
			t.Errorf("scope %d not destroyed", s.ID())
		}
	}

	rec.Set("v", 1)
	if runs != 1 {
		t.Errorf("reaction in destroyed descendant ran again (runs = %d)", runs)
	}
	if n := rec.Subscribers("v"); n != 0 {
		t.Errorf("destroyed scope left %d subscribers", n)
	}
	if live := rt.Stats().LiveScopes(); live != 0 {
		t.Errorf("LiveScopes = %d, want 0", live)
	}
}

func TestChildDestroyedFirstIsSkipped(t *testing.T) {
	rt := NewRuntime()
	parent, _ := rt.Root().CreateSubScope()
	child, _ := parent.CreateSubScope()

	calls := 0
	child.OnDestroy(func() { calls++ })

	if err := child.Destroy(); err != nil {
		t.Fatal(err)
	}
	if err := parent.Destroy(); err != nil {
		t.Fatalf("parent Destroy after child: %v", err)
	}
	if calls != 1 {
		t.Errorf("child teardown ran %d times, want 1", calls)
	}
}

func TestTeardownsRunInRegistrationOrder(t *testing.T) {
	rt := NewRuntime()
	s, _ := rt.Root().CreateSubScope()

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		s.OnDestroy(func() { order = append(order, i) })
	}
	s.Destroy()

	for i, v := range order {
		if v != i {
			t.Fatalf("order = %v, want ascending", order)
		}
	}
}

func TestDoubleDestroy(t *testing.T) {
	rt := NewRuntime()
	s, _ := rt.Root().CreateSubScope()

	if err := s.Destroy(); err != nil {
		t.Fatal(err)
	}
	if err := s.Destroy(); !errors.Is(err, ErrDoubleDestroy) {
		t.Errorf("second Destroy = %v, want ErrDoubleDestroy", err)
	}
}

func TestUseAfterDestroy(t *testing.T) {
	rt := NewRuntime()
	s, _ := rt.Root().CreateSubScope()
	s.Destroy()

	tests := []struct {
		name string
		call func() error
	}{
		{"OnDestroy", func() error { return s.OnDestroy(func() {}) }},
		{"CreateSubScope", func() error { _, err := s.CreateSubScope(); return err }},
		{"ObserveAndReact", func() error {
			_, err := s.ObserveAndReact(func() (any, error) { return nil, nil }, func(any) {})
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, ErrUseAfterDestroy) {
				t.Errorf("err = %v, want ErrUseAfterDestroy", err)
			}
		})
	}
}

func TestRootScope(t *testing.T) {
	rt := NewRuntime()
	root := rt.Root()

	if !root.IsRoot() || root.Parent() != nil {
		t.Fatal("runtime root should be a parentless root scope")
	}
	if err := root.Destroy(); !errors.Is(err, ErrRootDestroy) {
		t.Errorf("root Destroy = %v, want ErrRootDestroy", err)
	}

	ran := false
	if err := root.OnDestroy(func() { ran = true }); err != nil {
		t.Errorf("root OnDestroy = %v, want nil", err)
	}
	if ran {
		t.Error("root teardown must never run")
	}

	child, err := root.CreateSubScope()
	if err != nil {
		t.Fatal(err)
	}
	if child.Parent() != root {
		t.Error("child of root should report root as parent")
	}
	if err := child.Destroy(); err != nil {
		t.Errorf("child of root Destroy: %v", err)
	}
}

func TestDestroyDuringNotification(t *testing.T) {
	rt := NewRuntime()
	rec := rt.NewRecord(map[string]any{"show": true})
	s, _ := rt.Root().CreateSubScope()

	innerRuns := 0
	// The outer reaction destroys the scope; the inner one lives in it and
	// must not run for the same write.
	rt.Root().ObserveAndReact(
		func() (any, error) { return rec.Get("show"), nil },
		func(v any) {
			if !v.(bool) && !s.Destroyed() {
				s.Destroy()
			}
		},
	)
	s.ObserveAndReact(
		func() (any, error) { return rec.Get("show"), nil },
		func(any) { innerRuns++ },
	)

	rec.Set("show", false)
	if innerRuns != 1 {
		t.Errorf("inner reaction ran %d times, want 1", innerRuns)
	}
}
