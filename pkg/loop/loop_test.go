package loop

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunUntilIdleRunsInOrder(t *testing.T) {
	l := New()
	var order []int
	l.Dispatch(func() {
		order = append(order, 1)
		l.Dispatch(func() { order = append(order, 3) })
	})
	l.Dispatch(func() { order = append(order, 2) })

	if err := l.RunUntilIdle(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("order = %v, want [1 2 3]", order)
	}
	if l.Pending() != 0 {
		t.Errorf("Pending = %d after idle", l.Pending())
	}
}

func TestGoContinuationRunsOnLoop(t *testing.T) {
	l := New()
	release := make(chan struct{})
	var got string

	l.Go(context.Background(), func(ctx context.Context) func() {
		<-release
		value := "loaded"
		return func() { got = value }
	})

	if l.Pending() != 1 {
		t.Errorf("Pending = %d, want 1 outstanding", l.Pending())
	}
	close(release)

	if err := l.RunUntilIdle(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got != "loaded" {
		t.Errorf("continuation did not run, got %q", got)
	}
}

func TestRunUntilIdleHonoursContext(t *testing.T) {
	l := New()
	block := make(chan struct{})
	defer close(block)
	l.Go(context.Background(), func(context.Context) func() {
		<-block
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.RunUntilIdle(ctx); err != context.DeadlineExceeded {
		t.Errorf("err = %v, want DeadlineExceeded", err)
	}
}

func TestPanicsAreRecovered(t *testing.T) {
	var panics atomic.Int32
	l := New(WithPanicHandler(func(any) { panics.Add(1) }))

	ran := false
	l.Dispatch(func() { panic("callback") })
	l.Go(context.Background(), func(context.Context) func() { panic("work") })
	l.Dispatch(func() { ran = true })

	if err := l.RunUntilIdle(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !ran {
		t.Error("callback after a panicking one did not run")
	}
	if panics.Load() != 2 {
		t.Errorf("panics = %d, want 2", panics.Load())
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	hit := make(chan struct{})
	l.Dispatch(func() { close(hit) })
	select {
	case <-hit:
	case <-time.After(time.Second):
		t.Fatal("dispatched callback not run")
	}

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run = %v, want Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestImmediate(t *testing.T) {
	ran := false
	Immediate{}.Go(context.Background(), func(context.Context) func() {
		return func() { ran = true }
	})
	if !ran {
		t.Error("Immediate should run the continuation synchronously")
	}
}
