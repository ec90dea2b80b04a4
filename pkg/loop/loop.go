package loop

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

// Scheduler starts background work whose continuation must run on the
// binding thread.
type Scheduler interface {
	// Go runs work and then calls the function it returns, if any, on the
	// binding thread.
	Go(ctx context.Context, work func(ctx context.Context) func())
}

// Loop is a callback queue drained by a single goroutine.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	pending int
	wake    chan struct{}

	logger  *slog.Logger
	onPanic func(any)
}

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the logger used for recovered panics.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithPanicHandler is called with the value of every recovered panic.
func WithPanicHandler(fn func(any)) Option {
	return func(l *Loop) {
		l.onPanic = fn
	}
}

// New creates an idle loop.
func New(opts ...Option) *Loop {
	l := &Loop{
		wake:   make(chan struct{}, 1),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Dispatch queues fn. It is safe to call from any goroutine.
func (l *Loop) Dispatch(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	l.signal()
}

// Go implements Scheduler. The loop is not idle until the continuation has
// been queued.
func (l *Loop) Go(ctx context.Context, work func(ctx context.Context) func()) {
	l.mu.Lock()
	l.pending++
	l.mu.Unlock()

	go func() {
		var done func()
		func() {
			defer func() {
				if r := recover(); r != nil {
					l.recovered("background work panic", r)
				}
			}()
			done = work(ctx)
		}()

		l.mu.Lock()
		l.pending--
		if done != nil {
			l.queue = append(l.queue, done)
		}
		l.mu.Unlock()
		l.signal()
	}()
}

// Pending returns the number of queued callbacks plus outstanding
// background work.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue) + l.pending
}

// drain runs queued callbacks until the queue is empty, including
// callbacks queued by the callbacks themselves. It reports whether the
// loop is idle afterwards.
func (l *Loop) drain() bool {
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			idle := l.pending == 0
			l.mu.Unlock()
			return idle
		}
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		for _, fn := range batch {
			l.execute(fn)
		}
	}
}

func (l *Loop) execute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.recovered("dispatch panic", r)
		}
	}()
	fn()
}

func (l *Loop) recovered(msg string, r any) {
	l.logger.Error(msg,
		"panic", fmt.Sprint(r),
		"stack", string(debug.Stack()))
	if l.onPanic != nil {
		l.onPanic(r)
	}
}

// Run executes callbacks until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.drain()
		select {
		case <-l.wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunUntilIdle executes callbacks until nothing is queued and no
// background work is outstanding, or until ctx is done.
func (l *Loop) RunUntilIdle(ctx context.Context) error {
	for {
		if l.drain() {
			return nil
		}
		select {
		case <-l.wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Immediate is a Scheduler that runs work and its continuation
// synchronously on the calling goroutine.
type Immediate struct{}

// Go implements Scheduler.
func (Immediate) Go(ctx context.Context, work func(ctx context.Context) func()) {
	if done := work(ctx); done != nil {
		done()
	}
}
