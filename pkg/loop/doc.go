// Package loop provides the single logical thread bindings run on.
//
// Observables and scopes are not safe for concurrent use. Everything that
// touches them runs as a callback on a Loop: Dispatch queues a callback,
// and Go runs blocking work (such as loading a component) on its own
// goroutine and queues the continuation it returns. The loop executes
// callbacks one at a time, recovering and logging panics.
//
// RunUntilIdle drains the loop until nothing is queued and no background
// work is outstanding, which is how a page is rendered once; Run keeps
// serving callbacks until its context is cancelled.
package loop
