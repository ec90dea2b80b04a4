// Package reactive provides the fine-grained observation system that drives
// DOM bindings.
//
// Plain values are wrapped into observables whose reads and writes are
// intercepted. Reading a property while a Reaction is being tracked subscribes
// the reaction to that property; writing the property re-runs every
// subscriber synchronously, depth first, on the same call stack.
//
// # Observables
//
// Record is a keyed record and List an ordered sequence:
//
//	rt := reactive.NewRuntime()
//	rec := rt.Wrap(map[string]any{"name": "world"}).(*reactive.Record)
//	rec.Get("name")        // Read (subscribes the current reaction)
//	rec.Set("name", "you") // Write (re-runs subscribers)
//
// Wrapping is idempotent: wrapping an observable returns it unchanged.
//
// # Scopes
//
// A Scope bounds the lifetime of reactions and teardown callbacks:
//
//	sub, _ := rt.Root().CreateSubScope()
//	sub.ObserveAndReact(
//	    func() (any, error) { return rec.Get("name"), nil },
//	    func(v any) { fmt.Println("hello", v) },
//	)
//	sub.Destroy() // drops the reaction and runs teardowns
//
// Destroying a scope cascades to every child scope that has not been
// destroyed already. Destroying twice, or using a destroyed scope, returns an
// error.
//
// # Threading
//
// A Runtime and everything created from it must be confined to a single
// goroutine. Asynchronous work reports back through a dispatch loop (see
// package loop); there are no locks in the reactive core.
//
// Notification order between several subscribers of the same property is not
// specified.
package reactive
