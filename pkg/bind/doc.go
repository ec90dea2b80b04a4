// Package bind compiles directive markup into handlers that keep a DOM tree
// in sync with reactive data.
//
// Compilation walks a tree once and produces a Handler for its shape. The
// handler is then invoked once per live instance with its own data and
// scope:
//
//	c := bind.NewCompiler(bind.WithLoader(loader))
//	h, err := c.Compile(root)
//	if err != nil {
//	    return err
//	}
//	err = h(root, bind.Context{Data: data, Scope: scope})
//
// # Directives
//
// With the default prefixes:
//
//	Hello ${user.name}!                      text interpolation
//	<a @href="url">                          attribute
//	<input .value="name">                    property
//	<button .on-click="count += 1">          event handler, $event is the event
//	<template x-if="open">...</template>     conditional block
//	<template x-for="todo of todos" x-key="todo.id">...</template>
//	<div x-component="./counter" x-model='{"count": 1}'>...</div>
//
// Text that fails to compile is left as literal text. Every other
// compilation failure is returned from Compile.
//
// Conditional and iteration blocks replace their template element with a
// pair of comment markers, and each loop item is bracketed by its own pair,
// so that an item's nodes can be moved or removed as a unit.
//
// # Contexts
//
// Names resolve against Context.Data first and then against the parent
// contexts, nearest first. Loop items get a context holding the loop
// variable and $index; components get their instance. In both cases the
// enclosing data becomes the first parent.
//
// # Threading
//
// Handlers must run on the goroutine that owns the reactive runtime.
// Component loads run through the configured loop.Scheduler and resume on
// that goroutine.
package bind
