package reactive

import "errors"

// ErrDoubleDestroy is returned when a scope is destroyed a second time.
var ErrDoubleDestroy = errors.New("reactive: double destroy of scope")

// ErrUseAfterDestroy is returned by any scope operation performed after the
// scope was destroyed.
var ErrUseAfterDestroy = errors.New("reactive: use of scope after destroy")

// ErrRootDestroy is returned when destroying a runtime's root scope, which
// lives as long as the runtime.
var ErrRootDestroy = errors.New("reactive: root scope cannot be destroyed")

// ErrUpdateLoop is reported when writes triggered from reactions nest deeper
// than the runtime's maximum update depth.
var ErrUpdateLoop = errors.New("reactive: update loop detected")
