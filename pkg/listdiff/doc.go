// Package listdiff computes keyed edit scripts between two snapshots of a
// list.
//
// Diff walks the new snapshot once, comparing it against a cursor over the
// previous snapshot, and emits one event per new position followed by a
// remove event for every key that disappeared. Events carry keys only; the
// caller owns whatever live structure the keys identify and applies the
// events in emission order.
//
// # Applying events
//
// The event stream is designed for a sibling chain with an insertion cursor
// that starts just before the first item:
//
//   - Noop: the item is already in place; advance the cursor past it.
//   - Insert: create the item after the cursor; advance past it.
//   - Move: relocate the existing item after the cursor; advance past it.
//   - Remove: excise the item.
//
// Items skipped over by a Noop are always moved or removed later in the
// same script, so the chain ends up in the new order.
//
// # Keys
//
// Keys must be unique within one snapshot. Set Debug to panic on duplicates
// instead of producing an undefined script.
package listdiff
