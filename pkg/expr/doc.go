// Package expr implements the small expression language used by binding
// directives.
//
// Sources are parsed once into an AST and evaluated by a tree-walking
// interpreter; nothing is generated or executed dynamically. Compiled
// programs are cached by source text, so binding the same expression in
// many places parses it once.
//
// # Grammar
//
// Literals (numbers, 'single' and "double" quoted strings, true, false,
// null, undefined, [arrays] and {objects}), identifiers, member access
// (a.b, a?.b, a[i]), calls, the unary operators ! - +, the binary operators
// * / % + - < <= > >= == != === !== && || ??, and the conditional a ? b : c.
// Event handlers additionally accept assignments (= += -=) and several
// statements separated by semicolons.
//
// # Names
//
// An identifier is looked up in the evaluation locals first, then in the
// data context, then in each parent context from nearest to farthest, and
// finally among the builtins. Unknown names evaluate to nil. The special
// names $data, $parent (the nearest parent), $parents and $event (also $e)
// are always available.
//
// Values implementing Object or Sequence are read through their methods,
// which is how observable records and lists record dependencies. Go maps,
// slices and structs are read with reflection; a field or method named
// "count" is found as Count when no lower-case member exists.
//
// # Templates
//
// CompileTemplate parses literal text with embedded ${expression}
// placeholders. The result always evaluates to a string; nil renders as the
// empty string.
package expr
