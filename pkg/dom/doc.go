// Package dom provides the DOM primitives the binding engine needs, on top
// of golang.org/x/net/html.
//
// Nodes are plain *html.Node values. A fragment is a DocumentNode used as a
// parentless container; rendering a fragment renders its children. The
// HTML parser keeps the content of a <template> element as the element's
// children, so template content is reached with Children.
//
// # Ranges
//
// Dynamic content is bracketed by comment nodes. MoveRangeAfter and
// RemoveRange operate on the inclusive sibling range between two such
// markers, and RemoveBetween clears what lies strictly between them.
//
// # Host
//
// html.Node has no notion of DOM properties or event listeners. Host keeps
// both in side tables keyed by node. A handful of properties are reflected
// into the tree so that rendering shows them: textcontent, classname, id,
// value, checked, disabled and hidden.
package dom
