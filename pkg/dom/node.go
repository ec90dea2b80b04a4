package dom

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Parse parses a complete HTML document.
func Parse(r io.Reader) (*html.Node, error) {
	return html.Parse(r)
}

// ParseString parses a complete HTML document held in a string.
func ParseString(src string) (*html.Node, error) {
	return html.Parse(strings.NewReader(src))
}

// ParseFragment parses src as body content and returns a fragment holding
// the resulting nodes.
func ParseFragment(src string) (*html.Node, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(src), body)
	if err != nil {
		return nil, err
	}
	frag := NewFragment()
	for _, n := range nodes {
		frag.AppendChild(n)
	}
	return frag, nil
}

// Render writes n as HTML.
func Render(w io.Writer, n *html.Node) error {
	if IsFragment(n) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if err := html.Render(w, c); err != nil {
				return err
			}
		}
		return nil
	}
	return html.Render(w, n)
}

// RenderString renders n to a string.
func RenderString(n *html.Node) string {
	var buf bytes.Buffer
	if err := Render(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}

// NewFragment returns an empty fragment.
func NewFragment() *html.Node {
	return &html.Node{Type: html.DocumentNode}
}

// IsFragment reports whether n is a parentless container.
func IsFragment(n *html.Node) bool {
	return n != nil && n.Type == html.DocumentNode
}

// IsElement reports whether n is an element named tag, or any element when
// tag is empty.
func IsElement(n *html.Node, tag string) bool {
	return n != nil && n.Type == html.ElementNode && (tag == "" || n.Data == tag)
}

// IsTemplate reports whether n is a <template> element.
func IsTemplate(n *html.Node) bool {
	return IsElement(n, "template")
}

// Comment creates a detached comment node.
func Comment(text string) *html.Node {
	return &html.Node{Type: html.CommentNode, Data: text}
}

// Text creates a detached text node.
func Text(text string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: text}
}

// Clone returns a deep copy of n. The copy is detached.
func Clone(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
	}
	if len(n.Attr) > 0 {
		c.Attr = make([]html.Attribute, len(n.Attr))
		copy(c.Attr, n.Attr)
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.AppendChild(Clone(child))
	}
	return c
}

// CloneChildren returns a fragment holding deep copies of n's children.
func CloneChildren(n *html.Node) *html.Node {
	frag := NewFragment()
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		frag.AppendChild(Clone(child))
	}
	return frag
}

// Children returns a snapshot of n's children.
func Children(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

// Detach removes n from its parent, if any.
func Detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// InsertAfter places n immediately after ref, detaching it first.
func InsertAfter(ref, n *html.Node) {
	Detach(n)
	ref.Parent.InsertBefore(n, ref.NextSibling)
}

// InsertBefore places n immediately before ref, detaching it first.
func InsertBefore(ref, n *html.Node) {
	Detach(n)
	ref.Parent.InsertBefore(n, ref)
}

// InsertFragmentAfter moves every child of frag, in order, to just after
// ref, and returns the moved nodes.
func InsertFragmentAfter(ref, frag *html.Node) []*html.Node {
	nodes := Children(frag)
	at := ref
	for _, n := range nodes {
		InsertAfter(at, n)
		at = n
	}
	return nodes
}

// Replace puts n where old is and detaches old.
func Replace(old, n *html.Node) {
	Detach(n)
	old.Parent.InsertBefore(n, old)
	old.Parent.RemoveChild(old)
}

// AppendChildren moves every child of frag to the end of parent.
func AppendChildren(parent, frag *html.Node) {
	for _, n := range Children(frag) {
		Detach(n)
		parent.AppendChild(n)
	}
}

// nodeRange returns the siblings from start to end inclusive. It stops at
// the last sibling when end is not found.
func nodeRange(start, end *html.Node) []*html.Node {
	var out []*html.Node
	for n := start; n != nil; n = n.NextSibling {
		out = append(out, n)
		if n == end {
			break
		}
	}
	return out
}

// MoveRangeAfter moves the sibling range start..end to just after ref.
// Nothing happens when the range already follows ref.
func MoveRangeAfter(start, end, ref *html.Node) {
	if ref.NextSibling == start {
		return
	}
	at := ref
	for _, n := range nodeRange(start, end) {
		InsertAfter(at, n)
		at = n
	}
}

// RemoveRange detaches the sibling range start..end.
func RemoveRange(start, end *html.Node) {
	for _, n := range nodeRange(start, end) {
		Detach(n)
	}
}

// RemoveBetween detaches the siblings strictly between start and end.
func RemoveBetween(start, end *html.Node) {
	for n := start.NextSibling; n != nil && n != end; {
		next := n.NextSibling
		Detach(n)
		n = next
	}
}

// Attr returns the value of attribute key.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets attribute key, adding it when missing.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes attribute key.
func RemoveAttr(n *html.Node, key string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

// TextContent returns the concatenated text of n and its descendants.
func TextContent(n *html.Node) string {
	switch n.Type {
	case html.TextNode, html.CommentNode:
		return n.Data
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// SetTextContent replaces the text of n. Elements lose their children and
// get a single text node.
func SetTextContent(n *html.Node, text string) {
	switch n.Type {
	case html.TextNode, html.CommentNode:
		n.Data = text
		return
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	if text != "" {
		n.AppendChild(Text(text))
	}
}

// Find returns every node under root, root included, for which match
// returns true, in document order.
func Find(root *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	stack := []*html.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if match(n) {
			out = append(out, n)
		}
		for c := n.LastChild; c != nil; c = c.PrevSibling {
			stack = append(stack, c)
		}
	}
	return out
}

// HasAncestor reports whether any proper ancestor of n matches.
func HasAncestor(n *html.Node, match func(*html.Node) bool) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if match(p) {
			return true
		}
	}
	return false
}

// HasAttr returns a matcher for elements carrying attribute key.
func HasAttr(key string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		_, ok := Attr(n, key)
		return ok
	}
}
