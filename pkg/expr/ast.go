package expr

// Node is a parsed expression.
type Node interface {
	Pos() int
}

type (
	// Literal is a constant value.
	Literal struct {
		At    int
		Value any
	}

	// Ident is a name resolved against the environment.
	Ident struct {
		At   int
		Name string
	}

	// Member is a.b or a?.b.
	Member struct {
		At       int
		Object   Node
		Name     string
		Optional bool
	}

	// Index is a[i] or a?.[i].
	Index struct {
		At       int
		Object   Node
		Index    Node
		Optional bool
	}

	// Call is f(args) or f?.(args).
	Call struct {
		At       int
		Callee   Node
		Args     []Node
		Optional bool
	}

	// Unary is !x, -x or +x.
	Unary struct {
		At int
		Op string
		X  Node
	}

	// Binary is an arithmetic, comparison or equality operation.
	Binary struct {
		At   int
		Op   string
		L, R Node
	}

	// Logical is a short-circuiting &&, || or ??.
	Logical struct {
		At   int
		Op   string
		L, R Node
	}

	// Cond is test ? then : else.
	Cond struct {
		At               int
		Test, Then, Else Node
	}

	// ArrayLit is [a, b].
	ArrayLit struct {
		At    int
		Elems []Node
	}

	// ObjectLit is {k: v}.
	ObjectLit struct {
		At     int
		Keys   []string
		Values []Node
	}

	// Assign is target = value, target += value or target -= value.
	Assign struct {
		At     int
		Op     string
		Target Node
		Value  Node
	}

	// Seq is a list of statements; its value is the value of the last one.
	Seq struct {
		At    int
		Exprs []Node
	}
)

func (n *Literal) Pos() int   { return n.At }
func (n *Ident) Pos() int     { return n.At }
func (n *Member) Pos() int    { return n.At }
func (n *Index) Pos() int     { return n.At }
func (n *Call) Pos() int      { return n.At }
func (n *Unary) Pos() int     { return n.At }
func (n *Binary) Pos() int    { return n.At }
func (n *Logical) Pos() int   { return n.At }
func (n *Cond) Pos() int      { return n.At }
func (n *ArrayLit) Pos() int  { return n.At }
func (n *ObjectLit) Pos() int { return n.At }
func (n *Assign) Pos() int    { return n.At }
func (n *Seq) Pos() int       { return n.At }
