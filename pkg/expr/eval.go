package expr

import (
	"math"
	"strings"
)

// Env is the evaluation environment of one expression run.
type Env struct {
	// Data is the innermost data context.
	Data any
	// Parents are the enclosing data contexts, nearest first.
	Parents []any
	// Locals shadow every other name.
	Locals map[string]any
}

func (e *Env) lookup(name string) any {
	if v, ok := e.Locals[name]; ok {
		return v
	}
	switch name {
	case "$data":
		return e.Data
	case "$parent":
		if len(e.Parents) > 0 {
			return e.Parents[0]
		}
		return nil
	case "$parents":
		return e.Parents
	case "$e":
		return e.Locals["$event"]
	}
	if hasMember(e.Data, name) {
		v, _ := getMember(e.Data, name)
		return v
	}
	for _, p := range e.Parents {
		if hasMember(p, name) {
			v, _ := getMember(p, name)
			return v
		}
	}
	if b, ok := builtins[name]; ok {
		return b
	}
	return nil
}

// owner returns the context an assignment to name writes to: the first
// context defining it, or the data context.
func (e *Env) owner(name string) any {
	if hasMember(e.Data, name) {
		return e.Data
	}
	for _, p := range e.Parents {
		if hasMember(p, name) {
			return p
		}
	}
	return e.Data
}

// optionalNil marks a short-circuited optional chain.
type optionalNil struct{}

func (e *Env) eval(n Node) (any, error) {
	v, err := e.evalChain(n)
	if _, ok := v.(optionalNil); ok {
		return nil, err
	}
	return v, err
}

// evalChain evaluates n, propagating an optional chain short circuit up
// through the member, index and call nodes of the same chain.
func (e *Env) evalChain(n Node) (any, error) {
	switch n := n.(type) {
	case *Literal:
		return n.Value, nil

	case *Ident:
		return e.lookup(n.Name), nil

	case *Member:
		obj, err := e.evalChain(n.Object)
		if err != nil {
			return nil, err
		}
		if _, ok := obj.(optionalNil); ok {
			return obj, nil
		}
		if obj == nil {
			if n.Optional {
				return optionalNil{}, nil
			}
			return nil, evalErrorf(n.At, "cannot read %q of nil", n.Name)
		}
		v, _ := getMember(obj, n.Name)
		return v, nil

	case *Index:
		obj, err := e.evalChain(n.Object)
		if err != nil {
			return nil, err
		}
		if _, ok := obj.(optionalNil); ok {
			return obj, nil
		}
		if obj == nil {
			if n.Optional {
				return optionalNil{}, nil
			}
			return nil, evalErrorf(n.At, "cannot index nil")
		}
		idx, err := e.eval(n.Index)
		if err != nil {
			return nil, err
		}
		return getIndex(obj, idx)

	case *Call:
		fn, err := e.evalChain(n.Callee)
		if err != nil {
			return nil, err
		}
		if _, ok := fn.(optionalNil); ok {
			return fn, nil
		}
		if fn == nil && n.Optional {
			return optionalNil{}, nil
		}
		args := make([]any, len(n.Args))
		for i, a := range n.Args {
			if args[i], err = e.eval(a); err != nil {
				return nil, err
			}
		}
		v, err := call(fn, args)
		if err != nil {
			if _, ok := err.(*EvalError); ok {
				return nil, err
			}
			return nil, evalErrorf(n.At, "%s", err)
		}
		return v, nil

	case *Unary:
		x, err := e.eval(n.X)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case "!":
			return !Truthy(x), nil
		case "-":
			return -ToNumber(x), nil
		default:
			return ToNumber(x), nil
		}

	case *Binary:
		l, err := e.eval(n.L)
		if err != nil {
			return nil, err
		}
		r, err := e.eval(n.R)
		if err != nil {
			return nil, err
		}
		return binary(n.Op, l, r), nil

	case *Logical:
		l, err := e.eval(n.L)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case "&&":
			if !Truthy(l) {
				return l, nil
			}
		case "||":
			if Truthy(l) {
				return l, nil
			}
		default:
			if l != nil {
				return l, nil
			}
		}
		return e.eval(n.R)

	case *Cond:
		test, err := e.eval(n.Test)
		if err != nil {
			return nil, err
		}
		if Truthy(test) {
			return e.eval(n.Then)
		}
		return e.eval(n.Else)

	case *ArrayLit:
		out := make([]any, len(n.Elems))
		for i, el := range n.Elems {
			v, err := e.eval(el)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil

	case *ObjectLit:
		out := make(map[string]any, len(n.Keys))
		for i, k := range n.Keys {
			v, err := e.eval(n.Values[i])
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil

	case *Assign:
		return e.assign(n)

	case *Seq:
		var last any
		for _, s := range n.Exprs {
			v, err := e.eval(s)
			if err != nil {
				return nil, err
			}
			last = v
		}
		return last, nil
	}
	return nil, evalErrorf(n.Pos(), "unsupported node %T", n)
}

func (e *Env) assign(n *Assign) (any, error) {
	value, err := e.eval(n.Value)
	if err != nil {
		return nil, err
	}
	if n.Op != "=" {
		cur, err := e.eval(n.Target)
		if err != nil {
			return nil, err
		}
		value = binary(strings.TrimSuffix(n.Op, "="), cur, value)
	}

	switch t := n.Target.(type) {
	case *Ident:
		if _, ok := e.Locals[t.Name]; ok {
			e.Locals[t.Name] = value
			return value, nil
		}
		owner := e.owner(t.Name)
		if owner == nil {
			return nil, evalErrorf(n.At, "cannot assign %q without a data context", t.Name)
		}
		if err := setMember(owner, t.Name, value); err != nil {
			return nil, evalErrorf(n.At, "%s", err)
		}
	case *Member:
		obj, err := e.eval(t.Object)
		if err != nil {
			return nil, err
		}
		if obj == nil {
			return nil, evalErrorf(n.At, "cannot set %q of nil", t.Name)
		}
		if err := setMember(obj, t.Name, value); err != nil {
			return nil, evalErrorf(n.At, "%s", err)
		}
	case *Index:
		obj, err := e.eval(t.Object)
		if err != nil {
			return nil, err
		}
		if obj == nil {
			return nil, evalErrorf(n.At, "cannot index nil")
		}
		idx, err := e.eval(t.Index)
		if err != nil {
			return nil, err
		}
		if err := setIndex(obj, idx, value); err != nil {
			return nil, evalErrorf(n.At, "%s", err)
		}
	}
	return value, nil
}

func binary(op string, l, r any) any {
	switch op {
	case "+":
		_, ls := l.(string)
		_, rs := r.(string)
		if ls || rs {
			return ToString(l) + ToString(r)
		}
		return ToNumber(l) + ToNumber(r)
	case "-":
		return ToNumber(l) - ToNumber(r)
	case "*":
		return ToNumber(l) * ToNumber(r)
	case "/":
		return ToNumber(l) / ToNumber(r)
	case "%":
		return math.Mod(ToNumber(l), ToNumber(r))
	case "==":
		return LooseEqual(l, r)
	case "!=":
		return !LooseEqual(l, r)
	case "===":
		return StrictEqual(l, r)
	case "!==":
		return !StrictEqual(l, r)
	case "<", "<=", ">", ">=":
		return compare(op, l, r)
	}
	return nil
}

func compare(op string, l, r any) bool {
	ls, lok := l.(string)
	rs, rok := r.(string)
	if lok && rok {
		switch op {
		case "<":
			return ls < rs
		case "<=":
			return ls <= rs
		case ">":
			return ls > rs
		default:
			return ls >= rs
		}
	}
	a, b := ToNumber(l), ToNumber(r)
	switch op {
	case "<":
		return a < b
	case "<=":
		return a <= b
	case ">":
		return a > b
	default:
		return a >= b
	}
}
