package expr

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Object is a keyed value read through methods, such as an observable
// record.
type Object interface {
	Get(key string) any
	Has(key string) bool
}

// Settable is an Object that accepts assignments.
type Settable interface {
	Set(key string, value any)
}

// Sequence is an ordered value read through methods, such as an observable
// list.
type Sequence interface {
	Len() int
	At(i int) any
}

// IndexSettable is a Sequence that accepts indexed assignments.
type IndexSettable interface {
	SetAt(i int, value any)
}

// Func is a callable value. Builtins and bound methods are Funcs; any other
// Go function is called through reflection.
type Func func(args ...any) (any, error)

// Truthy reports whether v counts as true in a condition: everything except
// nil, false, zero, NaN and the empty string.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0 && !math.IsNaN(x)
	case int:
		return x != 0
	}
	if f, ok := numeric(v); ok {
		return f != 0 && !math.IsNaN(f)
	}
	return true
}

// ToString renders v the way a template placeholder shows it.
func ToString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return formatNumber(x)
	case int:
		return strconv.Itoa(x)
	case fmt.Stringer:
		return x.String()
	case error:
		return x.Error()
	case []any:
		return joinValues(x, ",")
	case Sequence:
		return joinValues(sequenceItems(x), ",")
	case Object:
		return "[object Object]"
	}
	if f, ok := numeric(v); ok {
		return formatNumber(f)
	}
	return fmt.Sprint(v)
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == math.Trunc(f) && math.Abs(f) < 1e21:
		return strconv.FormatFloat(f, 'f', -1, 64)
	default:
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
}

func joinValues(items []any, sep string) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = ToString(it)
	}
	return strings.Join(parts, sep)
}

// ToNumber converts v to a float64. Values with no numeric reading yield
// NaN.
func ToNumber(v any) float64 {
	switch x := v.(type) {
	case nil:
		return 0
	case bool:
		if x {
			return 1
		}
		return 0
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	}
	if f, ok := numeric(v); ok {
		return f
	}
	return math.NaN()
}

// numeric returns the value of any Go number.
func numeric(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case float32:
		return float64(x), true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// StrictEqual is ===: numbers compare by value regardless of Go type,
// scalars by value, and everything else by identity.
func StrictEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if fa, ok := numeric(a); ok {
		fb, ok := numeric(b)
		return ok && fa == fb
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	switch va.Kind() {
	case reflect.Slice, reflect.Map, reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer() && (va.Kind() != reflect.Slice || va.Len() == vb.Len())
	case reflect.Func:
		return false
	}
	if !va.Type().Comparable() {
		return false
	}
	return safeCompare(a, b)
}

func safeCompare(a, b any) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return a == b
}

// LooseEqual is ==: like StrictEqual, except that numbers, numeric strings
// and booleans compare numerically.
func LooseEqual(a, b any) bool {
	if StrictEqual(a, b) {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if isPrimitive(a) && isPrimitive(b) {
		_, as := a.(string)
		_, bs := b.(string)
		if as && bs {
			return false
		}
		return ToNumber(a) == ToNumber(b)
	}
	return false
}

func isPrimitive(v any) bool {
	switch v.(type) {
	case string, bool:
		return true
	}
	_, ok := numeric(v)
	return ok
}

// getMember reads a named member of obj. Missing members yield nil.
func getMember(obj any, name string) (any, bool) {
	switch x := obj.(type) {
	case Object:
		return x.Get(name), true
	case map[string]any:
		v, ok := x[name]
		return v, ok
	case Sequence:
		if name == "length" {
			return x.Len(), true
		}
	case string:
		if name == "length" {
			return utf8.RuneCountInString(x), true
		}
		return nil, false
	case []any:
		if name == "length" {
			return len(x), true
		}
	}
	return reflectMember(reflect.ValueOf(obj), name)
}

// hasMember reports whether obj defines name, without reading it when obj
// is an Object.
func hasMember(obj any, name string) bool {
	switch x := obj.(type) {
	case nil:
		return false
	case Object:
		return x.Has(name)
	case map[string]any:
		_, ok := x[name]
		return ok
	}
	_, ok := getMember(obj, name)
	return ok
}

func reflectMember(rv reflect.Value, name string) (any, bool) {
	if !rv.IsValid() {
		return nil, false
	}

	if m, ok := findMethod(rv, name); ok {
		return boundMethod(m), true
	}

	v := rv
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Struct:
		for _, n := range candidates(name) {
			f, ok := v.Type().FieldByName(n)
			if ok && f.IsExported() {
				return v.FieldByIndex(f.Index).Interface(), true
			}
		}
	case reflect.Map:
		if v.Type().Key().Kind() == reflect.String {
			mv := v.MapIndex(reflect.ValueOf(name).Convert(v.Type().Key()))
			if mv.IsValid() {
				return mv.Interface(), true
			}
		}
	case reflect.Slice, reflect.Array, reflect.String:
		if name == "length" {
			return v.Len(), true
		}
	}
	return nil, false
}

func findMethod(rv reflect.Value, name string) (reflect.Value, bool) {
	for _, n := range candidates(name) {
		if m := rv.MethodByName(n); m.IsValid() {
			return m, true
		}
	}
	return reflect.Value{}, false
}

// candidates lists the Go spellings tried for a member name.
func candidates(name string) []string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError || unicode.IsUpper(r) {
		return []string{name}
	}
	return []string{name, string(unicode.ToUpper(r)) + name[size:]}
}

func boundMethod(m reflect.Value) Func {
	return func(args ...any) (any, error) {
		return callReflect(m, args)
	}
}

// getIndex reads obj[idx].
func getIndex(obj, idx any) (any, error) {
	if i, ok := intIndex(idx); ok {
		switch x := obj.(type) {
		case Sequence:
			return x.At(i), nil
		case []any:
			if i < 0 || i >= len(x) {
				return nil, nil
			}
			return x[i], nil
		case string:
			runes := []rune(x)
			if i < 0 || i >= len(runes) {
				return nil, nil
			}
			return string(runes[i]), nil
		}
		rv := reflect.Indirect(reflect.ValueOf(obj))
		if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
			if i < 0 || i >= rv.Len() {
				return nil, nil
			}
			return rv.Index(i).Interface(), nil
		}
	}
	v, _ := getMember(obj, ToString(idx))
	return v, nil
}

func intIndex(v any) (int, bool) {
	f, ok := numeric(v)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// setMember assigns obj[name] = value.
func setMember(obj any, name string, value any) error {
	switch x := obj.(type) {
	case Settable:
		x.Set(name, value)
		return nil
	case map[string]any:
		x[name] = value
		return nil
	}

	rv := reflect.ValueOf(obj)
	if rv.Kind() == reflect.Pointer && !rv.IsNil() && rv.Elem().Kind() == reflect.Struct {
		v := rv.Elem()
		for _, n := range candidates(name) {
			f := v.FieldByName(n)
			if f.IsValid() && f.CanSet() {
				return assignValue(f, value)
			}
		}
	}
	return fmt.Errorf("cannot assign %q on %T", name, obj)
}

// setIndex assigns obj[idx] = value.
func setIndex(obj, idx, value any) error {
	if i, ok := intIndex(idx); ok {
		switch x := obj.(type) {
		case IndexSettable:
			x.SetAt(i, value)
			return nil
		case []any:
			if i < 0 || i >= len(x) {
				return fmt.Errorf("index %d out of range", i)
			}
			x[i] = value
			return nil
		}
	}
	return setMember(obj, ToString(idx), value)
}

func assignValue(dst reflect.Value, value any) error {
	if value == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	v, err := convertArg(reflect.ValueOf(value), dst.Type())
	if err != nil {
		return err
	}
	dst.Set(v)
	return nil
}

// call invokes fn with args.
func call(fn any, args []any) (any, error) {
	switch f := fn.(type) {
	case Func:
		return f(args...)
	case func(...any) (any, error):
		return f(args...)
	}
	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func {
		return nil, fmt.Errorf("%s is not a function", describe(fn))
	}
	return callReflect(rv, args)
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func callReflect(fn reflect.Value, args []any) (any, error) {
	t := fn.Type()
	in := make([]reflect.Value, 0, len(args))
	for i := 0; i < len(args) || i < t.NumIn(); i++ {
		var pt reflect.Type
		switch {
		case t.IsVariadic() && i >= t.NumIn()-1:
			if i >= len(args) {
				break
			}
			pt = t.In(t.NumIn() - 1).Elem()
		case i < t.NumIn():
			pt = t.In(i)
		default:
			// Extra arguments are ignored.
		}
		if pt == nil {
			continue
		}

		var arg any
		if i < len(args) {
			arg = args[i]
		}
		if arg == nil {
			in = append(in, reflect.Zero(pt))
			continue
		}
		v, err := convertArg(reflect.ValueOf(arg), pt)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		in = append(in, v)
	}

	out := fn.Call(in)
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if t.Out(0) == errorType {
			err, _ := out[0].Interface().(error)
			return nil, err
		}
		return out[0].Interface(), nil
	default:
		var err error
		if t.Out(len(out)-1) == errorType {
			err, _ = out[len(out)-1].Interface().(error)
		}
		return out[0].Interface(), err
	}
}

func convertArg(v reflect.Value, t reflect.Type) (reflect.Value, error) {
	if v.Type().AssignableTo(t) {
		return v, nil
	}
	if _, ok := numeric(v.Interface()); ok && isNumberKind(t.Kind()) {
		return v.Convert(t), nil
	}
	if t.Kind() == reflect.String {
		return reflect.ValueOf(ToString(v.Interface())).Convert(t), nil
	}
	if isNumberKind(t.Kind()) && v.Kind() == reflect.String {
		return reflect.ValueOf(ToNumber(v.Interface())).Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %s as %s", v.Type(), t)
}

func isNumberKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func describe(v any) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", v)
}

func sequenceItems(s Sequence) []any {
	n := s.Len()
	out := make([]any, n)
	for i := 0; i < n; i++ {
		out[i] = s.At(i)
	}
	return out
}

// Items returns the elements of a sequence-like value: a Sequence, a Go
// slice or array, or nil (no items). ok is false for anything else.
func Items(v any) (items []any, ok bool) {
	switch x := v.(type) {
	case nil:
		return nil, true
	case []any:
		return x, true
	case interface{ Items() []any }:
		return x.Items(), true
	case Sequence:
		return sequenceItems(x), true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out, true
	}
	return nil, false
}

// Keys returns the sorted keys of a keyed value.
func Keys(v any) []string {
	switch x := v.(type) {
	case interface{ Keys() []string }:
		return x.Keys()
	case map[string]any:
		out := make([]string, 0, len(x))
		for k := range x {
			out = append(out, k)
		}
		sort.Strings(out)
		return out
	}
	return nil
}

// MemberOf returns v.name the way a member expression reads it, and whether v
// has such a member.
func MemberOf(v any, name string) (any, bool) {
	if !hasMember(v, name) {
		return nil, false
	}
	return getMember(v, name)
}

// Callable reports whether v can be called by CallValue.
func Callable(v any) bool {
	switch v.(type) {
	case nil:
		return false
	case Func, func(...any) (any, error):
		return true
	}
	return reflect.ValueOf(v).Kind() == reflect.Func
}

// CallValue invokes fn the way a call expression does.
func CallValue(fn any, args ...any) (any, error) {
	return call(fn, args)
}
