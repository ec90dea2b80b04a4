package expr

import (
	"fmt"
	"strings"
)

var builtins = map[string]Func{
	"len": func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("len: want 1 argument, got %d", len(args))
		}
		switch x := args[0].(type) {
		case string:
			return len([]rune(x)), nil
		case interface{ Len() int }:
			return x.Len(), nil
		}
		if items, ok := Items(args[0]); ok {
			return len(items), nil
		}
		return len(Keys(args[0])), nil
	},
	"upper": stringFunc("upper", strings.ToUpper),
	"lower": stringFunc("lower", strings.ToLower),
	"trim":  stringFunc("trim", strings.TrimSpace),
	"string": func(args ...any) (any, error) {
		if len(args) == 0 {
			return "", nil
		}
		return ToString(args[0]), nil
	},
	"number": func(args ...any) (any, error) {
		if len(args) == 0 {
			return 0.0, nil
		}
		return ToNumber(args[0]), nil
	},
	"join": func(args ...any) (any, error) {
		if len(args) == 0 || len(args) > 2 {
			return nil, fmt.Errorf("join: want 1 or 2 arguments, got %d", len(args))
		}
		items, ok := Items(args[0])
		if !ok {
			return nil, fmt.Errorf("join: %s is not a list", describe(args[0]))
		}
		sep := ","
		if len(args) == 2 {
			sep = ToString(args[1])
		}
		return joinValues(items, sep), nil
	},
	"keys": func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("keys: want 1 argument, got %d", len(args))
		}
		ks := Keys(args[0])
		out := make([]any, len(ks))
		for i, k := range ks {
			out[i] = k
		}
		return out, nil
	},
	"includes": func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("includes: want 2 arguments, got %d", len(args))
		}
		if s, ok := args[0].(string); ok {
			return strings.Contains(s, ToString(args[1])), nil
		}
		items, _ := Items(args[0])
		for _, it := range items {
			if StrictEqual(it, args[1]) {
				return true, nil
			}
		}
		return false, nil
	},
}

func stringFunc(name string, fn func(string) string) Func {
	return func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("%s: want 1 argument, got %d", name, len(args))
		}
		return fn(ToString(args[0])), nil
	}
}
