package expression

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Function describes a callable available to expressions. Apply receives
// evaluated arguments; Lazy, when set, receives the unevaluated argument
// expressions and the memory instead, which lets iteration functions bind
// closure variables. MaxArgs < 0 means variadic.
type Function struct {
	MinArgs int
	MaxArgs int
	Apply   func(args []any) (any, error)
	Lazy    func(mem Memory, args []Expression) (any, error)
}

func (f Function) checkArity(n int) bool {
	if n < f.MinArgs {
		return false
	}
	return f.MaxArgs < 0 || n <= f.MaxArgs
}

var errArgType = errors.New("invalid argument type")

func fixed(n int, apply func([]any) (any, error)) Function {
	return Function{MinArgs: n, MaxArgs: n, Apply: apply}
}

func variadic(min int, apply func([]any) (any, error)) Function {
	return Function{MinArgs: min, MaxArgs: -1, Apply: apply}
}

// builtins returns a fresh copy of the built-in function table.
func builtins() map[string]Function {
	return map[string]Function{
		"length":    fixed(1, fnLength),
		"count":     fixed(1, fnLength),
		"concat":    variadic(1, fnConcat),
		"contains":  fixed(2, fnContains),
		"join":      Function{MinArgs: 2, MaxArgs: 3, Apply: fnJoin},
		"first":     fixed(1, func(a []any) (any, error) { return edge(a[0], true), nil }),
		"last":      fixed(1, func(a []any) (any, error) { return edge(a[0], false), nil }),
		"toUpper":   fixed(1, func(a []any) (any, error) { return strings.ToUpper(ToString(a[0])), nil }),
		"toLower":   fixed(1, func(a []any) (any, error) { return strings.ToLower(ToString(a[0])), nil }),
		"trim":      fixed(1, func(a []any) (any, error) { return strings.TrimSpace(ToString(a[0])), nil }),
		"string":    fixed(1, func(a []any) (any, error) { return ToString(a[0]), nil }),
		"int":       fixed(1, fnInt),
		"float":     fixed(1, fnFloat),
		"bool":      fixed(1, func(a []any) (any, error) { return IsTruthy(a[0]), nil }),
		"not":       fixed(1, func(a []any) (any, error) { return !IsTruthy(a[0]), nil }),
		"and":       variadic(1, fnAnd),
		"or":        variadic(1, fnOr),
		"if":        {MinArgs: 3, MaxArgs: 3, Lazy: fnIf},
		"exists":    fixed(1, func(a []any) (any, error) { return a[0] != nil, nil }),
		"coalesce":  variadic(1, fnCoalesce),
		"add":       fixed(2, arith("+")),
		"sub":       fixed(2, arith("-")),
		"mul":       fixed(2, arith("*")),
		"div":       fixed(2, arith("/")),
		"mod":       fixed(2, arith("%")),
		"max":       variadic(1, extreme(1)),
		"min":       variadic(1, extreme(-1)),
		"replace":   fixed(3, fnReplace),
		"split":     Function{MinArgs: 1, MaxArgs: 2, Apply: fnSplit},
		"substring": Function{MinArgs: 2, MaxArgs: 3, Apply: fnSubstring},
		"startsWith": fixed(2, func(a []any) (any, error) {
			return strings.HasPrefix(ToString(a[0]), ToString(a[1])), nil
		}),
		"endsWith": fixed(2, func(a []any) (any, error) {
			return strings.HasSuffix(ToString(a[0]), ToString(a[1])), nil
		}),
		"indexOf":        fixed(2, fnIndexOf),
		"json":           fixed(1, fnJSON),
		"createArray":    variadic(0, func(a []any) (any, error) { return append([]any{}, a...), nil }),
		"foreach":        {MinArgs: 3, MaxArgs: 3, Lazy: iterate(false)},
		"select":         {MinArgs: 3, MaxArgs: 3, Lazy: iterate(false)},
		"where":          {MinArgs: 3, MaxArgs: 3, Lazy: iterate(true)},
		"setPathToValue": {MinArgs: 2, MaxArgs: 2, Lazy: fnSetPathToValue},
	}
}

func fnLength(a []any) (any, error) {
	switch v := a[0].(type) {
	case nil:
		return 0, nil
	case string:
		return len([]rune(v)), nil
	case map[string]any:
		return len(v), nil
	}
	if l, ok := toList(a[0]); ok {
		return len(l), nil
	}
	return nil, fmt.Errorf("%w: %T has no length", errArgType, a[0])
}

func fnConcat(a []any) (any, error) {
	if _, ok := toList(a[0]); ok {
		var out []any
		for _, v := range a {
			l, ok := toList(v)
			if !ok {
				l = []any{v}
			}
			out = append(out, l...)
		}
		return out, nil
	}
	var sb strings.Builder
	for _, v := range a {
		sb.WriteString(ToString(v))
	}
	return sb.String(), nil
}

func fnContains(a []any) (any, error) {
	switch c := a[0].(type) {
	case nil:
		return false, nil
	case string:
		return strings.Contains(c, ToString(a[1])), nil
	case map[string]any:
		_, ok := c[ToString(a[1])]
		return ok, nil
	}
	if l, ok := toList(a[0]); ok {
		for _, v := range l {
			if Equal(v, a[1]) {
				return true, nil
			}
		}
		return false, nil
	}
	return nil, fmt.Errorf("%w: cannot search %T", errArgType, a[0])
}

func fnJoin(a []any) (any, error) {
	l, ok := toList(a[0])
	if !ok {
		return nil, fmt.Errorf("%w: join expects an array, got %T", errArgType, a[0])
	}
	sep := ToString(a[1])
	parts := make([]string, len(l))
	for i, v := range l {
		parts[i] = ToString(v)
	}
	if len(a) == 3 && len(parts) > 1 {
		return strings.Join(parts[:len(parts)-1], sep) + ToString(a[2]) + parts[len(parts)-1], nil
	}
	return strings.Join(parts, sep), nil
}

func edge(v any, first bool) any {
	if s, ok := v.(string); ok {
		r := []rune(s)
		if len(r) == 0 {
			return nil
		}
		if first {
			return string(r[0])
		}
		return string(r[len(r)-1])
	}
	l, ok := toList(v)
	if !ok || len(l) == 0 {
		return nil
	}
	if first {
		return l[0]
	}
	return l[len(l)-1]
}

func fnInt(a []any) (any, error) {
	if s, ok := a[0].(string); ok {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", errArgType, s)
		}
		return n, nil
	}
	f, ok := ToNumber(a[0])
	if !ok {
		return nil, fmt.Errorf("%w: cannot convert %T to int", errArgType, a[0])
	}
	return int(math.Trunc(f)), nil
}

func fnFloat(a []any) (any, error) {
	if s, ok := a[0].(string); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", errArgType, s)
		}
		return f, nil
	}
	f, ok := ToNumber(a[0])
	if !ok {
		return nil, fmt.Errorf("%w: cannot convert %T to float", errArgType, a[0])
	}
	return f, nil
}

func fnAnd(a []any) (any, error) {
	for _, v := range a {
		if !IsTruthy(v) {
			return false, nil
		}
	}
	return true, nil
}

func fnOr(a []any) (any, error) {
	for _, v := range a {
		if IsTruthy(v) {
			return true, nil
		}
	}
	return false, nil
}

func fnIf(mem Memory, args []Expression) (any, error) {
	c, err := args[0].Eval(mem)
	if err != nil {
		return nil, err
	}
	if IsTruthy(c) {
		return args[1].Eval(mem)
	}
	return args[2].Eval(mem)
}

func fnCoalesce(a []any) (any, error) {
	for _, v := range a {
		if v != nil {
			return v, nil
		}
	}
	return nil, nil
}

func arith(op string) func([]any) (any, error) {
	return func(a []any) (any, error) {
		return applyBinary(op, a[0], a[1])
	}
}

func extreme(sign int) func([]any) (any, error) {
	return func(a []any) (any, error) {
		items := a
		if len(a) == 1 {
			if l, ok := toList(a[0]); ok {
				items = l
			}
		}
		var best any
		var bestF float64
		for _, v := range items {
			f, ok := ToNumber(v)
			if !ok {
				return nil, fmt.Errorf("%w: %T is not a number", errArgType, v)
			}
			if best == nil || (sign > 0 && f > bestF) || (sign < 0 && f < bestF) {
				best, bestF = v, f
			}
		}
		return best, nil
	}
}

func fnReplace(a []any) (any, error) {
	return strings.ReplaceAll(ToString(a[0]), ToString(a[1]), ToString(a[2])), nil
}

func fnSplit(a []any) (any, error) {
	s := ToString(a[0])
	sep := ""
	if len(a) == 2 {
		sep = ToString(a[1])
	}
	parts := strings.Split(s, sep)
	out := make([]any, len(parts))
	for i, p := range parts {
		out[i] = p
	}
	return out, nil
}

func fnSubstring(a []any) (any, error) {
	r := []rune(ToString(a[0]))
	start, ok := ToNumber(a[1])
	if !ok || start < 0 || int(start) > len(r) {
		return nil, fmt.Errorf("%w: start index out of range", errArgType)
	}
	end := len(r)
	if len(a) == 3 {
		n, ok := ToNumber(a[2])
		if !ok || n < 0 || int(start)+int(n) > len(r) {
			return nil, fmt.Errorf("%w: length out of range", errArgType)
		}
		end = int(start) + int(n)
	}
	return string(r[int(start):end]), nil
}

func fnIndexOf(a []any) (any, error) {
	if s, ok := a[0].(string); ok {
		i := strings.Index(s, ToString(a[1]))
		if i < 0 {
			return -1, nil
		}
		return len([]rune(s[:i])), nil
	}
	l, ok := toList(a[0])
	if !ok {
		return -1, nil
	}
	for i, v := range l {
		if Equal(v, a[1]) {
			return i, nil
		}
	}
	return -1, nil
}

func fnJSON(a []any) (any, error) {
	s, ok := a[0].(string)
	if !ok {
		return a[0], nil
	}
	var out any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	return out, nil
}

// iterate implements foreach/select (filter=false) and where (filter=true).
// Objects are iterated as {key, value} pairs sorted by key. The second
// argument names the iteration variable, bound in a closure
// frame for the duration of each evaluation of the third.
func iterate(filter bool) func(Memory, []Expression) (any, error) {
	return func(mem Memory, args []Expression) (any, error) {
		src, err := args[0].Eval(mem)
		if err != nil {
			return nil, err
		}
		name, ok := iteratorName(args[1])
		if !ok {
			return nil, fmt.Errorf("%w: iteration variable must be an identifier, got %s", errArgType, args[1])
		}

		var items []any
		switch v := src.(type) {
		case nil:
			return []any{}, nil
		case map[string]any:
			for _, k := range slices.Sorted(maps.Keys(v)) {
				items = append(items, map[string]any{"key": k, "value": v[k]})
			}
		default:
			l, ok := toList(src)
			if !ok {
				return nil, fmt.Errorf("%w: cannot iterate %T", errArgType, src)
			}
			items = l
		}

		scoped, _ := mem.(ScopedMemory)
		out := make([]any, 0, len(items))
		for _, item := range items {
			frame := map[string]any{name: item}
			var (
				v   any
				err error
			)
			if scoped != nil {
				scoped.PushClosureScope(frame)
				v, err = args[2].Eval(mem)
				scoped.PopClosureScope()
			} else {
				v, err = args[2].Eval(&overlayMemory{frame: frame, base: mem})
			}
			if err != nil {
				return nil, err
			}
			if !filter {
				out = append(out, v)
			} else if IsTruthy(v) {
				out = append(out, item)
			}
		}
		return out, nil
	}
}

func iteratorName(e Expression) (string, bool) {
	a, ok := e.(*Accessor)
	if !ok || a.Base != nil {
		return "", false
	}
	return a.Name, true
}

func fnSetPathToValue(mem Memory, args []Expression) (any, error) {
	p, ok, err := accessPath(args[0], mem)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: setPathToValue needs a path, got %s", errArgType, args[0])
	}
	v, err := args[1].Eval(mem)
	if err != nil {
		return nil, err
	}
	if err := mem.SetValue(p.String(), v); err != nil {
		return nil, err
	}
	return v, nil
}
