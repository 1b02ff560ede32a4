package expression

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Expression is a parsed expression tree node.
type Expression interface {
	// Eval evaluates the expression against mem.
	Eval(mem Memory) (any, error)
	// String renders the expression as parseable source text.
	String() string
}

// Constant is a literal value.
type Constant struct {
	Value any
}

func (e *Constant) Eval(Memory) (any, error) { return e.Value, nil }

func (e *Constant) String() string {
	switch v := e.Value.(type) {
	case nil:
		return "null"
	case string:
		return "'" + strings.NewReplacer(`\`, `\\`, "'", `\'`, "\n", `\n`, "\t", `\t`, "\r", `\r`).Replace(v) + "'"
	case bool:
		return strconv.FormatBool(v)
	}
	if s, ok := formatInteger(e.Value); ok {
		return s
	}
	if f, ok := ToNumber(e.Value); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	b, err := json.Marshal(e.Value)
	if err != nil {
		return fmt.Sprintf("%v", e.Value)
	}
	return string(b)
}

// Accessor reads a named property. A nil Base makes it a root identifier.
type Accessor struct {
	Base Expression
	Name string
}

func (e *Accessor) Eval(mem Memory) (any, error) { return evalAccess(e, mem) }

func (e *Accessor) String() string {
	if e.Base == nil {
		return e.Name
	}
	return e.Base.String() + "." + e.Name
}

// Element reads an indexed element or a computed property.
type Element struct {
	Base  Expression
	Index Expression
}

func (e *Element) Eval(mem Memory) (any, error) { return evalAccess(e, mem) }

func (e *Element) String() string {
	return e.Base.String() + "[" + e.Index.String() + "]"
}

// accessPath folds an accessor/element chain into a memory path. It
// returns ok=false when the chain is rooted in something other than an
// identifier, such as a function call.
func accessPath(e Expression, mem Memory) (Path, bool, error) {
	switch n := e.(type) {
	case *Accessor:
		if n.Base == nil {
			return Path{Name(n.Name)}, true, nil
		}
		base, ok, err := accessPath(n.Base, mem)
		if !ok || err != nil {
			return nil, ok, err
		}
		return base.Append(accessorSegment(n.Name)), true, nil
	case *Element:
		base, ok, err := accessPath(n.Base, mem)
		if !ok || err != nil {
			return nil, ok, err
		}
		idx, err := n.Index.Eval(mem)
		if err != nil {
			return nil, false, err
		}
		return base.Append(segmentFromValue(idx)), true, nil
	}
	return nil, false, nil
}

// firstAccessor is the Accessor name the parser uses for ".first()".
const firstAccessor = "first()"

func accessorSegment(name string) Segment {
	if name == firstAccessor {
		return Segment{Kind: FirstSegment}
	}
	return Name(name)
}

func evalAccess(e Expression, mem Memory) (any, error) {
	p, ok, err := accessPath(e, mem)
	if err != nil {
		return nil, err
	}
	if ok {
		return mem.GetValue(p.String())
	}

	var (
		base Expression
		seg  Segment
	)
	switch n := e.(type) {
	case *Accessor:
		base, seg = n.Base, accessorSegment(n.Name)
	case *Element:
		idx, err := n.Index.Eval(mem)
		if err != nil {
			return nil, err
		}
		base, seg = n.Base, segmentFromValue(idx)
	}
	v, err := base.Eval(mem)
	if err != nil {
		return nil, err
	}
	out, _ := Walker{}.Get(v, Path{seg})
	return out, nil
}

// Unary applies a prefix operator.
type Unary struct {
	Op      string
	Operand Expression
}

func (e *Unary) Eval(mem Memory) (any, error) {
	v, err := e.Operand.Eval(mem)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case "!":
		return !IsTruthy(v), nil
	case "-", "+":
		f, ok := ToNumber(v)
		if !ok {
			return nil, fmt.Errorf("operator %s requires a number, got %T", e.Op, v)
		}
		if n, ok := toInt64(v); ok && n != math.MinInt64 {
			if e.Op == "-" {
				n = -n
			}
			return intResult(n), nil
		}
		if e.Op == "-" {
			f = -f
		}
		return normalizeNumber(f, isInteger(v)), nil
	}
	return nil, fmt.Errorf("unknown unary operator %q", e.Op)
}

func (e *Unary) String() string { return e.Op + e.Operand.String() }

// Binary applies an infix operator.
type Binary struct {
	Op          string
	Left, Right Expression
}

func (e *Binary) String() string {
	return "(" + e.Left.String() + " " + e.Op + " " + e.Right.String() + ")"
}

func (e *Binary) Eval(mem Memory) (any, error) {
	left, err := e.Left.Eval(mem)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case "&&":
		if !IsTruthy(left) {
			return false, nil
		}
		right, err := e.Right.Eval(mem)
		if err != nil {
			return nil, err
		}
		return IsTruthy(right), nil
	case "||":
		if IsTruthy(left) {
			return true, nil
		}
		right, err := e.Right.Eval(mem)
		if err != nil {
			return nil, err
		}
		return IsTruthy(right), nil
	}

	right, err := e.Right.Eval(mem)
	if err != nil {
		return nil, err
	}
	return applyBinary(e.Op, left, right)
}

func applyBinary(op string, left, right any) (any, error) {
	switch op {
	case "==":
		return Equal(left, right), nil
	case "!=":
		return !Equal(left, right), nil
	case "&":
		return ToString(left) + ToString(right), nil
	case "+":
		_, ls := left.(string)
		_, rs := right.(string)
		if ls || rs {
			return ToString(left) + ToString(right), nil
		}
	case "<", "<=", ">", ">=":
		return compare(op, left, right)
	}

	lf, lok := ToNumber(left)
	rf, rok := ToNumber(right)
	if !lok || !rok {
		return nil, fmt.Errorf("operator %s requires numbers, got %T and %T", op, left, right)
	}
	integral := isInteger(left) && isInteger(right)
	if li, ok := toInt64(left); ok {
		if ri, ok := toInt64(right); ok && (ri != 0 || (op != "/" && op != "%")) {
			if n, ok := integerArith(op, li, ri); ok {
				return intResult(n), nil
			}
		}
	}
	switch op {
	case "+":
		return normalizeNumber(lf+rf, integral), nil
	case "-":
		return normalizeNumber(lf-rf, integral), nil
	case "*":
		return normalizeNumber(lf*rf, integral), nil
	case "/":
		if rf == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		if integral {
			return normalizeNumber(math.Trunc(lf/rf), true), nil
		}
		return lf / rf, nil
	case "%":
		if rf == 0 {
			return nil, fmt.Errorf("modulo by zero")
		}
		return normalizeNumber(math.Mod(lf, rf), integral), nil
	}
	return nil, fmt.Errorf("unknown operator %q", op)
}

func compare(op string, left, right any) (any, error) {
	var c int
	lf, lok := ToNumber(left)
	rf, rok := ToNumber(right)
	ls, lsok := left.(string)
	rs, rsok := right.(string)
	switch {
	case lok && rok:
		switch {
		case lf < rf:
			c = -1
		case lf > rf:
			c = 1
		}
	case lsok && rsok:
		c = strings.Compare(ls, rs)
	default:
		return nil, fmt.Errorf("operator %s cannot compare %T and %T", op, left, right)
	}
	switch op {
	case "<":
		return c < 0, nil
	case "<=":
		return c <= 0, nil
	case ">":
		return c > 0, nil
	}
	return c >= 0, nil
}

// Conditional is the ternary operator.
type Conditional struct {
	Cond, Then, Else Expression
}

func (e *Conditional) Eval(mem Memory) (any, error) {
	c, err := e.Cond.Eval(mem)
	if err != nil {
		return nil, err
	}
	if IsTruthy(c) {
		return e.Then.Eval(mem)
	}
	return e.Else.Eval(mem)
}

func (e *Conditional) String() string {
	return "(" + e.Cond.String() + " ? " + e.Then.String() + " : " + e.Else.String() + ")"
}

// Call invokes a registered function.
type Call struct {
	Name string
	Args []Expression
	fn   Function
}

func (e *Call) Eval(mem Memory) (any, error) {
	if e.fn.Lazy != nil {
		return e.fn.Lazy(mem, e.Args)
	}
	args := make([]any, len(e.Args))
	for i, a := range e.Args {
		v, err := a.Eval(mem)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	v, err := e.fn.Apply(args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.Name, err)
	}
	return v, nil
}

func (e *Call) String() string {
	parts := make([]string, len(e.Args))
	for i, a := range e.Args {
		parts[i] = a.String()
	}
	return e.Name + "(" + strings.Join(parts, ", ") + ")"
}

// ArrayLiteral builds a new []any.
type ArrayLiteral struct {
	Items []Expression
}

func (e *ArrayLiteral) Eval(mem Memory) (any, error) {
	out := make([]any, len(e.Items))
	for i, item := range e.Items {
		v, err := item.Eval(mem)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *ArrayLiteral) String() string {
	parts := make([]string, len(e.Items))
	for i, item := range e.Items {
		parts[i] = item.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// ObjectLiteral builds a new map[string]any.
type ObjectLiteral struct {
	Keys   []string
	Values []Expression
}

func (e *ObjectLiteral) Eval(mem Memory) (any, error) {
	out := make(map[string]any, len(e.Keys))
	for i, k := range e.Keys {
		v, err := e.Values[i].Eval(mem)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

func (e *ObjectLiteral) String() string {
	parts := make([]string, len(e.Keys))
	for i, k := range e.Keys {
		parts[i] = (&Constant{Value: k}).String() + ": " + e.Values[i].String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Template concatenates literal text with evaluated ${...} spans.
type Template struct {
	Parts []Expression
}

func (e *Template) Eval(mem Memory) (any, error) {
	var sb strings.Builder
	for _, p := range e.Parts {
		v, err := p.Eval(mem)
		if err != nil {
			return nil, err
		}
		sb.WriteString(ToString(v))
	}
	return sb.String(), nil
}

func (e *Template) String() string {
	var sb strings.Builder
	sb.WriteByte('`')
	for _, p := range e.Parts {
		if c, ok := p.(*Constant); ok {
			if s, ok := c.Value.(string); ok {
				sb.WriteString(strings.NewReplacer("`", "\\`", "${", "\\${").Replace(s))
				continue
			}
		}
		sb.WriteString("${" + p.String() + "}")
	}
	sb.WriteByte('`')
	return sb.String()
}
