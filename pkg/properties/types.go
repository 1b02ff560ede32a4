package properties

import (
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/statepath/pkg/expression"
)

// StringExpression evaluates to a string. Unprefixed strings are templates.
type StringExpression struct {
	ExpressionProperty[string]
}

var stringCodec = codec[string]{
	template: true,
	convert: func(v any) (string, error) {
		return expression.ToString(v), nil
	},
}

// NewStringExpression builds a string property from v.
func NewStringExpression(v any) *StringExpression {
	e := &StringExpression{}
	e.init(stringCodec, v)
	return e
}

// StringLiteral builds a string property holding s verbatim.
func StringLiteral(s string) *StringExpression {
	e := &StringExpression{}
	e.initLiteral(stringCodec, s)
	return e
}

// ValueExpression evaluates to any value. Unprefixed strings are templates.
type ValueExpression struct {
	ExpressionProperty[any]
}

var valueCodec = codec[any]{
	template: true,
	convert:  func(v any) (any, error) { return v, nil },
}

// NewValueExpression builds an untyped property from v.
func NewValueExpression(v any) *ValueExpression {
	e := &ValueExpression{}
	e.init(valueCodec, v)
	return e
}

// ValueLiteral builds an untyped property holding v verbatim, strings
// included.
func ValueLiteral(v any) *ValueExpression {
	e := &ValueExpression{}
	e.initLiteral(valueCodec, v)
	return e
}

// NumberExpression evaluates to a float64. Unprefixed numeric strings are
// literals; other unprefixed strings are paths.
type NumberExpression struct {
	ExpressionProperty[float64]
}

var numberCodec = codec[float64]{
	literal: func(s string) (float64, bool) {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return f, err == nil
	},
	convert: func(v any) (float64, error) {
		if f, ok := expression.ToNumber(v); ok {
			return f, nil
		}
		if s, ok := v.(string); ok {
			if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				return f, nil
			}
		}
		return 0, fmt.Errorf("cannot convert %T to a number", v)
	},
}

// NewNumberExpression builds a number property from v.
func NewNumberExpression(v any) *NumberExpression {
	e := &NumberExpression{}
	e.init(numberCodec, v)
	return e
}

// NumberLiteral builds a number property holding f.
func NumberLiteral(f float64) *NumberExpression {
	e := &NumberExpression{}
	e.initLiteral(numberCodec, f)
	return e
}

// IntExpression evaluates to an int. Fractional results are truncated.
type IntExpression struct {
	ExpressionProperty[int]
}

var intCodec = codec[int]{
	literal: func(s string) (int, bool) {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		return n, err == nil
	},
	convert: func(v any) (int, error) {
		if f, ok := expression.ToNumber(v); ok {
			return int(math.Trunc(f)), nil
		}
		if s, ok := v.(string); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
				return n, nil
			}
		}
		return 0, fmt.Errorf("cannot convert %T to an integer", v)
	},
}

// NewIntExpression builds an integer property from v.
func NewIntExpression(v any) *IntExpression {
	e := &IntExpression{}
	e.init(intCodec, v)
	return e
}

// IntLiteral builds an integer property holding n.
func IntLiteral(n int) *IntExpression {
	e := &IntExpression{}
	e.initLiteral(intCodec, n)
	return e
}

// BoolExpression evaluates to a bool. "true" and "false" are literals in
// any case; other unprefixed strings are paths.
type BoolExpression struct {
	ExpressionProperty[bool]
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

var boolCodec = codec[bool]{
	literal: parseBool,
	convert: func(v any) (bool, error) {
		if s, ok := v.(string); ok {
			if b, ok := parseBool(s); ok {
				return b, nil
			}
		}
		return false, fmt.Errorf("cannot convert %T to a bool", v)
	},
}

// NewBoolExpression builds a bool property from v. A nil v is false.
func NewBoolExpression(v any) *BoolExpression {
	e := &BoolExpression{}
	e.init(boolCodec, v)
	return e
}

// BoolLiteral builds a bool property holding b.
func BoolLiteral(b bool) *BoolExpression {
	e := &BoolExpression{}
	e.initLiteral(boolCodec, b)
	return e
}

// ArrayExpression evaluates to a []E. A result that already is a []E is
// returned as the same slice, not a copy, so writes through it reach the
// memory it came from. Other slices are decoded element by element into a
// new slice: memory decoded from JSON or YAML holds []any, so an
// ArrayExpression[string] over it yields a copy. Use ArrayExpression[any]
// to keep aliasing for decoded documents.
type ArrayExpression[E any] struct {
	ExpressionProperty[[]E]
}

func arrayCodec[E any]() codec[[]E] {
	return codec[[]E]{
		literal: func(string) ([]E, bool) { return nil, false },
		convert: func(v any) ([]E, error) {
			rv := reflect.ValueOf(v)
			if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
				return nil, fmt.Errorf("cannot convert %T to an array", v)
			}
			var out []E
			if err := decode(v, &out); err != nil {
				return nil, err
			}
			return out, nil
		},
	}
}

// NewArrayExpression builds an array property from v.
func NewArrayExpression[E any](v any) *ArrayExpression[E] {
	e := &ArrayExpression[E]{}
	e.init(arrayCodec[E](), v)
	return e
}

// ArrayLiteral builds an array property holding items.
func ArrayLiteral[E any](items []E) *ArrayExpression[E] {
	e := &ArrayExpression[E]{}
	e.initLiteral(arrayCodec[E](), items)
	return e
}

// ObjectExpression evaluates to a T, usually a struct or a map. A result
// that already is a T is returned as-is; maps and structs are decoded.
type ObjectExpression[T any] struct {
	ExpressionProperty[T]
}

func objectCodec[T any]() codec[T] {
	return codec[T]{
		literal: func(string) (T, bool) {
			var zero T
			return zero, false
		},
		convert: func(v any) (T, error) {
			var out T
			rv := reflect.ValueOf(v)
			for rv.Kind() == reflect.Pointer && !rv.IsNil() {
				rv = rv.Elem()
			}
			if rv.Kind() != reflect.Map && rv.Kind() != reflect.Struct {
				return out, fmt.Errorf("cannot convert %T to %T", v, out)
			}
			if err := decode(v, &out); err != nil {
				return out, err
			}
			return out, nil
		},
	}
}

// NewObjectExpression builds an object property from v.
func NewObjectExpression[T any](v any) *ObjectExpression[T] {
	e := &ObjectExpression[T]{}
	e.init(objectCodec[T](), v)
	return e
}

// ObjectLiteral builds an object property holding obj.
func ObjectLiteral[T any](obj T) *ObjectExpression[T] {
	e := &ObjectExpression[T]{}
	e.initLiteral(objectCodec[T](), obj)
	return e
}

// EnumExpression evaluates to one of a fixed set of string values.
// Unprefixed strings are literals.
type EnumExpression[E ~string] struct {
	ExpressionProperty[E]
}

func enumCodec[E ~string](allowed []E) codec[E] {
	check := func(s string) (E, error) {
		e := E(s)
		if len(allowed) > 0 && !slices.Contains(allowed, e) {
			return "", fmt.Errorf("%q is not one of %v", s, allowed)
		}
		return e, nil
	}
	return codec[E]{
		literal: func(s string) (E, bool) {
			e, err := check(s)
			return e, err == nil
		},
		convert: func(v any) (E, error) {
			s, ok := v.(string)
			if !ok {
				rv := reflect.ValueOf(v)
				if rv.Kind() != reflect.String {
					return "", fmt.Errorf("cannot convert %T to an enum value", v)
				}
				s = rv.String()
			}
			return check(s)
		},
	}
}

// NewEnumExpression builds an enum property from v. When allowed is not
// empty, literals and results outside it are rejected and unprefixed
// strings outside it are treated as paths.
func NewEnumExpression[E ~string](v any, allowed ...E) *EnumExpression[E] {
	e := &EnumExpression[E]{}
	e.init(enumCodec(allowed), v)
	return e
}

// EnumLiteral builds an enum property holding e.
func EnumLiteral[E ~string](v E, allowed ...E) *EnumExpression[E] {
	e := &EnumExpression[E]{}
	e.initLiteral(enumCodec(allowed), v)
	return e
}

func decode(in, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(in); err != nil {
		return fmt.Errorf("cannot decode %T: %w", in, err)
	}
	return nil
}
