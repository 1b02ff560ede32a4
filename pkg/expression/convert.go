package expression

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// ToNumber converts numeric Go values (and json.Number) to float64.
// Strings are not coerced.
func ToNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	}
	return 0, false
}

func isInteger(v any) bool {
	switch x := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case json.Number:
		_, err := x.Int64()
		return err == nil
	}
	return false
}

// toInt64 returns integer kinds (and integral json.Number) as int64. Unsigned
// values above math.MaxInt64 are rejected.
func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint:
		return int64(x), uint64(x) <= math.MaxInt64
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		return int64(x), x <= math.MaxInt64
	case json.Number:
		n, err := x.Int64()
		return n, err == nil
	}
	return 0, false
}

// formatInteger renders integer kinds exactly.
func formatInteger(v any) (string, bool) {
	switch x := v.(type) {
	case uint:
		return strconv.FormatUint(uint64(x), 10), true
	case uint64:
		return strconv.FormatUint(x, 10), true
	}
	if n, ok := toInt64(v); ok {
		return strconv.FormatInt(n, 10), true
	}
	return "", false
}

// intResult returns n as an int when it fits, int64 otherwise.
func intResult(n int64) any {
	if int64(int(n)) == n {
		return int(n)
	}
	return n
}

// integerArith applies op to two integers. The second result is false on
// overflow, in which case the caller falls back to float arithmetic.
func integerArith(op string, a, b int64) (int64, bool) {
	switch op {
	case "+":
		r := a + b
		return r, !((a > 0 && b > 0 && r < 0) || (a < 0 && b < 0 && r >= 0))
	case "-":
		r := a - b
		return r, !((a >= 0 && b < 0 && r < 0) || (a < 0 && b > 0 && r >= 0))
	case "*":
		if a == 0 || b == 0 {
			return 0, true
		}
		r := a * b
		return r, r/b == a && !(a == -1 && b == math.MinInt64) && !(b == -1 && a == math.MinInt64)
	case "/":
		if a == math.MinInt64 && b == -1 {
			return 0, false
		}
		return a / b, true
	case "%":
		if b == -1 {
			return 0, true
		}
		return a % b, true
	}
	return 0, false
}

// normalizeNumber returns an int when f holds a whole number that came
// from integer operands, float64 otherwise.
func normalizeNumber(f float64, integral bool) any {
	if integral && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int(f)
	}
	return f
}

// ToString renders a value the way templates and string concatenation do.
// nil renders as the empty string; maps and slices render as JSON.
func ToString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case fmt.Stringer:
		return x.String()
	}
	if s, ok := formatInteger(v); ok {
		return s
	}
	if f, ok := ToNumber(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// IsTruthy applies the logical truth rules: only nil and false are false.
func IsTruthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	}
	return true
}

// Equal compares two values, treating all numeric types as comparable.
func Equal(a, b any) bool {
	if ia, ok := toInt64(a); ok {
		if ib, ok := toInt64(b); ok {
			return ia == ib
		}
	}
	fa, oka := ToNumber(a)
	fb, okb := ToNumber(b)
	if oka && okb {
		return fa == fb
	}
	if oka != okb {
		return false
	}
	return reflect.DeepEqual(a, b)
}

// toList returns v as a []any. The second result is false when v is not a
// slice or array. A []any is returned as-is.
func toList(v any) ([]any, bool) {
	if l, ok := v.([]any); ok {
		return l, true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
