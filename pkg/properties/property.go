package properties

import (
	"fmt"
	"strings"
	"sync"

	"github.com/aretw0/statepath/pkg/expression"
)

// codec describes how a property type treats constructor arguments and
// evaluation results.
type codec[T any] struct {
	// template makes unprefixed strings raw templates.
	template bool
	// literal parses an unprefixed string that looks like a literal of T.
	// A false result makes the string a path expression.
	literal func(s string) (T, bool)
	// convert coerces a non-string constructor argument or an evaluation
	// result into T.
	convert func(v any) (T, error)
}

// ExpressionProperty holds either a literal value or an expression that
// produces one. Expression text is parsed at most once, on first use.
//
// A property may be evaluated from several goroutines; SetValue must not
// race with other calls.
type ExpressionProperty[T any] struct {
	codec codec[T]

	value    T
	hasValue bool

	text     string
	template bool
	expr     expression.Expression

	once     sync.Once
	parseErr error

	// err records an unusable constructor argument; it is returned from
	// every evaluation.
	err error
}

func (p *ExpressionProperty[T]) init(c codec[T], v any) {
	p.codec = c
	p.SetValue(v)
}

func (p *ExpressionProperty[T]) initLiteral(c codec[T], v T) {
	p.codec = c
	p.value, p.hasValue = v, true
}

// SetValue replaces the property's content. v may be a literal, a string
// (see the package documentation for how strings are classified), a
// pre-built expression.Expression or nil for the zero value.
func (p *ExpressionProperty[T]) SetValue(v any) {
	var zero T
	p.value, p.hasValue = zero, false
	p.text, p.template, p.expr = "", false, nil
	p.once, p.parseErr, p.err = sync.Once{}, nil, nil

	switch x := v.(type) {
	case nil:
		p.hasValue = true
	case expression.Expression:
		p.expr = x
	case string:
		p.setString(x)
	case T:
		p.value, p.hasValue = x, true
	default:
		lit, err := p.codec.convert(x)
		if err != nil {
			p.err = err
			return
		}
		p.value, p.hasValue = lit, true
	}
}

func (p *ExpressionProperty[T]) setString(s string) {
	switch {
	case strings.HasPrefix(s, "="):
		p.text = s[1:]
		return
	case strings.HasPrefix(s, `\=`):
		s = s[1:]
		if !p.codec.template {
			p.setLiteralString(s)
			return
		}
	}
	if p.codec.template {
		p.text, p.template = s, true
		return
	}
	if lit, ok := p.codec.literal(s); ok {
		p.value, p.hasValue = lit, true
		return
	}
	p.text = s
}

func (p *ExpressionProperty[T]) setLiteralString(s string) {
	if lit, ok := p.codec.literal(s); ok {
		p.value, p.hasValue = lit, true
		return
	}
	lit, err := p.codec.convert(s)
	if err != nil {
		p.err = err
		return
	}
	p.value, p.hasValue = lit, true
}

// Value returns the literal value, if the property holds one.
func (p *ExpressionProperty[T]) Value() (T, bool) {
	return p.value, p.hasValue
}

// ExpressionText returns the "=" prefixed expression form, or "" when the
// property holds a literal. Raw templates are shown as "=`text`".
func (p *ExpressionProperty[T]) ExpressionText() string {
	switch {
	case p.hasValue:
		return ""
	case p.template:
		return "=`" + strings.ReplaceAll(p.text, "`", "\\`") + "`"
	case p.text != "":
		return "=" + p.text
	case p.expr != nil:
		return "=" + p.expr.String()
	}
	return ""
}

// ToExpression returns the underlying expression, parsing it on first use.
// A literal yields a constant expression.
func (p *ExpressionProperty[T]) ToExpression() (expression.Expression, error) {
	if p.err != nil {
		return nil, p.err
	}
	if p.hasValue {
		return &expression.Constant{Value: p.value}, nil
	}
	p.once.Do(func() {
		if p.expr != nil {
			return
		}
		if p.template {
			p.expr, p.parseErr = expression.ParseTemplate(p.text)
		} else {
			p.expr, p.parseErr = expression.ParseExpression(p.text)
		}
	})
	return p.expr, p.parseErr
}

// GetValue evaluates the property against mem, which may be an
// expression.Memory, a map[string]any, a struct or nil. A literal is
// returned as-is. A missing value yields the zero value and no error.
func (p *ExpressionProperty[T]) GetValue(mem any) (T, error) {
	var zero T
	if p.err != nil {
		return zero, p.err
	}
	if p.hasValue {
		return p.value, nil
	}
	expr, err := p.ToExpression()
	if err != nil {
		return zero, err
	}
	m, err := expression.MemoryFor(mem)
	if err != nil {
		return zero, err
	}
	v, err := expr.Eval(m)
	if err != nil {
		return zero, &expression.EvaluationError{Expression: p.ExpressionText(), Err: err}
	}
	if v == nil {
		return zero, nil
	}
	if t, ok := v.(T); ok {
		return t, nil
	}
	out, err := p.codec.convert(v)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", p.ExpressionText(), err)
	}
	return out, nil
}
