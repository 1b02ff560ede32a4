package expression

import (
	"errors"
	"fmt"
)

// ErrParse is matched by every *ParseError via errors.Is.
var ErrParse = errors.New("parse error")

// ParseError reports malformed expression or path text.
type ParseError struct {
	Text   string
	Offset int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at offset %d in %q: %s", e.Offset, e.Text, e.Msg)
}

func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

func newParseError(text string, offset int, format string, args ...any) *ParseError {
	return &ParseError{Text: text, Offset: offset, Msg: fmt.Sprintf(format, args...)}
}

// EvaluationError wraps a failure raised while evaluating an expression.
type EvaluationError struct {
	Expression string
	Err        error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("failed to evaluate %q: %v", e.Expression, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}
