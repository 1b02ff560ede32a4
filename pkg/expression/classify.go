package expression

import "strings"

// Kind tags the variant held by a Parsed value.
type Kind int

const (
	KindLiteral Kind = iota
	KindPath
	KindExpression
)

func (k Kind) String() string {
	switch k {
	case KindLiteral:
		return "literal"
	case KindPath:
		return "path"
	case KindExpression:
		return "expression"
	}
	return "unknown"
}

// Parsed is the classification of an input string. Exactly one of Literal,
// Path or Expr is meaningful, selected by Kind. For a path, Text holds the
// path as written; Path is nil when it contains nested index expressions,
// which are only resolved against memory.
type Parsed struct {
	Kind    Kind
	Literal string
	Path    Path
	Text    string
	Expr    Expression
}

// Eval evaluates the parsed input against mem. Literals are returned as-is
// and paths are looked up through mem.
func (p Parsed) Eval(mem Memory) (any, error) {
	switch p.Kind {
	case KindLiteral:
		return p.Literal, nil
	case KindPath:
		if p.Text == "" {
			return mem.GetValue(p.Path.String())
		}
		return mem.GetValue(p.Text)
	}
	return p.Expr.Eval(mem)
}

// Parse classifies input with the default parser.
func Parse(input string) (Parsed, error) {
	return defaultParser.Parse(input)
}

// Parse classifies input. A leading "=" marks an expression and "\="
// escapes it into a literal "=". Text containing "${" is a template,
// well-formed path text is a path and anything else is a literal.
func (p *Parser) Parse(input string) (Parsed, error) {
	switch {
	case strings.HasPrefix(input, "="):
		expr, err := p.ParseExpression(input[1:])
		if err != nil {
			return Parsed{}, err
		}
		return Parsed{Kind: KindExpression, Expr: expr}, nil
	case strings.HasPrefix(input, `\=`):
		return Parsed{Kind: KindLiteral, Literal: input[1:]}, nil
	case strings.Contains(input, "${"):
		expr, err := p.ParseTemplate(input)
		if err != nil {
			return Parsed{}, err
		}
		return Parsed{Kind: KindExpression, Expr: expr}, nil
	}
	if path, err := ParsePath(input, nil); err == nil {
		return Parsed{Kind: KindPath, Path: path, Text: input}, nil
	}
	if _, err := ParsePath(input, p.checkIndex); err == nil {
		return Parsed{Kind: KindPath, Text: input}, nil
	}
	return Parsed{Kind: KindLiteral, Literal: input}, nil
}

// checkIndex validates the syntax of a nested index expression without
// evaluating it.
func (p *Parser) checkIndex(text string) (any, error) {
	_, err := p.ParseExpression(text)
	return nil, err
}
