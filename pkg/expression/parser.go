package expression

import (
	"strconv"
	"strings"
)

// Parser turns expression and template text into Expression trees.
// A Parser is safe for concurrent use once constructed.
type Parser struct {
	functions map[string]Function
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithFunction registers fn under name, replacing any built-in of the
// same name.
func WithFunction(name string, fn Function) ParserOption {
	return func(p *Parser) {
		p.functions[name] = fn
	}
}

// NewParser creates a parser with the built-in function library.
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{functions: builtins()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var defaultParser = NewParser()

// ParseExpression parses text with the default parser.
func ParseExpression(text string) (Expression, error) {
	return defaultParser.ParseExpression(text)
}

// ParseTemplate parses text as a raw template with the default parser.
func ParseTemplate(text string) (Expression, error) {
	return defaultParser.ParseTemplate(text)
}

// ParseExpression parses a complete expression.
func (p *Parser) ParseExpression(text string) (Expression, error) {
	toks, err := tokenize(text)
	if err != nil {
		return nil, err
	}
	st := &parseState{parser: p, src: text, toks: toks}
	if st.cur().kind == tokEOF {
		return nil, newParseError(text, 0, "empty expression")
	}
	expr, err := st.parseTernary()
	if err != nil {
		return nil, err
	}
	if t := st.cur(); t.kind != tokEOF {
		return nil, newParseError(text, t.pos, "unexpected %q", t.text)
	}
	return expr, nil
}

// ParseTemplate parses text as template content. Only ${...} spans are
// interpreted and \${ escapes a literal "${"; every other byte, including
// backslashes and backticks, is kept verbatim.
func (p *Parser) ParseTemplate(text string) (Expression, error) {
	return p.parseTemplateBody(text, false)
}

// parseTemplateBody splits a template into literal and expression parts.
// In backtick mode the escapes \` and \$ are also unescaped.
func (p *Parser) parseTemplateBody(body string, backtick bool) (Expression, error) {
	var (
		parts []Expression
		lit   strings.Builder
	)
	flush := func() {
		if lit.Len() > 0 {
			parts = append(parts, &Constant{Value: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case c == '\\' && strings.HasPrefix(body[i+1:], "${"):
			lit.WriteString("${")
			i += 2
		case c == '\\' && backtick && i+1 < len(body) && (body[i+1] == '`' || body[i+1] == '$'):
			lit.WriteByte(body[i+1])
			i++
		case c == '$' && i+1 < len(body) && body[i+1] == '{':
			end, err := matchBrace(body, i+1)
			if err != nil {
				return nil, err
			}
			inner := strings.TrimSpace(body[i+2 : end])
			if inner == "" {
				return nil, newParseError(body, i, "empty ${} span")
			}
			expr, err := p.ParseExpression(inner)
			if err != nil {
				return nil, err
			}
			flush()
			parts = append(parts, expr)
			i = end
		default:
			lit.WriteByte(c)
		}
	}
	flush()
	return &Template{Parts: parts}, nil
}

type parseState struct {
	parser *Parser
	src    string
	toks   []token
	pos    int
}

func (s *parseState) cur() token {
	return s.toks[s.pos]
}

func (s *parseState) peek() token {
	if s.pos+1 < len(s.toks) {
		return s.toks[s.pos+1]
	}
	return s.toks[len(s.toks)-1]
}

func (s *parseState) advance() token {
	t := s.toks[s.pos]
	if t.kind != tokEOF {
		s.pos++
	}
	return t
}

func (s *parseState) isOp(ops ...string) bool {
	t := s.cur()
	if t.kind != tokOp {
		return false
	}
	for _, op := range ops {
		if t.text == op {
			return true
		}
	}
	return false
}

func (s *parseState) expect(op string) error {
	if !s.isOp(op) {
		t := s.cur()
		if t.kind == tokEOF {
			return newParseError(s.src, t.pos, "expected %q, reached end of input", op)
		}
		return newParseError(s.src, t.pos, "expected %q, got %q", op, t.text)
	}
	s.advance()
	return nil
}

func (s *parseState) parseTernary() (Expression, error) {
	cond, err := s.parseBinary(0)
	if err != nil {
		return nil, err
	}
	if !s.isOp("?") {
		return cond, nil
	}
	s.advance()
	then, err := s.parseTernary()
	if err != nil {
		return nil, err
	}
	if err := s.expect(":"); err != nil {
		return nil, err
	}
	els, err := s.parseTernary()
	if err != nil {
		return nil, err
	}
	return &Conditional{Cond: cond, Then: then, Else: els}, nil
}

// precedence lists binary operators from loosest to tightest binding.
var precedence = [][]string{
	{"||"},
	{"&&"},
	{"==", "!="},
	{"<", "<=", ">", ">="},
	{"+", "-", "&"},
	{"*", "/", "%"},
}

func (s *parseState) parseBinary(level int) (Expression, error) {
	if level == len(precedence) {
		return s.parseUnary()
	}
	left, err := s.parseBinary(level + 1)
	if err != nil {
		return nil, err
	}
	for s.isOp(precedence[level]...) {
		op := s.advance().text
		right, err := s.parseBinary(level + 1)
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (s *parseState) parseUnary() (Expression, error) {
	if s.isOp("!", "-", "+") {
		op := s.advance().text
		operand, err := s.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: op, Operand: operand}, nil
	}
	return s.parsePostfix()
}

func (s *parseState) parsePostfix() (Expression, error) {
	expr, err := s.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case s.isOp("."):
			s.advance()
			t := s.cur()
			if t.kind != tokIdent && t.kind != tokNumber {
				return nil, newParseError(s.src, t.pos, "expected property name after '.'")
			}
			s.advance()
			name := t.text
			if name == "first" && s.isOp("(") && s.peek().kind == tokOp && s.peek().text == ")" {
				s.advance()
				s.advance()
				name = firstAccessor
			}
			expr = &Accessor{Base: expr, Name: name}
		case s.isOp("["):
			open := s.advance()
			index, err := s.parseTernary()
			if err != nil {
				return nil, err
			}
			if !s.isOp("]") {
				return nil, newParseError(s.src, open.pos, "unbalanced '['")
			}
			s.advance()
			expr = &Element{Base: expr, Index: index}
		case s.isOp("("):
			return nil, newParseError(s.src, s.cur().pos, "%s is not callable", expr)
		default:
			return expr, nil
		}
	}
}

func (s *parseState) parsePrimary() (Expression, error) {
	t := s.cur()
	switch t.kind {
	case tokNumber:
		s.advance()
		return parseNumber(s.src, t)
	case tokString:
		s.advance()
		return &Constant{Value: t.text}, nil
	case tokTemplate:
		s.advance()
		return s.parser.parseTemplateBody(t.text, true)
	case tokIdent:
		s.advance()
		switch t.text {
		case "true":
			return &Constant{Value: true}, nil
		case "false":
			return &Constant{Value: false}, nil
		case "null", "undefined":
			return &Constant{Value: nil}, nil
		}
		if s.isOp("(") {
			return s.parseCall(t)
		}
		return &Accessor{Name: t.text}, nil
	case tokEOF:
		return nil, newParseError(s.src, t.pos, "unexpected end of expression")
	}

	switch t.text {
	case "(":
		s.advance()
		expr, err := s.parseTernary()
		if err != nil {
			return nil, err
		}
		if !s.isOp(")") {
			return nil, newParseError(s.src, t.pos, "unbalanced '('")
		}
		s.advance()
		return expr, nil
	case "[":
		return s.parseArray()
	case "{":
		return s.parseObject()
	}
	return nil, newParseError(s.src, t.pos, "unexpected %q", t.text)
}

func parseNumber(src string, t token) (Expression, error) {
	if !strings.ContainsAny(t.text, ".eE") {
		if n, err := strconv.Atoi(t.text); err == nil {
			return &Constant{Value: n}, nil
		}
	}
	f, err := strconv.ParseFloat(t.text, 64)
	if err != nil {
		return nil, newParseError(src, t.pos, "invalid number %q", t.text)
	}
	return &Constant{Value: f}, nil
}

func (s *parseState) parseArgs(closing string) ([]Expression, error) {
	open := s.advance()
	var args []Expression
	for !s.isOp(closing) {
		if s.cur().kind == tokEOF {
			return nil, newParseError(s.src, open.pos, "unbalanced %q", open.text)
		}
		arg, err := s.parseTernary()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if s.isOp(",") {
			s.advance()
			continue
		}
		if !s.isOp(closing) {
			if s.cur().kind == tokEOF {
				return nil, newParseError(s.src, open.pos, "unbalanced %q", open.text)
			}
			return nil, newParseError(s.src, s.cur().pos, "expected ',' or %q", closing)
		}
	}
	s.advance()
	return args, nil
}

func (s *parseState) parseCall(name token) (Expression, error) {
	fn, ok := s.parser.functions[name.text]
	if !ok {
		return nil, newParseError(s.src, name.pos, "unknown function %q", name.text)
	}
	args, err := s.parseArgs(")")
	if err != nil {
		return nil, err
	}
	if !fn.checkArity(len(args)) {
		return nil, newParseError(s.src, name.pos, "%s does not accept %d argument(s)", name.text, len(args))
	}
	return &Call{Name: name.text, Args: args, fn: fn}, nil
}

func (s *parseState) parseArray() (Expression, error) {
	items, err := s.parseArgs("]")
	if err != nil {
		return nil, err
	}
	return &ArrayLiteral{Items: items}, nil
}

func (s *parseState) parseObject() (Expression, error) {
	open := s.advance()
	obj := &ObjectLiteral{}
	for !s.isOp("}") {
		key := s.cur()
		if key.kind != tokIdent && key.kind != tokString {
			if key.kind == tokEOF {
				return nil, newParseError(s.src, open.pos, "unbalanced '{'")
			}
			return nil, newParseError(s.src, key.pos, "expected object key, got %q", key.text)
		}
		s.advance()
		if err := s.expect(":"); err != nil {
			return nil, err
		}
		v, err := s.parseTernary()
		if err != nil {
			return nil, err
		}
		obj.Keys = append(obj.Keys, key.text)
		obj.Values = append(obj.Values, v)
		if s.isOp(",") {
			s.advance()
			continue
		}
		if !s.isOp("}") {
			if s.cur().kind == tokEOF {
				return nil, newParseError(s.src, open.pos, "unbalanced '{'")
			}
			return nil, newParseError(s.src, s.cur().pos, "expected ',' or '}'")
		}
	}
	s.advance()
	return obj, nil
}
