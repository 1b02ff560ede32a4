package expression

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokTemplate
	tokOp
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// operators lists every operator and punctuation token, longest first.
var operators = []string{
	"==", "!=", "<=", ">=", "&&", "||",
	"+", "-", "*", "/", "%", "&", "!", "<", ">",
	"?", ":", "(", ")", "[", "]", "{", "}", ",", ".",
}

type lexer struct {
	src    string
	pos    int
	tokens []token
}

func tokenize(src string) ([]token, error) {
	l := &lexer{src: src}
	for {
		l.skipSpace()
		if l.pos >= len(l.src) {
			l.tokens = append(l.tokens, token{kind: tokEOF, pos: l.pos})
			return l.tokens, nil
		}
		if err := l.next(); err != nil {
			return nil, err
		}
	}
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if !unicode.IsSpace(r) {
			return
		}
		l.pos += size
	}
}

func (l *lexer) peekRune(offset int) rune {
	if l.pos+offset >= len(l.src) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.src[l.pos+offset:])
	return r
}

func (l *lexer) next() error {
	start := l.pos
	c := l.src[l.pos]

	switch {
	case c == '\'' || c == '"':
		s, err := l.readString(c)
		if err != nil {
			return err
		}
		l.tokens = append(l.tokens, token{kind: tokString, text: s, pos: start})
		return nil
	case c == '`':
		raw, err := l.readTemplate()
		if err != nil {
			return err
		}
		l.tokens = append(l.tokens, token{kind: tokTemplate, text: raw, pos: start})
		return nil
	case isDigit(c):
		l.tokens = append(l.tokens, token{kind: tokNumber, text: l.readNumber(), pos: start})
		return nil
	case l.atIdentStart():
		l.tokens = append(l.tokens, token{kind: tokIdent, text: l.readIdent(), pos: start})
		return nil
	}

	for _, op := range operators {
		if strings.HasPrefix(l.src[l.pos:], op) {
			l.pos += len(op)
			l.tokens = append(l.tokens, token{kind: tokOp, text: op, pos: start})
			return nil
		}
	}

	if c == '=' || c == '|' {
		return newParseError(l.src, start, "unknown operator %q", string(c))
	}
	return newParseError(l.src, start, "unexpected character %q", l.peekRune(0))
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// atIdentStart reports whether an identifier starts at the current position.
// Identifiers may carry one of the alias prefixes $, @, @@, # or %; # and %
// only count as prefixes when a name follows, so "a % b" still lexes as modulo.
func (l *lexer) atIdentStart() bool {
	r := l.peekRune(0)
	switch r {
	case '$':
		return true
	case '@':
		n := l.peekRune(1)
		return n == '@' || isIdentRune(n)
	case '#', '%':
		return isIdentRune(l.peekRune(1))
	}
	return r == '_' || unicode.IsLetter(r)
}

func (l *lexer) readIdent() string {
	start := l.pos
	if strings.HasPrefix(l.src[l.pos:], "@@") {
		l.pos += 2
	} else if c := l.src[l.pos]; c == '$' || c == '@' || c == '#' || c == '%' {
		l.pos++
	}
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if !isIdentRune(r) {
			break
		}
		l.pos += size
	}
	return l.src[start:l.pos]
}

func (l *lexer) readNumber() string {
	start := l.pos
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}
	if l.pos+1 < len(l.src) && l.src[l.pos] == '.' && isDigit(l.src[l.pos+1]) {
		l.pos++
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
	}
	if l.pos < len(l.src) && (l.src[l.pos] == 'e' || l.src[l.pos] == 'E') {
		save := l.pos
		l.pos++
		if l.pos < len(l.src) && (l.src[l.pos] == '+' || l.src[l.pos] == '-') {
			l.pos++
		}
		if l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
				l.pos++
			}
		} else {
			l.pos = save
		}
	}
	return l.src[start:l.pos]
}

// readString consumes a quoted string literal and applies escape sequences.
func (l *lexer) readString(quote byte) (string, error) {
	start := l.pos
	l.pos++
	var sb strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == quote:
			l.pos++
			return sb.String(), nil
		case c == '\\' && l.pos+1 < len(l.src):
			sb.WriteString(unescape(l.src[l.pos+1]))
			l.pos += 2
		default:
			sb.WriteByte(c)
			l.pos++
		}
	}
	return "", newParseError(l.src, start, "unterminated string literal")
}

func unescape(c byte) string {
	switch c {
	case 'n':
		return "\n"
	case 't':
		return "\t"
	case 'r':
		return "\r"
	case '\\', '\'', '"', '`':
		return string(c)
	}
	return "\\" + string(c)
}

// readTemplate consumes a backtick template and returns its raw body.
// Escapes are left in place; ${...} spans are skipped as a unit so that
// backticks inside them do not end the template.
func (l *lexer) readTemplate() (string, error) {
	start := l.pos
	l.pos++
	bodyStart := l.pos
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '\\':
			l.pos += 2
		case c == '`':
			body := l.src[bodyStart:l.pos]
			l.pos++
			return body, nil
		case c == '$' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '{':
			end, err := matchBrace(l.src, l.pos+1)
			if err != nil {
				return "", err
			}
			l.pos = end + 1
		default:
			l.pos++
		}
	}
	return "", newParseError(l.src, start, "unterminated template literal")
}

// matchBrace returns the index of the '}' closing the '{' at open, skipping
// nested braces and quoted strings.
func matchBrace(src string, open int) (int, error) {
	depth := 0
	for i := open; i < len(src); i++ {
		switch c := src[i]; c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, nil
			}
		case '\'', '"', '`':
			j := i + 1
			for j < len(src) && src[j] != c {
				if src[j] == '\\' {
					j++
				}
				j++
			}
			if j >= len(src) {
				return 0, newParseError(src, i, "unterminated string literal")
			}
			i = j
		}
	}
	return 0, newParseError(src, open, "unbalanced '{'")
}
