package expression

import (
	"encoding/json"
	"strconv"
	"strings"
	"unicode"
)

// SegmentKind distinguishes property names from array indices.
type SegmentKind int

const (
	NameSegment SegmentKind = iota
	IndexSegment
	// FirstSegment is the "first()" pseudo segment: the first element of an
	// array, unwrapping one level of nested array.
	FirstSegment
)

// Segment is one step of a Path.
type Segment struct {
	Kind  SegmentKind
	Name  string
	Index int
}

// Name returns a property segment.
func Name(name string) Segment {
	return Segment{Kind: NameSegment, Name: name}
}

// Index returns an array index segment.
func Index(i int) Segment {
	return Segment{Kind: IndexSegment, Index: i}
}

// Path is an ordered sequence of segments. Treat it as immutable once parsed.
type Path []Segment

// IndexEvaluator resolves the text of a nested bracket expression such as
// the "dialog.i" in "user.todos[dialog.i]".
type IndexEvaluator func(text string) (any, error)

// String renders the path in canonical form. Parsing the result yields an
// equal path.
func (p Path) String() string {
	var sb strings.Builder
	for i, seg := range p {
		switch seg.Kind {
		case IndexSegment:
			sb.WriteString("[" + strconv.Itoa(seg.Index) + "]")
		case FirstSegment:
			if i > 0 {
				sb.WriteByte('.')
			}
			sb.WriteString("first()")
		default:
			if !isPlainName(seg.Name) {
				sb.WriteString("['" + strings.ReplaceAll(strings.ReplaceAll(seg.Name, `\`, `\\`), "'", `\'`) + "']")
				continue
			}
			if i > 0 {
				sb.WriteByte('.')
			}
			sb.WriteString(seg.Name)
		}
	}
	return sb.String()
}

// Append returns a new path with the given segments added.
func (p Path) Append(segs ...Segment) Path {
	out := make(Path, 0, len(p)+len(segs))
	out = append(out, p...)
	return append(out, segs...)
}

func isPlainName(s string) bool {
	if s == "" || s == "first()" {
		return false
	}
	for _, r := range s {
		if !isPathRune(r) || r == '(' || r == ')' {
			return false
		}
	}
	return true
}

func isPathRune(r rune) bool {
	switch r {
	case '_', '-', '$', '@', '#', '%', '(', ')':
		return true
	}
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// IsPath reports whether text is a well-formed path without nested expressions.
func IsPath(text string) bool {
	_, err := ParsePath(text, nil)
	return err == nil
}

// ParsePath splits text on '.' and '[...]' into segments. Bracket contents
// are either an integer index, a quoted property name, or a nested
// expression resolved through eval. A nil eval rejects nested expressions.
func ParsePath(text string, eval IndexEvaluator) (Path, error) {
	var (
		out     Path
		segment strings.Builder
		depth   int
		quote   byte
		inner   strings.Builder
	)

	flush := func() {
		if segment.Len() == 0 {
			return
		}
		s := segment.String()
		segment.Reset()
		if s == "first()" {
			out = append(out, Segment{Kind: FirstSegment})
			return
		}
		out = append(out, Name(s))
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		if depth > 0 {
			if quote != 0 {
				if c == '\\' && i+1 < len(text) {
					i++
					inner.WriteByte(text[i])
					continue
				}
				inner.WriteByte(c)
				if c == quote {
					quote = 0
				}
				continue
			}
			switch c {
			case '[':
				depth++
				inner.WriteByte(c)
			case ']':
				depth--
				if depth > 0 {
					inner.WriteByte(c)
					continue
				}
				seg, err := bracketSegment(text, i, strings.TrimSpace(inner.String()), eval)
				if err != nil {
					return nil, err
				}
				out = append(out, seg)
				inner.Reset()
			case '\'', '"':
				quote = c
				inner.WriteByte(c)
			default:
				inner.WriteByte(c)
			}
			continue
		}

		switch c {
		case '[':
			flush()
			depth++
		case '.':
			if i == len(text)-1 || (segment.Len() == 0 && (i == 0 || text[i-1] == '.')) {
				return nil, newParseError(text, i, "empty path segment")
			}
			flush()
		case ']':
			return nil, newParseError(text, i, "unbalanced ']'")
		default:
			r := rune(c)
			if c >= 0x80 {
				// multi-byte runes are accepted as name characters
				segment.WriteByte(c)
				continue
			}
			if !isPathRune(r) {
				return nil, newParseError(text, i, "invalid path character %q", string(c))
			}
			segment.WriteByte(c)
		}
	}
	if depth > 0 {
		return nil, newParseError(text, len(text), "unbalanced '['")
	}
	flush()
	if len(out) == 0 {
		return nil, newParseError(text, 0, "empty path")
	}
	return out, nil
}

func bracketSegment(text string, pos int, inner string, eval IndexEvaluator) (Segment, error) {
	if isQuoted(inner) {
		return Name(inner[1 : len(inner)-1]), nil
	}
	if isIndex(inner) {
		n, err := strconv.Atoi(inner)
		if err != nil {
			return Segment{}, newParseError(text, pos, "invalid index %q", inner)
		}
		return Index(n), nil
	}
	if inner == "" {
		return Segment{}, newParseError(text, pos, "empty index")
	}
	if eval == nil {
		return Segment{}, newParseError(text, pos, "nested expression %q not allowed here", inner)
	}
	v, err := eval(inner)
	if err != nil {
		return Segment{}, err
	}
	return segmentFromValue(v), nil
}

// segmentFromValue converts an evaluated index into a segment. Values that
// are neither strings nor whole numbers produce an empty name, which never
// matches anything.
func segmentFromValue(v any) Segment {
	switch x := v.(type) {
	case string:
		return Name(x)
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return Index(int(n))
		}
	}
	if isInteger(v) {
		f, _ := ToNumber(v)
		return Index(int(f))
	}
	if f, ok := ToNumber(v); ok && f == float64(int(f)) {
		return Index(int(f))
	}
	return Name("")
}

func isQuoted(s string) bool {
	if len(s) < 2 {
		return false
	}
	return (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"')
}

func isIndex(s string) bool {
	if s == "" || s == "-" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] == '-' && i == 0 {
			continue
		}
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}
