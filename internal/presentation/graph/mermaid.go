package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/statepath/pkg/expression"
)

// Overlay resolves memory paths so the chart can show their values.
type Overlay struct {
	Memory expression.Memory
}

type builder struct {
	sb      strings.Builder
	next    int
	overlay *Overlay
	missing []string
	paths   []string
}

// GenerateMermaid produces a Mermaid flowchart of an expression tree.
// Shapes follow the node's role:
// - Constant: ((Circle))
// - Function call: [[Subroutine]]
// - Memory path: [/Parallelogram/]
// - Operator: {Rhombus}
// - Other: [Rectangle]
// With an overlay, memory paths are labelled with their current value and
// paths that resolve to nothing are styled as missing.
func GenerateMermaid(expr expression.Expression, overlay *Overlay) string {
	b := &builder{overlay: overlay}
	b.sb.WriteString("graph TD\n")
	b.node(expr)

	if len(b.paths) > 0 {
		b.sb.WriteString("\n    classDef path fill:#e1f5fe,stroke:#01579b,color:#000;\n")
		b.sb.WriteString(fmt.Sprintf("    class %s path;\n", strings.Join(b.paths, ",")))
	}
	if len(b.missing) > 0 {
		b.sb.WriteString("    classDef missing fill:#ffebee,stroke:#c62828,stroke-dasharray:4,color:#000;\n")
		b.sb.WriteString(fmt.Sprintf("    class %s missing;\n", strings.Join(b.missing, ",")))
	}
	return b.sb.String()
}

func (b *builder) id() string {
	id := fmt.Sprintf("n%d", b.next)
	b.next++
	return id
}

func (b *builder) emit(id, opener, label, closer string) {
	b.sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", id, opener, escapeLabel(label), closer))
}

func (b *builder) edge(from, to, label string) {
	if label == "" {
		b.sb.WriteString(fmt.Sprintf("    %s --> %s\n", from, to))
		return
	}
	b.sb.WriteString(fmt.Sprintf("    %s -- \"%s\" --> %s\n", from, escapeLabel(label), to))
}

// node writes e and its children and returns e's node ID.
func (b *builder) node(e expression.Expression) string {
	id := b.id()

	switch x := e.(type) {
	case *expression.Constant:
		b.emit(id, "((", x.String(), "))")
	case *expression.Accessor, *expression.Element:
		if isPath(e) {
			b.pathNode(id, e)
			break
		}
		b.emit(id, "[", accessLabel(e), "]")
		b.accessChildren(id, e)
	case *expression.Unary:
		b.emit(id, "{", x.Op, "}")
		b.edge(id, b.node(x.Operand), "")
	case *expression.Binary:
		b.emit(id, "{", x.Op, "}")
		b.edge(id, b.node(x.Left), "")
		b.edge(id, b.node(x.Right), "")
	case *expression.Conditional:
		b.emit(id, "{", "?:", "}")
		b.edge(id, b.node(x.Cond), "if")
		b.edge(id, b.node(x.Then), "then")
		b.edge(id, b.node(x.Else), "else")
	case *expression.Call:
		b.emit(id, "[[", x.Name+"()", "]]")
		for i, arg := range x.Args {
			b.edge(id, b.node(arg), fmt.Sprint(i))
		}
	case *expression.ArrayLiteral:
		b.emit(id, "[", "array", "]")
		for i, item := range x.Items {
			b.edge(id, b.node(item), fmt.Sprint(i))
		}
	case *expression.ObjectLiteral:
		b.emit(id, "[", "object", "]")
		for i, key := range x.Keys {
			b.edge(id, b.node(x.Values[i]), key)
		}
	case *expression.Template:
		b.emit(id, "[", "template", "]")
		for _, part := range x.Parts {
			b.edge(id, b.node(part), "")
		}
	default:
		b.emit(id, "[", e.String(), "]")
	}
	return id
}

func (b *builder) pathNode(id string, e expression.Expression) {
	label := e.String()
	if b.overlay != nil && b.overlay.Memory != nil {
		v, err := b.overlay.Memory.GetValue(label)
		switch {
		case err != nil:
			label += " <br/> error: " + err.Error()
			b.missing = append(b.missing, id)
		case v == nil:
			label += " <br/> (missing)"
			b.missing = append(b.missing, id)
		default:
			label += " <br/> = " + expression.ToString(v)
		}
	}
	b.emit(id, "[/", label, "/]")
	b.paths = append(b.paths, id)
}

func accessLabel(e expression.Expression) string {
	if a, ok := e.(*expression.Accessor); ok {
		return "." + a.Name
	}
	return "[ ]"
}

func (b *builder) accessChildren(id string, e expression.Expression) {
	switch x := e.(type) {
	case *expression.Accessor:
		if x.Base != nil {
			b.edge(id, b.node(x.Base), "of")
		}
	case *expression.Element:
		b.edge(id, b.node(x.Base), "of")
		b.edge(id, b.node(x.Index), "index")
	}
}

// isPath reports whether e is an accessor chain rooted at an identifier
// with only constant indexes, i.e. a plain memory path.
func isPath(e expression.Expression) bool {
	for {
		switch x := e.(type) {
		case *expression.Accessor:
			if x.Base == nil {
				return true
			}
			e = x.Base
		case *expression.Element:
			if _, ok := x.Index.(*expression.Constant); !ok {
				return false
			}
			e = x.Base
		default:
			return false
		}
	}
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
