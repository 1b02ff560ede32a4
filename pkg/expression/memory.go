package expression

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// Memory is the value store an expression evaluates against.
// GetValue returns nil with no error for missing paths.
type Memory interface {
	GetValue(path string) (any, error)
	SetValue(path string, value any) error
}

// ScopedMemory supports transient closure frames. Frames are consulted
// most-recent first, ahead of the underlying memory.
type ScopedMemory interface {
	Memory
	PushClosureScope(frame map[string]any)
	PopClosureScope()
}

// SimpleMemory adapts a plain map. It resolves paths with a Walker and
// evaluates nested bracket expressions against itself.
type SimpleMemory struct {
	root     map[string]any
	walker   Walker
	closures []map[string]any
}

// NewSimpleMemory wraps root. A nil root starts empty.
func NewSimpleMemory(root map[string]any) *SimpleMemory {
	if root == nil {
		root = make(map[string]any)
	}
	return &SimpleMemory{root: root}
}

// Root returns the backing map.
func (m *SimpleMemory) Root() map[string]any {
	return m.root
}

// IndexEvaluatorFor returns an evaluator for nested path expressions bound to mem.
func IndexEvaluatorFor(mem Memory) IndexEvaluator {
	return func(text string) (any, error) {
		expr, err := ParseExpression(text)
		if err != nil {
			return nil, err
		}
		return expr.Eval(mem)
	}
}

func (m *SimpleMemory) GetValue(path string) (any, error) {
	p, err := ParsePath(path, IndexEvaluatorFor(m))
	if err != nil {
		return nil, err
	}
	for i := len(m.closures) - 1; i >= 0; i-- {
		if v, ok := m.walker.Get(m.closures[i], p); ok {
			return v, nil
		}
	}
	v, _ := m.walker.Get(m.root, p)
	return v, nil
}

func (m *SimpleMemory) SetValue(path string, value any) error {
	p, err := ParsePath(path, IndexEvaluatorFor(m))
	if err != nil {
		return err
	}
	return m.walker.Set(m.root, p, value)
}

func (m *SimpleMemory) PushClosureScope(frame map[string]any) {
	m.closures = append(m.closures, frame)
}

func (m *SimpleMemory) PopClosureScope() {
	if len(m.closures) == 0 {
		return
	}
	m.closures = m.closures[:len(m.closures)-1]
}

// overlayMemory layers a single frame over a memory that has no closure
// support of its own.
type overlayMemory struct {
	frame map[string]any
	base  Memory
}

func (o *overlayMemory) GetValue(path string) (any, error) {
	p, err := ParsePath(path, IndexEvaluatorFor(o))
	if err != nil {
		return nil, err
	}
	if v, ok := (Walker{}).Get(o.frame, p); ok {
		return v, nil
	}
	return o.base.GetValue(path)
}

func (o *overlayMemory) SetValue(path string, value any) error {
	return o.base.SetValue(path, value)
}

// MemoryFor normalises v into a Memory. Memory values are returned as-is,
// maps are wrapped, nil yields an empty memory and structs are decoded into
// a map first.
func MemoryFor(v any) (Memory, error) {
	switch x := v.(type) {
	case nil:
		return NewSimpleMemory(nil), nil
	case Memory:
		return x, nil
	case map[string]any:
		return NewSimpleMemory(x), nil
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct && rv.Kind() != reflect.Map {
		return nil, fmt.Errorf("cannot use %T as memory", v)
	}
	root := make(map[string]any)
	if err := mapstructure.Decode(v, &root); err != nil {
		return nil, fmt.Errorf("cannot use %T as memory: %w", v, err)
	}
	return NewSimpleMemory(root), nil
}
