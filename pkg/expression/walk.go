package expression

import (
	"fmt"
	"reflect"
	"strings"
)

// Walker traverses nested plain-object memory (map[string]any and []any)
// along a Path. Name segments only descend into maps; index segments only
// descend into slices. Lookups are case-insensitive unless CaseSensitive is
// set, in which case keys must match exactly.
type Walker struct {
	CaseSensitive bool
}

// FindKey returns the key of m matching name. An exact match always wins
// over a case-insensitive one; among case-insensitive candidates the
// lexically smallest key is chosen so the result is deterministic.
func (w Walker) FindKey(m map[string]any, name string) (string, bool) {
	if _, ok := m[name]; ok {
		return name, true
	}
	if w.CaseSensitive {
		return "", false
	}
	found := ""
	ok := false
	for k := range m {
		if strings.EqualFold(k, name) && (!ok || k < found) {
			found, ok = k, true
		}
	}
	return found, ok
}

// Get resolves p against root. The boolean is false when any segment is
// missing or lands on a value of the wrong shape.
func (w Walker) Get(root any, p Path) (any, bool) {
	cur := root
	for _, seg := range p {
		next, ok := w.step(cur, seg)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func (w Walker) step(cur any, seg Segment) (any, bool) {
	switch seg.Kind {
	case NameSegment:
		return w.property(cur, seg.Name)
	case IndexSegment:
		return element(cur, seg.Index)
	case FirstSegment:
		v, ok := element(cur, 0)
		if !ok {
			return nil, false
		}
		if _, nested := toList(v); nested {
			return element(v, 0)
		}
		return v, true
	}
	return nil, false
}

func (w Walker) property(cur any, name string) (any, bool) {
	if name == "" {
		return nil, false
	}
	if m, ok := cur.(map[string]any); ok {
		key, found := w.FindKey(m, name)
		if !found {
			return nil, false
		}
		return m[key], true
	}
	rv := reflect.ValueOf(cur)
	if !rv.IsValid() || rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	if v := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key())); v.IsValid() {
		return v.Interface(), true
	}
	if w.CaseSensitive {
		return nil, false
	}
	for _, k := range rv.MapKeys() {
		if strings.EqualFold(k.String(), name) {
			return rv.MapIndex(k).Interface(), true
		}
	}
	return nil, false
}

func element(cur any, i int) (any, bool) {
	if i < 0 {
		return nil, false
	}
	if l, ok := cur.([]any); ok {
		if i >= len(l) {
			return nil, false
		}
		return l[i], true
	}
	rv := reflect.ValueOf(cur)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) || i >= rv.Len() {
		return nil, false
	}
	return rv.Index(i).Interface(), true
}

// Set assigns value at p below root, creating intermediate containers as
// needed. A segment holding anything other than the container its
// successor requires (a map for names, a []any for indices) is replaced.
// The final segment always overwrites.
func (w Walker) Set(root map[string]any, p Path, value any) error {
	if root == nil {
		return fmt.Errorf("cannot assign %q on nil memory", p.String())
	}
	if len(p) == 0 {
		return fmt.Errorf("cannot assign to an empty path")
	}
	_, err := w.assign(root, p, value)
	return err
}

func (w Walker) assign(container any, p Path, value any) (any, error) {
	seg := p[0]
	switch seg.Kind {
	case NameSegment:
		if seg.Name == "" {
			return nil, fmt.Errorf("cannot assign to an empty property name")
		}
		m, ok := container.(map[string]any)
		if !ok {
			m = make(map[string]any)
		}
		key, found := w.FindKey(m, seg.Name)
		if !found {
			key = seg.Name
		}
		if len(p) == 1 {
			m[key] = value
			return m, nil
		}
		child, err := w.assign(m[key], p[1:], value)
		if err != nil {
			return nil, err
		}
		m[key] = child
		return m, nil
	default:
		idx := seg.Index
		if seg.Kind == FirstSegment {
			idx = 0
		}
		if idx < 0 {
			return nil, fmt.Errorf("negative index %d is not assignable", idx)
		}
		l, _ := container.([]any)
		for len(l) <= idx {
			l = append(l, nil)
		}
		if len(p) == 1 {
			l[idx] = value
			return l, nil
		}
		child, err := w.assign(l[idx], p[1:], value)
		if err != nil {
			return nil, err
		}
		l[idx] = child
		return l, nil
	}
}

// Remove deletes the value at p below root and reports whether anything
// was removed. Missing or wrongly shaped intermediates stop the walk
// without side effects.
func (w Walker) Remove(root map[string]any, p Path) bool {
	if root == nil || len(p) == 0 {
		return false
	}
	_, removed := w.remove(root, p)
	return removed
}

func (w Walker) remove(container any, p Path) (any, bool) {
	seg := p[0]
	switch seg.Kind {
	case NameSegment:
		m, ok := container.(map[string]any)
		if !ok {
			return container, false
		}
		key, found := w.FindKey(m, seg.Name)
		if !found {
			return container, false
		}
		if len(p) == 1 {
			delete(m, key)
			return m, true
		}
		child, removed := w.remove(m[key], p[1:])
		if removed {
			m[key] = child
		}
		return m, removed
	default:
		idx := seg.Index
		if seg.Kind == FirstSegment {
			idx = 0
		}
		l, ok := container.([]any)
		if !ok || idx < 0 || idx >= len(l) {
			return container, false
		}
		if len(p) == 1 {
			return append(l[:idx:idx], l[idx+1:]...), true
		}
		child, removed := w.remove(l[idx], p[1:])
		if removed {
			l[idx] = child
		}
		return l, removed
	}
}
