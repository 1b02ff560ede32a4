package settings

import (
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Separator splits flat setting keys into path segments.
const Separator = ":"

type node struct {
	value    string
	hasValue bool
	order    []string
	children map[string]*node
}

func (n *node) child(name string) *node {
	if c, ok := n.children[name]; ok {
		return c
	}
	if n.children == nil {
		n.children = make(map[string]*node)
	}
	c := &node{}
	n.children[name] = c
	n.order = append(n.order, name)
	return c
}

// FromFlat expands flat "a:b:0" keys into nested maps and slices. Keys are
// applied in sorted order; a key with children drops any value of its own.
func FromFlat(kvs map[string]string) map[string]any {
	root := &node{}
	for _, key := range slices.Sorted(maps.Keys(kvs)) {
		cur := root
		for _, seg := range strings.Split(key, Separator) {
			cur = cur.child(seg)
		}
		cur.value, cur.hasValue = kvs[key], true
	}

	out := make(map[string]any, len(root.children))
	for _, name := range root.order {
		out[name] = root.children[name].build()
	}
	return out
}

func (n *node) build() any {
	if len(n.children) == 0 {
		if n.hasValue {
			return n.value
		}
		return map[string]any{}
	}

	if indexes, top, ok := n.indexes(); ok {
		list := make([]any, top+1)
		for i, name := range n.order {
			list[indexes[i]] = n.children[name].build()
		}
		return list
	}

	m := make(map[string]any, len(n.children))
	for _, name := range n.order {
		m[name] = n.children[name].build()
	}
	return m
}

// indexes reports whether every child name is a non-negative integer.
func (n *node) indexes() ([]int, int, bool) {
	out := make([]int, 0, len(n.order))
	top := -1
	for _, name := range n.order {
		i, err := strconv.Atoi(name)
		if err != nil || i < 0 || strings.HasPrefix(name, "+") {
			return nil, 0, false
		}
		out = append(out, i)
		top = max(top, i)
	}
	return out, top, true
}
