package expression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimpleMemory_Closures(t *testing.T) {
	mem := NewSimpleMemory(map[string]any{"x": "root"})

	mem.PushClosureScope(map[string]any{"x": "outer"})
	mem.PushClosureScope(map[string]any{"y": "inner"})

	v, _ := mem.GetValue("x")
	assert.Equal(t, "outer", v, "frames are searched most-recent first, then the root")
	v, _ = mem.GetValue("y")
	assert.Equal(t, "inner", v)

	require.NoError(t, mem.SetValue("z", 1))
	assert.Equal(t, 1, mem.Root()["z"], "writes target the root")

	mem.PopClosureScope()
	mem.PopClosureScope()
	mem.PopClosureScope()

	v, _ = mem.GetValue("x")
	assert.Equal(t, "root", v)
}

func TestSimpleMemory_NestedIndex(t *testing.T) {
	mem := NewSimpleMemory(map[string]any{
		"i":     1,
		"todos": []any{"a", "b"},
	})

	v, err := mem.GetValue("todos[i]")
	require.NoError(t, err)
	assert.Equal(t, "b", v)

	require.NoError(t, mem.SetValue("todos[i + 1]", "c"))
	assert.Equal(t, []any{"a", "b", "c"}, mem.Root()["todos"])
}

func TestSimpleMemory_InvalidPath(t *testing.T) {
	mem := NewSimpleMemory(nil)
	_, err := mem.GetValue("a..b")
	assert.ErrorIs(t, err, ErrParse)
	assert.ErrorIs(t, mem.SetValue("a[", 1), ErrParse)
}

func TestMemoryFor(t *testing.T) {
	t.Run("Nil", func(t *testing.T) {
		mem, err := MemoryFor(nil)
		require.NoError(t, err)
		v, err := mem.GetValue("anything")
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("Map Is Shared", func(t *testing.T) {
		root := map[string]any{}
		mem, err := MemoryFor(root)
		require.NoError(t, err)
		require.NoError(t, mem.SetValue("a", 1))
		assert.Equal(t, 1, root["a"])
	})

	t.Run("Memory Passthrough", func(t *testing.T) {
		orig := NewSimpleMemory(nil)
		mem, err := MemoryFor(orig)
		require.NoError(t, err)
		assert.Same(t, orig, mem)
	})

	t.Run("Struct", func(t *testing.T) {
		type profile struct {
			Name string
			Age  int
		}
		mem, err := MemoryFor(&profile{Name: "Joe", Age: 40})
		require.NoError(t, err)

		v, err := mem.GetValue("name")
		require.NoError(t, err)
		assert.Equal(t, "Joe", v)
	})

	t.Run("Scalar", func(t *testing.T) {
		_, err := MemoryFor(42)
		assert.Error(t, err)
	})
}
