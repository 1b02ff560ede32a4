package memory_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/statepath/pkg/expression"
	"github.com/aretw0/statepath/pkg/memory"
)

func TestAliasResolver_TakesPrecedence(t *testing.T) {
	turn := memory.NewTurn(
		memory.WithScope("foo", "top-level"),
		memory.WithScope("@foo", "literal key"),
		memory.WithScope("turn", map[string]any{
			"recognized": map[string]any{
				"entities": map[string]any{"foo": "entity"},
				"intents":  map[string]any{"book": map[string]any{"score": 0.9}},
			},
		}),
	)
	sm := memory.NewStateManager(memory.NewDialogContext(turn))

	v, err := sm.GetValue("@foo")
	require.NoError(t, err)
	assert.Equal(t, "entity", v)

	v, err = sm.GetValue("#book.score")
	require.NoError(t, err)
	assert.Equal(t, 0.9, v)

	require.NoError(t, sm.SetValue("@foo", "updated"))
	v, err = sm.GetValue("turn.recognized.entities.foo")
	require.NoError(t, err)
	assert.Equal(t, "updated", v)

	require.NoError(t, sm.RemoveValue("@foo"))
	v, err = sm.GetValue("@foo")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestAliasResolver_Custom(t *testing.T) {
	reg := memory.NewResolverRegistry()
	require.NoError(t, reg.Add(memory.NewAliasResolver("~", func(path string) string {
		return "user.prefs." + strings.TrimPrefix(path, "~")
	})))
	reg.Seal()

	turn := memory.NewTurn(memory.WithScope("user", map[string]any{
		"prefs": map[string]any{"theme": "dark"},
	}))
	sm := memory.NewStateManager(memory.NewDialogContext(turn), memory.WithRegistry(reg))

	v, err := sm.GetValue("~theme")
	require.NoError(t, err)
	assert.Equal(t, "dark", v)

	v, err = sm.GetValue("@theme")
	require.NoError(t, err)
	assert.Nil(t, v, "a custom registry replaces the standard aliases")
}

func TestAliasResolver_Matched(t *testing.T) {
	r := memory.NewPrefixAlias("@", "turn.recognized.entities.")
	assert.True(t, r.Matched("@city"))
	assert.False(t, r.Matched("city"))
	assert.False(t, r.Matched(""))
	assert.Equal(t, "turn.recognized.entities.city", r.TransformPath("@city"))
}

func TestClassAlias(t *testing.T) {
	sm, dc := newManager(t)

	v, err := sm.GetValue("%title")
	require.NoError(t, err)
	assert.Equal(t, "Main", v)

	require.NoError(t, sm.SetValue("%subtitle", "Sub"))
	assert.Equal(t, "Sub", dc.Dialog.Class["subtitle"])
}

func TestParentStateResolver(t *testing.T) {
	t.Run("No Parent Fails", func(t *testing.T) {
		sm, _ := newManager(t)

		_, err := sm.GetValue("$count")
		assert.ErrorIs(t, err, memory.ErrNoParentDialog)

		_, err = sm.GetValueOrDefault("$count", 1)
		assert.ErrorIs(t, err, memory.ErrNoParentDialog, "defaults never mask a missing parent")

		assert.ErrorIs(t, sm.SetValue("$count", 1), memory.ErrNoParentDialog)
		assert.ErrorIs(t, sm.RemoveValue("$count"), memory.ErrNoParentDialog)
	})

	t.Run("Reads And Writes Parent Dialog", func(t *testing.T) {
		root := memory.NewDialogContext(memory.NewTurn())
		parent := root.Begin(&memory.DialogInstance{ID: "parent", State: map[string]any{"count": 1}})
		child := parent.Begin(&memory.DialogInstance{ID: "child", State: map[string]any{"count": 99}})
		sm := memory.NewStateManager(child)

		v, err := sm.GetValue("$count")
		require.NoError(t, err)
		assert.Equal(t, 1, v)

		require.NoError(t, sm.SetValue("$profile.name", "p"))
		assert.Equal(t, map[string]any{"name": "p"}, parent.Dialog.State["profile"])
		assert.NotContains(t, child.Dialog.State, "profile")

		require.NoError(t, sm.RemoveValue("$count"))
		assert.NotContains(t, parent.Dialog.State, "count")

		expr, err := expression.ParseExpression("$profile.name + dialog.count")
		require.NoError(t, err)
		v, err = expr.Eval(sm)
		require.NoError(t, err)
		assert.Equal(t, "p99", v)
	})
}

func TestResolverRegistry(t *testing.T) {
	reg := memory.NewResolverRegistry()
	first := memory.NewPrefixAlias("@", "a.")
	second := memory.NewPrefixAlias("@", "b.")
	require.NoError(t, reg.Add(first))
	require.NoError(t, reg.Add(second))

	resolvers := reg.Resolvers()
	require.Len(t, resolvers, 2)
	assert.Same(t, first, resolvers[0])

	resolvers[0] = nil
	assert.Same(t, first, reg.Resolvers()[0], "Resolvers returns a copy")

	assert.False(t, reg.Sealed())
	reg.Seal()
	assert.True(t, reg.Sealed())
	assert.ErrorIs(t, reg.Add(memory.NewParentStateResolver("")), memory.ErrRegistrySealed)

	turn := memory.NewTurn(
		memory.WithScope("a", map[string]any{"x": "from a"}),
		memory.WithScope("b", map[string]any{"x": "from b"}),
	)
	sm := memory.NewStateManager(memory.NewDialogContext(turn), memory.WithRegistry(reg))
	v, err := sm.GetValue("@x")
	require.NoError(t, err)
	assert.Equal(t, "from a", v, "first registered resolver wins")
}

func TestResolverRegistry_IndependentInstances(t *testing.T) {
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reg := memory.NewResolverRegistry()
			scope := string(rune('a' + i))
			assert.NoError(t, reg.Add(memory.NewPrefixAlias("@", scope+".")))
			reg.Seal()

			turn := memory.NewTurn(memory.WithScope(scope, map[string]any{"v": i}))
			sm := memory.NewStateManager(memory.NewDialogContext(turn), memory.WithRegistry(reg))
			v, err := sm.GetValue("@v")
			assert.NoError(t, err)
			assert.Equal(t, i, v)
		}()
	}
	wg.Wait()
}

func TestTrackPaths(t *testing.T) {
	sm, dc := newManager(t)
	require.NoError(t, sm.SetValue(memory.EventCounterPath, 0))

	paths, err := sm.TrackPaths([]string{"user.name", "dialog._private", "@City"})
	require.NoError(t, err)
	assert.Equal(t, []string{"user_name", "turn_recognized_entities_city"}, paths)
	assert.False(t, sm.AnyPathChanged(0, paths))

	require.NoError(t, sm.SetValue(memory.EventCounterPath, 3))
	require.NoError(t, sm.SetValue("conversation.topic", "unrelated"))
	assert.False(t, sm.AnyPathChanged(0, paths))

	require.NoError(t, sm.SetValue("User.Name", "changed"))
	assert.True(t, sm.AnyPathChanged(2, paths))
	assert.False(t, sm.AnyPathChanged(3, paths))

	require.NoError(t, sm.SetValue(memory.EventCounterPath, 5))
	require.NoError(t, sm.SetValue("@city", "Paris"))
	assert.True(t, sm.AnyPathChanged(4, paths), "alias writes are tracked by their rewritten path")

	require.NoError(t, sm.SetValue(memory.EventCounterPath, 7))
	require.NoError(t, sm.SetValue("user", map[string]any{"name": "replaced"}))
	assert.True(t, sm.AnyPathChanged(6, []string{"user_name"}), "replacing a parent counts as a change")

	tracker := dc.Dialog.State["_tracker"].(map[string]any)["paths"].(map[string]any)
	assert.Equal(t, 7, tracker["user_name"])
}

func TestTrackPaths_RequiresDialog(t *testing.T) {
	sm := memory.NewStateManager(nil)
	_, err := sm.TrackPaths([]string{"user.name"})
	assert.ErrorIs(t, err, memory.ErrInvalidOperation)
	assert.False(t, sm.AnyPathChanged(0, []string{"user_name"}))
}
