package memory_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/statepath/pkg/expression"
	"github.com/aretw0/statepath/pkg/memory"
)

func newManager(t *testing.T, opts ...memory.Option) (*memory.StateManager, *memory.DialogContext) {
	t.Helper()
	turn := memory.NewTurn(
		memory.WithScope("user", map[string]any{"name": "x", "todos": []any{"a", "b"}}),
		memory.WithScope("conversation", map[string]any{}),
		memory.WithSettings(map[string]any{"api": map[string]any{"key": "k"}}),
	)
	dc := memory.NewDialogContext(turn).Begin(&memory.DialogInstance{
		ID:    "main",
		State: map[string]any{"i": 1},
		Class: map[string]any{"title": "Main"},
	})
	return memory.NewStateManager(dc, opts...), dc
}

func TestNewTurn_CreatesTurnScope(t *testing.T) {
	turn := memory.NewTurn()
	v, ok := turn.Scope("TURN")
	require.True(t, ok)
	assert.Equal(t, map[string]any{}, v)
}

func TestStateManager_GetValue(t *testing.T) {
	sm, _ := newManager(t)

	tests := []struct {
		path string
		want any
	}{
		{"user.name", "x"},
		{"USER.Name", "x"},
		{"user.todos[1]", "b"},
		{"user.todos[dialog.i]", "b"},
		{"dialog.i", 1},
		{"class.title", "Main"},
		{"settings.api.key", "k"},
		{"user.missing.deep", nil},
		{"nosuchscope.value", nil},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			v, err := sm.GetValue(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestStateManager_CaseSensitivity(t *testing.T) {
	t.Run("Insensitive By Default", func(t *testing.T) {
		sm, _ := newManager(t)
		v, err := sm.GetValue("user.Name")
		require.NoError(t, err)
		assert.Equal(t, "x", v)
	})

	t.Run("Sensitive", func(t *testing.T) {
		sm, _ := newManager(t, memory.WithCaseSensitive(true))
		v, err := sm.GetValue("user.Name")
		require.NoError(t, err)
		assert.Nil(t, v)

		v, err = sm.GetValue("USER.name")
		require.NoError(t, err)
		assert.Equal(t, "x", v, "scope names stay case-insensitive")
	})
}

func TestStateManager_GetValueOrDefault(t *testing.T) {
	sm, _ := newManager(t)

	v, err := sm.GetValueOrDefault("user.age", 42)
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	v, err = sm.GetValueOrDefault("user.name", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "x", v)
}

func TestStateManager_SetValue_AutoVivification(t *testing.T) {
	once, onceDC := newManager(t)
	twice, twiceDC := newManager(t)

	require.NoError(t, once.SetValue("user.profile.address.city", "Lisbon"))
	require.NoError(t, twice.SetValue("user.profile.address.city", "Lisbon"))
	require.NoError(t, twice.SetValue("user.profile.address.city", "Lisbon"))

	a, _ := onceDC.Turn.Scope("user")
	b, _ := twiceDC.Turn.Scope("user")
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("repeated write differs (-once +twice):\n%s", diff)
	}

	v, err := once.GetValue("user.profile.address.city")
	require.NoError(t, err)
	assert.Equal(t, "Lisbon", v)
}

func TestStateManager_SetValue_NewScopeIsCommitted(t *testing.T) {
	sm, dc := newManager(t)

	require.NoError(t, sm.SetValue("a.b.c", 1))
	require.NoError(t, sm.SetValue("a.b.c", 1))

	scope, ok := dc.Turn.Scope("a")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"b": map[string]any{"c": 1}}, scope)

	v, err := sm.GetValue("A.B.C")
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestStateManager_SetValue_WritesDialogState(t *testing.T) {
	sm, dc := newManager(t)

	require.NoError(t, sm.SetValue("dialog.result.ok", true))
	assert.Equal(t, map[string]any{"ok": true}, dc.Dialog.State["result"])
	_, inTurn := dc.Turn.Scope("dialog")
	assert.False(t, inTurn, "dialog scope is never copied into the turn table")
}

func TestStateManager_ReservedDialogScope(t *testing.T) {
	sm, _ := newManager(t)

	err := sm.SetScope("Dialog", map[string]any{})
	assert.ErrorIs(t, err, memory.ErrInvalidOperation)

	err = sm.SetValue("dialog", map[string]any{})
	assert.ErrorIs(t, err, memory.ErrInvalidOperation)

	err = sm.RemoveValue("dialog")
	assert.ErrorIs(t, err, memory.ErrInvalidOperation)

	noDialog := memory.NewStateManager(nil)
	err = noDialog.SetValue("dialog.x", 1)
	assert.ErrorIs(t, err, memory.ErrInvalidOperation)

	_, ok := noDialog.GetScope("dialog")
	assert.False(t, ok)
}

func TestStateManager_Scopes(t *testing.T) {
	sm, dc := newManager(t)

	state, ok := sm.GetScope("dialog")
	require.True(t, ok)
	assert.Equal(t, dc.Dialog.State, state)

	class, ok := sm.GetScope("class")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"title": "Main"}, class)

	require.NoError(t, sm.SetScope("Custom", map[string]any{"v": 1}))
	v, err := sm.GetValue("custom.v")
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestStateManager_ClassScopeOfActiveDialog(t *testing.T) {
	sm, dc := newManager(t)

	err := sm.SetValue("class", "not an object")
	assert.ErrorIs(t, err, memory.ErrInvalidOperation)
	assert.Equal(t, map[string]any{"title": "Main"}, dc.Dialog.Class)

	require.NoError(t, sm.SetValue("CLASS", map[string]any{"title": "Other"}))
	v, err := sm.GetValue("%title")
	require.NoError(t, err)
	assert.Equal(t, "Other", v)

	require.NoError(t, sm.RemoveValue("class"))
	assert.Nil(t, dc.Dialog.Class)
	v, err = sm.GetValue("class.title")
	require.NoError(t, err)
	assert.Nil(t, v)

	noDialog := memory.NewStateManager(nil)
	require.NoError(t, noDialog.SetValue("class", "plain turn scope"))
	v, err = noDialog.GetValue("class")
	require.NoError(t, err)
	assert.Equal(t, "plain turn scope", v)
}

func TestStateManager_RemoveValue(t *testing.T) {
	t.Run("Missing Path Is A No-op", func(t *testing.T) {
		sm, dc := newManager(t)
		before := dc.Turn.Scopes()

		require.NoError(t, sm.RemoveValue("a.b.c"))
		require.NoError(t, sm.RemoveValue("user.missing.deep"))

		assert.Equal(t, before, dc.Turn.Scopes())
	})

	t.Run("Missing Dialog Is A No-op", func(t *testing.T) {
		sm := memory.NewStateManager(nil)
		assert.NoError(t, sm.RemoveValue("dialog.a.b"))
		assert.ErrorIs(t, sm.RemoveValue("dialog"), memory.ErrInvalidOperation)
		assert.ErrorIs(t, sm.SetValue("dialog.a.b", 1), memory.ErrInvalidOperation)
	})

	t.Run("Deletes Leaf", func(t *testing.T) {
		sm, _ := newManager(t)
		require.NoError(t, sm.RemoveValue("user.NAME"))

		v, err := sm.GetValue("user.name")
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("Deletes Scope", func(t *testing.T) {
		sm, dc := newManager(t)
		require.NoError(t, sm.RemoveValue("conversation"))

		_, ok := dc.Turn.Scope("conversation")
		assert.False(t, ok)
	})
}

func TestStateManager_ClosureScopes(t *testing.T) {
	sm, _ := newManager(t)

	sm.PopClosureScope()

	sm.PushClosureScope(map[string]any{"item": "outer"})
	sm.PushClosureScope(map[string]any{"item": "inner"})

	v, err := sm.GetValue("item")
	require.NoError(t, err)
	assert.Equal(t, "inner", v)

	sm.PopClosureScope()
	v, _ = sm.GetValue("item")
	assert.Equal(t, "outer", v)

	sm.PopClosureScope()
	v, _ = sm.GetValue("item")
	assert.Nil(t, v)
}

func TestStateManager_InvalidPath(t *testing.T) {
	sm, _ := newManager(t)

	_, err := sm.GetValue("user..name")
	assert.True(t, errors.Is(err, expression.ErrParse))

	assert.ErrorIs(t, sm.SetValue("[0]", 1), memory.ErrInvalidOperation)
}

func TestStateManager_Snapshot(t *testing.T) {
	sm, dc := newManager(t)

	snap := sm.Snapshot()
	assert.NotContains(t, snap, "settings")
	assert.Contains(t, snap, "dialog")
	assert.Contains(t, snap, "class")
	assert.Contains(t, snap, "user")

	snap["user"].(map[string]any)["name"] = "changed"
	user, _ := dc.Turn.Scope("user")
	assert.Equal(t, "x", user.(map[string]any)["name"], "snapshot is a copy")
}

func TestWithSettings_CopiesInput(t *testing.T) {
	settings := map[string]any{"feature": map[string]any{"on": true}}
	sm := memory.NewStateManager(memory.NewDialogContext(memory.NewTurn(memory.WithSettings(settings))))

	require.NoError(t, sm.SetValue("settings.feature.on", false))
	assert.Equal(t, true, settings["feature"].(map[string]any)["on"])
}

func TestStateManager_ExpressionMemory(t *testing.T) {
	sm, _ := newManager(t)
	var _ expression.ScopedMemory = sm

	expr, err := expression.ParseExpression("join(foreach(user.todos, t, toUpper(t)), '-') + ' ' + class.title")
	require.NoError(t, err)

	v, err := expr.Eval(sm)
	require.NoError(t, err)
	assert.Equal(t, "A-B Main", v)

	expr, err = expression.ParseExpression("setPathToValue(user.count, length(user.todos))")
	require.NoError(t, err)
	_, err = expr.Eval(sm)
	require.NoError(t, err)

	v, err = sm.GetValue("user.count")
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

type recordingObserver struct {
	calls []string
}

func (r *recordingObserver) ObserveResolve(op, resolver string, err error) {
	r.calls = append(r.calls, op+":"+resolver)
}

func TestStateManager_Observer(t *testing.T) {
	obs := &recordingObserver{}
	sm, _ := newManager(t, memory.WithObserver(obs))

	_, _ = sm.GetValue("@city")
	_ = sm.SetValue("user.name", "y")

	assert.Equal(t, []string{"get:default", "get:alias(@)", "set:default"}, obs.calls)
}
