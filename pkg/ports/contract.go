package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunScopeStoreContract verifies that a ScopeStore implementation behaves
// the way the session manager relies on.
func RunScopeStoreContract(t *testing.T, store ScopeStore) {
	ctx := context.Background()
	id := "contract-" + time.Now().Format("20060102150405.000000000")
	key := ScopeKey{Scope: "user", ID: id}

	t.Run("Save and Load", func(t *testing.T) {
		value := map[string]any{
			"name":    "Joe",
			"profile": map[string]any{"city": "Lisbon"},
			"todos":   []any{"a", "b"},
		}
		require.NoError(t, store.Save(ctx, key, value))

		loaded, err := store.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "Joe", loaded["name"])
		assert.Equal(t, map[string]any{"city": "Lisbon"}, loaded["profile"])
		assert.Len(t, loaded["todos"], 2)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, ScopeKey{Scope: "user", ID: "missing-" + id})
		assert.ErrorIs(t, err, ErrScopeNotFound)
	})

	t.Run("Scopes Are Separate", func(t *testing.T) {
		_, err := store.Load(ctx, ScopeKey{Scope: "conversation", ID: id})
		assert.ErrorIs(t, err, ErrScopeNotFound)
	})

	t.Run("Isolation", func(t *testing.T) {
		value := map[string]any{"nested": map[string]any{"n": 1}}
		require.NoError(t, store.Save(ctx, key, value))
		value["nested"].(map[string]any)["n"] = 2

		loaded, err := store.Load(ctx, key)
		require.NoError(t, err)
		assert.EqualValues(t, 1, loaded["nested"].(map[string]any)["n"], "stored value is detached from the input")

		loaded["nested"].(map[string]any)["n"] = 3
		again, err := store.Load(ctx, key)
		require.NoError(t, err)
		assert.EqualValues(t, 1, again["nested"].(map[string]any)["n"], "loaded value is detached from the store")
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, key, map[string]any{}))
		require.NoError(t, store.Delete(ctx, key))

		_, err := store.Load(ctx, key)
		assert.ErrorIs(t, err, ErrScopeNotFound, "Load after Delete should return ErrScopeNotFound")

		assert.NoError(t, store.Delete(ctx, key), "deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := ScopeKey{Scope: "conversation", ID: id + "-1"}
		id2 := ScopeKey{Scope: "conversation", ID: id + "-2"}
		require.NoError(t, store.Save(ctx, id1, map[string]any{}))
		require.NoError(t, store.Save(ctx, id2, map[string]any{}))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx, "conversation")
		require.NoError(t, err)
		assert.Contains(t, ids, id1.ID)
		assert.Contains(t, ids, id2.ID)

		users, err := store.List(ctx, "user")
		require.NoError(t, err)
		assert.NotContains(t, users, id1.ID)
	})
}
