package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/statepath/pkg/adapters/file"
	"github.com/aretw0/statepath/pkg/ports"
)

var _ ports.ScopeStore = (*file.Store)(nil)

func TestFileStore_Contract(t *testing.T) {
	ports.RunScopeStoreContract(t, file.New(t.TempDir()))
}

func TestFileStore_Layout(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, ports.ScopeKey{Scope: "user", ID: "u1"}, map[string]any{"name": "Joe"}))

	data, err := os.ReadFile(filepath.Join(dir, "user", "u1.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"name": "Joe"}`, string(data))

	entries, err := os.ReadDir(filepath.Join(dir, "user"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files are left behind")
}

func TestFileStore_RejectsUnsafeKeys(t *testing.T) {
	store := file.New(t.TempDir())
	ctx := context.Background()

	for _, key := range []ports.ScopeKey{
		{Scope: "user", ID: "../escape"},
		{Scope: "..", ID: "x"},
		{Scope: "user", ID: ""},
		{Scope: "user", ID: ".hidden"},
	} {
		assert.Error(t, store.Save(ctx, key, map[string]any{}), key.String())
	}
}

func TestFileStore_ListKeepsTmpLookingIDs(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, ports.ScopeKey{Scope: "user", ID: "tmp-user"}, map[string]any{"v": 1}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "user", ".tmp-u2-123.json"), []byte("{}"), 0644))

	ids, err := store.List(ctx, "user")
	require.NoError(t, err)
	assert.Equal(t, []string{"tmp-user"}, ids)
}

func TestFileStore_DefaultPath(t *testing.T) {
	assert.Equal(t, filepath.Join(".statepath", "scopes"), file.New("").BasePath)
}
