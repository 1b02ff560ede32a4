package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCommands(t *testing.T) {
	mem := filepath.Join(t.TempDir(), "memory.json")
	require.NoError(t, os.WriteFile(mem, []byte(`{"user": {"name": "Joe"}}`), 0644))

	out, err := execute(t, "eval", "-m", mem, "Hi ${user.name}")
	require.NoError(t, err)
	assert.Equal(t, "Hi Joe\n", out)

	out, err = execute(t, "get", "-m", mem, "user.name")
	require.NoError(t, err)
	assert.Equal(t, "Joe\n", out)

	out, err = execute(t, "parse", "=1 + 2")
	require.NoError(t, err)
	assert.Contains(t, out, "kind: expression")

	out, err = execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "statepath version dev\n", out)
}

func TestCommands_ArgumentErrors(t *testing.T) {
	_, err := execute(t, "get")
	assert.Error(t, err)

	_, err = execute(t, "set", "user.name")
	assert.Error(t, err)
}
