package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

func TestWriteThenReadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "data.json")

	require.NoError(t, WriteJSON(path, sample{Name: "a", Items: []string{"x"}}))

	var got sample
	found, err := ReadJSON(path, &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, sample{Name: "a", Items: []string{"x"}}, got)
}

func TestReadJSON_Missing(t *testing.T) {
	var got sample
	found, err := ReadJSON(filepath.Join(t.TempDir(), "nope.json"), &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestReadJSON_EmptyAndMalformed(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte("  \n"), 0o644))
	found, err := ReadJSON(empty, &sample{})
	require.NoError(t, err)
	assert.False(t, found)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	_, err = ReadJSON(bad, &sample{})
	assert.Error(t, err)
}

func TestResolveDataDir(t *testing.T) {
	t.Setenv("HOME", "/tmp/sift-home")

	dir, err := ResolveDataDir("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/sift-home", ".sift", "mail"), dir)

	dir, err = ResolveDataDir("~/data")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/sift-home", "data"), dir)

	assert.Equal(t, filepath.Join("/d", PreferencesFile), PreferencesPath("/d"))
}
