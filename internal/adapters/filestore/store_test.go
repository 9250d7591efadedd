package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/greenhands/greenhands-shell/internal/domain/connection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestStore_MissingFileIsEmpty(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "nested", "storage.yaml"))

	v, ok, err := s.Get(context.Background(), connection.StorageKeyURL)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestStore_SetManyPersistsPair(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "storage.yaml")
	s := New(path)
	ctx := context.Background()

	require.NoError(t, s.SetMany(ctx, map[string]string{
		connection.StorageKeyURL:     "https://x.test",
		connection.StorageKeyAnonKey: "k1",
	}))

	// A fresh store reads the same file.
	reopened := New(path)
	url, ok, err := reopened.Get(ctx, connection.StorageKeyURL)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://x.test", url)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]string
	require.NoError(t, yaml.Unmarshal(data, &raw))
	assert.Equal(t, "k1", raw[connection.StorageKeyAnonKey])

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestStore_RemoveKeepsOtherKeys(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "storage.yaml"))
	ctx := context.Background()

	require.NoError(t, s.SetMany(ctx, map[string]string{"a": "1", "b": "2"}))
	require.NoError(t, s.Remove(ctx, "a", "missing"))

	_, ok, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	v, ok, err := s.Get(ctx, "b")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2", v)
}

func TestStore_RemoveOnMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.yaml")
	s := New(path)

	require.NoError(t, s.Remove(context.Background(), "a"))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "removing from an empty store must not create the file")
}

func TestStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- not\n- a map\n"), 0o600))

	_, _, err := New(path).Get(context.Background(), "a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse storage file")
}

func TestStore_SetManyRejectsEmptyKey(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "storage.yaml"))
	require.Error(t, s.SetMany(context.Background(), map[string]string{"": "x"}))
}
