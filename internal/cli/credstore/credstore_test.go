package credstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	store := NewFileStoreAt(path, zerolog.Nop())

	_, ok := store.Get(KeyToken)
	assert.False(t, ok, "empty store should report token absent")

	require.NoError(t, store.Set(KeyToken, "abc123"))
	require.NoError(t, store.Set(KeyPendingEmail, "a@b.com"))

	// A fresh store reading the same file sees the persisted values
	reloaded := NewFileStoreAt(path, zerolog.Nop())
	token, ok := reloaded.Get(KeyToken)
	require.True(t, ok)
	assert.Equal(t, "abc123", token)

	email, ok := reloaded.Get(KeyPendingEmail)
	require.True(t, ok)
	assert.Equal(t, "a@b.com", email)
}

func TestFileStore_RemoveAbsentKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	store := NewFileStoreAt(path, zerolog.Nop())

	assert.NoError(t, store.Remove(KeyToken))
}

func TestFileStore_Remove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	store := NewFileStoreAt(path, zerolog.Nop())

	require.NoError(t, store.Set(KeyToken, "abc123"))
	require.NoError(t, store.Remove(KeyToken))

	_, ok := NewFileStoreAt(path, zerolog.Nop()).Get(KeyToken)
	assert.False(t, ok)
}

func TestFileStore_CorruptFileTreatedAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	store := NewFileStoreAt(path, zerolog.Nop())

	_, ok := store.Get(KeyToken)
	assert.False(t, ok)

	// Writes still work after starting empty
	require.NoError(t, store.Set(KeyToken, "fresh"))
	token, ok := store.Get(KeyToken)
	require.True(t, ok)
	assert.Equal(t, "fresh", token)
}

func TestFileStore_FilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	store := NewFileStoreAt(path, zerolog.Nop())
	require.NoError(t, store.Set(KeyToken, "secret"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestMemory(t *testing.T) {
	store := NewMemory()

	_, ok := store.Get(KeyUser)
	assert.False(t, ok)

	require.NoError(t, store.Set(KeyUser, `{"id":1}`))
	value, ok := store.Get(KeyUser)
	require.True(t, ok)
	assert.Equal(t, `{"id":1}`, value)

	require.NoError(t, store.Remove(KeyUser))
	_, ok = store.Get(KeyUser)
	assert.False(t, ok)
}
