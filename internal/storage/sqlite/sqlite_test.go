package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mmynk/settlewise/internal/storage"
	"github.com/mmynk/settlewise/internal/storage/storagetest"
)

func newTestStore(t *testing.T) storage.Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore(t *testing.T) {
	storagetest.Run(t, newTestStore)
}

func TestNew_CreatesParentDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "settlewise.db")
	store, err := New(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.FileExists(t, dbPath)
}

func TestNew_ReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "settlewise.db")
	store, err := New(dbPath)
	require.NoError(t, err)

	user := storagetest.SeedUser(t, store, "alice@example.com", "Alice")
	require.NoError(t, store.Close())

	store, err = New(dbPath)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.GetUserByID(t.Context(), user.ID)
	require.NoError(t, err)
	require.Equal(t, "Alice", got.Name)
}
