package backend

import (
	"context"
	"path/filepath"
	"testing"

	"fintrack-server/src/config"
	"fintrack-server/src/db/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMemory(t *testing.T) {
	store, err := Open(context.Background(), &config.Config{DataBackend: config.BackendMemory})
	require.NoError(t, err)
	defer store.Close()

	assert.IsType(t, &memory.Store{}, store)
	assert.NoError(t, store.Ping(context.Background()))
}

func TestOpenSQLiteMigratesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "fintrack.db")
	store, err := Open(context.Background(), &config.Config{DataBackend: config.BackendSQLite, SQLiteDBPath: path})
	require.NoError(t, err)
	defer store.Close()

	ids, err := store.ListUserIDs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)

	// Running migrations again is a no-op.
	assert.NoError(t, Migrate(&config.Config{DataBackend: config.BackendSQLite, SQLiteDBPath: path}))
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{DataBackend: "mongo"})
	assert.Error(t, err)
}
