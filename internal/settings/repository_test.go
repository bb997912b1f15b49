package settings

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelkeep/reelkeep/internal/db"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	database, err := db.Connect(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, db.Migrate(database))
	return NewRepository(database.DB)
}

func TestSetAndGet(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Set("tmdb_api_key", "abc123"))
	value, err := repo.Get("tmdb_api_key")
	require.NoError(t, err)
	assert.Equal(t, "abc123", value)
}

func TestSetOverwrites(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Set("subtitle_languages", "en"))
	require.NoError(t, repo.Set("subtitle_languages", "en,fr"))

	value, err := repo.Get("subtitle_languages")
	require.NoError(t, err)
	assert.Equal(t, "en,fr", value)

	all, err := repo.GetAll()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestGetMissingKey(t *testing.T) {
	repo := newTestRepo(t)
	value, err := repo.Get("nope")
	require.NoError(t, err)
	assert.Empty(t, value)
}

func TestDelete(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.Set("k", "v"))
	require.NoError(t, repo.Delete("k"))

	value, err := repo.Get("k")
	require.NoError(t, err)
	assert.Empty(t, value)
}
