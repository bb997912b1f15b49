package media

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelkeep/reelkeep/internal/db"
	"github.com/reelkeep/reelkeep/internal/models"
)

func newTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.Connect(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, db.Migrate(database))
	return database
}

func addFolder(t *testing.T, database *db.DB, folderType models.FolderType) int64 {
	t.Helper()
	res, err := database.Exec(`INSERT INTO folders (path, folder_type) VALUES (?, ?)`,
		t.TempDir(), folderType)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func addVideo(t *testing.T, repo *Repository, folderID int64, path string) int64 {
	t.Helper()
	created, err := repo.CreateIfAbsent(&models.DiscoveredFile{
		FilePath: path,
		FolderID: folderID,
		Title:    filepath.Base(path),
		FileSize: 1024,
	})
	require.NoError(t, err)
	require.True(t, created)
	v, err := repo.GetByFilePath(path)
	require.NoError(t, err)
	require.NotNil(t, v)
	return v.ID
}

func TestCreateIfAbsentPathUnique(t *testing.T) {
	database := newTestDB(t)
	repo := NewRepository(database.DB)
	folderID := addFolder(t, database, models.FolderTypeMovies)

	f := &models.DiscoveredFile{FilePath: "/lib/a.mkv", FolderID: folderID, Title: "a", FileSize: 5}
	created, err := repo.CreateIfAbsent(f)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.CreateIfAbsent(f)
	require.NoError(t, err)
	assert.False(t, created)

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestListUnidentifiedExcludesLinked(t *testing.T) {
	database := newTestDB(t)
	repo := NewRepository(database.DB)
	folderID := addFolder(t, database, models.FolderTypeTVShows)

	id1 := addVideo(t, repo, folderID, "/lib/one.mkv")
	id2 := addVideo(t, repo, folderID, "/lib/two.mkv")

	pending, err := repo.ListUnidentified()
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, models.FolderTypeTVShows, pending[0].FolderType)

	require.NoError(t, repo.UpdateIdentified(id1, 99, models.CategoryTVShow, "One", nil, nil, nil))

	pending, err = repo.ListUnidentified()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, id2, pending[0].ID)
}

func TestFallbackStaysEligible(t *testing.T) {
	database := newTestDB(t)
	repo := NewRepository(database.DB)
	folderID := addFolder(t, database, models.FolderTypeMovies)
	id := addVideo(t, repo, folderID, "/lib/obscure.mkv")

	require.NoError(t, repo.UpdateFallback(id, "obscure", models.CategoryMovie))

	v, err := repo.GetByID(id)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, models.CategoryMovie, v.Category)
	assert.Nil(t, v.TMDBID)

	// No linkage was created, so the entry is retried on the next pass.
	pending, err := repo.ListUnidentified()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, id, pending[0].ID)
}

func TestUpdatePlayback(t *testing.T) {
	database := newTestDB(t)
	repo := NewRepository(database.DB)
	folderID := addFolder(t, database, models.FolderTypeMovies)
	id := addVideo(t, repo, folderID, "/lib/film.mkv")

	require.NoError(t, repo.UpdatePlayback(id, 1520.5))
	require.NoError(t, repo.UpdatePlayback(id, 3010.0))

	v, err := repo.GetByID(id)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, 3010.0, v.PlayPosition)
	assert.Equal(t, 2, v.PlayCount)
	assert.NotNil(t, v.LastPlayed)
}

func TestContinueWatchingOrdering(t *testing.T) {
	database := newTestDB(t)
	repo := NewRepository(database.DB)
	folderID := addFolder(t, database, models.FolderTypeMovies)

	unwatched := addVideo(t, repo, folderID, "/lib/unwatched.mkv")
	watched := addVideo(t, repo, folderID, "/lib/watched.mkv")
	require.NoError(t, repo.UpdatePlayback(watched, 600))

	list, err := repo.ContinueWatching(10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, watched, list[0].ID)
	assert.NotEqual(t, unwatched, list[0].ID)
}

func TestShowGrouping(t *testing.T) {
	database := newTestDB(t)
	repo := NewRepository(database.DB)
	folderID := addFolder(t, database, models.FolderTypeTVShows)

	show := "Deep Space"
	s1, s2 := 1, 1
	e1, e2 := 2, 1
	ep1 := addVideo(t, repo, folderID, "/lib/ds.s01e02.mkv")
	ep2 := addVideo(t, repo, folderID, "/lib/ds.s01e01.mkv")
	require.NoError(t, repo.UpdateIdentified(ep1, 42, models.CategoryTVShow, show, &show, &s1, &e1))
	require.NoError(t, repo.UpdateIdentified(ep2, 42, models.CategoryTVShow, show, &show, &s2, &e2))

	shows, err := repo.ListShows()
	require.NoError(t, err)
	require.Len(t, shows, 1)
	assert.Equal(t, 2, shows[0].EpisodeCount)

	episodes, err := repo.ListEpisodes(show)
	require.NoError(t, err)
	require.Len(t, episodes, 2)
	assert.Equal(t, ep2, episodes[0].ID)
	assert.Equal(t, ep1, episodes[1].ID)
}

func TestMetadataUpsertReplacesByProviderID(t *testing.T) {
	database := newTestDB(t)
	repo := NewMetadataRepository(database.DB)

	year := 1999
	first := &models.Metadata{
		TMDBID:    603,
		Title:     "Original Title",
		Year:      &year,
		Plot:      "first fetch",
		Genres:    []string{"Action", "Sci-Fi"},
		Cast:      []models.CastMember{{Name: "A", Character: "Neo"}},
		MediaType: models.MediaTypeMovie,
	}
	require.NoError(t, repo.Upsert(first))

	second := &models.Metadata{
		TMDBID:    603,
		Title:     "Corrected Title",
		Year:      &year,
		Plot:      "second fetch",
		Genres:    []string{"Sci-Fi"},
		MediaType: models.MediaTypeMovie,
	}
	require.NoError(t, repo.Upsert(second))

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	m, err := repo.GetByTMDBID(603)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "Corrected Title", m.Title)
	assert.Equal(t, "second fetch", m.Plot)
	assert.Equal(t, []string{"Sci-Fi"}, m.Genres)
	assert.Empty(t, m.Cast)
}

func TestMetadataRoundTripCast(t *testing.T) {
	database := newTestDB(t)
	repo := NewMetadataRepository(database.DB)

	cast := []models.CastMember{
		{Name: "First Actor", Character: "Lead"},
		{Name: "Second Actor", Character: "Support"},
	}
	require.NoError(t, repo.Upsert(&models.Metadata{
		TMDBID:    7, Title: "Ensemble", Genres: []string{"Drama"},
		Cast: cast, MediaType: models.MediaTypeTV,
	}))

	m, err := repo.GetByTMDBID(7)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, cast, m.Cast)
}
