package media

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelkeep/reelkeep/internal/models"
)

func TestProgressEndpoint(t *testing.T) {
	database := newTestDB(t)
	repo := NewRepository(database.DB)
	metaRepo := NewMetadataRepository(database.DB)
	folderID := addFolder(t, database, models.FolderTypeMovies)
	id := addVideo(t, repo, folderID, "/lib/film.mkv")

	router := NewHandler(repo, metaRepo).Router()

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/%d/progress", id),
		strings.NewReader(`{"position":422.75}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	v, err := repo.GetByID(id)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, 422.75, v.PlayPosition)
	assert.Equal(t, 1, v.PlayCount)
	assert.NotNil(t, v.LastPlayed)
}

func TestVideoDetailIncludesMetadata(t *testing.T) {
	database := newTestDB(t)
	repo := NewRepository(database.DB)
	metaRepo := NewMetadataRepository(database.DB)
	folderID := addFolder(t, database, models.FolderTypeMovies)
	id := addVideo(t, repo, folderID, "/lib/film.mkv")

	require.NoError(t, metaRepo.Upsert(&models.Metadata{
		TMDBID: 550, Title: "Fight Club", Genres: []string{"Drama"},
		MediaType: models.MediaTypeMovie,
	}))
	require.NoError(t, repo.UpdateIdentified(id, 550, models.CategoryMovie, "Fight Club", nil, nil, nil))

	router := NewHandler(repo, metaRepo).Router()
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/%d", id), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data struct {
			Title    string           `json:"title"`
			Metadata *models.Metadata `json:"metadata"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "Fight Club", envelope.Data.Title)
	require.NotNil(t, envelope.Data.Metadata)
	assert.EqualValues(t, 550, envelope.Data.Metadata.TMDBID)
}

func TestVideoDetailNotFound(t *testing.T) {
	database := newTestDB(t)
	router := NewHandler(NewRepository(database.DB), NewMetadataRepository(database.DB)).Router()

	req := httptest.NewRequest(http.MethodGet, "/424242", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListByCategory(t *testing.T) {
	database := newTestDB(t)
	repo := NewRepository(database.DB)
	metaRepo := NewMetadataRepository(database.DB)
	folderID := addFolder(t, database, models.FolderTypeMovies)

	movie := addVideo(t, repo, folderID, "/lib/movie.mkv")
	addVideo(t, repo, folderID, "/lib/unsorted.mkv")
	require.NoError(t, repo.UpdateIdentified(movie, 1, models.CategoryMovie, "Movie", nil, nil, nil))

	router := NewHandler(repo, metaRepo).Router()
	req := httptest.NewRequest(http.MethodGet, "/?category=movie", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data []models.Video `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, movie, envelope.Data[0].ID)
}
