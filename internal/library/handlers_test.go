package library

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelkeep/reelkeep/internal/db"
	"github.com/reelkeep/reelkeep/internal/models"
)

type fakeScanTrigger struct {
	enqueued int
}

func (f *fakeScanTrigger) EnqueueScanPass(delay time.Duration) error {
	f.enqueued++
	return nil
}

type fakeWatchRefresher struct {
	refreshed int
}

func (f *fakeWatchRefresher) Refresh() {
	f.refreshed++
}

func newHandlerFixture(t *testing.T) (*Handler, *Repository, *fakeScanTrigger, *fakeWatchRefresher) {
	t.Helper()
	database, err := db.Connect(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, db.Migrate(database))

	repo := NewRepository(database.DB)
	scans := &fakeScanTrigger{}
	watches := &fakeWatchRefresher{}
	return NewHandler(repo, scans, watches), repo, scans, watches
}

func TestAddFolderEndpoint(t *testing.T) {
	h, repo, scans, watches := newHandlerFixture(t)
	router := h.Router()

	dir := t.TempDir()
	body := fmt.Sprintf(`{"path":%q,"folder_type":"tv_shows"}`, dir)
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, scans.enqueued)
	assert.Equal(t, 1, watches.refreshed)

	folders, err := repo.List()
	require.NoError(t, err)
	require.Len(t, folders, 1)
	assert.Equal(t, dir, folders[0].Path)
	assert.Equal(t, models.FolderTypeTVShows, folders[0].FolderType)
}

func TestAddFolderRejectsBadType(t *testing.T) {
	h, repo, _, _ := newHandlerFixture(t)
	router := h.Router()

	body := fmt.Sprintf(`{"path":%q,"folder_type":"music"}`, t.TempDir())
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	folders, err := repo.List()
	require.NoError(t, err)
	assert.Empty(t, folders)
}

func TestAddFolderRejectsMissingPath(t *testing.T) {
	h, _, _, _ := newHandlerFixture(t)
	router := h.Router()

	req := httptest.NewRequest(http.MethodPost, "/",
		strings.NewReader(`{"path":"/definitely/not/here","folder_type":"movies"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRemoveFolderEndpoint(t *testing.T) {
	h, repo, scans, _ := newHandlerFixture(t)
	router := h.Router()

	id, err := repo.Add(t.TempDir(), models.FolderTypeMovies)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/%d", id), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, scans.enqueued)

	folders, err := repo.List()
	require.NoError(t, err)
	assert.Empty(t, folders)
}

func TestRemoveUnknownFolder(t *testing.T) {
	h, _, _, _ := newHandlerFixture(t)
	router := h.Router()

	req := httptest.NewRequest(http.MethodDelete, "/9999", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListFoldersEnvelope(t *testing.T) {
	h, repo, _, _ := newHandlerFixture(t)
	router := h.Router()

	_, err := repo.Add(t.TempDir(), models.FolderTypeMovies)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Status string          `json:"status"`
		Data   []models.Folder `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "ok", envelope.Status)
	assert.Len(t, envelope.Data, 1)
}
