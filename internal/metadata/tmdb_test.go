package metadata

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelkeep/reelkeep/internal/models"
)

func newTestClient(t *testing.T, api http.Handler, images http.Handler) *TMDBClient {
	t.Helper()
	apiSrv := httptest.NewServer(api)
	t.Cleanup(apiSrv.Close)

	c := NewTMDBClient("test-key", "", filepath.Join(t.TempDir(), "posters"))
	c.baseURL = apiSrv.URL
	if images != nil {
		imgSrv := httptest.NewServer(images)
		t.Cleanup(imgSrv.Close)
		c.imageBaseURL = imgSrv.URL
	}
	return c
}

func TestSearchMovieTakesFirstResult(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/movie", r.URL.Path)
		assert.Equal(t, "Heat", r.URL.Query().Get("query"))
		assert.Equal(t, "1995", r.URL.Query().Get("year"))
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		fmt.Fprint(w, `{"results":[
			{"id":949,"title":"Heat","release_date":"1995-12-15"},
			{"id":12345,"title":"Heat 2","release_date":"2030-01-01"}
		]}`)
	}), nil)

	r, err := c.SearchMovie("Heat", 1995)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.EqualValues(t, 949, r.ID)
	assert.Equal(t, "Heat", r.Title)
	assert.Equal(t, 1995, r.Year)
}

func TestSearchTVYearParamAndNameField(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/tv", r.URL.Path)
		assert.Equal(t, "2008", r.URL.Query().Get("first_air_date_year"))
		assert.Empty(t, r.URL.Query().Get("year"))
		fmt.Fprint(w, `{"results":[{"id":1396,"name":"Breaking Bad","first_air_date":"2008-01-20"}]}`)
	}), nil)

	r, err := c.SearchTV("Breaking Bad", 2008)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, "Breaking Bad", r.Title)
	assert.Equal(t, 2008, r.Year)
}

func TestSearchNoResultsIsNil(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results":[]}`)
	}), nil)

	r, err := c.SearchMovie("zxqw", 0)
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestSearchUnconfiguredClientErrors(t *testing.T) {
	c := NewTMDBClient("", "", t.TempDir())
	_, err := c.SearchMovie("anything", 0)
	assert.Error(t, err)
}

func TestMovieDetailsParsesRecord(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/movie/603", r.URL.Path)
		assert.Equal(t, "credits", r.URL.Query().Get("append_to_response"))
		fmt.Fprint(w, `{
			"id":603,"title":"The Matrix","original_title":"The Matrix",
			"overview":"A hacker learns the truth.","release_date":"1999-03-31",
			"vote_average":8.2,"backdrop_path":"/back.jpg",
			"genres":[{"id":28,"name":"Action"},{"id":878,"name":"Science Fiction"}],
			"credits":{"cast":[
				{"name":"A1","character":"C1"},{"name":"A2","character":"C2"},
				{"name":"A3","character":"C3"},{"name":"A4","character":"C4"},
				{"name":"A5","character":"C5"},{"name":"A6","character":"C6"},
				{"name":"A7","character":"C7"},{"name":"A8","character":"C8"},
				{"name":"A9","character":"C9"},{"name":"A10","character":"C10"},
				{"name":"A11","character":"C11"}
			]}
		}`)
	}), nil)

	m, err := c.MovieDetails(603)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.EqualValues(t, 603, m.TMDBID)
	assert.Equal(t, "The Matrix", m.Title)
	assert.Equal(t, models.MediaTypeMovie, m.MediaType)
	require.NotNil(t, m.Year)
	assert.Equal(t, 1999, *m.Year)
	assert.Equal(t, []string{"Action", "Science Fiction"}, m.Genres)
	// Credits are capped at the top billed names.
	assert.Len(t, m.Cast, 10)
	assert.Equal(t, "A1", m.Cast[0].Name)
	require.NotNil(t, m.BackdropPath)
	assert.Nil(t, m.SeasonCount)
}

func TestTVDetailsSeasonCounts(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":1399,"name":"Thrones","first_air_date":"2011-04-17",
			"number_of_seasons":8,"number_of_episodes":73,
			"genres":[],"credits":{"cast":[]}}`)
	}), nil)

	m, err := c.TVDetails(1399)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, models.MediaTypeTV, m.MediaType)
	require.NotNil(t, m.SeasonCount)
	assert.Equal(t, 8, *m.SeasonCount)
	require.NotNil(t, m.EpisodeCount)
	assert.Equal(t, 73, *m.EpisodeCount)
}

func TestPosterCachedOnce(t *testing.T) {
	var downloads int32
	images := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&downloads, 1)
		w.Write([]byte("jpegbytes"))
	})
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":603,"title":"The Matrix","poster_path":"/p.jpg",
			"genres":[],"credits":{"cast":[]}}`)
	}), images)

	m, err := c.MovieDetails(603)
	require.NoError(t, err)
	require.NotNil(t, m.PosterPath)
	data, err := os.ReadFile(*m.PosterPath)
	require.NoError(t, err)
	assert.Equal(t, "jpegbytes", string(data))

	// Second fetch reuses the cached file.
	_, err = c.MovieDetails(603)
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&downloads))
}

func TestDetailPosterFailureDegrades(t *testing.T) {
	images := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":7,"title":"No Poster","poster_path":"/missing.jpg",
			"genres":[],"credits":{"cast":[]}}`)
	}), images)

	m, err := c.MovieDetails(7)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Nil(t, m.PosterPath)
}
