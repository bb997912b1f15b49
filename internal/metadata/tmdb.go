package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/reelkeep/reelkeep/internal/models"
)

const (
	tmdbBase      = "https://api.themoviedb.org/3"
	tmdbImageBase = "https://image.tmdb.org/t/p"

	// Poster size tier; fixed so cached files stay comparable across runs.
	posterSize = "w342"

	castLimit = 10
)

// TMDBClient talks to the TMDB HTTP API. Authentication uses the v4 read
// access token when configured, otherwise the v3 api_key query parameter.
// Requests are throttled client-side to stay under TMDB's rate limit.
type TMDBClient struct {
	apiKey      string
	accessToken string
	client      *http.Client
	limiter     *rate.Limiter
	posterDir   string

	// Overridable for tests.
	baseURL      string
	imageBaseURL string
}

func NewTMDBClient(apiKey, accessToken, posterDir string) *TMDBClient {
	return &TMDBClient{
		apiKey:       apiKey,
		accessToken:  accessToken,
		client:       &http.Client{Timeout: 10 * time.Second},
		limiter:      rate.NewLimiter(rate.Limit(4), 8),
		posterDir:    posterDir,
		baseURL:      tmdbBase,
		imageBaseURL: tmdbImageBase,
	}
}

// SearchResult is the slice of a TMDB search hit the identification engine
// consumes: the provider id and the ranked title.
type SearchResult struct {
	ID    int64
	Title string
	Year  int
}

type tmdbSearchResponse struct {
	Results []struct {
		ID            int64  `json:"id"`
		Title         string `json:"title"`
		Name          string `json:"name"`
		ReleaseDate   string `json:"release_date"`
		FirstAirDate  string `json:"first_air_date"`
	} `json:"results"`
}

// SearchMovie returns TMDB's top-ranked movie for the query, or nil when the
// provider has no match. No secondary ranking is applied on top of the
// provider's ordering.
func (c *TMDBClient) SearchMovie(title string, year int) (*SearchResult, error) {
	params := url.Values{"query": {title}}
	if year > 0 {
		params.Set("year", strconv.Itoa(year))
	}
	return c.search("/search/movie", params)
}

// SearchTV returns TMDB's top-ranked series for the query, or nil on no match.
func (c *TMDBClient) SearchTV(title string, year int) (*SearchResult, error) {
	params := url.Values{"query": {title}}
	if year > 0 {
		params.Set("first_air_date_year", strconv.Itoa(year))
	}
	return c.search("/search/tv", params)
}

func (c *TMDBClient) search(endpoint string, params url.Values) (*SearchResult, error) {
	var resp tmdbSearchResponse
	if err := c.get(endpoint, params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}

	top := resp.Results[0]
	title := top.Title
	if title == "" {
		title = top.Name
	}
	return &SearchResult{
		ID:    top.ID,
		Title: title,
		Year:  yearFromDate(firstNonEmpty(top.ReleaseDate, top.FirstAirDate)),
	}, nil
}

type tmdbDetailResponse struct {
	ID            int64   `json:"id"`
	Title         string  `json:"title"`
	Name          string  `json:"name"`
	OriginalTitle string  `json:"original_title"`
	OriginalName  string  `json:"original_name"`
	Overview      string  `json:"overview"`
	ReleaseDate   string  `json:"release_date"`
	FirstAirDate  string  `json:"first_air_date"`
	VoteAverage   float64 `json:"vote_average"`
	PosterPath    string  `json:"poster_path"`
	BackdropPath  string  `json:"backdrop_path"`
	Genres        []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"genres"`
	Credits struct {
		Cast []struct {
			Name      string `json:"name"`
			Character string `json:"character"`
		} `json:"cast"`
	} `json:"credits"`
	NumberOfSeasons  *int `json:"number_of_seasons"`
	NumberOfEpisodes *int `json:"number_of_episodes"`
}

// MovieDetails fetches the full movie record, resolving and caching the
// poster image locally.
func (c *TMDBClient) MovieDetails(id int64) (*models.Metadata, error) {
	return c.details(fmt.Sprintf("/movie/%d", id), models.MediaTypeMovie)
}

// TVDetails fetches the full series record, including season/episode counts.
func (c *TMDBClient) TVDetails(id int64) (*models.Metadata, error) {
	return c.details(fmt.Sprintf("/tv/%d", id), models.MediaTypeTV)
}

func (c *TMDBClient) details(endpoint string, mediaType models.MediaType) (*models.Metadata, error) {
	var r tmdbDetailResponse
	params := url.Values{"append_to_response": {"credits"}}
	if err := c.get(endpoint, params, &r); err != nil {
		return nil, err
	}
	if r.ID == 0 {
		return nil, fmt.Errorf("tmdb: malformed detail response for %s", endpoint)
	}

	m := &models.Metadata{
		TMDBID:        r.ID,
		Title:         firstNonEmpty(r.Title, r.Name),
		OriginalTitle: firstNonEmpty(r.OriginalTitle, r.OriginalName),
		Plot:          r.Overview,
		Rating:        &r.VoteAverage,
		MediaType:     mediaType,
		Genres:        []string{},
		Cast:          []models.CastMember{},
	}

	if y := yearFromDate(firstNonEmpty(r.ReleaseDate, r.FirstAirDate)); y > 0 {
		m.Year = &y
	}
	for _, g := range r.Genres {
		m.Genres = append(m.Genres, g.Name)
	}
	for i, cm := range r.Credits.Cast {
		if i >= castLimit {
			break
		}
		m.Cast = append(m.Cast, models.CastMember{Name: cm.Name, Character: cm.Character})
	}
	if mediaType == models.MediaTypeTV {
		m.SeasonCount = r.NumberOfSeasons
		m.EpisodeCount = r.NumberOfEpisodes
	}
	if r.BackdropPath != "" {
		b := r.BackdropPath
		m.BackdropPath = &b
	}
	if r.PosterPath != "" {
		if local := c.cachePoster(r.PosterPath, r.ID); local != "" {
			m.PosterPath = &local
		}
	}

	return m, nil
}

// cachePoster downloads the poster to the local cache keyed by provider id,
// reusing the cached file when it already exists. A failed download degrades
// to an un-poster'd record, never an error.
func (c *TMDBClient) cachePoster(posterPath string, tmdbID int64) string {
	local := filepath.Join(c.posterDir, fmt.Sprintf("%d.jpg", tmdbID))
	if _, err := os.Stat(local); err == nil {
		return local
	}
	if err := os.MkdirAll(c.posterDir, 0o755); err != nil {
		log.Printf("TMDB: poster cache dir: %v", err)
		return ""
	}

	resp, err := c.client.Get(c.imageBaseURL + "/" + posterSize + posterPath)
	if err != nil {
		log.Printf("TMDB: poster download failed for %d: %v", tmdbID, err)
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Printf("TMDB: poster download for %d returned %d", tmdbID, resp.StatusCode)
		return ""
	}

	f, err := os.Create(local)
	if err != nil {
		log.Printf("TMDB: poster create failed for %d: %v", tmdbID, err)
		return ""
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(local)
		log.Printf("TMDB: poster write failed for %d: %v", tmdbID, err)
		return ""
	}
	return local
}

func (c *TMDBClient) get(endpoint string, params url.Values, dst interface{}) error {
	if c.apiKey == "" && c.accessToken == "" {
		return fmt.Errorf("tmdb: no API key or access token configured")
	}
	if err := c.limiter.Wait(context.Background()); err != nil {
		return err
	}

	if c.accessToken == "" {
		params.Set("api_key", c.apiKey)
	}
	req, err := http.NewRequest(http.MethodGet, c.baseURL+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tmdb: %s returned %d", endpoint, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

func yearFromDate(date string) int {
	if len(date) < 4 {
		return 0
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return y
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
