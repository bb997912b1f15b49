package models

import "time"

// ──────────────────── Enums ────────────────────

// FolderType is the user-declared content hint for a registered folder.
// It guides identification but is never treated as authoritative.
type FolderType string

const (
	FolderTypeMovies   FolderType = "movies"
	FolderTypeTVShows  FolderType = "tv_shows"
	FolderTypePersonal FolderType = "personal"
)

func (t FolderType) Valid() bool {
	switch t {
	case FolderTypeMovies, FolderTypeTVShows, FolderTypePersonal:
		return true
	}
	return false
}

// FallbackCategory maps a folder-type hint to the category a video receives
// when every provider lookup comes up empty.
func (t FolderType) FallbackCategory() Category {
	switch t {
	case FolderTypeMovies:
		return CategoryMovie
	case FolderTypeTVShows:
		return CategoryTVShow
	case FolderTypePersonal:
		return CategoryPersonal
	}
	return CategoryUncategorized
}

type Category string

const (
	CategoryUncategorized Category = "uncategorized"
	CategoryMovie         Category = "movie"
	CategoryTVShow        Category = "tv_show"
	CategoryPersonal      Category = "personal"
)

type MediaType string

const (
	MediaTypeMovie MediaType = "movie"
	MediaTypeTV    MediaType = "tv"
)

// ──────────────────── Folder ────────────────────

type Folder struct {
	ID         int64      `json:"id" db:"id"`
	Path       string     `json:"path" db:"path"`
	FolderType FolderType `json:"folder_type" db:"folder_type"`
}

// ──────────────────── Video ────────────────────

type Video struct {
	ID            int64      `json:"id" db:"id"`
	FilePath      string     `json:"file_path" db:"file_path"`
	FolderID      *int64     `json:"folder_id,omitempty" db:"folder_id"`
	Title         string     `json:"title" db:"title"`
	Category      Category   `json:"category" db:"category"`
	TMDBID        *int64     `json:"tmdb_id,omitempty" db:"tmdb_id"`
	ShowName      *string    `json:"show_name,omitempty" db:"show_name"`
	SeasonNumber  *int       `json:"season_number,omitempty" db:"season_number"`
	EpisodeNumber *int       `json:"episode_number,omitempty" db:"episode_number"`
	FileSize      int64      `json:"file_size" db:"file_size"`
	Duration      *float64   `json:"duration,omitempty" db:"duration"`
	LastPlayed    *time.Time `json:"last_played,omitempty" db:"last_played"`
	PlayCount     int        `json:"play_count" db:"play_count"`
	PlayPosition  float64    `json:"play_position" db:"play_position"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

// ──────────────────── Metadata ────────────────────

// CastMember is one (actor, character) pairing from the provider's credits.
type CastMember struct {
	Name      string `json:"name"`
	Character string `json:"character"`
}

// Metadata is a cached provider record for one title. All episodes of a show
// share a single row, keyed by the provider id.
type Metadata struct {
	ID            int64        `json:"id" db:"id"`
	TMDBID        int64        `json:"tmdb_id" db:"tmdb_id"`
	Title         string       `json:"title" db:"title"`
	OriginalTitle string       `json:"original_title" db:"original_title"`
	Year          *int         `json:"year,omitempty" db:"year"`
	Plot          string       `json:"plot" db:"plot"`
	Rating        *float64     `json:"rating,omitempty" db:"rating"`
	PosterPath    *string      `json:"poster_path,omitempty" db:"poster_path"`
	BackdropPath  *string      `json:"backdrop_path,omitempty" db:"backdrop_path"`
	Genres        []string     `json:"genres" db:"genres"`
	Cast          []CastMember `json:"cast_info" db:"cast_info"`
	MediaType     MediaType    `json:"media_type" db:"media_type"`
	SeasonCount   *int         `json:"season_count,omitempty" db:"season_count"`
	EpisodeCount  *int         `json:"episode_count,omitempty" db:"episode_count"`
	FetchedAt     time.Time    `json:"fetched_at" db:"fetched_at"`
}

// ──────────────────── Scan results ────────────────────

// DiscoveredFile is one media file found during a folder walk, before it is
// persisted as a Video.
type DiscoveredFile struct {
	FilePath string
	FolderID int64
	Title    string
	FileSize int64
}

type ScanResult struct {
	FilesFound   int      `json:"files_found"`
	FilesAdded   int      `json:"files_added"`
	FilesRemoved int      `json:"files_removed"`
	Identified   int      `json:"identified"`
	Errors       []string `json:"errors,omitempty"`
}

// ──────────────────── Shows ────────────────────

// ShowSummary is one TV show grouping row for the library grid.
type ShowSummary struct {
	ShowName     string `json:"show_name"`
	TMDBID       *int64 `json:"tmdb_id,omitempty"`
	EpisodeCount int    `json:"episode_count"`
}
