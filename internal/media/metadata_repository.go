package media

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/reelkeep/reelkeep/internal/models"
)

// MetadataRepository is the cached-provider-record surface of the catalog
// store. Rows are keyed by provider id; re-fetching a title replaces its row.
type MetadataRepository struct {
	db *sql.DB
}

func NewMetadataRepository(db *sql.DB) *MetadataRepository {
	return &MetadataRepository{db: db}
}

// Upsert writes a metadata record by provider id as one atomic statement.
// The genre and cast lists are serialized as JSON, preserving order.
func (r *MetadataRepository) Upsert(m *models.Metadata) error {
	genres, err := json.Marshal(m.Genres)
	if err != nil {
		return fmt.Errorf("marshal genres: %w", err)
	}
	cast, err := json.Marshal(m.Cast)
	if err != nil {
		return fmt.Errorf("marshal cast: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO metadata (tmdb_id, title, original_title, year, plot, rating,
		       poster_path, backdrop_path, genres, cast_info, media_type,
		       season_count, episode_count, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (tmdb_id) DO UPDATE SET
		       title=excluded.title, original_title=excluded.original_title,
		       year=excluded.year, plot=excluded.plot, rating=excluded.rating,
		       poster_path=excluded.poster_path, backdrop_path=excluded.backdrop_path,
		       genres=excluded.genres, cast_info=excluded.cast_info,
		       media_type=excluded.media_type, season_count=excluded.season_count,
		       episode_count=excluded.episode_count, fetched_at=CURRENT_TIMESTAMP`,
		m.TMDBID, m.Title, m.OriginalTitle, m.Year, m.Plot, m.Rating,
		m.PosterPath, m.BackdropPath, string(genres), string(cast), m.MediaType,
		m.SeasonCount, m.EpisodeCount)
	if err != nil {
		return fmt.Errorf("upsert metadata: %w", err)
	}
	return nil
}

func (r *MetadataRepository) GetByTMDBID(tmdbID int64) (*models.Metadata, error) {
	m := &models.Metadata{}
	var genres, cast sql.NullString
	err := r.db.QueryRow(`
		SELECT id, tmdb_id, title, original_title, year, plot, rating,
		       poster_path, backdrop_path, genres, cast_info, media_type,
		       season_count, episode_count, fetched_at
		FROM metadata WHERE tmdb_id = ?`, tmdbID,
	).Scan(&m.ID, &m.TMDBID, &m.Title, &m.OriginalTitle, &m.Year, &m.Plot,
		&m.Rating, &m.PosterPath, &m.BackdropPath, &genres, &cast, &m.MediaType,
		&m.SeasonCount, &m.EpisodeCount, &m.FetchedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if genres.Valid && genres.String != "" {
		if err := json.Unmarshal([]byte(genres.String), &m.Genres); err != nil {
			return nil, fmt.Errorf("unmarshal genres: %w", err)
		}
	}
	if cast.Valid && cast.String != "" {
		if err := json.Unmarshal([]byte(cast.String), &m.Cast); err != nil {
			return nil, fmt.Errorf("unmarshal cast: %w", err)
		}
	}
	return m, nil
}

func (r *MetadataRepository) Count() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM metadata`).Scan(&n)
	return n, err
}
