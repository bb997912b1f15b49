package media

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/reelkeep/reelkeep/internal/models"
)

// Repository is the Video surface of the catalog store. Every mutation is a
// single statement, so each caller-visible update commits atomically on its
// own; a crash between two updates never leaves one entry half-written.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const videoColumns = `id, file_path, folder_id, title, category, tmdb_id, show_name,
	season_number, episode_number, file_size, duration, last_played,
	play_count, play_position, created_at`

func scanVideo(row interface{ Scan(...interface{}) error }) (*models.Video, error) {
	v := &models.Video{}
	var fileSize sql.NullInt64
	err := row.Scan(&v.ID, &v.FilePath, &v.FolderID, &v.Title, &v.Category,
		&v.TMDBID, &v.ShowName, &v.SeasonNumber, &v.EpisodeNumber,
		&fileSize, &v.Duration, &v.LastPlayed,
		&v.PlayCount, &v.PlayPosition, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	v.FileSize = fileSize.Int64
	return v, nil
}

// CreateIfAbsent inserts a newly discovered file, keyed by its unique path.
// An existing row for the same path is left completely untouched, including
// any classification a previous identification pass applied. Returns whether
// a row was actually inserted.
func (r *Repository) CreateIfAbsent(f *models.DiscoveredFile) (bool, error) {
	res, err := r.db.Exec(`
		INSERT OR IGNORE INTO videos (file_path, folder_id, title, file_size)
		VALUES (?, ?, ?, ?)`,
		f.FilePath, f.FolderID, f.Title, f.FileSize)
	if err != nil {
		return false, fmt.Errorf("insert video: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *Repository) GetByID(id int64) (*models.Video, error) {
	row := r.db.QueryRow(`SELECT `+videoColumns+` FROM videos WHERE id = ?`, id)
	v, err := scanVideo(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (r *Repository) GetByFilePath(path string) (*models.Video, error) {
	row := r.db.QueryRow(`SELECT `+videoColumns+` FROM videos WHERE file_path = ?`, path)
	v, err := scanVideo(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// UnidentifiedVideo is one catalog entry still lacking a metadata linkage,
// joined with its folder's type hint.
type UnidentifiedVideo struct {
	ID         int64
	FilePath   string
	Title      string
	FolderType models.FolderType
}

// ListUnidentified returns every video with no provider linkage, in insertion
// order. Videos detached from a deleted folder are excluded: without a
// folder-type hint there is nothing to drive the lookup order.
func (r *Repository) ListUnidentified() ([]UnidentifiedVideo, error) {
	rows, err := r.db.Query(`
		SELECT v.id, v.file_path, v.title, f.folder_type
		FROM videos v
		JOIN folders f ON v.folder_id = f.id
		WHERE v.tmdb_id IS NULL
		ORDER BY v.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UnidentifiedVideo
	for rows.Next() {
		var u UnidentifiedVideo
		if err := rows.Scan(&u.ID, &u.FilePath, &u.Title, &u.FolderType); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// PathEntry pairs a video id with its file path, for stale-file sweeps.
type PathEntry struct {
	ID       int64
	FilePath string
}

func (r *Repository) AllPaths() ([]PathEntry, error) {
	rows, err := r.db.Query(`SELECT id, file_path FROM videos`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PathEntry
	for rows.Next() {
		var e PathEntry
		if err := rows.Scan(&e.ID, &e.FilePath); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repository) DeleteByIDs(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := r.db.Exec("DELETE FROM videos WHERE id IN ("+placeholders+")", args...)
	return err
}

// UpdateIdentified writes a successful identification outcome: provider
// linkage, category, display title, and (for episodes) show grouping fields.
func (r *Repository) UpdateIdentified(id, tmdbID int64, category models.Category,
	title string, showName *string, season, episode *int) error {
	_, err := r.db.Exec(`
		UPDATE videos SET tmdb_id = ?, category = ?, title = ?,
		       show_name = ?, season_number = ?, episode_number = ?
		WHERE id = ?`,
		tmdbID, category, title, showName, season, episode, id)
	return err
}

// UpdateFallback records a hint-derived classification for a video no
// provider lookup could match. No linkage is created, so the entry stays
// eligible for re-identification on later passes.
func (r *Repository) UpdateFallback(id int64, title string, category models.Category) error {
	_, err := r.db.Exec(`UPDATE videos SET title = ?, category = ? WHERE id = ?`,
		title, category, id)
	return err
}

// UpdatePlayback stores the resume position reported when playback ends,
// bumps the play count, and stamps last_played.
func (r *Repository) UpdatePlayback(id int64, position float64) error {
	_, err := r.db.Exec(`
		UPDATE videos SET play_position = ?, play_count = play_count + 1,
		       last_played = CURRENT_TIMESTAMP
		WHERE id = ?`,
		position, id)
	return err
}

func (r *Repository) UpdateDuration(id int64, duration float64) error {
	_, err := r.db.Exec(`UPDATE videos SET duration = ? WHERE id = ?`, duration, id)
	return err
}

// List returns library entries, optionally filtered by category.
func (r *Repository) List(category models.Category) ([]models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos ORDER BY title`
	args := []interface{}{}
	if category != "" {
		query = `SELECT ` + videoColumns + ` FROM videos WHERE category = ? ORDER BY title`
		args = append(args, category)
	}
	return r.queryVideos(query, args...)
}

// ContinueWatching returns partially watched videos, most recent first.
func (r *Repository) ContinueWatching(limit int) ([]models.Video, error) {
	if limit <= 0 {
		limit = 20
	}
	return r.queryVideos(`
		SELECT `+videoColumns+` FROM videos
		WHERE play_position > 0
		ORDER BY last_played DESC
		LIMIT ?`, limit)
}

// ListShows groups classified episodes into one row per show.
func (r *Repository) ListShows() ([]models.ShowSummary, error) {
	rows, err := r.db.Query(`
		SELECT show_name, tmdb_id, COUNT(*)
		FROM videos
		WHERE category = ? AND show_name IS NOT NULL
		GROUP BY show_name
		ORDER BY show_name`, models.CategoryTVShow)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ShowSummary
	for rows.Next() {
		var s models.ShowSummary
		if err := rows.Scan(&s.ShowName, &s.TMDBID, &s.EpisodeCount); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListEpisodes returns a show's episodes in season/episode order.
func (r *Repository) ListEpisodes(showName string) ([]models.Video, error) {
	return r.queryVideos(`
		SELECT `+videoColumns+` FROM videos
		WHERE category = ? AND show_name = ?
		ORDER BY season_number, episode_number`, models.CategoryTVShow, showName)
}

func (r *Repository) Count() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM videos`).Scan(&n)
	return n, err
}

func (r *Repository) queryVideos(query string, args ...interface{}) ([]models.Video, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}
