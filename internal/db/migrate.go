package db

import (
	"database/sql"
	"fmt"
	"log"
)

const schema = `
CREATE TABLE IF NOT EXISTS folders (
	id INTEGER PRIMARY KEY,
	path TEXT UNIQUE NOT NULL,
	folder_type TEXT DEFAULT 'movies'
);

CREATE TABLE IF NOT EXISTS videos (
	id INTEGER PRIMARY KEY,
	file_path TEXT UNIQUE NOT NULL,
	folder_id INTEGER REFERENCES folders(id) ON DELETE CASCADE,
	title TEXT,
	category TEXT DEFAULT 'uncategorized',
	tmdb_id INTEGER,
	show_name TEXT,
	season_number INTEGER,
	episode_number INTEGER,
	file_size INTEGER,
	duration REAL,
	last_played TIMESTAMP,
	play_count INTEGER DEFAULT 0,
	play_position REAL DEFAULT 0,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS metadata (
	id INTEGER PRIMARY KEY,
	tmdb_id INTEGER UNIQUE NOT NULL,
	title TEXT,
	original_title TEXT,
	year INTEGER,
	plot TEXT,
	rating REAL,
	poster_path TEXT,
	backdrop_path TEXT,
	genres TEXT,
	cast_info TEXT,
	media_type TEXT,
	season_count INTEGER,
	episode_count INTEGER,
	fetched_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// Migrate creates the schema and applies additive column migrations to
// databases created by older releases. Only new optional columns are ever
// added; existing data is never rewritten or dropped.
func Migrate(db *DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	// Add missing columns before indexes so the indexed columns exist.
	if err := addMissingColumns(db.DB, "folders", map[string]string{
		"folder_type": "TEXT DEFAULT 'movies'",
	}); err != nil {
		return err
	}
	if err := addMissingColumns(db.DB, "videos", map[string]string{
		"show_name":      "TEXT",
		"season_number":  "INTEGER",
		"episode_number": "INTEGER",
		"play_count":     "INTEGER DEFAULT 0",
		"play_position":  "REAL DEFAULT 0",
	}); err != nil {
		return err
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_videos_category ON videos(category)",
		"CREATE INDEX IF NOT EXISTS idx_videos_tmdb_id ON videos(tmdb_id)",
		"CREATE INDEX IF NOT EXISTS idx_videos_show_name ON videos(show_name)",
		"CREATE INDEX IF NOT EXISTS idx_metadata_tmdb_id ON metadata(tmdb_id)",
	}
	for _, stmt := range indexes {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

func addMissingColumns(db *sql.DB, table string, cols map[string]string) error {
	existing, err := tableColumns(db, table)
	if err != nil {
		return err
	}
	for name, def := range cols {
		if existing[name] {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, name, def)
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("add column %s.%s: %w", table, name, err)
		}
		log.Printf("migrate: added column %s.%s", table, name)
	}
	return nil
}

func tableColumns(db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("table_info %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}
