package config

import (
	"database/sql"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type Config struct {
	Port              int
	DataDir           string
	TMDBAPIKey        string
	TMDBAccessToken   string
	OpenSubtitlesKey  string
	RedisAddr         string
	ScanInterval      time.Duration
	WatchDebounce     time.Duration
	SubtitleLanguages string
}

func Load() *Config {
	return &Config{
		Port:              envInt("PORT", 8080),
		DataDir:           env("DATA_DIR", "data"),
		TMDBAPIKey:        env("TMDB_API_KEY", ""),
		TMDBAccessToken:   env("TMDB_ACCESS_TOKEN", ""),
		OpenSubtitlesKey:  env("OPENSUBTITLES_API_KEY", ""),
		RedisAddr:         env("REDIS_ADDR", "localhost:6379"),
		ScanInterval:      time.Duration(envInt("SCAN_INTERVAL_MINUTES", 60)) * time.Minute,
		WatchDebounce:     time.Duration(envInt("WATCH_DEBOUNCE_SECONDS", 5)) * time.Second,
		SubtitleLanguages: env("SUBTITLE_LANGUAGES", "en"),
	}
}

// MergeFromDB overlays values stored in the settings table on top of the
// environment defaults. Missing table or rows are not an error; the env
// values simply stand.
func (c *Config) MergeFromDB(db *sql.DB) {
	rows, err := db.Query("SELECT key, value FROM settings")
	if err != nil {
		log.Printf("config: skipping DB merge: %v", err)
		return
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			continue
		}
		switch key {
		case "tmdb_api_key":
			c.TMDBAPIKey = value
		case "tmdb_access_token":
			c.TMDBAccessToken = value
		case "opensubtitles_api_key":
			c.OpenSubtitlesKey = value
		case "subtitle_languages":
			c.SubtitleLanguages = value
		case "scan_interval_minutes":
			if v, err := strconv.Atoi(value); err == nil && v > 0 {
				c.ScanInterval = time.Duration(v) * time.Minute
			}
		}
	}
}

// DBPath returns the catalog database location under the data directory.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "media.db")
}

// PosterDir returns the local poster cache directory.
func (c *Config) PosterDir() string {
	return filepath.Join(c.DataDir, "posters")
}

// SubtitleDir returns where downloaded subtitles are stored.
func (c *Config) SubtitleDir() string {
	return filepath.Join(c.DataDir, "subtitles")
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
