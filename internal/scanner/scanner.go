package scanner

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/reelkeep/reelkeep/internal/media"
	"github.com/reelkeep/reelkeep/internal/models"
)

// videoExtensions is the fixed set of recognized container extensions,
// matched case-insensitively.
var videoExtensions = map[string]bool{
	".mp4": true, ".mkv": true, ".avi": true, ".webm": true,
	".flv": true, ".mov": true, ".wmv": true, ".m4v": true,
	".mpg": true, ".mpeg": true, ".ts": true, ".vob": true,
	".3gp": true, ".ogv": true, ".divx": true,
}

// IsVideoFile reports whether path has a recognized video extension.
func IsVideoFile(path string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(path))]
}

// Scanner converges the catalog with the filesystem: it discovers media
// files under registered folders and removes entries whose files are gone.
type Scanner struct {
	videoRepo *media.Repository
}

func NewScanner(videoRepo *media.Repository) *Scanner {
	return &Scanner{videoRepo: videoRepo}
}

// ScanFolder walks root recursively and returns every recognized video file.
// Unreadable subtrees are skipped and an unreadable size degrades to zero;
// a partial filesystem never aborts the walk.
func (s *Scanner) ScanFolder(root string, folderID int64) []models.DiscoveredFile {
	var found []models.DiscoveredFile

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			log.Printf("Scan: skipping %s: %v", path, err)
			return nil
		}
		if info.IsDir() || !IsVideoFile(path) {
			return nil
		}

		size := info.Size()
		if size < 0 {
			size = 0
		}
		name := info.Name()
		found = append(found, models.DiscoveredFile{
			FilePath: path,
			FolderID: folderID,
			Title:    strings.TrimSuffix(name, filepath.Ext(name)),
			FileSize: size,
		})
		return nil
	})
	if err != nil {
		log.Printf("Scan: walk error for %s: %v", root, err)
	}
	return found
}

// SaveResults inserts discovered files as new catalog entries. Paths already
// present are left untouched, so rescanning an unchanged folder neither
// duplicates rows nor disturbs prior classification. Returns how many rows
// were actually added.
func (s *Scanner) SaveResults(files []models.DiscoveredFile) (int, error) {
	added := 0
	for i := range files {
		created, err := s.videoRepo.CreateIfAbsent(&files[i])
		if err != nil {
			log.Printf("Scan: insert failed for %s: %v", files[i].FilePath, err)
			continue
		}
		if created {
			added++
		}
	}
	return added, nil
}

// RemoveMissingFiles deletes every catalog entry whose file no longer exists
// on disk and returns the number removed.
func (s *Scanner) RemoveMissingFiles() (int, error) {
	entries, err := s.videoRepo.AllPaths()
	if err != nil {
		return 0, err
	}

	var stale []int64
	for _, e := range entries {
		if _, err := os.Stat(e.FilePath); os.IsNotExist(err) {
			stale = append(stale, e.ID)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	if err := s.videoRepo.DeleteByIDs(stale); err != nil {
		return 0, err
	}
	return len(stale), nil
}
