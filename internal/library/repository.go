package library

import (
	"database/sql"
	"fmt"

	"github.com/reelkeep/reelkeep/internal/models"
)

// Repository manages the registered scan roots.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Add registers a folder, idempotent on path: re-adding an existing path is
// a no-op and the existing folder's id is returned.
func (r *Repository) Add(path string, folderType models.FolderType) (int64, error) {
	if !folderType.Valid() {
		folderType = models.FolderTypeMovies
	}
	_, err := r.db.Exec(`
		INSERT OR IGNORE INTO folders (path, folder_type) VALUES (?, ?)`,
		path, folderType)
	if err != nil {
		return 0, fmt.Errorf("insert folder: %w", err)
	}

	var id int64
	if err := r.db.QueryRow(`SELECT id FROM folders WHERE path = ?`, path).Scan(&id); err != nil {
		return 0, fmt.Errorf("lookup folder id: %w", err)
	}
	return id, nil
}

// Remove deletes a folder and every video it owns. The explicit video delete
// runs first so the removal does not depend on the connection's foreign-key
// cascade being enabled.
func (r *Repository) Remove(id int64) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM videos WHERE folder_id = ?`, id); err != nil {
		return fmt.Errorf("delete folder videos: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM folders WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete folder: %w", err)
	}
	return tx.Commit()
}

func (r *Repository) GetByID(id int64) (*models.Folder, error) {
	f := &models.Folder{}
	err := r.db.QueryRow(`SELECT id, path, folder_type FROM folders WHERE id = ?`, id).
		Scan(&f.ID, &f.Path, &f.FolderType)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// List returns all registered folders in registration order, which is also
// the order the orchestrator scans them in.
func (r *Repository) List() ([]models.Folder, error) {
	rows, err := r.db.Query(`SELECT id, path, folder_type FROM folders ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Folder
	for rows.Next() {
		var f models.Folder
		if err := rows.Scan(&f.ID, &f.Path, &f.FolderType); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
