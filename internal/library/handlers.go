package library

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/reelkeep/reelkeep/internal/httputil"
	"github.com/reelkeep/reelkeep/internal/models"
)

// ScanTrigger enqueues a library scan pass.
type ScanTrigger interface {
	EnqueueScanPass(delay time.Duration) error
}

// WatchRefresher reconciles filesystem watches with the folder table.
type WatchRefresher interface {
	Refresh()
}

type Handler struct {
	repo    *Repository
	scans   ScanTrigger
	watches WatchRefresher
}

func NewHandler(repo *Repository, scans ScanTrigger, watches WatchRefresher) *Handler {
	return &Handler{repo: repo, scans: scans, watches: watches}
}

func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Post("/", h.add)
	r.Delete("/{id}", h.remove)
	return r
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	folders, err := h.repo.List()
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to list folders")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, folders)
}

type addFolderRequest struct {
	Path       string `json:"path"`
	FolderType string `json:"folder_type"`
}

func (h *Handler) add(w http.ResponseWriter, r *http.Request) {
	var req addFolderRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	folderType := models.FolderType(req.FolderType)
	if !folderType.Valid() {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_FOLDER_TYPE", "folder_type must be movies, tv_shows, or personal")
		return
	}
	info, err := os.Stat(req.Path)
	if err != nil || !info.IsDir() {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_PATH", "path does not exist or is not a directory")
		return
	}

	id, err := h.repo.Add(req.Path, folderType)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to add folder")
		return
	}

	h.refreshAndScan()
	httputil.WriteJSON(w, http.StatusCreated, models.Folder{ID: id, Path: req.Path, FolderType: folderType})
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_ID", "invalid folder id")
		return
	}

	folder, err := h.repo.GetByID(id)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to load folder")
		return
	}
	if folder == nil {
		httputil.WriteError(w, http.StatusNotFound, "NOT_FOUND", "folder not found")
		return
	}

	if err := h.repo.Remove(id); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to remove folder")
		return
	}

	h.refreshAndScan()
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (h *Handler) refreshAndScan() {
	if h.watches != nil {
		h.watches.Refresh()
	}
	if h.scans != nil {
		if err := h.scans.EnqueueScanPass(0); err != nil {
			log.Printf("[library] failed to enqueue scan: %v", err)
		}
	}
}
