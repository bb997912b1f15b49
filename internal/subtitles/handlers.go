package subtitles

import (
	"log"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/reelkeep/reelkeep/internal/httputil"
	"github.com/reelkeep/reelkeep/internal/models"
	"github.com/reelkeep/reelkeep/internal/scanner"
)

// VideoLookup resolves video rows for subtitle searches.
type VideoLookup interface {
	GetByID(id int64) (*models.Video, error)
}

type Handler struct {
	client   *Client
	videos   VideoLookup
	saveDir  string
	language string
}

func NewHandler(client *Client, videos VideoLookup, saveDir, language string) *Handler {
	if language == "" {
		language = "en"
	}
	return &Handler{client: client, videos: videos, saveDir: saveDir, language: language}
}

func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/search", h.search)
	r.Post("/download", h.download)
	return r
}

// search looks up subtitles for a library video, preferring the
// moviehash of the file on disk and falling back to a title query.
func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	if !h.client.Configured() {
		httputil.WriteError(w, http.StatusServiceUnavailable, "NOT_CONFIGURED", "opensubtitles api key not configured")
		return
	}
	videoID, err := strconv.ParseInt(r.URL.Query().Get("video_id"), 10, 64)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_ID", "invalid video_id")
		return
	}
	language := r.URL.Query().Get("language")
	if language == "" {
		language = h.language
	}

	video, err := h.videos.GetByID(videoID)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to load video")
		return
	}
	if video == nil {
		httputil.WriteError(w, http.StatusNotFound, "NOT_FOUND", "video not found")
		return
	}

	results, err := h.client.SearchByFile(video.FilePath, language)
	if err != nil {
		log.Printf("[subtitles] hash search failed for %s: %v", video.FilePath, err)
	}
	if len(results) == 0 {
		parsed := scanner.ParseFilename(filepath.Base(video.FilePath))
		results, err = h.client.SearchByTitle(video.Title, parsed.Year, language)
		if err != nil {
			httputil.WriteError(w, http.StatusBadGateway, "UPSTREAM", "subtitle search failed")
			return
		}
	}
	httputil.WriteJSON(w, http.StatusOK, results)
}

type downloadRequest struct {
	FileID   int64  `json:"file_id"`
	FileName string `json:"file_name"`
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	if !h.client.Configured() {
		httputil.WriteError(w, http.StatusServiceUnavailable, "NOT_CONFIGURED", "opensubtitles api key not configured")
		return
	}
	var req downloadRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	if req.FileID <= 0 {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_FILE_ID", "file_id is required")
		return
	}

	path, err := h.client.Download(req.FileID, h.saveDir, req.FileName)
	if err != nil {
		log.Printf("[subtitles] download failed for file %d: %v", req.FileID, err)
		httputil.WriteError(w, http.StatusBadGateway, "UPSTREAM", "subtitle download failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"path": path})
}
