package media

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/reelkeep/reelkeep/internal/httputil"
	"github.com/reelkeep/reelkeep/internal/models"
)

const continueWatchingLimit = 20

type Handler struct {
	repo     *Repository
	metaRepo *MetadataRepository
}

func NewHandler(repo *Repository, metaRepo *MetadataRepository) *Handler {
	return &Handler{repo: repo, metaRepo: metaRepo}
}

func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Get("/continue", h.continueWatching)
	r.Get("/shows", h.listShows)
	r.Get("/shows/{name}/episodes", h.listEpisodes)
	r.Get("/{id}", h.get)
	r.Post("/{id}/progress", h.updateProgress)
	r.Post("/{id}/duration", h.updateDuration)
	return r
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	category := models.Category(r.URL.Query().Get("category"))
	videos, err := h.repo.List(category)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to list videos")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, videos)
}

func (h *Handler) continueWatching(w http.ResponseWriter, r *http.Request) {
	videos, err := h.repo.ContinueWatching(continueWatchingLimit)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to list videos")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, videos)
}

func (h *Handler) listShows(w http.ResponseWriter, r *http.Request) {
	shows, err := h.repo.ListShows()
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to list shows")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, shows)
}

func (h *Handler) listEpisodes(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	episodes, err := h.repo.ListEpisodes(name)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to list episodes")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, episodes)
}

// videoDetail joins a video row with its cached TMDB metadata, when present.
type videoDetail struct {
	models.Video
	Metadata *models.Metadata `json:"metadata,omitempty"`
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.videoID(w, r)
	if !ok {
		return
	}
	video, err := h.repo.GetByID(id)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to load video")
		return
	}
	if video == nil {
		httputil.WriteError(w, http.StatusNotFound, "NOT_FOUND", "video not found")
		return
	}

	detail := videoDetail{Video: *video}
	if video.TMDBID != nil {
		meta, err := h.metaRepo.GetByTMDBID(*video.TMDBID)
		if err == nil {
			detail.Metadata = meta
		}
	}
	httputil.WriteJSON(w, http.StatusOK, detail)
}

type progressRequest struct {
	Position float64 `json:"position"`
}

func (h *Handler) updateProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := h.videoID(w, r)
	if !ok {
		return
	}
	var req progressRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	if req.Position < 0 {
		req.Position = 0
	}
	if err := h.repo.UpdatePlayback(id, req.Position); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to update progress")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type durationRequest struct {
	Duration float64 `json:"duration"`
}

func (h *Handler) updateDuration(w http.ResponseWriter, r *http.Request) {
	id, ok := h.videoID(w, r)
	if !ok {
		return
	}
	var req durationRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	if req.Duration <= 0 {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_DURATION", "duration must be positive")
		return
	}
	if err := h.repo.UpdateDuration(id, req.Duration); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to update duration")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) videoID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_ID", "invalid video id")
		return 0, false
	}
	return id, true
}
