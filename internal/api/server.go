package api

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/reelkeep/reelkeep/internal/config"
	"github.com/reelkeep/reelkeep/internal/db"
	"github.com/reelkeep/reelkeep/internal/httputil"
	"github.com/reelkeep/reelkeep/internal/jobs"
	"github.com/reelkeep/reelkeep/internal/library"
	"github.com/reelkeep/reelkeep/internal/media"
	"github.com/reelkeep/reelkeep/internal/settings"
	"github.com/reelkeep/reelkeep/internal/subtitles"
	"github.com/reelkeep/reelkeep/internal/version"
)

type Server struct {
	config       *config.Config
	db           *db.DB
	folderRepo   *library.Repository
	videoRepo    *media.Repository
	metaRepo     *media.MetadataRepository
	settingsRepo *settings.Repository
	queue        *jobs.Queue
	wsHub        *WSHub
	router       chi.Router
}

// NewServer wires repositories and handlers onto a chi router. The watcher is
// passed in so the library handler can reconcile watches after folder changes.
func NewServer(cfg *config.Config, database *db.DB, queue *jobs.Queue, watches library.WatchRefresher) *Server {
	s := &Server{
		config:       cfg,
		db:           database,
		folderRepo:   library.NewRepository(database.DB),
		videoRepo:    media.NewRepository(database.DB),
		metaRepo:     media.NewMetadataRepository(database.DB),
		settingsRepo: settings.NewRepository(database.DB),
		queue:        queue,
		wsHub:        NewWSHub(),
	}

	subClient := subtitles.NewClient(cfg.OpenSubtitlesKey)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/ws", s.handleWebSocket)
		r.Post("/scan", s.handleTriggerScan)

		r.Mount("/folders", library.NewHandler(s.folderRepo, queue, watches).Router())
		r.Mount("/videos", media.NewHandler(s.videoRepo, s.metaRepo).Router())
		r.Mount("/settings", settings.NewHandler(s.settingsRepo).Router())
		r.Mount("/subtitles", subtitles.NewHandler(subClient, s.videoRepo, cfg.SubtitleDir(), cfg.SubtitleLanguages).Router())
	})

	// Cached poster images, keyed by TMDB id.
	r.Handle("/posters/*", http.StripPrefix("/posters/", http.FileServer(http.Dir(cfg.PosterDir()))))

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) WSHub() *WSHub {
	return s.wsHub
}

func (s *Server) FolderRepo() *library.Repository {
	return s.folderRepo
}

func (s *Server) VideoRepo() *media.Repository {
	return s.videoRepo
}

func (s *Server) MetadataRepo() *media.MetadataRepository {
	return s.metaRepo
}

func (s *Server) SettingsRepo() *settings.Repository {
	return s.settingsRepo
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(); err != nil {
		httputil.WriteError(w, http.StatusServiceUnavailable, "DB_DOWN", "database unreachable")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ver := version.Load()
	videoCount, err := s.videoRepo.Count()
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to read status")
		return
	}
	folders, err := s.folderRepo.List()
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to read status")
		return
	}
	metaCount, err := s.metaRepo.Count()
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to read status")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"version":    ver.Version,
		"videos":     videoCount,
		"folders":    len(folders),
		"metadata":   metaCount,
		"ws_clients": s.wsHub.ClientCount(),
	})
}

func (s *Server) handleTriggerScan(w http.ResponseWriter, r *http.Request) {
	if err := s.queue.EnqueueScanPass(0); err != nil {
		log.Printf("[api] failed to enqueue scan: %v", err)
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to enqueue scan")
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "scan queued"})
}
