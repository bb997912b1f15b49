package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/reelkeep/reelkeep/internal/api"
	"github.com/reelkeep/reelkeep/internal/config"
	"github.com/reelkeep/reelkeep/internal/db"
	"github.com/reelkeep/reelkeep/internal/jobs"
	"github.com/reelkeep/reelkeep/internal/library"
	"github.com/reelkeep/reelkeep/internal/metadata"
	"github.com/reelkeep/reelkeep/internal/scanner"
	"github.com/reelkeep/reelkeep/internal/scheduler"
	"github.com/reelkeep/reelkeep/internal/version"
	"github.com/reelkeep/reelkeep/internal/watcher"
)

func main() {
	ver := version.Load()
	log.Printf("ReelKeep %s starting...", ver.Version)

	cfg := config.Load()

	database, err := db.Connect(cfg.DBPath())
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	cfg.MergeFromDB(database.DB)

	queue := jobs.NewQueue(cfg.RedisAddr)

	folderRepo := library.NewRepository(database.DB)
	w, err := watcher.New(folderRepo, func() {
		if err := queue.EnqueueScanPass(cfg.WatchDebounce); err != nil {
			log.Printf("failed to enqueue scan from watcher: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("watcher init failed: %v", err)
	}

	srv := api.NewServer(cfg, database, queue, w)

	provider := metadata.NewTMDBClient(cfg.TMDBAPIKey, cfg.TMDBAccessToken, cfg.PosterDir())
	identifier := metadata.NewIdentifier(provider, srv.VideoRepo(), srv.MetadataRepo())
	sc := scanner.NewScanner(srv.VideoRepo())

	scanHandler := jobs.NewScanAllHandler(sc, srv.FolderRepo(), identifier, srv.WSHub())
	queue.RegisterHandler(jobs.TaskScanAll, scanHandler)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := queue.Start(ctx); err != nil {
		log.Fatalf("job queue start failed: %v", err)
	}

	w.Start()
	w.Refresh()

	sched := scheduler.New(cfg.ScanInterval, func() {
		if err := queue.EnqueueScanPass(0); err != nil {
			log.Printf("failed to enqueue scheduled scan: %v", err)
		}
	})
	sched.Start()

	// Converge with the filesystem on startup.
	if err := queue.EnqueueScanPass(0); err != nil {
		log.Printf("failed to enqueue startup scan: %v", err)
	}

	httpServer := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("listening on :%d", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	sched.Stop()
	w.Stop()
	queue.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
}
