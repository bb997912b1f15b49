package watcher

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/reelkeep/reelkeep/internal/library"
	"github.com/reelkeep/reelkeep/internal/scanner"
)

// OnChange is called when a watched folder's contents change. The callback
// is expected to schedule a debounced rescan, not to scan inline.
type OnChange func()

// Watcher monitors registered library folders for filesystem changes and
// coalesces change bursts into rescan triggers.
type Watcher struct {
	folderRepo *library.Repository
	callback   OnChange
	watcher    *fsnotify.Watcher
	mu         sync.Mutex
	watched    map[string]bool
	stop       chan struct{}
}

func New(folderRepo *library.Repository, cb OnChange) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		folderRepo: folderRepo,
		callback:   cb,
		watcher:    fw,
		watched:    make(map[string]bool),
		stop:       make(chan struct{}),
	}, nil
}

// Start begins watching all registered folders and processing events.
func (w *Watcher) Start() {
	go w.eventLoop()
	w.Refresh()
	log.Println("[watcher] filesystem watcher started")
}

func (w *Watcher) Stop() {
	close(w.stop)
	w.watcher.Close()
}

// Refresh reloads the watched folder set from the catalog. Called after
// folders are added or removed.
func (w *Watcher) Refresh() {
	folders, err := w.folderRepo.List()
	if err != nil {
		log.Printf("[watcher] error loading folders: %v", err)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	desired := make(map[string]bool)
	for _, f := range folders {
		desired[f.Path] = true
	}

	for p := range w.watched {
		if !desired[p] {
			w.watcher.Remove(p)
			delete(w.watched, p)
		}
	}
	for p := range desired {
		if w.watched[p] {
			continue
		}
		if err := w.addRecursive(p); err != nil {
			log.Printf("[watcher] error adding %s: %v", p, err)
		}
	}

	log.Printf("[watcher] watching %d paths across %d folders", len(w.watched), len(folders))
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip inaccessible dirs
		}
		if info.IsDir() {
			if err := w.watcher.Add(path); err != nil {
				return nil
			}
			w.watched[path] = true
		}
		return nil
	})
}

func (w *Watcher) eventLoop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[watcher] error: %v", err)
		case <-w.stop:
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, ".tmp") ||
		strings.HasSuffix(base, ".part") {
		return
	}

	relevant := event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) ||
		event.Has(fsnotify.Rename)
	if !relevant {
		return
	}

	// New directories join the watch set so nested additions are seen.
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.mu.Lock()
			if err := w.watcher.Add(event.Name); err == nil {
				w.watched[event.Name] = true
			}
			w.mu.Unlock()
			w.callback()
			return
		}
	}

	if !scanner.IsVideoFile(event.Name) {
		return
	}
	w.callback()
}
