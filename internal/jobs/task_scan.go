package jobs

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/hibiken/asynq"

	"github.com/reelkeep/reelkeep/internal/library"
	"github.com/reelkeep/reelkeep/internal/metadata"
	"github.com/reelkeep/reelkeep/internal/models"
	"github.com/reelkeep/reelkeep/internal/scanner"
)

// ScanAllPayload is the (empty) payload for a full orchestration pass.
type ScanAllPayload struct{}

// EventNotifier receives coarse progress events from background work.
type EventNotifier interface {
	Broadcast(event string, data interface{})
}

// ScanAllHandler runs one orchestration pass: every registered folder is
// scanned in registration order, stale entries are swept, then the
// identification engine runs over the whole catalog. Stages never overlap.
type ScanAllHandler struct {
	scanner    *scanner.Scanner
	folderRepo *library.Repository
	identifier *metadata.Identifier
	notifier   EventNotifier
	running    atomic.Bool
}

func NewScanAllHandler(sc *scanner.Scanner, folderRepo *library.Repository,
	identifier *metadata.Identifier, notifier EventNotifier) *ScanAllHandler {
	return &ScanAllHandler{
		scanner:    sc,
		folderRepo: folderRepo,
		identifier: identifier,
		notifier:   notifier,
	}
}

func (h *ScanAllHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	h.Run(ctx)
	// Errors are contained inside the pass; returning nil keeps asynq from
	// retrying a pass that already signalled completion.
	return nil
}

// Run executes one pass. A trigger while a pass is active is a no-op. Any
// error ends the pass early, but a terminal scan:finished event is always
// emitted so callers can resume normal operation.
func (h *ScanAllHandler) Run(ctx context.Context) {
	if !h.running.CompareAndSwap(false, true) {
		log.Println("Scan: pass already in progress, skipping trigger")
		return
	}
	defer h.running.Store(false)

	result := &models.ScanResult{}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Scan: pass panicked: %v", r)
			result.Errors = append(result.Errors, fmt.Sprintf("panic: %v", r))
		}
		h.broadcast("scan:finished", result)
		log.Printf("Scan: pass complete - %d found, %d added, %d removed, %d identified",
			result.FilesFound, result.FilesAdded, result.FilesRemoved, result.Identified)
	}()

	folders, err := h.folderRepo.List()
	if err != nil {
		log.Printf("Scan: listing folders failed: %v", err)
		result.Errors = append(result.Errors, err.Error())
		return
	}

	for i, folder := range folders {
		h.broadcast("scan:progress", map[string]interface{}{
			"stage":   "scanning",
			"message": fmt.Sprintf("Scanning folder %d/%d...", i+1, len(folders)),
			"folder":  folder.Path,
		})
		files := h.scanner.ScanFolder(folder.Path, folder.ID)
		result.FilesFound += len(files)
		added, err := h.scanner.SaveResults(files)
		if err != nil {
			log.Printf("Scan: saving results for %s failed: %v", folder.Path, err)
			result.Errors = append(result.Errors, err.Error())
			return
		}
		result.FilesAdded += added
	}

	h.broadcast("scan:progress", map[string]interface{}{
		"stage":   "cleanup",
		"message": "Removing missing files...",
	})
	removed, err := h.scanner.RemoveMissingFiles()
	if err != nil {
		log.Printf("Scan: stale-file removal failed: %v", err)
		result.Errors = append(result.Errors, err.Error())
		return
	}
	result.FilesRemoved = removed

	h.broadcast("scan:progress", map[string]interface{}{
		"stage":   "identify",
		"message": "Identifying videos & fetching metadata...",
	})
	identified, err := h.identifier.IdentifyAll()
	if err != nil {
		log.Printf("Scan: identification failed: %v", err)
		result.Errors = append(result.Errors, err.Error())
		return
	}
	result.Identified = identified
}

func (h *ScanAllHandler) broadcast(event string, data interface{}) {
	if h.notifier != nil {
		h.notifier.Broadcast(event, data)
	}
}
