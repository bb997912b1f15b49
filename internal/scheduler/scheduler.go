package scheduler

import (
	"log"
	"time"
)

// OnScanDue is called when a periodic rescan is due.
type OnScanDue func()

// Scheduler triggers a full rescan on a fixed interval, so the catalog
// converges with the filesystem even when change notifications are missed.
type Scheduler struct {
	callback OnScanDue
	interval time.Duration
	stop     chan struct{}
}

func New(interval time.Duration, cb OnScanDue) *Scheduler {
	return &Scheduler{
		callback: cb,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start begins the ticker loop.
func (s *Scheduler) Start() {
	go s.run()
	log.Printf("[scheduler] periodic rescan every %s", s.interval)
}

func (s *Scheduler) Stop() {
	close(s.stop)
}

func (s *Scheduler) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.callback()
		case <-s.stop:
			log.Println("[scheduler] stopped")
			return
		}
	}
}
