package worker

import (
	"context"
	"log"
	"time"
)

// DefaultSyncInterval is how often the authority is polled for revisions.
const DefaultSyncInterval = 5 * time.Minute

// Syncer pulls one revision delta from the authority. Reports whether new
// block entries arrived.
type Syncer interface {
	Sync(ctx context.Context) bool
}

// Sweeper runs a full roster sweep across every connected group.
type Sweeper interface {
	ScanAllGroups(ctx context.Context) (groups, handled int)
}

// SyncWorker drives the periodic authority sync and triggers a full sweep
// whenever a sync lands new block entries.
type SyncWorker struct {
	syncer   Syncer
	sweeper  Sweeper
	interval time.Duration
}

// NewSyncWorker creates a sync worker. sweeper may be nil to disable the
// post-sync sweep.
func NewSyncWorker(syncer Syncer, sweeper Sweeper, interval time.Duration) *SyncWorker {
	if interval <= 0 {
		interval = DefaultSyncInterval
	}
	return &SyncWorker{syncer: syncer, sweeper: sweeper, interval: interval}
}

// Start begins the sync loop. An immediate sync runs at startup so a fresh
// process converges without waiting a full interval. Blocks until ctx is
// cancelled.
func (w *SyncWorker) Start(ctx context.Context) {
	log.Printf("[SyncWorker] Starting (interval=%s)", w.interval)

	w.syncOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[SyncWorker] Stopping")
			return
		case <-ticker.C:
			w.syncOnce(ctx)
		}
	}
}

func (w *SyncWorker) syncOnce(ctx context.Context) {
	if !w.syncer.Sync(ctx) {
		return
	}
	if w.sweeper == nil {
		return
	}
	log.Println("[SyncWorker] New block entries, starting full sweep")
	groups, handled := w.sweeper.ScanAllGroups(ctx)
	log.Printf("[SyncWorker] Sweep finished (groups=%d, handled=%d)", groups, handled)
}
