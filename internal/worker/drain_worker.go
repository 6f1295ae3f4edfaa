package worker

import (
	"context"
	"log"
	"time"
)

// DefaultDrainInterval is how often the offline queue is drained.
const DefaultDrainInterval = 1 * time.Minute

// Drainer flushes the offline request queue toward the authority. Drain is
// internally guarded against overlapping runs, so the worker never needs to
// track in-flight state.
type Drainer interface {
	Drain(ctx context.Context)
	Size(ctx context.Context) (int, error)
}

// DrainWorker periodically drains the offline request queue.
type DrainWorker struct {
	drainer  Drainer
	interval time.Duration
}

// NewDrainWorker creates a drain worker.
func NewDrainWorker(drainer Drainer, interval time.Duration) *DrainWorker {
	if interval <= 0 {
		interval = DefaultDrainInterval
	}
	return &DrainWorker{drainer: drainer, interval: interval}
}

// Start begins the drain loop. It blocks until ctx is cancelled.
func (w *DrainWorker) Start(ctx context.Context) {
	log.Printf("[DrainWorker] Starting (interval=%s)", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[DrainWorker] Stopping")
			return
		case <-ticker.C:
			if n, err := w.drainer.Size(ctx); err != nil {
				log.Printf("[DrainWorker] Queue size check failed: %v", err)
				continue
			} else if n == 0 {
				continue
			}
			w.drainer.Drain(ctx)
		}
	}
}
