package worker

import (
	"context"
	"sync"
	"testing"
	"time"
)

type scriptedSyncer struct {
	mu      sync.Mutex
	results []bool
	calls   int
}

func (s *scriptedSyncer) Sync(context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls < len(s.results) {
		r := s.results[s.calls]
		s.calls++
		return r
	}
	s.calls++
	return false
}

type countingSweeper struct {
	mu    sync.Mutex
	calls int
}

func (c *countingSweeper) ScanAllGroups(context.Context) (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return 1, 0
}

func TestSyncWorker_SweepsOnNewEntries(t *testing.T) {
	syncer := &scriptedSyncer{results: []bool{true}}
	sweeper := &countingSweeper{}
	w := NewSyncWorker(syncer, sweeper, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	// The startup sync returns true, so exactly one sweep runs.
	deadline := time.After(time.Second)
	for {
		sweeper.mu.Lock()
		n := sweeper.calls
		sweeper.mu.Unlock()
		if n == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("sweep not triggered, calls=%d", n)
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	<-done
}

func TestSyncWorker_NoSweepWhenUpToDate(t *testing.T) {
	syncer := &scriptedSyncer{results: []bool{false}}
	sweeper := &countingSweeper{}
	w := NewSyncWorker(syncer, sweeper, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	sweeper.mu.Lock()
	defer sweeper.mu.Unlock()
	if sweeper.calls != 0 {
		t.Errorf("sweep ran %d times on an up-to-date sync", sweeper.calls)
	}
}
