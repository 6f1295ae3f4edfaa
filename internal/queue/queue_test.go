package queue

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/ignite/group-guardian/internal/authority"
	"github.com/ignite/group-guardian/internal/domain"
	"github.com/ignite/group-guardian/internal/pkg/distlock"
)

// mockQueueRepo is an in-memory queue repository for testing.
type mockQueueRepo struct {
	mu    sync.Mutex
	store map[string]*domain.QueuedRequest
	ops   int // store operations performed, for reentrancy assertions
}

func newMockQueueRepo() *mockQueueRepo {
	return &mockQueueRepo{store: make(map[string]*domain.QueuedRequest)}
}

func (m *mockQueueRepo) Insert(_ context.Context, req domain.QueuedRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops++
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now()
	}
	m.store[req.RequestID] = &req
	return nil
}

func (m *mockQueueRepo) Oldest(_ context.Context, limit int) ([]domain.QueuedRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops++
	var out []domain.QueuedRequest
	for _, r := range m.store {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockQueueRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops++
	delete(m.store, id)
	return nil
}

func (m *mockQueueRepo) IncrementRetry(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops++
	if r, ok := m.store[id]; ok {
		r.RetryCount++
	}
	return nil
}

func (m *mockQueueRepo) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.store), nil
}

// fakeDeliverer scripts delivery outcomes per request id.
type fakeDeliverer struct {
	mu       sync.Mutex
	outcomes map[string]error
	attempts []string
	block    chan struct{} // when set, Deliver blocks until closed
}

func (f *fakeDeliverer) Deliver(_ context.Context, _ domain.RequestKind, payload domain.ApplicationPayload, _ string) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, payload.RequestID)
	return f.outcomes[payload.RequestID]
}

func newService(repo Repository, d Deliverer) *Service {
	return NewService(repo, d, nil, distlock.NewLocalLock(), "inst-1")
}

func addPayload(id string) domain.ApplicationPayload {
	return domain.ApplicationPayload{RequestID: id, ApplicantID: "a1", TargetUserID: "u1"}
}

func TestEnqueue_AssignsRequestID(t *testing.T) {
	repo := newMockQueueRepo()
	svc := newService(repo, &fakeDeliverer{})

	id, err := svc.Enqueue(context.Background(), domain.RequestAdd,
		domain.ApplicationPayload{ApplicantID: "a1", TargetUserID: "u1"})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if id == "" {
		t.Fatal("no request id assigned")
	}
	if got := repo.store[id]; got == nil || got.Payload.RequestID != id {
		t.Errorf("stored item = %+v", repo.store)
	}
}

func TestEnqueue_RejectsInvalidPayload(t *testing.T) {
	svc := newService(newMockQueueRepo(), &fakeDeliverer{})

	if _, err := svc.Enqueue(context.Background(), domain.RequestAdd,
		domain.ApplicationPayload{ApplicantID: "a1"}); err == nil {
		t.Error("ADD without target_user_id should fail validation")
	}
	if _, err := svc.Enqueue(context.Background(), domain.RequestCancel,
		domain.ApplicationPayload{ApplicantID: "a1"}); err == nil {
		t.Error("CANCEL without target_request_id should fail validation")
	}
}

func TestDrain_DeliveredItemsAreDeleted(t *testing.T) {
	repo := newMockQueueRepo()
	d := &fakeDeliverer{outcomes: map[string]error{}}
	svc := newService(repo, d)
	ctx := context.Background()

	svc.Enqueue(ctx, domain.RequestAdd, addPayload("req-1"))
	svc.Drain(ctx)

	if len(d.attempts) != 1 {
		t.Fatalf("attempts = %v", d.attempts)
	}
	if n, _ := repo.Count(ctx); n != 0 {
		t.Errorf("queue size = %d after successful delivery", n)
	}
}

func TestDrain_NetworkFailureLeavesRetryCount(t *testing.T) {
	repo := newMockQueueRepo()
	d := &fakeDeliverer{outcomes: map[string]error{
		"req-1": &authority.NetworkError{Op: "deliver"},
	}}
	svc := newService(repo, d)
	ctx := context.Background()

	svc.Enqueue(ctx, domain.RequestAdd, addPayload("req-1"))
	svc.Drain(ctx)

	item := repo.store["req-1"]
	if item == nil {
		t.Fatal("item evicted on network failure")
	}
	if item.RetryCount != 0 {
		t.Errorf("retry_count = %d, want 0 (network failures must not burn retries)", item.RetryCount)
	}
}

func TestDrain_BusinessFailureIncrementsOnce(t *testing.T) {
	repo := newMockQueueRepo()
	d := &fakeDeliverer{outcomes: map[string]error{
		"req-1": &authority.RejectionError{Op: "deliver", StatusCode: 422},
	}}
	svc := newService(repo, d)
	ctx := context.Background()

	svc.Enqueue(ctx, domain.RequestAdd, addPayload("req-1"))
	svc.Drain(ctx)

	item := repo.store["req-1"]
	if item == nil {
		t.Fatal("item deleted on rejection")
	}
	if item.RetryCount != 1 {
		t.Errorf("retry_count = %d, want exactly 1", item.RetryCount)
	}
}

func TestDrain_DeadLetterBoundary(t *testing.T) {
	repo := newMockQueueRepo()
	d := &fakeDeliverer{outcomes: map[string]error{
		"at-limit": &authority.RejectionError{Op: "deliver", StatusCode: 422},
	}}
	svc := newService(repo, d)
	ctx := context.Background()

	// retry_count = 6 → evicted without a delivery attempt.
	repo.Insert(ctx, domain.QueuedRequest{
		RequestID: "over-limit", Kind: domain.RequestAdd,
		Payload: addPayload("over-limit"), RetryCount: 6,
		CreatedAt: time.Now().Add(-2 * time.Hour),
	})
	// retry_count = 5 → still attempted.
	repo.Insert(ctx, domain.QueuedRequest{
		RequestID: "at-limit", Kind: domain.RequestAdd,
		Payload: addPayload("at-limit"), RetryCount: 5,
		CreatedAt: time.Now().Add(-time.Hour),
	})

	svc.Drain(ctx)

	for _, id := range d.attempts {
		if id == "over-limit" {
			t.Error("dead-lettered item was attempted")
		}
	}
	if _, ok := repo.store["over-limit"]; ok {
		t.Error("dead-lettered item not evicted")
	}
	if item := repo.store["at-limit"]; item == nil || item.RetryCount != 6 {
		t.Errorf("at-limit item = %+v, want retry_count 6", item)
	}
}

func TestDrain_ReentrancyGuard(t *testing.T) {
	repo := newMockQueueRepo()
	block := make(chan struct{})
	d := &fakeDeliverer{outcomes: map[string]error{}, block: block}
	svc := newService(repo, d)
	ctx := context.Background()

	svc.Enqueue(ctx, domain.RequestAdd, addPayload("req-1"))

	repo.mu.Lock()
	opsBefore := repo.ops
	repo.mu.Unlock()

	done := make(chan struct{})
	go func() {
		svc.Drain(ctx) // blocks inside Deliver
		close(done)
	}()

	// Give the first drain time to take the lock and start delivering.
	time.Sleep(50 * time.Millisecond)

	// Second drain must perform zero store operations.
	opsBeforeSecond := func() int {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		return repo.ops
	}()
	svc.Drain(ctx)
	opsAfterSecond := func() int {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		return repo.ops
	}()
	if opsAfterSecond != opsBeforeSecond {
		t.Errorf("second drain performed %d store operations", opsAfterSecond-opsBeforeSecond)
	}

	close(block)
	<-done

	repo.mu.Lock()
	if repo.ops <= opsBefore {
		t.Error("first drain performed no store operations")
	}
	repo.mu.Unlock()
}

// archiveRecorder records archived dead letters.
type archiveRecorder struct {
	mu   sync.Mutex
	seen []string
}

func (a *archiveRecorder) Archive(_ context.Context, req domain.QueuedRequest) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seen = append(a.seen, req.RequestID)
	return nil
}

func TestDrain_ArchivesDeadLetters(t *testing.T) {
	repo := newMockQueueRepo()
	rec := &archiveRecorder{}
	svc := NewService(repo, &fakeDeliverer{}, rec, distlock.NewLocalLock(), "inst-1")
	ctx := context.Background()

	repo.Insert(ctx, domain.QueuedRequest{
		RequestID: "dead-1", Kind: domain.RequestRemove,
		Payload: addPayload("dead-1"), RetryCount: 7,
	})

	svc.Drain(ctx)

	if len(rec.seen) != 1 || rec.seen[0] != "dead-1" {
		t.Errorf("archived = %v", rec.seen)
	}
}
