// Package queue implements the durable offline request queue: outbound
// authority requests that failed to deliver are persisted and retried on a
// schedule, with dead-letter eviction past the retry budget.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/group-guardian/internal/authority"
	"github.com/ignite/group-guardian/internal/domain"
	"github.com/ignite/group-guardian/internal/pkg/distlock"
	"github.com/ignite/group-guardian/internal/pkg/logger"
)

// drainBatchSize is how many queued items one drain pass picks up.
const drainBatchSize = 10

// Deliverer is the slice of the authority client used by the drain.
type Deliverer interface {
	Deliver(ctx context.Context, kind domain.RequestKind, payload domain.ApplicationPayload, instanceID string) error
}

// Archiver preserves dead-lettered payloads for manual recovery.
type Archiver interface {
	Archive(ctx context.Context, req domain.QueuedRequest) error
}

// Service owns the offline queue. Drain is guarded against self-overlap:
// a second invocation while one is running is a no-op.
type Service struct {
	repo       Repository
	deliverer  Deliverer
	archiver   Archiver // optional
	guard      distlock.Lock
	instanceID string
}

// NewService creates a queue service. archiver may be nil.
func NewService(repo Repository, deliverer Deliverer, archiver Archiver, guard distlock.Lock, instanceID string) *Service {
	return &Service{
		repo:       repo,
		deliverer:  deliverer,
		archiver:   archiver,
		guard:      guard,
		instanceID: instanceID,
	}
}

// Enqueue validates and persists an outbound request, assigning a request
// id if the payload lacks one. Returns the id. Fails only on invalid
// payloads or store unavailability.
func (s *Service) Enqueue(ctx context.Context, kind domain.RequestKind, payload domain.ApplicationPayload) (string, error) {
	if err := payload.Validate(kind); err != nil {
		return "", err
	}
	if payload.RequestID == "" {
		payload.RequestID = uuid.New().String()
	}
	if payload.Timestamp == 0 {
		payload.Timestamp = time.Now().Unix()
	}

	req := domain.QueuedRequest{
		RequestID: payload.RequestID,
		Kind:      kind,
		Payload:   payload,
	}
	if err := s.repo.Insert(ctx, req); err != nil {
		return "", err
	}

	logger.Info("queue: enqueued", "request_id", req.RequestID, "kind", string(kind))
	return req.RequestID, nil
}

// Drain attempts delivery of the oldest queued items. If a prior drain is
// still running the call returns immediately without touching the store.
//
// Per item: past the retry budget → evict (archive + log full payload);
// delivered → delete; network-level failure → left untouched (presumed
// transient, no retry charged); business-level rejection → retry_count+1.
func (s *Service) Drain(ctx context.Context) {
	acquired, err := s.guard.Acquire(ctx)
	if err != nil {
		logger.Error("queue: acquiring drain lock", "error", err)
		return
	}
	if !acquired {
		logger.Debug("queue: drain already in progress, skipping")
		return
	}
	defer s.guard.Release(ctx)

	items, err := s.repo.Oldest(ctx, drainBatchSize)
	if err != nil {
		logger.Error("queue: fetching items", "error", err)
		return
	}

	for _, item := range items {
		if item.DeadLettered() {
			s.evict(ctx, item)
			continue
		}

		err := s.deliverer.Deliver(ctx, item.Kind, item.Payload, s.instanceID)
		if err == nil {
			if err := s.repo.Delete(ctx, item.RequestID); err != nil {
				logger.Error("queue: deleting delivered item", "request_id", item.RequestID, "error", err)
			}
			continue
		}

		var netErr *authority.NetworkError
		if errors.As(err, &netErr) {
			// Could not reach the authority at all; leave the item alone
			// so a transient outage cannot exhaust the retry budget.
			logger.Warn("queue: delivery unreachable", "request_id", item.RequestID, "error", err)
			continue
		}

		logger.Warn("queue: delivery rejected",
			"request_id", item.RequestID, "retry_count", item.RetryCount, "error", err)
		if err := s.repo.IncrementRetry(ctx, item.RequestID); err != nil {
			logger.Error("queue: incrementing retry", "request_id", item.RequestID, "error", err)
		}
	}
}

// evict dead-letters an item: the only irreversible data-loss path, so the
// full payload goes to the log (and the archive when configured) first.
func (s *Service) evict(ctx context.Context, item domain.QueuedRequest) {
	payload, _ := json.Marshal(item.Payload)
	logger.Error("queue: dead-lettered",
		"request_id", item.RequestID,
		"kind", string(item.Kind),
		"retry_count", item.RetryCount,
		"payload", string(payload))

	if s.archiver != nil {
		if err := s.archiver.Archive(ctx, item); err != nil {
			logger.Error("queue: archiving dead letter", "request_id", item.RequestID, "error", err)
		}
	}

	if err := s.repo.Delete(ctx, item.RequestID); err != nil {
		logger.Error("queue: evicting dead letter", "request_id", item.RequestID, "error", err)
	}
}

// Size returns the number of queued requests, for the admin surface.
func (s *Service) Size(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}
