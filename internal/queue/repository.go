package queue

import (
	"context"

	"github.com/ignite/group-guardian/internal/domain"
)

// Repository defines the data access contract for the offline queue.
type Repository interface {
	// Insert persists a new queued request with retry_count 0.
	Insert(ctx context.Context, req domain.QueuedRequest) error

	// Oldest returns up to limit items in FIFO order by creation time.
	Oldest(ctx context.Context, limit int) ([]domain.QueuedRequest, error)

	// Delete removes a queued request by id.
	Delete(ctx context.Context, requestID string) error

	// IncrementRetry adds one to a request's retry count.
	IncrementRetry(ctx context.Context, requestID string) error

	// Count returns the number of queued requests.
	Count(ctx context.Context) (int, error)
}
