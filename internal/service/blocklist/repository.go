package blocklist

import (
	"context"

	"github.com/ignite/group-guardian/internal/domain"
)

// BlockRepository defines the data access contract for block entries.
type BlockRepository interface {
	// Get returns the entry for an identity, ErrNotFound when absent.
	Get(ctx context.Context, identityID string) (*domain.BlockEntry, error)

	// UpsertBatch inserts or overwrites entries keyed by identity ID.
	UpsertBatch(ctx context.Context, entries []domain.BlockEntry) error

	// Delete removes the entries for the given identity IDs. Missing IDs
	// are ignored (deletes are idempotent).
	Delete(ctx context.Context, identityIDs []string) error

	// Clear removes every block entry.
	Clear(ctx context.Context) error

	// ActiveEntries returns all non-disabled entries keyed by identity ID.
	ActiveEntries(ctx context.Context) (map[string]domain.BlockEntry, error)

	// List returns entries for the admin surface, newest first.
	List(ctx context.Context, limit, offset int) ([]domain.BlockEntry, int, error)
}

// ExemptRepository defines the data access contract for exempt entries.
type ExemptRepository interface {
	// Get returns the entry for an identity, ErrNotFound when absent.
	Get(ctx context.Context, identityID string) (*domain.ExemptEntry, error)

	// UpsertBatch inserts or overwrites entries keyed by identity ID.
	UpsertBatch(ctx context.Context, entries []domain.ExemptEntry) error

	// Delete removes the entries for the given identity IDs.
	Delete(ctx context.Context, identityIDs []string) error

	// Clear removes every exempt entry.
	Clear(ctx context.Context) error

	// IDs returns the set of exempt identity IDs.
	IDs(ctx context.Context) (map[string]struct{}, error)
}
