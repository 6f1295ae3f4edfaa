package blocklist

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/group-guardian/internal/domain"
)

// upsertBatchSize bounds memory and transaction size when applying bulk
// sets delivered by the authority.
const upsertBatchSize = 100

// cacheTTL bounds staleness of the Redis membership cache between syncs.
const cacheTTL = 60 * time.Second

const (
	cacheKeyBlocked = "guardian:cache:blocked"
	cacheKeyExempt  = "guardian:cache:exempt"
)

// Service implements blocklist business logic over the repositories, with
// an optional Redis membership cache. Works with or without Redis.
type Service struct {
	blocks  BlockRepository
	exempts ExemptRepository
	redis   *redis.Client // optional
}

// NewService creates a blocklist service. redisClient may be nil.
func NewService(blocks BlockRepository, exempts ExemptRepository, redisClient *redis.Client) *Service {
	return &Service{blocks: blocks, exempts: exempts, redis: redisClient}
}

// ActiveBlock returns the active (non-disabled) block entry for an
// identity, or nil when the identity is not actively blocked.
func (s *Service) ActiveBlock(ctx context.Context, identityID string) (*domain.BlockEntry, error) {
	if hit, member := s.cachedMember(ctx, cacheKeyBlocked, identityID); hit && !member {
		return nil, nil
	}

	entry, err := s.blocks.Get(ctx, identityID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if entry.Disabled {
		return nil, nil
	}
	return entry, nil
}

// IsExempt reports whether an identity holds an exempt entry.
func (s *Service) IsExempt(ctx context.Context, identityID string) (bool, error) {
	if hit, member := s.cachedMember(ctx, cacheKeyExempt, identityID); hit {
		return member, nil
	}

	_, err := s.exempts.Get(ctx, identityID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ActiveSets loads the full active block set and exempt set in one pass,
// for the scanner's O(members) membership checks.
func (s *Service) ActiveSets(ctx context.Context) (map[string]domain.BlockEntry, map[string]struct{}, error) {
	blocked, err := s.blocks.ActiveEntries(ctx)
	if err != nil {
		return nil, nil, err
	}
	exempt, err := s.exempts.IDs(ctx)
	if err != nil {
		return nil, nil, err
	}
	return blocked, exempt, nil
}

// ReplaceAll clears both collections and bulk-upserts the delivered full
// sets in fixed-size batches. Sync engine only.
func (s *Service) ReplaceAll(ctx context.Context, blocks []domain.BlockEntry, exempts []domain.ExemptEntry) error {
	if err := s.blocks.Clear(ctx); err != nil {
		return err
	}
	if err := s.exempts.Clear(ctx); err != nil {
		return err
	}

	for start := 0; start < len(blocks); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(blocks) {
			end = len(blocks)
		}
		if err := s.blocks.UpsertBatch(ctx, blocks[start:end]); err != nil {
			return err
		}
	}
	for start := 0; start < len(exempts); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(exempts) {
			end = len(exempts)
		}
		if err := s.exempts.UpsertBatch(ctx, exempts[start:end]); err != nil {
			return err
		}
	}

	s.invalidateCache(ctx)
	return nil
}

// ApplyDelta applies an incremental diff. Each slice is optional and
// applied independently; writes are keyed upserts/deletes so replaying the
// same delta is idempotent. Sync engine only.
func (s *Service) ApplyDelta(ctx context.Context, blockUpserts []domain.BlockEntry, blockDeletes []string, exemptUpserts []domain.ExemptEntry, exemptDeletes []string) error {
	if len(blockUpserts) > 0 {
		if err := s.blocks.UpsertBatch(ctx, blockUpserts); err != nil {
			return err
		}
	}
	if len(blockDeletes) > 0 {
		if err := s.blocks.Delete(ctx, blockDeletes); err != nil {
			return err
		}
	}
	if len(exemptUpserts) > 0 {
		if err := s.exempts.UpsertBatch(ctx, exemptUpserts); err != nil {
			return err
		}
	}
	if len(exemptDeletes) > 0 {
		if err := s.exempts.Delete(ctx, exemptDeletes); err != nil {
			return err
		}
	}

	s.invalidateCache(ctx)
	return nil
}

// List returns block entries for the admin surface.
func (s *Service) List(ctx context.Context, limit, offset int) ([]domain.BlockEntry, int, error) {
	return s.blocks.List(ctx, limit, offset)
}

// Stats summarizes the cached lists.
type Stats struct {
	ActiveBlocked int `json:"active_blocked"`
	Exempt        int `json:"exempt"`
}

// GetStats computes blocklist statistics for the admin surface.
func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	blocked, exempt, err := s.ActiveSets(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{ActiveBlocked: len(blocked), Exempt: len(exempt)}, nil
}

// cachedMember consults the Redis membership cache. hit is false when Redis
// is absent, the key is cold, or Redis fails; callers then fall through to
// the repository.
func (s *Service) cachedMember(ctx context.Context, key, identityID string) (hit, member bool) {
	if s.redis == nil {
		return false, false
	}
	exists, err := s.redis.Exists(ctx, key).Result()
	if err != nil || exists == 0 {
		go s.warmCache(key)
		return false, false
	}
	ok, err := s.redis.SIsMember(ctx, key, identityID).Result()
	if err != nil {
		return false, false
	}
	return true, ok
}

// warmCache rebuilds one membership set from the repository. Best-effort;
// the cache is a read accelerator, never the source of truth.
func (s *Service) warmCache(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var ids []interface{}
	switch key {
	case cacheKeyBlocked:
		entries, err := s.blocks.ActiveEntries(ctx)
		if err != nil {
			return
		}
		for id := range entries {
			ids = append(ids, id)
		}
	case cacheKeyExempt:
		set, err := s.exempts.IDs(ctx)
		if err != nil {
			return
		}
		for id := range set {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		// An empty set would be indistinguishable from a cold key; leave
		// cold and let lookups hit the repository.
		return
	}

	pipe := s.redis.TxPipeline()
	pipe.Del(ctx, key)
	pipe.SAdd(ctx, key, ids...)
	pipe.Expire(ctx, key, cacheTTL)
	pipe.Exec(ctx)
}

func (s *Service) invalidateCache(ctx context.Context) {
	if s.redis == nil {
		return
	}
	s.redis.Del(ctx, cacheKeyBlocked, cacheKeyExempt)
}
