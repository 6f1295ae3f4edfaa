// Package syncer keeps the local blocklist cache eventually consistent
// with the remote authority via a revision-based pull protocol.
package syncer

import (
	"context"
	"encoding/json"

	"github.com/ignite/group-guardian/internal/authority"
	"github.com/ignite/group-guardian/internal/domain"
	"github.com/ignite/group-guardian/internal/pkg/logger"
)

// Puller is the slice of the authority client the engine needs.
type Puller interface {
	Sync(ctx context.Context, revision, instanceID string) (*authority.SyncResponse, error)
}

// Store is the slice of the blocklist service the engine writes through.
type Store interface {
	ReplaceAll(ctx context.Context, blocks []domain.BlockEntry, exempts []domain.ExemptEntry) error
	ApplyDelta(ctx context.Context, blockUpserts []domain.BlockEntry, blockDeletes []string, exemptUpserts []domain.ExemptEntry, exemptDeletes []string) error
}

// MetaStore persists the revision marker.
type MetaStore interface {
	GetRevision(ctx context.Context) (string, error)
	SetRevision(ctx context.Context, revision string) error
}

// Engine pulls revision deltas and reconciles local state. The revision
// marker is advanced only after every entry implied by it has been durably
// applied; a crash in between is safe to retry because all writes are
// keyed upserts/deletes.
type Engine struct {
	authority  Puller
	store      Store
	meta       MetaStore
	instanceID string
}

// NewEngine creates a sync engine. instanceID is the startup-resolved
// instance UUID.
func NewEngine(auth Puller, store Store, meta MetaStore, instanceID string) *Engine {
	return &Engine{authority: auth, store: store, meta: meta, instanceID: instanceID}
}

// Sync performs one pull and reports whether new active block entries were
// introduced. It never returns an error: every failure is logged and
// treated as "no update", and no failure advances the revision.
func (e *Engine) Sync(ctx context.Context) bool {
	revision, err := e.meta.GetRevision(ctx)
	if err != nil {
		logger.Error("sync: reading local revision", "error", err)
		return false
	}

	resp, err := e.authority.Sync(ctx, revision, e.instanceID)
	if err != nil {
		logger.Warn("sync: pull failed", "revision", revision, "error", err)
		return false
	}

	var added bool
	switch resp.Strategy {
	case authority.StrategyUpToDate:
		logger.Debug("sync: up to date", "revision", revision)
		return false

	case authority.StrategyFullReplace:
		added, err = e.applyFullReplace(ctx, resp.Data)

	case authority.StrategyIncremental:
		added, err = e.applyIncremental(ctx, resp.Data)

	default:
		logger.Error("sync: unknown strategy", "strategy", resp.Strategy)
		return false
	}
	if err != nil {
		logger.Error("sync: applying "+resp.Strategy, "error", err)
		return false
	}

	if err := e.meta.SetRevision(ctx, resp.NewRevision); err != nil {
		// Entries are applied but the marker is stale; the next pull
		// re-fetches the same diff and replays it idempotently.
		logger.Error("sync: persisting revision", "revision", resp.NewRevision, "error", err)
		return false
	}

	logger.Info("sync: applied", "strategy", resp.Strategy, "revision", resp.NewRevision, "new_blocks", added)
	return added
}

// applyFullReplace handles both payload shapes: a bare block-entry array
// (legacy) or an object carrying blacklist/whitelist arrays.
func (e *Engine) applyFullReplace(ctx context.Context, data json.RawMessage) (bool, error) {
	var full authority.FullReplaceData
	if err := json.Unmarshal(data, &full); err != nil {
		var legacy []domain.BlockEntry
		if legacyErr := json.Unmarshal(data, &legacy); legacyErr != nil {
			return false, err
		}
		full = authority.FullReplaceData{Blacklist: legacy}
	}

	if err := e.store.ReplaceAll(ctx, full.Blacklist, full.Whitelist); err != nil {
		return false, err
	}
	logger.Info("sync: full replace",
		"blocked", len(full.Blacklist), "exempt", len(full.Whitelist))
	return len(full.Blacklist) > 0, nil
}

func (e *Engine) applyIncremental(ctx context.Context, data json.RawMessage) (bool, error) {
	var delta authority.IncrementalData
	if err := json.Unmarshal(data, &delta); err != nil {
		return false, err
	}

	if err := e.store.ApplyDelta(ctx,
		delta.Upserts, delta.Deletes,
		delta.WhitelistUpserts, delta.WhitelistDeletes,
	); err != nil {
		return false, err
	}

	// Exempt-entry changes never count: they cannot create enforcement work.
	return len(delta.Upserts) > 0, nil
}
