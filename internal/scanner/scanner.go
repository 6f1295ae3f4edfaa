// Package scanner sweeps group rosters against the local block and exempt
// sets, handing targets to the moderation engine in bounded batches.
package scanner

import (
	"context"
	"sync"

	"github.com/ignite/group-guardian/internal/config"
	"github.com/ignite/group-guardian/internal/directory"
	"github.com/ignite/group-guardian/internal/domain"
	"github.com/ignite/group-guardian/internal/moderation"
	"github.com/ignite/group-guardian/internal/pkg/identref"
	"github.com/ignite/group-guardian/internal/pkg/logger"
)

// SetLoader provides the full active block set and exempt set in one pass,
// so a scan performs O(members) membership checks instead of per-member
// queries.
type SetLoader interface {
	ActiveSets(ctx context.Context) (map[string]domain.BlockEntry, map[string]struct{}, error)
}

// Result summarizes one group scan. Err is set when the scan could not run
// at all (roster or set load failed); per-member enforcement failures are
// reflected only in Handled vs Total.
type Result struct {
	GroupID string
	Total   int // members targeted
	Handled int // removals that succeeded
	Err     error
}

// Scanner runs roster sweeps.
type Scanner struct {
	sets      SetLoader
	engine    *moderation.Engine
	registry  directory.Registry
	protected map[string]struct{}
	batchSize int
	skipBots  bool
}

// New creates a scanner. registry may be nil when only ScanGroup is used.
func New(sets SetLoader, engine *moderation.Engine, registry directory.Registry, modCfg config.ModerationConfig, scanCfg config.ScannerConfig) *Scanner {
	protected := make(map[string]struct{}, len(modCfg.ProtectedIDs))
	for _, id := range modCfg.ProtectedIDs {
		protected[identref.NormalizeLoose(id)] = struct{}{}
	}
	batch := scanCfg.BatchSize
	if batch < 1 {
		batch = 1
	}
	return &Scanner{
		sets:      sets,
		engine:    engine,
		registry:  registry,
		protected: protected,
		batchSize: batch,
		skipBots:  scanCfg.SkipBots,
	}
}

// ScanGroup sweeps one group. Targets are members that are actively blocked,
// not exempt, not protected, and (when configured) not bots. Targets are
// processed in fixed-size concurrent batches; each batch completes before
// the next starts.
func (s *Scanner) ScanGroup(ctx context.Context, groupID string, dir directory.Directory) Result {
	res := Result{GroupID: groupID}

	members, err := dir.ListMembers(ctx, groupID)
	if err != nil {
		res.Err = err
		return res
	}
	blocked, exempt, err := s.sets.ActiveSets(ctx)
	if err != nil {
		res.Err = err
		return res
	}

	var targets []directory.Member
	for _, m := range members {
		id := identref.NormalizeLoose(m.ID)
		if s.skipBots && m.IsBot {
			continue
		}
		if _, ok := blocked[id]; !ok {
			continue
		}
		if _, ok := exempt[id]; ok {
			continue
		}
		if _, ok := s.protected[id]; ok {
			continue
		}
		targets = append(targets, m)
	}
	res.Total = len(targets)
	if res.Total == 0 {
		return res
	}

	logger.Info("scanner: targets found", "group_id", groupID, "targets", res.Total)

	var handled int64
	var mu sync.Mutex
	for start := 0; start < len(targets); start += s.batchSize {
		end := start + s.batchSize
		if end > len(targets) {
			end = len(targets)
		}

		var wg sync.WaitGroup
		for _, target := range targets[start:end] {
			wg.Add(1)
			go func(m directory.Member) {
				defer wg.Done()
				if s.engine.EvaluateAndAct(ctx, groupID, m.ID, dir) {
					mu.Lock()
					handled++
					mu.Unlock()
				}
			}(target)
		}
		wg.Wait()
	}

	res.Handled = int(handled)
	logger.Info("scanner: group scan complete",
		"group_id", groupID, "targets", res.Total, "handled", res.Handled)
	return res
}

// ScanAllGroups sweeps every group of every connected instance. A failing
// instance or group is logged and skipped; the sweep always finishes.
// Returns group-scan and handled totals.
func (s *Scanner) ScanAllGroups(ctx context.Context) (groups, handled int) {
	if s.registry == nil {
		return 0, 0
	}
	for _, inst := range s.registry.Instances() {
		ids, err := inst.ListGroups(ctx)
		if err != nil {
			logger.Error("scanner: listing groups", "instance_id", inst.ID(), "error", err)
			continue
		}
		dir := inst.Directory()
		for _, groupID := range ids {
			res := s.ScanGroup(ctx, groupID, dir)
			if res.Err != nil {
				logger.Error("scanner: group scan failed",
					"instance_id", inst.ID(), "group_id", groupID, "error", res.Err)
				continue
			}
			groups++
			handled += res.Handled
		}
	}
	logger.Info("scanner: full sweep complete", "groups", groups, "handled", handled)
	return groups, handled
}
