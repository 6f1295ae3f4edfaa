package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ignite/group-guardian/internal/config"
	"github.com/ignite/group-guardian/internal/directory"
	"github.com/ignite/group-guardian/internal/domain"
	"github.com/ignite/group-guardian/internal/moderation"
)

// fakeSets implements SetLoader with fixed sets.
type fakeSets struct {
	blocked map[string]domain.BlockEntry
	exempt  map[string]struct{}
	err     error
}

func (f *fakeSets) ActiveSets(context.Context) (map[string]domain.BlockEntry, map[string]struct{}, error) {
	return f.blocked, f.exempt, f.err
}

// setBlocklist adapts fakeSets to the engine's per-identity interface.
type setBlocklist struct{ sets *fakeSets }

func (s setBlocklist) ActiveBlock(_ context.Context, id string) (*domain.BlockEntry, error) {
	if e, ok := s.sets.blocked[id]; ok {
		return &e, nil
	}
	return nil, nil
}

func (s setBlocklist) IsExempt(_ context.Context, id string) (bool, error) {
	_, ok := s.sets.exempt[id]
	return ok, nil
}

type fixedMode struct{ mode domain.Mode }

func (f fixedMode) Mode(context.Context, string) (domain.Mode, error) { return f.mode, nil }

// scanDirectory serves a fixed roster and tracks concurrent removals.
type scanDirectory struct {
	mu        sync.Mutex
	members   []directory.Member
	listErr   error
	removed   []string
	inFlight  int
	maxSeen   int
	holdEach  time.Duration
}

func (d *scanDirectory) GetMember(_ context.Context, _, id string) (*directory.Member, error) {
	for _, m := range d.members {
		if m.ID == id {
			cp := m
			return &cp, nil
		}
	}
	return nil, directory.ErrMemberNotFound
}

func (d *scanDirectory) ListMembers(context.Context, string) ([]directory.Member, error) {
	if d.listErr != nil {
		return nil, d.listErr
	}
	return d.members, nil
}

func (d *scanDirectory) RemoveMember(_ context.Context, _, id string) error {
	d.mu.Lock()
	d.inFlight++
	if d.inFlight > d.maxSeen {
		d.maxSeen = d.inFlight
	}
	d.mu.Unlock()

	if d.holdEach > 0 {
		time.Sleep(d.holdEach)
	}

	d.mu.Lock()
	d.inFlight--
	d.removed = append(d.removed, id)
	d.mu.Unlock()
	return nil
}

func (d *scanDirectory) ResolveJoinRequest(context.Context, string, bool, string) error {
	return nil
}

func (d *scanDirectory) SendGroupMessage(context.Context, string, string) error { return nil }

func modCfg() config.ModerationConfig {
	return config.ModerationConfig{
		DefaultMode:       "kick",
		AdminRoles:        []string{"admin"},
		KickRetryAttempts: 1,
		NotifyTemplate:    "{{ user_id }}",
		KickFailTemplate:  "{{ user_id }}",
	}
}

func newScanner(t *testing.T, sets *fakeSets, scanCfg config.ScannerConfig) *Scanner {
	t.Helper()
	engine, err := moderation.NewEngine(setBlocklist{sets}, fixedMode{domain.ModeKick}, modCfg())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return New(sets, engine, nil, modCfg(), scanCfg)
}

func TestScanGroup_TargetsBlockedNotExempt(t *testing.T) {
	sets := &fakeSets{
		blocked: map[string]domain.BlockEntry{
			"u1": {IdentityID: "u1", Reason: "spam"},
			"u2": {IdentityID: "u2", Reason: "spam"},
			"u3": {IdentityID: "u3", Reason: "spam"},
		},
		exempt: map[string]struct{}{"u2": {}},
	}
	dir := &scanDirectory{members: []directory.Member{
		{ID: "u1"}, {ID: "u2"}, {ID: "u3"}, {ID: "u4"},
	}}
	s := newScanner(t, sets, config.ScannerConfig{BatchSize: 5})

	res := s.ScanGroup(context.Background(), "g1", dir)

	if res.Err != nil {
		t.Fatalf("scan error: %v", res.Err)
	}
	if res.Total != 2 {
		t.Errorf("Total = %d, want 2 (u1 and u3)", res.Total)
	}
	if res.Handled != 2 {
		t.Errorf("Handled = %d, want 2", res.Handled)
	}
	if len(dir.removed) != 2 {
		t.Errorf("removed = %v", dir.removed)
	}
}

func TestScanGroup_BatchesBoundConcurrency(t *testing.T) {
	blocked := map[string]domain.BlockEntry{}
	var members []directory.Member
	for i := 0; i < 12; i++ {
		id := fmt.Sprintf("u%d", i)
		blocked[id] = domain.BlockEntry{IdentityID: id, Reason: "spam"}
		members = append(members, directory.Member{ID: id})
	}
	sets := &fakeSets{blocked: blocked, exempt: map[string]struct{}{}}
	dir := &scanDirectory{members: members, holdEach: 10 * time.Millisecond}
	s := newScanner(t, sets, config.ScannerConfig{BatchSize: 5})

	res := s.ScanGroup(context.Background(), "g1", dir)

	if res.Total != 12 || res.Handled != 12 {
		t.Fatalf("Total=%d Handled=%d, want 12/12", res.Total, res.Handled)
	}
	if dir.maxSeen > 5 {
		t.Errorf("max concurrent removals = %d, want <= 5", dir.maxSeen)
	}
}

func TestScanGroup_SkipsBots(t *testing.T) {
	sets := &fakeSets{
		blocked: map[string]domain.BlockEntry{
			"u1":  {IdentityID: "u1", Reason: "spam"},
			"bot": {IdentityID: "bot", Reason: "spam"},
		},
		exempt: map[string]struct{}{},
	}
	dir := &scanDirectory{members: []directory.Member{
		{ID: "u1"}, {ID: "bot", IsBot: true},
	}}
	s := newScanner(t, sets, config.ScannerConfig{BatchSize: 5, SkipBots: true})

	res := s.ScanGroup(context.Background(), "g1", dir)

	if res.Total != 1 {
		t.Errorf("Total = %d, want 1 (bot skipped)", res.Total)
	}
}

func TestScanGroup_RosterFailure(t *testing.T) {
	sets := &fakeSets{blocked: map[string]domain.BlockEntry{}, exempt: map[string]struct{}{}}
	dir := &scanDirectory{listErr: errors.New("gateway down")}
	s := newScanner(t, sets, config.ScannerConfig{BatchSize: 5})

	res := s.ScanGroup(context.Background(), "g1", dir)
	if res.Err == nil {
		t.Fatal("expected roster error surfaced in Result")
	}
	if res.Total != 0 || res.Handled != 0 {
		t.Errorf("Total=%d Handled=%d, want zeros", res.Total, res.Handled)
	}
}

// fakeInstance and fakeRegistry exercise the full sweep.
type fakeInstance struct {
	id      string
	groups  []string
	listErr error
	dir     directory.Directory
}

func (f *fakeInstance) ID() string { return f.id }

func (f *fakeInstance) ListGroups(context.Context) ([]string, error) {
	return f.groups, f.listErr
}

func (f *fakeInstance) Directory() directory.Directory { return f.dir }

type fakeRegistry struct{ instances []directory.Instance }

func (f *fakeRegistry) Instances() []directory.Instance { return f.instances }

func TestScanAllGroups_IsolatesInstanceFailures(t *testing.T) {
	sets := &fakeSets{
		blocked: map[string]domain.BlockEntry{"u1": {IdentityID: "u1", Reason: "spam"}},
		exempt:  map[string]struct{}{},
	}
	good := &scanDirectory{members: []directory.Member{{ID: "u1"}, {ID: "u2"}}}
	reg := &fakeRegistry{instances: []directory.Instance{
		&fakeInstance{id: "broken", listErr: errors.New("disconnected")},
		&fakeInstance{id: "ok", groups: []string{"g1", "g2"}, dir: good},
	}}

	engine, err := moderation.NewEngine(setBlocklist{sets}, fixedMode{domain.ModeKick}, modCfg())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	s := New(sets, engine, reg, modCfg(), config.ScannerConfig{BatchSize: 5})

	groups, handled := s.ScanAllGroups(context.Background())
	if groups != 2 {
		t.Errorf("groups = %d, want 2 from the healthy instance", groups)
	}
	if handled < 1 {
		t.Errorf("handled = %d, want at least the first removal", handled)
	}
}
