// Package moderation implements the decision engine: given an identity
// observed in a group, decide whether to act and carry the remediation out
// through the group directory.
package moderation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/osteele/liquid"

	"github.com/ignite/group-guardian/internal/config"
	"github.com/ignite/group-guardian/internal/directory"
	"github.com/ignite/group-guardian/internal/domain"
	"github.com/ignite/group-guardian/internal/pkg/identref"
	"github.com/ignite/group-guardian/internal/pkg/logger"
)

// Blocklist is the subset of the blocklist service the engine needs.
type Blocklist interface {
	ActiveBlock(ctx context.Context, identityID string) (*domain.BlockEntry, error)
	IsExempt(ctx context.Context, identityID string) (bool, error)
}

// ModeResolver resolves the effective remediation mode for a group.
type ModeResolver interface {
	Mode(ctx context.Context, groupID string) (domain.Mode, error)
}

// Engine evaluates identities and enforces the configured remediation.
// Safe for concurrent use; the scanner calls it from multiple goroutines.
type Engine struct {
	blocklist Blocklist
	modes     ModeResolver
	cfg       config.ModerationConfig

	protected  map[string]struct{}
	adminRoles map[string]struct{} // lowercased

	notifyTpl   *liquid.Template
	kickFailTpl *liquid.Template

	sleep func(time.Duration)
}

// NewEngine creates a decision engine. Returns an error when either
// notification template fails to parse, since a broken template would
// otherwise surface only at enforcement time.
func NewEngine(bl Blocklist, modes ModeResolver, cfg config.ModerationConfig) (*Engine, error) {
	liq := liquid.NewEngine()
	notifyTpl, err := liq.ParseString(cfg.NotifyTemplate)
	if err != nil {
		return nil, err
	}
	kickFailTpl, err := liq.ParseString(cfg.KickFailTemplate)
	if err != nil {
		return nil, err
	}

	protected := make(map[string]struct{}, len(cfg.ProtectedIDs))
	for _, id := range cfg.ProtectedIDs {
		protected[identref.NormalizeLoose(id)] = struct{}{}
	}
	adminRoles := make(map[string]struct{}, len(cfg.AdminRoles))
	for _, role := range cfg.AdminRoles {
		adminRoles[strings.ToLower(role)] = struct{}{}
	}

	return &Engine{
		blocklist:   bl,
		modes:       modes,
		cfg:         cfg,
		protected:   protected,
		adminRoles:  adminRoles,
		notifyTpl:   notifyTpl,
		kickFailTpl: kickFailTpl,
		sleep:       time.Sleep,
	}, nil
}

// EvaluateAndAct decides whether identityID should be acted on in groupID
// and, if so, enforces the group's mode through dir. Returns true only when
// a removal actually succeeded; notify-only enforcement returns false.
//
// The checks short-circuit in a fixed order: group context, mode, protected
// set, exemption, active block, admin role. Store failures on the exemption
// or block lookup abort the evaluation without acting.
func (e *Engine) EvaluateAndAct(ctx context.Context, groupID, identityID string, dir directory.Directory) bool {
	if groupID == "" {
		return false
	}
	identityID = identref.NormalizeLoose(identityID)

	mode, err := e.modes.Mode(ctx, groupID)
	if err != nil {
		logger.Warn("moderation: resolving group mode, using default",
			"group_id", groupID, "error", err)
	}
	if mode == domain.ModeOff {
		return false
	}

	if _, ok := e.protected[identityID]; ok {
		return false
	}

	exempt, err := e.blocklist.IsExempt(ctx, identityID)
	if err != nil {
		logger.Error("moderation: exemption lookup failed, skipping",
			"group_id", groupID, "identity_id", identityID, "error", err)
		return false
	}
	if exempt {
		return false
	}

	entry, err := e.blocklist.ActiveBlock(ctx, identityID)
	if err != nil {
		logger.Error("moderation: block lookup failed, skipping",
			"group_id", groupID, "identity_id", identityID, "error", err)
		return false
	}
	if entry == nil {
		return false
	}

	member, err := dir.GetMember(ctx, groupID, identityID)
	if err != nil && !errors.Is(err, directory.ErrMemberNotFound) {
		// Lookup failure means we cannot confirm an admin role; treat
		// the member as a regular member and proceed.
		logger.Warn("moderation: member lookup failed",
			"group_id", groupID, "identity_id", identityID, "error", err)
	}
	if member != nil && e.isAdmin(member) {
		logger.Info("moderation: skipping group admin",
			"group_id", groupID, "identity_id", identityID)
		return false
	}

	displayName := identityID
	if member != nil && member.DisplayName != "" {
		displayName = member.DisplayName
	}

	logger.Info("moderation: enforcing",
		"group_id", groupID, "identity_id", identityID,
		"mode", string(mode), "reason", entry.Reason)

	if mode.Notifies() {
		e.notify(ctx, dir, groupID, displayName, identityID, entry.Reason)
	}
	if mode.Kicks() {
		return e.kick(ctx, dir, groupID, displayName, identityID)
	}
	return false
}

func (e *Engine) isAdmin(member *directory.Member) bool {
	for _, role := range member.Roles {
		if _, ok := e.adminRoles[strings.ToLower(role)]; ok {
			return true
		}
	}
	return false
}

func (e *Engine) notify(ctx context.Context, dir directory.Directory, groupID, displayName, identityID, reason string) {
	msg, err := e.notifyTpl.RenderString(liquid.Bindings{
		"display_name": displayName,
		"user_id":      identityID,
		"reason":       reason,
		"group_id":     groupID,
	})
	if err != nil {
		logger.Error("moderation: rendering notify template",
			"group_id", groupID, "error", err)
		return
	}
	if err := dir.SendGroupMessage(ctx, groupID, msg); err != nil {
		logger.Error("moderation: sending notice",
			"group_id", groupID, "identity_id", identityID, "error", err)
	}
}

// kick removes the member, retrying up to the configured attempt count.
// Reports success to the group via the failure template when every attempt
// fails.
func (e *Engine) kick(ctx context.Context, dir directory.Directory, groupID, displayName, identityID string) bool {
	attempts := e.cfg.KickRetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = dir.RemoveMember(ctx, groupID, identityID)
		if lastErr == nil {
			if e.cfg.VerifyKick {
				e.verifyKick(ctx, dir, groupID, identityID)
			}
			return true
		}
		logger.Warn("moderation: removal attempt failed",
			"group_id", groupID, "identity_id", identityID,
			"attempt", attempt, "error", lastErr)
		if attempt < attempts {
			e.sleep(e.cfg.KickRetryDelay())
		}
	}

	logger.Error("moderation: removal failed after all attempts",
		"group_id", groupID, "identity_id", identityID, "error", lastErr)

	msg, err := e.kickFailTpl.RenderString(liquid.Bindings{
		"display_name": displayName,
		"user_id":      identityID,
		"group_id":     groupID,
	})
	if err != nil {
		logger.Error("moderation: rendering kick-failure template",
			"group_id", groupID, "error", err)
		return false
	}
	if err := dir.SendGroupMessage(ctx, groupID, msg); err != nil {
		logger.Error("moderation: sending kick-failure notice",
			"group_id", groupID, "error", err)
	}
	return false
}

// verifyKick re-checks membership after a settle delay. Warn only: the
// removal already reported success and is not retried here.
func (e *Engine) verifyKick(ctx context.Context, dir directory.Directory, groupID, identityID string) {
	e.sleep(e.cfg.VerifyDelay())
	_, err := dir.GetMember(ctx, groupID, identityID)
	if err == nil {
		logger.Warn("moderation: member still present after removal",
			"group_id", groupID, "identity_id", identityID)
		return
	}
	if !errors.Is(err, directory.ErrMemberNotFound) {
		logger.Warn("moderation: could not verify removal",
			"group_id", groupID, "identity_id", identityID, "error", err)
	}
}
