package moderation

import (
	"context"

	"github.com/ignite/group-guardian/internal/directory"
	"github.com/ignite/group-guardian/internal/pkg/identref"
	"github.com/ignite/group-guardian/internal/pkg/logger"
)

// HandleJoin runs a full evaluation when a member joins a group, so blocked
// identities are handled the moment they appear rather than waiting for the
// next scan.
func (e *Engine) HandleJoin(ctx context.Context, groupID, identityID string, dir directory.Directory) bool {
	return e.EvaluateAndAct(ctx, groupID, identityID, dir)
}

// HandleJoinRequest rejects pending join requests from actively blocked
// identities before they ever enter the group. Requests from anyone else are
// left untouched for a human to resolve.
func (e *Engine) HandleJoinRequest(ctx context.Context, groupID, requestID, identityID string, dir directory.Directory) {
	identityID = identref.NormalizeLoose(identityID)

	if _, ok := e.protected[identityID]; ok {
		return
	}
	exempt, err := e.blocklist.IsExempt(ctx, identityID)
	if err != nil {
		logger.Error("moderation: exemption lookup failed, leaving join request",
			"group_id", groupID, "identity_id", identityID, "error", err)
		return
	}
	if exempt {
		return
	}
	entry, err := e.blocklist.ActiveBlock(ctx, identityID)
	if err != nil {
		logger.Error("moderation: block lookup failed, leaving join request",
			"group_id", groupID, "identity_id", identityID, "error", err)
		return
	}
	if entry == nil {
		return
	}

	if err := dir.ResolveJoinRequest(ctx, requestID, false, entry.Reason); err != nil {
		logger.Error("moderation: rejecting join request",
			"group_id", groupID, "identity_id", identityID,
			"request_id", requestID, "error", err)
		return
	}
	logger.Info("moderation: join request rejected",
		"group_id", groupID, "identity_id", identityID, "reason", entry.Reason)
}
