// Package directory defines the Group Directory capability: the abstract
// surface through which the guardian reaches group-membership platforms.
//
// Concrete transports (Discord gateway, OneBot, etc.) live outside this
// module and implement these interfaces. The core never imports a platform
// SDK directly.
package directory

import (
	"context"
	"errors"
)

// ErrMemberNotFound is returned by GetMember when the identity is not a
// member of the group.
var ErrMemberNotFound = errors.New("member not found")

// Member is a group member as seen by the platform.
type Member struct {
	ID          string
	DisplayName string
	Roles       []string
	IsBot       bool
}

// Directory exposes membership operations for one connected platform
// instance.
type Directory interface {
	// GetMember looks up a single member; ErrMemberNotFound when absent.
	GetMember(ctx context.Context, groupID, identityID string) (*Member, error)

	// ListMembers returns every member of the group.
	ListMembers(ctx context.Context, groupID string) ([]Member, error)

	// RemoveMember removes the identity from the group.
	RemoveMember(ctx context.Context, groupID, identityID string) error

	// ResolveJoinRequest approves or rejects a pending join request.
	ResolveJoinRequest(ctx context.Context, requestID string, approve bool, reason string) error

	// SendGroupMessage delivers a message to the group.
	SendGroupMessage(ctx context.Context, groupID, message string) error
}

// Instance is one connected bot/account with the groups it can see.
type Instance interface {
	ID() string
	ListGroups(ctx context.Context) ([]string, error)
	Directory() Directory
}

// Registry enumerates every connected instance. The hosting runtime keeps
// it current as connections come and go.
type Registry interface {
	Instances() []Instance
}

// StaticRegistry is a fixed Registry for deployments where the set of
// connected instances is known at startup, and for tests.
type StaticRegistry []Instance

// Instances returns the fixed instance set.
func (s StaticRegistry) Instances() []Instance { return s }
