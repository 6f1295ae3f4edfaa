// Package groupcfg resolves per-group remediation modes, falling back to
// the configured default when a group has no explicit setting.
package groupcfg

import (
	"context"
	"errors"

	"github.com/ignite/group-guardian/internal/domain"
)

// ErrNotFound is returned by repositories when a group has no setting row.
var ErrNotFound = errors.New("group setting not found")

// Repository defines the data access contract for group settings.
type Repository interface {
	// Get returns the setting for a group, ErrNotFound when absent.
	Get(ctx context.Context, groupID string) (*domain.GroupSetting, error)

	// Set writes the setting for a group (admin action only).
	Set(ctx context.Context, setting domain.GroupSetting) error
}

// Service resolves effective modes.
type Service struct {
	repo        Repository
	defaultMode domain.Mode
}

// NewService creates a group settings service with the given default mode.
func NewService(repo Repository, defaultMode domain.Mode) *Service {
	return &Service{repo: repo, defaultMode: defaultMode}
}

// Mode returns the effective mode for a group. A missing row or an invalid
// stored mode resolves to the configured default.
func (s *Service) Mode(ctx context.Context, groupID string) (domain.Mode, error) {
	setting, err := s.repo.Get(ctx, groupID)
	if errors.Is(err, ErrNotFound) {
		return s.defaultMode, nil
	}
	if err != nil {
		return s.defaultMode, err
	}
	if !setting.Mode.Valid() {
		return s.defaultMode, nil
	}
	return setting.Mode, nil
}

// SetMode writes an explicit per-group mode.
func (s *Service) SetMode(ctx context.Context, groupID string, mode domain.Mode) error {
	if !mode.Valid() {
		return errors.New("invalid mode")
	}
	return s.repo.Set(ctx, domain.GroupSetting{GroupID: groupID, Mode: mode})
}
