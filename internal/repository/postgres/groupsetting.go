package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ignite/group-guardian/internal/domain"
	"github.com/ignite/group-guardian/internal/service/groupcfg"
)

// GroupSettingRepo implements groupcfg.Repository against PostgreSQL.
type GroupSettingRepo struct{ db *sql.DB }

// NewGroupSettingRepo creates a Postgres-backed group settings repository.
func NewGroupSettingRepo(db *sql.DB) *GroupSettingRepo { return &GroupSettingRepo{db: db} }

func (r *GroupSettingRepo) Get(ctx context.Context, groupID string) (*domain.GroupSetting, error) {
	var s domain.GroupSetting
	var mode string
	err := r.db.QueryRowContext(ctx,
		`SELECT group_id, mode FROM guardian_group_settings WHERE group_id = $1`,
		groupID,
	).Scan(&s.GroupID, &mode)
	if err == sql.ErrNoRows {
		return nil, groupcfg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get group setting: %w", err)
	}
	s.Mode = domain.Mode(mode)
	return &s, nil
}

func (r *GroupSettingRepo) Set(ctx context.Context, setting domain.GroupSetting) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO guardian_group_settings (group_id, mode) VALUES ($1, $2)
		ON CONFLICT (group_id) DO UPDATE SET mode = EXCLUDED.mode
	`, setting.GroupID, string(setting.Mode))
	if err != nil {
		return fmt.Errorf("set group setting: %w", err)
	}
	return nil
}
