package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/ignite/group-guardian/internal/domain"
	"github.com/ignite/group-guardian/internal/service/blocklist"
)

// BlockRepo implements blocklist.BlockRepository against PostgreSQL.
type BlockRepo struct{ db *sql.DB }

// NewBlockRepo creates a Postgres-backed block entry repository.
func NewBlockRepo(db *sql.DB) *BlockRepo { return &BlockRepo{db: db} }

func (r *BlockRepo) Get(ctx context.Context, identityID string) (*domain.BlockEntry, error) {
	var e domain.BlockEntry
	err := r.db.QueryRowContext(ctx, `
		SELECT identity_id, reason, operator_id, source_id, disabled, updated_at
		FROM guardian_block_entries WHERE identity_id = $1
	`, identityID).Scan(&e.IdentityID, &e.Reason, &e.OperatorID, &e.SourceID, &e.Disabled, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, blocklist.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get block entry: %w", err)
	}
	return &e, nil
}

func (r *BlockRepo) UpsertBatch(ctx context.Context, entries []domain.BlockEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("upsert block entries: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO guardian_block_entries (identity_id, reason, operator_id, source_id, disabled, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (identity_id) DO UPDATE SET
			reason = EXCLUDED.reason,
			operator_id = EXCLUDED.operator_id,
			source_id = EXCLUDED.source_id,
			disabled = EXCLUDED.disabled,
			updated_at = NOW()
	`)
	if err != nil {
		return fmt.Errorf("upsert block entries: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.IdentityID, e.Reason, e.OperatorID, e.SourceID, e.Disabled); err != nil {
			return fmt.Errorf("upsert block entry %s: %w", e.IdentityID, err)
		}
	}
	return tx.Commit()
}

func (r *BlockRepo) Delete(ctx context.Context, identityIDs []string) error {
	if len(identityIDs) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM guardian_block_entries WHERE identity_id = ANY($1)`,
		pq.Array(identityIDs),
	)
	if err != nil {
		return fmt.Errorf("delete block entries: %w", err)
	}
	return nil
}

func (r *BlockRepo) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM guardian_block_entries`); err != nil {
		return fmt.Errorf("clear block entries: %w", err)
	}
	return nil
}

func (r *BlockRepo) ActiveEntries(ctx context.Context) (map[string]domain.BlockEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT identity_id, reason, operator_id, source_id, disabled, updated_at
		FROM guardian_block_entries WHERE disabled = false
	`)
	if err != nil {
		return nil, fmt.Errorf("active block entries: %w", err)
	}
	defer rows.Close()

	out := make(map[string]domain.BlockEntry)
	for rows.Next() {
		var e domain.BlockEntry
		if err := rows.Scan(&e.IdentityID, &e.Reason, &e.OperatorID, &e.SourceID, &e.Disabled, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan block entry: %w", err)
		}
		out[e.IdentityID] = e
	}
	return out, rows.Err()
}

func (r *BlockRepo) List(ctx context.Context, limit, offset int) ([]domain.BlockEntry, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM guardian_block_entries`,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count block entries: %w", err)
	}

	if limit <= 0 {
		limit = total
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT identity_id, reason, operator_id, source_id, disabled, updated_at
		FROM guardian_block_entries
		ORDER BY updated_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list block entries: %w", err)
	}
	defer rows.Close()

	var out []domain.BlockEntry
	for rows.Next() {
		var e domain.BlockEntry
		if err := rows.Scan(&e.IdentityID, &e.Reason, &e.OperatorID, &e.SourceID, &e.Disabled, &e.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan block entry: %w", err)
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}
