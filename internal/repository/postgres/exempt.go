package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/ignite/group-guardian/internal/domain"
	"github.com/ignite/group-guardian/internal/service/blocklist"
)

// ExemptRepo implements blocklist.ExemptRepository against PostgreSQL.
type ExemptRepo struct{ db *sql.DB }

// NewExemptRepo creates a Postgres-backed exempt entry repository.
func NewExemptRepo(db *sql.DB) *ExemptRepo { return &ExemptRepo{db: db} }

func (r *ExemptRepo) Get(ctx context.Context, identityID string) (*domain.ExemptEntry, error) {
	var e domain.ExemptEntry
	err := r.db.QueryRowContext(ctx, `
		SELECT identity_id, reason, operator_id, created_at
		FROM guardian_exempt_entries WHERE identity_id = $1
	`, identityID).Scan(&e.IdentityID, &e.Reason, &e.OperatorID, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, blocklist.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get exempt entry: %w", err)
	}
	return &e, nil
}

func (r *ExemptRepo) UpsertBatch(ctx context.Context, entries []domain.ExemptEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("upsert exempt entries: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO guardian_exempt_entries (identity_id, reason, operator_id, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (identity_id) DO UPDATE SET
			reason = EXCLUDED.reason,
			operator_id = EXCLUDED.operator_id
	`)
	if err != nil {
		return fmt.Errorf("upsert exempt entries: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.IdentityID, e.Reason, e.OperatorID); err != nil {
			return fmt.Errorf("upsert exempt entry %s: %w", e.IdentityID, err)
		}
	}
	return tx.Commit()
}

func (r *ExemptRepo) Delete(ctx context.Context, identityIDs []string) error {
	if len(identityIDs) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM guardian_exempt_entries WHERE identity_id = ANY($1)`,
		pq.Array(identityIDs),
	)
	if err != nil {
		return fmt.Errorf("delete exempt entries: %w", err)
	}
	return nil
}

func (r *ExemptRepo) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM guardian_exempt_entries`); err != nil {
		return fmt.Errorf("clear exempt entries: %w", err)
	}
	return nil
}

func (r *ExemptRepo) IDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT identity_id FROM guardian_exempt_entries`)
	if err != nil {
		return nil, fmt.Errorf("exempt ids: %w", err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan exempt id: %w", err)
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}
