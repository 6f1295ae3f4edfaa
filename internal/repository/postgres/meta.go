package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignite/group-guardian/internal/domain"
)

// MetaRepo stores sync metadata key/value pairs.
type MetaRepo struct{ db *sql.DB }

// NewMetaRepo creates a Postgres-backed metadata repository.
func NewMetaRepo(db *sql.DB) *MetaRepo { return &MetaRepo{db: db} }

// Get returns the value for a key, empty string when absent.
func (r *MetaRepo) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM guardian_meta WHERE key = $1`, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get meta %s: %w", key, err)
	}
	return value, nil
}

// Set upserts the value for a key.
func (r *MetaRepo) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO guardian_meta (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("set meta %s: %w", key, err)
	}
	return nil
}

// GetRevision returns the current sync revision token ("" = never synced).
func (r *MetaRepo) GetRevision(ctx context.Context) (string, error) {
	return r.Get(ctx, domain.MetaSyncRevision)
}

// SetRevision persists the sync revision token.
func (r *MetaRepo) SetRevision(ctx context.Context, revision string) error {
	return r.Set(ctx, domain.MetaSyncRevision, revision)
}

// EnsureInstanceID returns the stable instance UUID, generating and
// persisting one on first run. Called once at startup; the result is
// threaded through constructors as a value.
func (r *MetaRepo) EnsureInstanceID(ctx context.Context) (string, error) {
	id, err := r.Get(ctx, domain.MetaInstanceUUID)
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}

	id = uuid.New().String()
	// ON CONFLICT DO NOTHING + re-read keeps this safe if two processes
	// race on first boot against a shared store.
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO guardian_meta (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO NOTHING
	`, domain.MetaInstanceUUID, id)
	if err != nil {
		return "", fmt.Errorf("persist instance uuid: %w", err)
	}
	return r.Get(ctx, domain.MetaInstanceUUID)
}
