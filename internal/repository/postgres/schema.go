// Package postgres implements the service repository interfaces against
// PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// EnsureSchema creates the guardian tables if they do not exist. Idempotent;
// called once at startup.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS guardian_block_entries (
			identity_id VARCHAR(64) PRIMARY KEY,
			reason TEXT NOT NULL DEFAULT '',
			operator_id VARCHAR(64) NOT NULL DEFAULT '',
			source_id VARCHAR(64) NOT NULL DEFAULT '',
			disabled BOOLEAN NOT NULL DEFAULT false,
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS guardian_exempt_entries (
			identity_id VARCHAR(64) PRIMARY KEY,
			reason TEXT NOT NULL DEFAULT '',
			operator_id VARCHAR(64) NOT NULL DEFAULT '',
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS guardian_request_queue (
			request_id VARCHAR(64) PRIMARY KEY,
			kind VARCHAR(16) NOT NULL,
			payload JSONB NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			retry_count INT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS guardian_meta (
			key VARCHAR(64) PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS guardian_group_settings (
			group_id VARCHAR(64) PRIMARY KEY,
			mode VARCHAR(16) NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
