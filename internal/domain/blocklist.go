package domain

import "time"

// BlockEntry is a locally cached record marking an identity as denylisted.
// Entries are created and overwritten only by the sync engine's batch
// upserts; the moderation engine never writes them. Disabled entries are
// inert but retained for audit.
type BlockEntry struct {
	IdentityID string    `json:"user_id" db:"identity_id"`
	Reason     string    `json:"reason" db:"reason"`
	OperatorID string    `json:"operator_id,omitempty" db:"operator_id"`
	SourceID   string    `json:"source_id,omitempty" db:"source_id"`
	Disabled   bool      `json:"disabled" db:"disabled"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// Active reports whether the entry should be enforced.
func (e BlockEntry) Active() bool { return !e.Disabled }

// ExemptEntry is a remote-sourced allowlist record. An exempt identity is
// never enforced against, even when an active BlockEntry exists for it.
// Lifecycle mirrors BlockEntry: written only by sync.
type ExemptEntry struct {
	IdentityID string    `json:"user_id" db:"identity_id"`
	Reason     string    `json:"reason,omitempty" db:"reason"`
	OperatorID string    `json:"operator_id,omitempty" db:"operator_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
