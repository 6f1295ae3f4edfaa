// Package blocklist implements the locally cached denylist/allowlist
// service.
//
// This is the single source of truth for whether an identity is blocked or
// exempt. Entries flow in exclusively from the sync engine (the remote
// authority owns the data); the moderation engine and scanner only read.
//
// The service layer contains pure business logic and depends on the
// repository interfaces defined in repository.go. It never imports
// net/http or database/sql directly.
package blocklist
