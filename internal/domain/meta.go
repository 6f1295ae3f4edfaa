package domain

// Keys in the sync metadata collection.
const (
	// MetaSyncRevision holds the opaque server-issued revision token.
	// Empty string means "never synced".
	MetaSyncRevision = "sync_revision"

	// MetaInstanceUUID identifies this client to the remote authority.
	// Generated once and stable for the lifetime of the local cache.
	MetaInstanceUUID = "instance_uuid"
)
