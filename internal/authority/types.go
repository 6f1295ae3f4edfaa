package authority

import (
	"encoding/json"

	"github.com/ignite/group-guardian/internal/domain"
)

// Sync strategies the authority may respond with.
const (
	StrategyUpToDate    = "up-to-date"
	StrategyFullReplace = "full_replace"
	StrategyIncremental = "incremental"
)

// SyncRequest is the revision-pull request body.
type SyncRequest struct {
	Revision   string `json:"revision"`
	InstanceID string `json:"instanceId"`
}

// SyncResponse is the authority's reply to a revision pull. Data is kept
// raw: its shape depends on Strategy and, for full_replace, the authority
// may send either a bare block-entry array (legacy) or a FullReplaceData
// object.
type SyncResponse struct {
	Strategy    string          `json:"strategy"`
	NewRevision string          `json:"newRevision"`
	Data        json.RawMessage `json:"data"`
}

// FullReplaceData is the object form of a full_replace payload.
type FullReplaceData struct {
	Blacklist []domain.BlockEntry  `json:"blacklist"`
	Whitelist []domain.ExemptEntry `json:"whitelist"`
}

// IncrementalData is the delta form: each field optional and applied
// independently.
type IncrementalData struct {
	Upserts          []domain.BlockEntry  `json:"upserts"`
	Deletes          []string             `json:"deletes"`
	WhitelistUpserts []domain.ExemptEntry `json:"whitelist_upserts"`
	WhitelistDeletes []string             `json:"whitelist_deletes"`
}
