package domain

import (
	"fmt"
	"time"
)

// RequestKind enumerates the outbound request types held in the offline queue.
type RequestKind string

const (
	RequestAdd    RequestKind = "ADD"
	RequestRemove RequestKind = "REMOVE"
	RequestCancel RequestKind = "CANCEL"
)

// MaxQueueRetries is the dead-letter budget: a queued request whose
// retry_count exceeds this is evicted without a delivery attempt.
const MaxQueueRetries = 5

// ApplicationPayload is the typed body of a queued request. ADD and REMOVE
// submit a blocklist application to the remote authority; CANCEL retracts a
// previously submitted one.
type ApplicationPayload struct {
	RequestID       string `json:"request_id"`
	Type            string `json:"type,omitempty"`
	ApplicantID     string `json:"applicant_id"`
	TargetUserID    string `json:"target_user_id,omitempty"`
	TargetRequestID string `json:"target_request_id,omitempty"`
	Reason          string `json:"reason,omitempty"`
	GuildID         string `json:"guild_id,omitempty"`
	Timestamp       int64  `json:"timestamp"`

	// Set at delivery time, never persisted with the queue item.
	InstanceID     string `json:"instanceId,omitempty"`
	IsOfflineRetry bool   `json:"isOfflineRetry,omitempty"`
}

// Validate checks the payload against the requirements of the given kind.
func (p ApplicationPayload) Validate(kind RequestKind) error {
	if p.ApplicantID == "" {
		return fmt.Errorf("applicant_id is required")
	}
	switch kind {
	case RequestAdd, RequestRemove:
		if p.TargetUserID == "" {
			return fmt.Errorf("target_user_id is required for %s", kind)
		}
	case RequestCancel:
		if p.TargetRequestID == "" {
			return fmt.Errorf("target_request_id is required for CANCEL")
		}
	default:
		return fmt.Errorf("unknown request kind %q", kind)
	}
	return nil
}

// QueuedRequest is a durable record of an outbound authority request that
// failed to deliver. It is destroyed on successful delivery or dead-letter
// eviction, and mutated only by incrementing RetryCount on a business-level
// (remote-rejection) failure.
type QueuedRequest struct {
	RequestID  string             `json:"request_id" db:"request_id"`
	Kind       RequestKind        `json:"kind" db:"kind"`
	Payload    ApplicationPayload `json:"payload" db:"payload"`
	CreatedAt  time.Time          `json:"created_at" db:"created_at"`
	RetryCount int                `json:"retry_count" db:"retry_count"`
}

// DeadLettered reports whether the request has exhausted its retry budget.
func (q QueuedRequest) DeadLettered() bool { return q.RetryCount > MaxQueueRetries }
