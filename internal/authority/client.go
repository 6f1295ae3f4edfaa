// Package authority implements the client side of the remote authority
// protocol: revision-pull sync and blocklist application submissions.
package authority

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ignite/group-guardian/internal/config"
	"github.com/ignite/group-guardian/internal/domain"
	"github.com/ignite/group-guardian/internal/pkg/httpretry"
)

// Client talks to the remote authority. Delivery-path calls (Sync, Deliver)
// use bare clients with fixed timeouts so transport failures surface as
// NetworkError; interactive submissions go through the retrying client.
type Client struct {
	baseURL string
	token   string

	syncClient        *http.Client
	retryClient       *http.Client
	interactiveClient httpretry.HTTPDoer
}

// NewClient creates an authority client from config. Timeouts: sync 10s,
// offline-retry deliveries 5s, interactive submissions default (30s via
// httpretry).
func NewClient(cfg config.AuthorityConfig) *Client {
	return &Client{
		baseURL:           cfg.BaseURL,
		token:             cfg.Token,
		syncClient:        &http.Client{Timeout: time.Duration(cfg.SyncTimeoutSeconds) * time.Second},
		retryClient:       &http.Client{Timeout: time.Duration(cfg.RetryTimeoutSeconds) * time.Second},
		interactiveClient: httpretry.NewRetryClient(nil, 3),
	}
}

// Sync performs a revision pull.
func (c *Client) Sync(ctx context.Context, revision, instanceID string) (*SyncResponse, error) {
	body, err := c.post(ctx, c.syncClient, "sync", "/sync", SyncRequest{
		Revision:   revision,
		InstanceID: instanceID,
	})
	if err != nil {
		return nil, err
	}

	var resp SyncResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("authority sync: decoding response: %w", err)
	}
	return &resp, nil
}

// Deliver submits a queued request from the offline drain. The payload is
// stamped with the instance ID and the offline-retry flag before sending.
// Errors are classified: *NetworkError means the request may never have
// arrived; *RejectionError means the authority refused it.
func (c *Client) Deliver(ctx context.Context, kind domain.RequestKind, payload domain.ApplicationPayload, instanceID string) error {
	payload.InstanceID = instanceID
	payload.IsOfflineRetry = true
	_, err := c.post(ctx, c.retryClient, "deliver", pathFor(kind), payload)
	return err
}

// Submit sends an interactive application (admin-initiated ADD/REMOVE/CANCEL)
// through the retrying client. Classification still applies so the caller
// can decide whether to enqueue for offline retry.
func (c *Client) Submit(ctx context.Context, kind domain.RequestKind, payload domain.ApplicationPayload) error {
	_, err := c.post(ctx, c.interactiveClient, "submit", pathFor(kind), payload)
	return err
}

func pathFor(kind domain.RequestKind) string {
	if kind == domain.RequestCancel {
		return "/applications/cancel"
	}
	return "/applications"
}

func (c *Client) post(ctx context.Context, client httpretry.HTTPDoer, op, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("authority %s: encoding request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("authority %s: creating request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RejectionError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
	}

	return body, nil
}
