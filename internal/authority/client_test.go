package authority

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ignite/group-guardian/internal/config"
	"github.com/ignite/group-guardian/internal/domain"
)

func testClient(url string) *Client {
	return NewClient(config.AuthorityConfig{
		BaseURL:             url,
		Token:               "test-token",
		SyncTimeoutSeconds:  2,
		RetryTimeoutSeconds: 2,
	})
}

func TestSync_SendsRevisionAndBearer(t *testing.T) {
	var gotReq SyncRequest
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sync" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(SyncResponse{Strategy: StrategyUpToDate})
	}))
	defer srv.Close()

	resp, err := testClient(srv.URL).Sync(context.Background(), "r41", "inst-1")
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if resp.Strategy != StrategyUpToDate {
		t.Errorf("strategy = %q", resp.Strategy)
	}
	if gotReq.Revision != "r41" || gotReq.InstanceID != "inst-1" {
		t.Errorf("request = %+v", gotReq)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("auth header = %q", gotAuth)
	}
}

func TestDeliver_StampsOfflineFlags(t *testing.T) {
	var got domain.ApplicationPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := testClient(srv.URL).Deliver(context.Background(), domain.RequestAdd,
		domain.ApplicationPayload{RequestID: "req-1", ApplicantID: "a1", TargetUserID: "u1"},
		"inst-9")
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if !got.IsOfflineRetry {
		t.Error("isOfflineRetry not set")
	}
	if got.InstanceID != "inst-9" {
		t.Errorf("instanceId = %q", got.InstanceID)
	}
}

func TestDeliver_ClassifiesRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "duplicate request", http.StatusConflict)
	}))
	defer srv.Close()

	err := testClient(srv.URL).Deliver(context.Background(), domain.RequestRemove,
		domain.ApplicationPayload{RequestID: "req-2", ApplicantID: "a1", TargetUserID: "u1"},
		"inst-9")

	var rej *RejectionError
	if !errors.As(err, &rej) {
		t.Fatalf("expected RejectionError, got %v", err)
	}
	if rej.StatusCode != http.StatusConflict {
		t.Errorf("status = %d", rej.StatusCode)
	}
}

func TestDeliver_ClassifiesNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	err := testClient(srv.URL).Deliver(context.Background(), domain.RequestAdd,
		domain.ApplicationPayload{RequestID: "req-3", ApplicantID: "a1", TargetUserID: "u1"},
		"inst-9")

	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
}

func TestSubmit_CancelUsesCancelPath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := testClient(srv.URL).Submit(context.Background(), domain.RequestCancel,
		domain.ApplicationPayload{RequestID: "req-4", ApplicantID: "a1", TargetRequestID: "req-1"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if gotPath != "/applications/cancel" {
		t.Errorf("path = %q", gotPath)
	}
}
