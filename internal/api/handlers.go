package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/group-guardian/internal/authority"
	"github.com/ignite/group-guardian/internal/directory"
	"github.com/ignite/group-guardian/internal/domain"
	"github.com/ignite/group-guardian/internal/pkg/logger"
	"github.com/ignite/group-guardian/internal/queue"
	"github.com/ignite/group-guardian/internal/scanner"
	"github.com/ignite/group-guardian/internal/service/blocklist"
	"github.com/ignite/group-guardian/internal/service/groupcfg"
	"github.com/ignite/group-guardian/internal/syncer"
)

// Handlers holds dependencies for all HTTP handlers
type Handlers struct {
	blocklist *blocklist.Service
	groups    *groupcfg.Service
	scanner   *scanner.Scanner
	syncer    *syncer.Engine
	queue     *queue.Service
	authority *authority.Client
	registry  directory.Registry
}

// NewHandlers creates the handler set.
func NewHandlers(
	bl *blocklist.Service,
	groups *groupcfg.Service,
	sc *scanner.Scanner,
	sync *syncer.Engine,
	q *queue.Service,
	auth *authority.Client,
	registry directory.Registry,
) *Handlers {
	return &Handlers{
		blocklist: bl,
		groups:    groups,
		scanner:   sc,
		syncer:    sync,
		queue:     q,
		authority: auth,
		registry:  registry,
	}
}

// HealthCheck returns basic liveness
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetGroupSettings returns the effective mode for a group.
func (h *Handlers) GetGroupSettings(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")
	mode, err := h.groups.Mode(r.Context(), groupID)
	if err != nil {
		logger.Warn("api: resolving group mode", "group_id", groupID, "error", err)
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"group_id": groupID,
		"mode":     string(mode),
	})
}

// PutGroupSettings sets the per-group mode.
func (h *Handlers) PutGroupSettings(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")

	var body struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.groups.SetMode(r.Context(), groupID, domain.Mode(body.Mode)); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"group_id": groupID,
		"mode":     body.Mode,
	})
}

// ListBlockEntries returns a page of block entries.
func (h *Handlers) ListBlockEntries(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	if limit > 500 {
		limit = 500
	}
	offset := queryInt(r, "offset", 0)

	entries, total, err := h.blocklist.List(r.Context(), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "listing block entries")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

// GetBlocklistStats returns counts of the cached lists.
func (h *Handlers) GetBlocklistStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.blocklist.GetStats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "computing stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// TriggerScanAll starts a full sweep in the background.
func (h *Handlers) TriggerScanAll(w http.ResponseWriter, r *http.Request) {
	go func() {
		groups, handled := h.scanner.ScanAllGroups(context.Background())
		logger.Info("api: manual full sweep finished", "groups", groups, "handled", handled)
	}()
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "scan started"})
}

// TriggerScanGroup scans a single group synchronously and returns the result.
func (h *Handlers) TriggerScanGroup(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")

	dir, ok := h.findGroupDirectory(r.Context(), groupID)
	if !ok {
		respondError(w, http.StatusNotFound, "no connected instance serves this group")
		return
	}
	res := h.scanner.ScanGroup(r.Context(), groupID, dir)
	if res.Err != nil {
		respondError(w, http.StatusBadGateway, res.Err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"group_id": res.GroupID,
		"targets":  res.Total,
		"handled":  res.Handled,
	})
}

// findGroupDirectory locates the connected instance serving groupID.
func (h *Handlers) findGroupDirectory(ctx context.Context, groupID string) (directory.Directory, bool) {
	if h.registry == nil {
		return nil, false
	}
	for _, inst := range h.registry.Instances() {
		ids, err := inst.ListGroups(ctx)
		if err != nil {
			continue
		}
		for _, id := range ids {
			if id == groupID {
				return inst.Directory(), true
			}
		}
	}
	return nil, false
}

// TriggerSync runs one sync cycle immediately.
func (h *Handlers) TriggerSync(w http.ResponseWriter, r *http.Request) {
	added := h.syncer.Sync(r.Context())
	respondJSON(w, http.StatusOK, map[string]bool{"new_entries": added})
}

// TriggerDrain drains the offline queue immediately.
func (h *Handlers) TriggerDrain(w http.ResponseWriter, r *http.Request) {
	h.queue.Drain(r.Context())
	size, err := h.queue.Size(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "reading queue size")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"remaining": size})
}

// GetQueueStats returns the offline queue depth.
func (h *Handlers) GetQueueStats(w http.ResponseWriter, r *http.Request) {
	size, err := h.queue.Size(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "reading queue size")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"size": size})
}

type applicationRequest struct {
	Kind string `json:"kind"`
	domain.ApplicationPayload
}

// SubmitApplication relays a block/unblock application to the authority.
// Delivery failures of any class fall back to the offline queue so the
// operator's request is never lost.
func (h *Handlers) SubmitApplication(w http.ResponseWriter, r *http.Request) {
	var body applicationRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	kind := domain.RequestKind(body.Kind)
	if kind != domain.RequestAdd && kind != domain.RequestRemove {
		respondError(w, http.StatusBadRequest, "kind must be ADD or REMOVE")
		return
	}
	h.relayApplication(w, r, kind, body.ApplicationPayload)
}

// CancelApplication relays a cancellation of a pending application.
func (h *Handlers) CancelApplication(w http.ResponseWriter, r *http.Request) {
	var body applicationRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	h.relayApplication(w, r, domain.RequestCancel, body.ApplicationPayload)
}

func (h *Handlers) relayApplication(w http.ResponseWriter, r *http.Request, kind domain.RequestKind, payload domain.ApplicationPayload) {
	if err := payload.Validate(kind); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := h.authority.Submit(r.Context(), kind, payload)
	if err == nil {
		respondJSON(w, http.StatusOK, map[string]string{"status": "delivered"})
		return
	}

	var rejection *authority.RejectionError
	if errors.As(err, &rejection) {
		// The authority understood and refused; queueing would only replay
		// the same refusal.
		respondError(w, http.StatusUnprocessableEntity, rejection.Message)
		return
	}

	id, qerr := h.queue.Enqueue(r.Context(), kind, payload)
	if qerr != nil {
		logger.Error("api: enqueue after delivery failure", "error", qerr)
		respondError(w, http.StatusBadGateway, "delivery failed and could not be queued")
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{
		"status":     "queued",
		"request_id": id,
	})
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("api: encoding response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
