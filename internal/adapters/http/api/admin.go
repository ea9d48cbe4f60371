package api

import (
	"fmt"
	"net/http"
	"strings"

	service "github.com/okian/rigmatch/internal/app"
	"github.com/okian/rigmatch/internal/domain/dedupe"
	"github.com/okian/rigmatch/pkg/logger"
)

type retrainResponse struct {
	Success   bool   `json:"success"`
	Coalesced bool   `json:"coalesced"`
	RequestID string `json:"request_id"`
}

// syncComponentRequest mirrors the OpenAPI schema for POST /api/sync/component.
// An empty action means add.
type syncComponentRequest struct {
	Category  string         `json:"category" validate:"notblank"`
	Component map[string]any `json:"component" validate:"required,min=1"`
	Action    string         `json:"action" validate:"omitempty,oneof=add"`
}

type syncComponentResponse struct {
	Success     bool   `json:"success"`
	ComponentID int    `json:"component_id"`
	Message     string `json:"message"`
	Duplicate   bool   `json:"duplicate,omitempty"`
}

// idempotencyHeader names the request header keying retried syncs.
const idempotencyHeader = "Idempotency-Key"

// AdminHandler handles rebuild and inventory sync requests.
type AdminHandler struct {
	deps   Admin
	limits limits
	log    logger.Logger
	seen   dedupe.Deduper
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(deps Admin, l limits, log logger.Logger, seen dedupe.Deduper) *AdminHandler {
	return &AdminHandler{deps: deps, limits: l, log: log, seen: seen}
}

// HandleRetrain handles POST /api/retrain requests. The rebuild runs in the
// background; a request arriving while one is pending is coalesced into it.
func (h *AdminHandler) HandleRetrain(w http.ResponseWriter, r *http.Request) {
	const op = "api.retrain"
	res, err := h.deps.RequestRebuild(r.Context(), service.ReasonRetrain)
	if err != nil {
		fail(r.Context(), w, h.log, op, err)
		return
	}
	writeJSON(w, http.StatusAccepted, retrainResponse{Success: true, Coalesced: res.Coalesced, RequestID: res.ID})
}

// HandleSyncComponent handles POST /api/sync/component requests. A request
// carrying an Idempotency-Key already completed is answered with the stored
// component id instead of inserting again.
func (h *AdminHandler) HandleSyncComponent(w http.ResponseWriter, r *http.Request) {
	const op = "api.sync_component"
	ctx := r.Context()
	var req syncComponentRequest
	if err := decodeJSON(w, r, h.limits.maxBody, &req); err != nil {
		fail(ctx, w, h.log, op, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		fail(ctx, w, h.log, op, err)
		return
	}

	key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
	track := key != "" && h.seen != nil
	if track {
		key = req.Category + "/" + key
		if entry, seen := h.seen.SeenAndRecord(ctx, key); seen {
			if !entry.Done {
				fail(ctx, w, h.log, op, ErrInFlight)
				return
			}
			writeJSON(w, http.StatusOK, syncComponentResponse{
				Success:     true,
				ComponentID: entry.ComponentID,
				Message:     fmt.Sprintf("%s already synced", req.Category),
				Duplicate:   true,
			})
			return
		}
	}

	id, err := h.deps.AddInventoryComponent(ctx, req.Category, req.Component)
	if err != nil {
		if track {
			h.seen.Unrecord(ctx, key)
		}
		fail(ctx, w, h.log, op, err)
		return
	}
	if track {
		h.seen.Complete(ctx, key, id)
	}
	writeJSON(w, http.StatusOK, syncComponentResponse{
		Success:     true,
		ComponentID: id,
		Message:     fmt.Sprintf("%s synced", req.Category),
	})
}
