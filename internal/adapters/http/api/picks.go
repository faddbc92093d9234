// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	service "github.com/gavelhq/gavel/internal/app"
	"github.com/gavelhq/gavel/internal/domain/model"
)

// PickDependencies defines the interface for pick ingestion.
type PickDependencies interface {
	SubmitPick(ctx context.Context, pick model.PickEvent) service.SubmitStatus
}

// PicksHandler handles pick submissions.
type PicksHandler struct {
	deps PickDependencies
}

// NewPicksHandler creates a new picks handler.
func NewPicksHandler(deps PickDependencies) *PicksHandler {
	return &PicksHandler{deps: deps}
}

// HandlePostPick handles POST /api/v1/picks requests.
func (h *PicksHandler) HandlePostPick(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_pick"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req pickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	pick := req.toEvent()
	switch h.deps.SubmitPick(r.Context(), pick) {
	case service.SubmitDuplicate:
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", EventID: pick.EventID, Duplicate: true})
	case service.SubmitRejected:
		writeError(w, http.StatusServiceUnavailable, "backpressure", NewKind(op, ErrBackpressure))
	default:
		writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", EventID: pick.EventID})
	}
}
