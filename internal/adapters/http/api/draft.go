// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// DraftDependencies defines the interface for draft configuration.
type DraftDependencies interface {
	ConfigureDraft(ctx context.Context, draftID string, totalBudget float64, totalSlots int) error
}

// DraftHandler handles draft configuration requests.
type DraftHandler struct {
	deps DraftDependencies
}

// NewDraftHandler creates a new draft handler.
func NewDraftHandler(deps DraftDependencies) *DraftHandler {
	return &DraftHandler{deps: deps}
}

// draftRequest mirrors the OpenAPI schema for POST /api/v1/draft.
type draftRequest struct {
	DraftID     string  `json:"draft_id"`
	TotalBudget float64 `json:"total_budget"`
	TotalSlots  int     `json:"total_slots"`
}

func (d draftRequest) validate() error {
	if d.TotalBudget <= 0 {
		return errors.New("total_budget must be positive")
	}
	if d.TotalSlots <= 0 {
		return errors.New("total_slots must be positive")
	}
	return nil
}

type draftResponse struct {
	Status  string `json:"status"`
	DraftID string `json:"draft_id"`
}

// HandlePostDraft handles POST /api/v1/draft requests. A missing draft_id
// gets a generated one so clients can correlate later snapshots.
func (h *DraftHandler) HandlePostDraft(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_draft"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req draftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	draftID := strings.TrimSpace(req.DraftID)
	if draftID == "" {
		draftID = uuid.NewString()
	}
	if err := h.deps.ConfigureDraft(r.Context(), draftID, req.TotalBudget, req.TotalSlots); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, draftResponse{Status: "configured", DraftID: draftID})
}
