// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/gavelhq/gavel/internal/domain/model"
	"github.com/gavelhq/gavel/internal/domain/types"
)

// SnapshotDependencies defines the interface for snapshot reads.
type SnapshotDependencies interface {
	LatestSnapshot() (model.InflationSnapshot, bool)
}

// InflationHandler handles inflation snapshot requests.
type InflationHandler struct {
	deps SnapshotDependencies
}

// NewInflationHandler creates a new inflation handler.
func NewInflationHandler(deps SnapshotDependencies) *InflationHandler {
	return &InflationHandler{deps: deps}
}

// HandleGetInflation handles GET /api/v1/inflation requests.
func (h *InflationHandler) HandleGetInflation(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_inflation"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	snap, ok := h.deps.LatestSnapshot()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "not_ready", NewKind(op, ErrNotReady))
		return
	}
	writeJSON(w, http.StatusOK, types.SnapshotPayloadFrom(snap))
}
