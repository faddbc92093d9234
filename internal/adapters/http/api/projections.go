// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/gavelhq/gavel/internal/domain/model"
)

// ProjectionDependencies defines the interface for projection pool loads.
type ProjectionDependencies interface {
	ReplaceProjections(ctx context.Context, entries []model.ProjectionEntry) error
}

// ProjectionsHandler handles projection pool replacement.
type ProjectionsHandler struct {
	deps ProjectionDependencies
}

// NewProjectionsHandler creates a new projections handler.
func NewProjectionsHandler(deps ProjectionDependencies) *ProjectionsHandler {
	return &ProjectionsHandler{deps: deps}
}

// projectionRequest mirrors the OpenAPI schema for one projection row.
type projectionRequest struct {
	PlayerID       string  `json:"player_id"`
	ProjectedValue float64 `json:"projected_value"`
	Tier           string  `json:"tier"`
}

func (p projectionRequest) validate(i int) error {
	if strings.TrimSpace(p.PlayerID) == "" {
		return fmt.Errorf("entry %d: missing player_id", i)
	}
	if math.IsNaN(p.ProjectedValue) || math.IsInf(p.ProjectedValue, 0) {
		return fmt.Errorf("entry %d: projected_value must be finite", i)
	}
	if p.Tier != "" && !model.ValueTier(p.Tier).Valid() {
		return fmt.Errorf("entry %d: invalid tier; must be ELITE, MID or LOWER", i)
	}
	return nil
}

type loadResponse struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// HandlePutProjections handles PUT /api/v1/projections requests. The body
// is a JSON array of projection rows; the whole pool is replaced at once.
func (h *ProjectionsHandler) HandlePutProjections(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_projections"
	if r.Method != http.MethodPut {
		http.NotFound(w, r)
		return
	}
	var reqs []projectionRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if len(reqs) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("empty projection pool")))
		return
	}
	entries := make([]model.ProjectionEntry, 0, len(reqs))
	for i, req := range reqs {
		if err := req.validate(i); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		entries = append(entries, model.ProjectionEntry{
			PlayerID:       strings.TrimSpace(req.PlayerID),
			ProjectedValue: req.ProjectedValue,
			Tier:           model.ValueTier(req.Tier),
		})
	}
	if err := h.deps.ReplaceProjections(r.Context(), entries); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, loadResponse{Status: "replaced", Count: len(entries)})
}
