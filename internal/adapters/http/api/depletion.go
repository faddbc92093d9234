// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gavelhq/gavel/internal/domain/model"
	"github.com/gavelhq/gavel/internal/domain/types"
)

// DepletionDependencies defines the interface for budget depletion math.
type DepletionDependencies interface {
	BudgetDepletion(totalBudget, spentBudget, slotsRemaining, totalSlots float64) model.BudgetDepletionResult
	DraftState(ctx context.Context) model.DraftState
}

// DepletionHandler handles budget depletion queries.
type DepletionHandler struct {
	deps DepletionDependencies
}

// NewDepletionHandler creates a new depletion handler.
func NewDepletionHandler(deps DepletionDependencies) *DepletionHandler {
	return &DepletionHandler{deps: deps}
}

// depletionParams are the four query inputs of the what-if form.
var depletionParams = []string{"total_budget", "spent_budget", "slots_remaining", "total_slots"}

// HandleGetDepletion handles GET /api/v1/depletion requests. With no query
// parameters the live draft state is used; otherwise all four parameters
// must be present so what-if queries are unambiguous.
func (h *DepletionHandler) HandleGetDepletion(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_depletion"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()

	var res model.BudgetDepletionResult
	if !hasAnyParam(q, depletionParams) {
		state := h.deps.DraftState(r.Context())
		res = h.deps.BudgetDepletion(state.TotalBudget, state.SpentBudget, float64(state.SlotsRemaining()), float64(state.TotalSlots))
	} else {
		vals := make([]float64, len(depletionParams))
		for i, name := range depletionParams {
			v, err := parseQueryFloat(q, name)
			if err != nil {
				writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
				return
			}
			vals[i] = v
		}
		res = h.deps.BudgetDepletion(vals[0], vals[1], vals[2], vals[3])
	}

	writeJSON(w, http.StatusOK, types.DepletionPayload{
		Multiplier:     res.Multiplier,
		Spent:          res.Spent,
		Remaining:      res.Remaining,
		SlotsRemaining: res.SlotsRemaining,
	})
}

func hasAnyParam(q url.Values, names []string) bool {
	for _, name := range names {
		if q.Has(name) {
			return true
		}
	}
	return false
}

func parseQueryFloat(q url.Values, name string) (float64, error) {
	raw := q.Get(name)
	if raw == "" {
		return 0, fmt.Errorf("missing %s", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return v, nil
}
