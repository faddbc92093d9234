// Package model contains domain models passed between layers.
package model

import "time"

// ValueTier buckets a player's projected value by its rank within a
// reference pool. Membership is computed per call, never stored state:
// the same player can land in different tiers as the pool changes.
type ValueTier string

// The three tiers partition any reference pool.
const (
	TierElite ValueTier = "ELITE" // top decile by projected value
	TierMid   ValueTier = "MID"   // 10%-40%
	TierLower ValueTier = "LOWER" // remaining 60%
)

// Tiers lists all tiers in rank order, best first.
func Tiers() []ValueTier {
	return []ValueTier{TierElite, TierMid, TierLower}
}

// Valid reports whether t is one of the three known tiers. The zero
// value is not valid; it means "unassigned, classify from percentile".
func (t ValueTier) Valid() bool {
	switch t {
	case TierElite, TierMid, TierLower:
		return true
	default:
		return false
	}
}

// ParseTier maps a wire string to a ValueTier. Unknown or empty input
// yields the zero value and false so callers fall back to computed
// classification instead of failing the request.
func ParseTier(s string) (ValueTier, bool) {
	t := ValueTier(s)
	if t.Valid() {
		return t, true
	}
	return "", false
}

// DraftedPurchase is a completed acquisition in a live auction.
// A negative ActualPrice is tolerated as a data-quality signal and
// still participates in totals.
type DraftedPurchase struct {
	PlayerID    string
	ActualPrice float64
	Tier        ValueTier // optional pre-assigned tier; bypasses re-classification
}

// ProjectionEntry is a pre-draft valuation for a player.
type ProjectionEntry struct {
	PlayerID       string
	ProjectedValue float64
	Tier           ValueTier // optional pre-assigned tier
}

// BudgetDepletionResult reports how fast the shared budget pool is
// draining relative to roster slots. Multiplier is clamped to the
// engine's configured bounds; the other fields echo the accounting
// inputs for display.
type BudgetDepletionResult struct {
	Multiplier     float64
	Spent          float64
	Remaining      float64
	SlotsRemaining float64
}

// DraftState holds the aggregate budget and slot counters for one
// draft room.
type DraftState struct {
	DraftID     string
	TotalBudget float64
	SpentBudget float64
	TotalSlots  int
	SlotsFilled int
}

// SlotsRemaining is TotalSlots minus SlotsFilled, floored at zero.
func (d DraftState) SlotsRemaining() int {
	if r := d.TotalSlots - d.SlotsFilled; r > 0 {
		return r
	}
	return 0
}

// InflationSnapshot is the full market read published after each
// processed pick: overall rate, per-tier rates, and budget depletion.
// Seq increases by one per recalculation within a draft.
type InflationSnapshot struct {
	DraftID   string
	Seq       uint64
	Overall   float64
	ByTier    map[ValueTier]float64
	Depletion BudgetDepletionResult
	Purchases int
	PoolSize  int
	TS        time.Time
}
