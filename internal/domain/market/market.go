// Package market implements the auction inflation calculators: percentile
// ranking, value-tier classification, overall and tier-partitioned inflation,
// and budget depletion. Every calculator is a pure function of its arguments
// and the engine's immutable configuration; the only side channel is a
// rate-limited data-quality warning.
package market

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	model "github.com/gavelhq/gavel/internal/domain/model"
	"github.com/gavelhq/gavel/pkg/logger"
)

// Default engine configuration constants.
const (
	DefaultEliteBelow    = 10.0 // percentile below this is ELITE
	DefaultMidBelow      = 40.0 // percentile below this, and at or above elite, is MID
	DefaultMinMultiplier = 0.1
	DefaultMaxMultiplier = 2.0

	defaultWarnInterval = 30 * time.Second
	percentileScale     = 100.0
)

// Calculation kind names shared with instrumentation and metrics.
const (
	KindPercentile       = "percentile"
	KindClassifyTier     = "classify_tier"
	KindOverallInflation = "overall_inflation"
	KindTierInflation    = "tier_inflation"
	KindBudgetDepletion  = "budget_depletion"
)

// Calculator is the full calculation surface of the engine. Consumers hold
// this interface so instrumentation can wrap the engine transparently.
type Calculator interface {
	// Percentile ranks a value against a reference population.
	Percentile(value float64, reference []float64) float64
	// ClassifyTier maps a projected value to a tier within a reference pool.
	ClassifyTier(projectedValue float64, referencePool []model.ProjectionEntry) model.ValueTier
	// OverallInflation compares aggregate actual spend to aggregate projected value.
	OverallInflation(purchases []model.DraftedPurchase, projections []model.ProjectionEntry) float64
	// TierInflation computes the inflation ratio independently per tier.
	TierInflation(purchases []model.DraftedPurchase, projections []model.ProjectionEntry) map[model.ValueTier]float64
	// BudgetDepletion reports pace of spend against pace of slot consumption.
	BudgetDepletion(totalBudget, spentBudget, slotsRemaining, totalSlots float64) model.BudgetDepletionResult
}

// Engine computes inflation signals from caller-supplied draft state. It
// holds no draft state of its own: each call reads only its arguments, so
// concurrent use needs no coordination.
type Engine struct {
	eliteBelow float64
	midBelow   float64
	minMult    float64
	maxMult    float64

	warnEvery time.Duration
	log       logger.Logger
	gates     [diagKindCount]warnGate
}

var _ Calculator = (*Engine)(nil)

// New creates an engine with configuration options.
func New(opts ...Option) *Engine {
	e := &Engine{
		eliteBelow: DefaultEliteBelow,
		midBelow:   DefaultMidBelow,
		minMult:    DefaultMinMultiplier,
		maxMult:    DefaultMaxMultiplier,
		warnEvery:  defaultWarnInterval,
		log:        logger.Nop(), // diagnostics are opt-in, see WithLogger
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Percentile returns the share of the reference population strictly greater
// than value, scaled to [0, 100]. Ties never inflate the rank: 0 means
// nothing ranks above value (top of the pool), 100 means everything does.
// An empty reference yields 0.
func (e *Engine) Percentile(value float64, reference []float64) float64 {
	if len(reference) == 0 {
		return 0
	}
	greater := 0
	for _, v := range reference {
		if v > value {
			greater++
		}
	}
	return float64(greater) / float64(len(reference)) * percentileScale
}

// ClassifyTier buckets projectedValue by its percentile within the pool's
// projected values. Threshold comparisons are strict inequalities so
// boundary ranks land deterministically. An empty pool classifies LOWER as
// a conservative default; a singleton pool classifies ELITE since a lone
// player is top ranked by definition.
func (e *Engine) ClassifyTier(projectedValue float64, referencePool []model.ProjectionEntry) model.ValueTier {
	if len(referencePool) == 0 {
		return model.TierLower
	}
	values := make([]float64, len(referencePool))
	for i := range referencePool {
		values[i] = sanitize(referencePool[i].ProjectedValue)
	}
	return e.tierOf(sanitize(projectedValue), values)
}

// OverallInflation compares what the market has actually paid for the
// drafted players against what the projections said they were worth. A
// purchase with no matching projection counts fully toward actual spend and
// nothing toward the projected total. A non-positive projected total yields
// 0 rather than a division by zero or a sign-flipped ratio.
func (e *Engine) OverallInflation(purchases []model.DraftedPurchase, projections []model.ProjectionEntry) float64 {
	return e.rate(purchases, e.projectionIndex(projections))
}

// TierInflation computes the overall ratio independently for each tier,
// restricted to the purchases and projections assigned to it. Assignment
// precedence: the purchase's own tier, then the matching projection's tier,
// then classification by percentile within the full pool. Every tier key is
// present in the result; a tier with no drafted players reports 0. One
// tier's population or pricing never leaks into another tier's ratio.
func (e *Engine) TierInflation(purchases []model.DraftedPurchase, projections []model.ProjectionEntry) map[model.ValueTier]float64 {
	poolValues := make([]float64, len(projections))
	for i := range projections {
		poolValues[i] = sanitize(projections[i].ProjectedValue)
	}

	projTiers := make(map[string]model.ValueTier, len(projections))
	indexes := map[model.ValueTier]map[string]float64{
		model.TierElite: make(map[string]float64),
		model.TierMid:   make(map[string]float64),
		model.TierLower: make(map[string]float64),
	}
	for i, pr := range projections {
		v := poolValues[i]
		if v < 0 {
			e.warn(diagNegativeProjection, pr.PlayerID, v)
		}
		t := pr.Tier
		if !t.Valid() {
			t = e.tierOf(v, poolValues)
		}
		projTiers[pr.PlayerID] = t
		indexes[t][pr.PlayerID] = v
	}

	grouped := make(map[model.ValueTier][]model.DraftedPurchase, len(indexes))
	for _, pu := range purchases {
		t := pu.Tier
		if !t.Valid() {
			if pt, ok := projTiers[pu.PlayerID]; ok {
				t = pt
			} else {
				// No projection for this player; rank its zero value.
				t = e.tierOf(0, poolValues)
			}
		}
		grouped[t] = append(grouped[t], pu)
	}

	out := make(map[model.ValueTier]float64, len(indexes))
	for _, tier := range model.Tiers() {
		out[tier] = e.rate(grouped[tier], indexes[tier])
	}
	return out
}

// BudgetDepletion compares the remaining budget per remaining slot against
// the draft's overall average pace and clamps the ratio to the configured
// bounds. Degenerate inputs short-circuit in a fixed order: a non-positive
// budget or slot count models no distortion (1.0), an exhausted budget
// floors at the minimum bound.
func (e *Engine) BudgetDepletion(totalBudget, spentBudget, slotsRemaining, totalSlots float64) model.BudgetDepletionResult {
	totalBudget = sanitize(totalBudget)
	spentBudget = sanitize(spentBudget)
	totalSlots = sanitize(totalSlots)

	remaining := math.Max(totalBudget-spentBudget, 0)
	slotsLeft := math.Max(sanitize(slotsRemaining), 0)

	res := model.BudgetDepletionResult{
		Multiplier:     1.0,
		Spent:          spentBudget,
		Remaining:      remaining,
		SlotsRemaining: slotsLeft,
	}
	if totalBudget <= 0 {
		return res
	}
	if totalSlots <= 0 {
		return res
	}
	if slotsLeft == 0 {
		// Nothing left to allocate, no distortion to model.
		return res
	}
	if remaining == 0 {
		res.Multiplier = e.minMult
		return res
	}

	perSlot := remaining / slotsLeft
	average := totalBudget / totalSlots
	res.Multiplier = clamp(perSlot/average, e.minMult, e.maxMult)
	return res
}

// tierOf applies the percentile thresholds to an already sanitized value.
func (e *Engine) tierOf(value float64, poolValues []float64) model.ValueTier {
	if len(poolValues) == 0 {
		return model.TierLower
	}
	p := e.Percentile(value, poolValues)
	switch {
	case p < e.eliteBelow:
		return model.TierElite
	case p < e.midBelow:
		return model.TierMid
	default:
		return model.TierLower
	}
}

// projectionIndex maps playerId to sanitized projected value. Duplicate ids
// keep the last entry, matching bulk-load upsert behavior.
func (e *Engine) projectionIndex(projections []model.ProjectionEntry) map[string]float64 {
	idx := make(map[string]float64, len(projections))
	for _, pr := range projections {
		v := sanitize(pr.ProjectedValue)
		if v < 0 {
			e.warn(diagNegativeProjection, pr.PlayerID, v)
		}
		idx[pr.PlayerID] = v
	}
	return idx
}

// rate sums actual prices against looked-up projected values and returns
// the signed deviation ratio. A non-positive denominator yields 0 so
// degenerate input can never produce NaN or Inf.
func (e *Engine) rate(purchases []model.DraftedPurchase, projected map[string]float64) float64 {
	var actualTotal, projectedTotal float64
	for _, pu := range purchases {
		price := sanitize(pu.ActualPrice)
		if price < 0 {
			e.warn(diagNegativePrice, pu.PlayerID, price)
		}
		actualTotal += price
		projectedTotal += projected[pu.PlayerID]
	}
	if projectedTotal <= 0 {
		return 0
	}
	return (actualTotal - projectedTotal) / projectedTotal
}

// sanitize zeroes non-finite values so malformed numeric input degrades to
// the documented sentinels instead of propagating NaN or Inf.
func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// warn emits a data-quality diagnostic, at most one per interval per kind.
// Corrupt input recurs on every recalculation over the same purchase list,
// so the count of suppressed occurrences since the previous emission rides
// along on the next one. The diagnostic path never touches a calculation's
// result.
func (e *Engine) warn(kind diagKind, playerID string, value float64) {
	g := &e.gates[kind]
	if e.warnEvery > 0 {
		now := time.Now().UnixNano()
		last := g.lastNano.Load()
		if now-last < int64(e.warnEvery) || !g.lastNano.CompareAndSwap(last, now) {
			g.suppressed.Add(1)
			return
		}
	}
	suppressed := g.suppressed.Swap(0)
	e.log.Warn(context.Background(), "negative value in draft data",
		logger.String("kind", kind.String()),
		logger.String("player_id", playerID),
		logger.Float64("value", value),
		logger.Int("suppressed", int(suppressed)),
	)
}

// diagKind enumerates the data-quality conditions the engine reports.
type diagKind int

const (
	diagNegativePrice diagKind = iota
	diagNegativeProjection
	diagKindCount
)

func (k diagKind) String() string {
	switch k {
	case diagNegativePrice:
		return "negative_price"
	case diagNegativeProjection:
		return "negative_projection"
	default:
		return "unknown"
	}
}

// warnGate rate-limits one diagnostic kind.
type warnGate struct {
	lastNano   atomic.Int64
	suppressed atomic.Uint64
}
