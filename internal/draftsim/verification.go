package draftsim

import (
	"fmt"
	"math"
)

// VerifyReport collects the outcome of the re-derivation checks
type VerifyReport struct {
	Checks   int
	Failures []string
}

// OK reports whether every check passed
func (r *VerifyReport) OK() bool { return len(r.Failures) == 0 }

func (r *VerifyReport) check(ok bool, format string, args ...interface{}) {
	r.Checks++
	if !ok {
		r.Failures = append(r.Failures, fmt.Sprintf(format, args...))
	}
}

// VerifySnapshot re-derives every figure in the snapshot from the run's
// own pool and picks and compares against what the service reported.
// The mirror implements the same percentile, tier and clamping rules the
// service documents, so a disagreement means one side drifted.
func VerifySnapshot(cfg Config, pool []ProjectionRow, picks []Pick, snap Snapshot) *VerifyReport {
	r := &VerifyReport{}

	r.check(snap.Purchases == len(picks),
		"purchases: reported %d, applied %d", snap.Purchases, len(picks))
	r.check(snap.PoolSize == len(pool),
		"pool size: reported %d, loaded %d", snap.PoolSize, len(pool))

	overall := expectedOverall(pool, picks)
	r.check(almostEqual(snap.Overall, overall),
		"overall inflation: reported %.12f, derived %.12f", snap.Overall, overall)

	byTier := expectedTierRates(pool, picks)
	r.check(len(snap.ByTier) == len(byTier),
		"tier inflation: reported %d tiers, expected %d", len(snap.ByTier), len(byTier))
	for tier, want := range byTier {
		got, ok := snap.ByTier[tier]
		r.check(ok, "tier inflation: %s missing from snapshot", tier)
		if ok {
			r.check(almostEqual(got, want),
				"tier inflation %s: reported %.12f, derived %.12f", tier, got, want)
		}
	}

	dep := expectedDepletion(cfg, picks)
	r.check(almostEqual(snap.Depletion.Multiplier, dep.Multiplier),
		"depletion multiplier: reported %.12f, derived %.12f", snap.Depletion.Multiplier, dep.Multiplier)
	r.check(almostEqual(snap.Depletion.Spent, dep.Spent),
		"spent budget: reported %.4f, derived %.4f", snap.Depletion.Spent, dep.Spent)
	r.check(almostEqual(snap.Depletion.Remaining, dep.Remaining),
		"remaining budget: reported %.4f, derived %.4f", snap.Depletion.Remaining, dep.Remaining)
	r.check(almostEqual(snap.Depletion.SlotsRemaining, dep.SlotsRemaining),
		"slots remaining: reported %.0f, derived %.0f", snap.Depletion.SlotsRemaining, dep.SlotsRemaining)

	return r
}

// VerifyBoard checks the board against the unsold remainder of the
// pool: contiguous ranks, non-increasing values, no sold players, and
// tiers matching what classification assigned at load time.
func VerifyBoard(pool []ProjectionRow, picks []Pick, board []BoardEntry, topN int) *VerifyReport {
	r := &VerifyReport{}

	sold := make(map[string]bool, len(picks))
	for _, p := range picks {
		sold[p.PlayerID] = true
	}
	rows := make(map[string]ProjectionRow, len(pool))
	for _, row := range pool {
		rows[row.PlayerID] = row
	}

	unsold := len(pool) - len(picks)
	want := topN
	if want > unsold {
		want = unsold
	}
	r.check(len(board) == want, "board: %d entries, expected %d", len(board), want)

	for i, entry := range board {
		r.check(entry.Rank == i+1, "board[%d]: rank %d, expected %d", i, entry.Rank, i+1)
		r.check(!sold[entry.PlayerID], "board[%d]: %s was already sold", i, entry.PlayerID)

		row, ok := rows[entry.PlayerID]
		r.check(ok, "board[%d]: %s is not in the pool", i, entry.PlayerID)
		if ok {
			r.check(almostEqual(entry.ProjectedValue, row.ProjectedValue),
				"board[%d]: %s value %.4f, pool has %.4f",
				i, entry.PlayerID, entry.ProjectedValue, row.ProjectedValue)
			wantTier := tierForRow(pool, row)
			r.check(entry.Tier == wantTier,
				"board[%d]: %s tier %q, expected %q", i, entry.PlayerID, entry.Tier, wantTier)
		}
		if i > 0 {
			r.check(board[i-1].ProjectedValue >= entry.ProjectedValue,
				"board[%d]: value %.4f above predecessor's %.4f",
				i, entry.ProjectedValue, board[i-1].ProjectedValue)
		}
	}
	return r
}

// expectedOverall derives the overall inflation rate: paid versus
// projected across every applied pick, zero on a non-positive
// projected total.
func expectedOverall(pool []ProjectionRow, picks []Pick) float64 {
	projected := make(map[string]float64, len(pool))
	for _, row := range pool {
		projected[row.PlayerID] = sanitize(row.ProjectedValue)
	}
	return rateOf(picks, projected)
}

// expectedTierRates derives the per-tier rates. Each tier's ratio runs
// over its own players and projections only, and every tier label is
// present in the result.
func expectedTierRates(pool []ProjectionRow, picks []Pick) map[string]float64 {
	tiers := make(map[string]string, len(pool))
	indexes := map[string]map[string]float64{
		TierElite: {},
		TierMid:   {},
		TierLower: {},
	}
	for _, row := range pool {
		t := tierForRow(pool, row)
		tiers[row.PlayerID] = t
		indexes[t][row.PlayerID] = sanitize(row.ProjectedValue)
	}

	grouped := make(map[string][]Pick)
	for _, p := range picks {
		t, ok := tiers[p.PlayerID]
		if !ok {
			t = classifyTier(percentileOf(poolValues(pool), 0))
		}
		grouped[t] = append(grouped[t], p)
	}

	out := make(map[string]float64, len(indexes))
	for _, t := range []string{TierElite, TierMid, TierLower} {
		out[t] = rateOf(grouped[t], indexes[t])
	}
	return out
}

// expectedDepletion derives the budget depletion block from the run
// parameters and the applied picks
func expectedDepletion(cfg Config, picks []Pick) Depletion {
	var spent float64
	for _, p := range picks {
		spent += sanitize(p.Price)
	}
	total := cfg.TotalBudget
	slotsLeft := math.Max(float64(cfg.TotalSlots-len(picks)), 0)
	remaining := math.Max(total-spent, 0)

	dep := Depletion{
		Multiplier:     1.0,
		Spent:          spent,
		Remaining:      remaining,
		SlotsRemaining: slotsLeft,
	}
	switch {
	case total <= 0 || cfg.TotalSlots <= 0 || slotsLeft == 0:
		return dep
	case remaining == 0:
		dep.Multiplier = MinDepletionMultiplier
		return dep
	}

	perSlot := remaining / slotsLeft
	average := total / float64(cfg.TotalSlots)
	dep.Multiplier = clampMultiplier(perSlot / average)
	return dep
}

// tierForRow resolves a pool row's tier the way the service does at
// load time: an explicit tier wins, otherwise the row is classified by
// percentile within the full pool.
func tierForRow(pool []ProjectionRow, row ProjectionRow) string {
	switch row.Tier {
	case TierElite, TierMid, TierLower:
		return row.Tier
	}
	values := poolValues(pool)
	if len(values) == 0 {
		return TierLower
	}
	return classifyTier(percentileOf(values, sanitize(row.ProjectedValue)))
}

// percentileOf returns the share of values strictly greater than v,
// scaled to [0, 100]
func percentileOf(values []float64, v float64) float64 {
	if len(values) == 0 {
		return 0
	}
	greater := 0
	for _, x := range values {
		if x > v {
			greater++
		}
	}
	return float64(greater) / float64(len(values)) * PercentageMultiplier
}

// classifyTier buckets a percentile by the tier thresholds
func classifyTier(p float64) string {
	switch {
	case p < EliteTierThreshold:
		return TierElite
	case p < MidTierThreshold:
		return TierMid
	default:
		return TierLower
	}
}

// rateOf sums prices against projected values and returns the signed
// deviation ratio, zero on a non-positive projected total
func rateOf(picks []Pick, projected map[string]float64) float64 {
	var actual, proj float64
	for _, p := range picks {
		actual += sanitize(p.Price)
		proj += projected[p.PlayerID]
	}
	if proj <= 0 {
		return 0
	}
	return (actual - proj) / proj
}

func poolValues(pool []ProjectionRow) []float64 {
	values := make([]float64, len(pool))
	for i := range pool {
		values[i] = sanitize(pool[i].ProjectedValue)
	}
	return values
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func clampMultiplier(v float64) float64 {
	return math.Max(MinDepletionMultiplier, math.Min(MaxDepletionMultiplier, v))
}

// almostEqual compares within a relative tolerance. Submission order is
// concurrent, so the service's sums and ours may accumulate in
// different orders; the tolerance absorbs that reordering error.
func almostEqual(a, b float64) bool {
	diff := math.Abs(a - b)
	scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return diff <= FloatTolerance*scale
}
