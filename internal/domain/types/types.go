// Package types contains common types used across the application
package types

import (
	"time"

	"github.com/gavelhq/gavel/internal/domain/model"
)

// BoardEntry represents a draft board row
type BoardEntry struct {
	Rank           int     `json:"rank"`
	PlayerID       string  `json:"player_id"`
	ProjectedValue float64 `json:"projected_value"`
	Tier           string  `json:"tier"`
}

// DepletionPayload is the wire form of a budget depletion result
type DepletionPayload struct {
	Multiplier     float64 `json:"multiplier"`
	Spent          float64 `json:"spent"`
	Remaining      float64 `json:"remaining"`
	SlotsRemaining float64 `json:"slots_remaining"`
}

// SnapshotPayload is the wire form of an inflation snapshot, shared by the
// SSE stream and the upstream broker
type SnapshotPayload struct {
	DraftID   string             `json:"draft_id"`
	Seq       uint64             `json:"seq"`
	Overall   float64            `json:"overall_inflation"`
	ByTier    map[string]float64 `json:"tier_inflation"`
	Depletion DepletionPayload   `json:"budget_depletion"`
	Purchases int                `json:"purchases"`
	PoolSize  int                `json:"pool_size"`
	TS        time.Time          `json:"ts"`
}

// SnapshotPayloadFrom converts a domain snapshot into its wire form.
func SnapshotPayloadFrom(s model.InflationSnapshot) SnapshotPayload {
	byTier := make(map[string]float64, len(s.ByTier))
	for tier, rate := range s.ByTier {
		byTier[string(tier)] = rate
	}
	return SnapshotPayload{
		DraftID: s.DraftID,
		Seq:     s.Seq,
		Overall: s.Overall,
		ByTier:  byTier,
		Depletion: DepletionPayload{
			Multiplier:     s.Depletion.Multiplier,
			Spent:          s.Depletion.Spent,
			Remaining:      s.Depletion.Remaining,
			SlotsRemaining: s.Depletion.SlotsRemaining,
		},
		Purchases: s.Purchases,
		PoolSize:  s.PoolSize,
		TS:        s.TS,
	}
}
