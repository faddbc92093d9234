package model

import "time"

// PickEvent represents one completed auction pick flowing through the
// ingestion pipeline. DraftID is resolved from the configured room when
// the wire leaves it empty.
type PickEvent struct {
	EventID  string    // unique id for idempotency
	DraftID  string    // draft room identifier
	PlayerID string    // player acquired
	Price    float64   // winning bid (normalized to float64)
	Tier     ValueTier // optional pre-assigned value tier
	TS       time.Time // pick timestamp
}

// Purchase converts the wire event to the purchase record the
// calculators consume.
func (e PickEvent) Purchase() DraftedPurchase {
	return DraftedPurchase{
		PlayerID:    e.PlayerID,
		ActualPrice: e.Price,
		Tier:        e.Tier,
	}
}
