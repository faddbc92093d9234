package draftsim

import "time"

// Config holds configuration for one simulated auction run
type Config struct {
	BaseURL     string        // Base URL of the service
	DraftID     string        // Draft id to configure; empty lets the server assign one
	Players     int           // Size of the synthetic projection pool
	Picks       int           // Number of picks to submit (at most Players)
	TotalBudget float64       // League-wide auction budget
	TotalSlots  int           // League-wide roster slots
	Workers     int           // Number of concurrent submitters
	Timeout     time.Duration // HTTP request timeout
	TopN        int           // Number of board entries to fetch and check
	Seed        uint64        // Generator seed; same seed, same auction
	OutputFile  string        // Output file for the generated run
	Verbose     bool          // Enable verbose logging
}

// ProjectionRow mirrors the wire shape of one projection pool row
type ProjectionRow struct {
	PlayerID       string  `json:"player_id"`
	ProjectedValue float64 `json:"projected_value"`
	Tier           string  `json:"tier,omitempty"`
}

// Pick mirrors the wire shape of one submitted pick
type Pick struct {
	EventID  string  `json:"event_id"`
	PlayerID string  `json:"player_id"`
	Price    float64 `json:"price"`
	TS       string  `json:"ts"`
}

// Ack mirrors the pick submission response
type Ack struct {
	Status    string `json:"status"`
	EventID   string `json:"event_id"`
	Duplicate bool   `json:"duplicate"`
}

// Depletion mirrors the budget depletion block of a snapshot
type Depletion struct {
	Multiplier     float64 `json:"multiplier"`
	Spent          float64 `json:"spent"`
	Remaining      float64 `json:"remaining"`
	SlotsRemaining float64 `json:"slots_remaining"`
}

// Snapshot mirrors the inflation snapshot wire shape
type Snapshot struct {
	DraftID   string             `json:"draft_id"`
	Seq       uint64             `json:"seq"`
	Overall   float64            `json:"overall_inflation"`
	ByTier    map[string]float64 `json:"tier_inflation"`
	Depletion Depletion          `json:"budget_depletion"`
	Purchases int                `json:"purchases"`
	PoolSize  int                `json:"pool_size"`
	TS        string             `json:"ts"`
}

// BoardEntry mirrors one draft board row
type BoardEntry struct {
	Rank           int     `json:"rank"`
	PlayerID       string  `json:"player_id"`
	ProjectedValue float64 `json:"projected_value"`
	Tier           string  `json:"tier"`
}
