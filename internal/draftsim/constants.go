package draftsim

import "time"

// Default configuration values
const (
	DefaultBaseURL     = "http://localhost:9080"
	DefaultDraftID     = "sim"
	DefaultPlayers     = 200
	DefaultPicks       = 120
	DefaultTotalBudget = 2600
	DefaultTotalSlots  = 208
	DefaultWorkers     = 8
	DefaultTimeout     = 10 * time.Second
	DefaultTopN        = 10
	DefaultSeed        = 1
	DefaultOutputFile  = "draftsim-run.json"
)

// HTTP status codes we treat as success
const (
	StatusOK       = 200
	StatusAccepted = 202
)

// Worker pool configuration
const (
	// WorkerChannelMultiplier sizes the submit channel relative to worker count
	WorkerChannelMultiplier = 4

	// ProgressReportInterval throttles progress output during submission
	ProgressReportInterval = 500 * time.Millisecond
)

// Drain configuration. After submission the run polls the snapshot
// endpoint until the purchase count catches up with the accepted picks.
const (
	DrainPollInterval = 100 * time.Millisecond
	DrainTimeout      = 60 * time.Second
)

// Engine parameters mirrored for local re-derivation
const (
	PercentageMultiplier = 100.0

	EliteTierThreshold = 10.0
	MidTierThreshold   = 40.0

	MinDepletionMultiplier = 0.1
	MaxDepletionMultiplier = 2.0
)

// Tier labels as they appear on the wire
const (
	TierElite = "ELITE"
	TierMid   = "MID"
	TierLower = "LOWER"
)

// FloatTolerance bounds the relative error accepted when comparing
// locally derived values against the service's reported ones.
const FloatTolerance = 1e-9
