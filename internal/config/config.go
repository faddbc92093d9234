// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults live in New; Load layers an optional YAML file and env vars
//   on top of them.
// - Tuning values are forgiving: adapters fall back to their own defaults
//   when a setting is out of range, so Validate only rejects what the
//   service cannot start without.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"fmt"
	"runtime"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory pick queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of pick-processing workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the pick deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxBoardLimit caps GET /api/v1/board?n.
	MaxBoardLimit int `koanf:"max_board_limit"`

	// BoardCacheSize sets how many top entries the store snapshot keeps.
	BoardCacheSize int `koanf:"board_cache_size"`

	// DraftID, TotalBudget and TotalSlots describe the draft room
	// configured at boot. A non-positive budget or slot count leaves the
	// room unconfigured until POST /api/v1/draft arrives.
	DraftID     string  `koanf:"draft_id"`
	TotalBudget float64 `koanf:"total_budget"`
	TotalSlots  int     `koanf:"total_slots"`

	// EliteCutoff and MidCutoff are the percentile boundaries for value
	// tiers. Pairs the engine rejects fall back to its defaults.
	EliteCutoff float64 `koanf:"elite_cutoff"`
	MidCutoff   float64 `koanf:"mid_cutoff"`

	// MinMultiplier and MaxMultiplier bound the budget depletion signal.
	MinMultiplier float64 `koanf:"min_multiplier"`
	MaxMultiplier float64 `koanf:"max_multiplier"`

	// WarnIntervalMS spaces repeated data-quality warnings.
	WarnIntervalMS int `koanf:"warn_interval_ms"`

	// NATSURL enables the snapshot export when non-empty.
	NATSURL string `koanf:"nats_url"`

	// NATSSubjectPrefix prefixes the per-draft snapshot subject.
	NATSSubjectPrefix string `koanf:"nats_subject_prefix"`

	// CORSOrigins lists allowed browser origins. Only settable via the
	// YAML file; defaults to all origins.
	CORSOrigins []string `koanf:"cors_origins"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		Addr:              ":9080",
		QueueSize:         65_536,
		WorkerCount:       runtime.NumCPU(),
		DedupeSize:        50_000,
		MaxBoardLimit:     100,
		BoardCacheSize:    300,
		DraftID:           "main",
		TotalBudget:       200,
		TotalSlots:        16,
		EliteCutoff:       10,
		MidCutoff:         40,
		MinMultiplier:     0.1,
		MaxMultiplier:     2.0,
		WarnIntervalMS:    30_000,
		NATSURL:           "",
		NATSSubjectPrefix: "gavel.draft",
		CORSOrigins:       []string{"*"},
	}
}

// Validate rejects configurations the service cannot start with. Tuning
// values out of range are not errors here; the owning component falls
// back to its default instead.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	return nil
}
