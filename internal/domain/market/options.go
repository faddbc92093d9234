package market

import (
	"time"

	"github.com/gavelhq/gavel/pkg/logger"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithTierThresholds overrides the percentile cutoffs for ELITE and MID.
// Accepted when 0 < eliteBelow < midBelow <= 100; invalid pairs keep the
// defaults.
func WithTierThresholds(eliteBelow, midBelow float64) Option {
	return func(e *Engine) {
		if eliteBelow > 0 && eliteBelow < midBelow && midBelow <= percentileScale {
			e.eliteBelow = eliteBelow
			e.midBelow = midBelow
		}
	}
}

// WithMultiplierBounds overrides the clamp interval for the budget
// depletion multiplier. Accepted when 0 < lower < upper; invalid pairs
// keep the defaults.
func WithMultiplierBounds(lower, upper float64) Option {
	return func(e *Engine) {
		if lower > 0 && lower < upper {
			e.minMult = lower
			e.maxMult = upper
		}
	}
}

// WithWarnInterval sets the minimum spacing between data-quality warnings
// of the same kind. Zero disables rate limiting so every occurrence is
// reported; negative values are ignored.
func WithWarnInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.warnEvery = d
		}
	}
}

// WithLogger routes data-quality diagnostics to l. Without it the engine
// discards them.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}
