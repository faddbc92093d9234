package market

import (
	"time"

	model "github.com/gavelhq/gavel/internal/domain/model"
)

// Sink receives one observation per instrumented calculation. Population is
// the size of the input the calculation ranked or aggregated. The wrapper
// swallows sink errors and panics; implementations that cannot fail should
// return nil.
type Sink interface {
	RecordCalculation(kind string, latency time.Duration, population int, draftID string) error
}

// InstrumentOption applies a configuration option to Instrumented.
type InstrumentOption func(*Instrumented)

// WithSink sets the observation sink. Without one the wrapper is a plain
// pass-through.
func WithSink(s Sink) InstrumentOption {
	return func(w *Instrumented) {
		if s != nil {
			w.sink = s
		}
	}
}

// WithDraftID sets the callback that resolves the current draft id for
// observations. The callback must be safe for concurrent use. The default
// resolves to an empty id.
func WithDraftID(fn func() string) InstrumentOption {
	return func(w *Instrumented) {
		if fn != nil {
			w.draftID = fn
		}
	}
}

// Instrumented decorates a Calculator with latency observation. Return
// values pass through untouched; a failing or unreachable sink never
// surfaces to the caller.
type Instrumented struct {
	inner   Calculator
	sink    Sink
	draftID func() string
}

var _ Calculator = (*Instrumented)(nil)

// NewInstrumented wraps inner with observation options. A nil inner wraps
// a default engine.
func NewInstrumented(inner Calculator, opts ...InstrumentOption) *Instrumented {
	if inner == nil {
		inner = New()
	}
	w := &Instrumented{
		inner:   inner,
		draftID: func() string { return "" },
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Percentile delegates and records the observation.
func (w *Instrumented) Percentile(value float64, reference []float64) float64 {
	start := time.Now()
	out := w.inner.Percentile(value, reference)
	w.observe(KindPercentile, start, len(reference))
	return out
}

// ClassifyTier delegates and records the observation.
func (w *Instrumented) ClassifyTier(projectedValue float64, referencePool []model.ProjectionEntry) model.ValueTier {
	start := time.Now()
	out := w.inner.ClassifyTier(projectedValue, referencePool)
	w.observe(KindClassifyTier, start, len(referencePool))
	return out
}

// OverallInflation delegates and records the observation.
func (w *Instrumented) OverallInflation(purchases []model.DraftedPurchase, projections []model.ProjectionEntry) float64 {
	start := time.Now()
	out := w.inner.OverallInflation(purchases, projections)
	w.observe(KindOverallInflation, start, len(purchases)+len(projections))
	return out
}

// TierInflation delegates and records the observation.
func (w *Instrumented) TierInflation(purchases []model.DraftedPurchase, projections []model.ProjectionEntry) map[model.ValueTier]float64 {
	start := time.Now()
	out := w.inner.TierInflation(purchases, projections)
	w.observe(KindTierInflation, start, len(purchases)+len(projections))
	return out
}

// BudgetDepletion delegates and records the observation. Depletion has no
// population; it aggregates four counters.
func (w *Instrumented) BudgetDepletion(totalBudget, spentBudget, slotsRemaining, totalSlots float64) model.BudgetDepletionResult {
	start := time.Now()
	out := w.inner.BudgetDepletion(totalBudget, spentBudget, slotsRemaining, totalSlots)
	w.observe(KindBudgetDepletion, start, 0)
	return out
}

// observe forwards one record to the sink, swallowing every failure mode so
// instrumentation can never change a calculation's outcome.
func (w *Instrumented) observe(kind string, start time.Time, population int) {
	if w.sink == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	_ = w.sink.RecordCalculation(kind, time.Since(start), population, w.draftID())
}
