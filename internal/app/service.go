// Package service provides the core business service that implements
// the dependencies required by the HTTP API: pick ingestion, draft
// configuration, board queries, and snapshot recalculation.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	pickqueue "github.com/gavelhq/gavel/internal/adapters/mq/queue"
	workerpool "github.com/gavelhq/gavel/internal/adapters/mq/worker"
	"github.com/gavelhq/gavel/internal/adapters/pubsub"
	repository "github.com/gavelhq/gavel/internal/adapters/repository"
	"github.com/gavelhq/gavel/internal/domain/dedupe"
	"github.com/gavelhq/gavel/internal/domain/market"
	"github.com/gavelhq/gavel/internal/domain/model"
	"github.com/gavelhq/gavel/internal/domain/types"
	"github.com/gavelhq/gavel/pkg/logger"
	"github.com/gavelhq/gavel/pkg/metrics"
)

// SubmitStatus reports the outcome of a pick submission.
type SubmitStatus int

const (
	// SubmitAccepted means the pick was queued for processing.
	SubmitAccepted SubmitStatus = iota
	// SubmitDuplicate means the event id was already processed or queued.
	SubmitDuplicate
	// SubmitRejected means the queue refused the pick; the client may
	// retry with the same event id.
	SubmitRejected
)

// Service wires the draft store, inflation engine, pick pipeline and
// snapshot fanout behind the surface the HTTP API consumes.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   repository.Store
	deduper dedupe.Deduper
	queue   pickqueue.Queue
	calc    market.Calculator
	pool    *workerpool.Pool
	broker  *pubsub.Broker

	// seqMu serializes recalculation and publication so snapshot
	// sequence numbers rise with publication order no matter how many
	// workers request recalculation.
	seqMu  sync.Mutex
	seq    uint64
	latest atomic.Pointer[model.InflationSnapshot]

	// draftMu guards the current draft id; the instrumentation callback
	// reads it outside every other lock.
	draftMu sync.RWMutex
	draftID string

	// Configuration
	workerCount    int
	queueSize      int
	dedupeSize     int
	boardCacheSize int
	totalBudget    float64
	totalSlots     int
	eliteCutoff    float64
	midCutoff      float64
	minMult        float64
	maxMult        float64
	warnInterval   time.Duration
	upstream       pubsub.Upstream

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of pick-processing workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the pick queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithBoardCacheSize sets how many top entries the store snapshot keeps.
func WithBoardCacheSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.boardCacheSize = size
		}
	}
}

// WithDraft sets the draft room configured at boot. A non-positive
// budget or slot count leaves the room unconfigured until the API
// configures one.
func WithDraft(draftID string, totalBudget float64, totalSlots int) Option {
	return func(s *Service) {
		if draftID != "" {
			s.draftID = draftID
		}
		s.totalBudget = totalBudget
		s.totalSlots = totalSlots
	}
}

// WithTierCutoffs sets the percentile boundaries for value tiers.
func WithTierCutoffs(eliteBelow, midBelow float64) Option {
	return func(s *Service) {
		s.eliteCutoff = eliteBelow
		s.midCutoff = midBelow
	}
}

// WithMultiplierBounds sets the clamp interval for the depletion signal.
func WithMultiplierBounds(lower, upper float64) Option {
	return func(s *Service) {
		s.minMult = lower
		s.maxMult = upper
	}
}

// WithWarnInterval spaces the engine's repeated data-quality warnings.
func WithWarnInterval(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.warnInterval = d
		}
	}
}

// WithUpstream attaches an external snapshot publisher.
func WithUpstream(upstream pubsub.Upstream) Option {
	return func(s *Service) {
		s.upstream = upstream
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:    runtime.NumCPU(),
		queueSize:      65_536,
		dedupeSize:     50_000,
		boardCacheSize: 300,
		draftID:        "main",
		eliteCutoff:    market.DefaultEliteBelow,
		midCutoff:      market.DefaultMidBelow,
		minMult:        market.DefaultMinMultiplier,
		maxMult:        market.DefaultMaxMultiplier,
		warnInterval:   30 * time.Second,
		logger:         nil, // Will be replaced when service starts
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting draft service...")

	// Initialize components
	s.store = repository.NewTreapStore(ctx,
		repository.WithTopCacheSize(s.boardCacheSize),
	)
	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.queue = pickqueue.NewInMemoryQueue(
		pickqueue.WithCapacity(s.queueSize),
		pickqueue.WithBufferSize(s.queueSize),
	)

	engine := market.New(
		market.WithTierThresholds(s.eliteCutoff, s.midCutoff),
		market.WithMultiplierBounds(s.minMult, s.maxMult),
		market.WithWarnInterval(s.warnInterval),
		market.WithLogger(s.logger.Named("market")),
	)
	s.calc = market.NewInstrumented(engine,
		market.WithSink(metrics.Default()),
		market.WithDraftID(s.currentDraftID),
	)

	brokerOpts := []pubsub.Option{
		pubsub.WithLogger(s.logger.Named("pubsub")),
	}
	if s.upstream != nil {
		brokerOpts = append(brokerOpts, pubsub.WithUpstream(s.upstream))
	}
	s.broker = pubsub.NewBroker(brokerOpts...)

	// Workers record purchases straight into the store and ask the
	// service for the follow-up recalculation.
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.store, s)
	s.pool.Start(ctx)

	if s.totalBudget > 0 && s.totalSlots > 0 {
		if err := s.store.ConfigureDraft(ctx, s.draftID, s.totalBudget, s.totalSlots); err != nil {
			return fmt.Errorf("configure boot draft: %w", err)
		}
	}

	// Seed the first snapshot so reads have data before the first pick.
	if _, err := s.RecalculateAndPublish(ctx, s.currentDraftID()); err != nil {
		return err
	}

	s.started = true
	s.logger.Info(ctx, "draft service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.String("draftID", s.currentDraftID()),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping draft service...")

	// Shut down the pool first; it closes the queue and drains workers.
	if s.pool != nil {
		_ = s.pool.Shutdown(ctx)
	}

	// Terminate snapshot fanout
	if s.broker != nil {
		s.broker.Close()
	}

	// Close draft-state store
	if s.store != nil {
		if closer, ok := s.store.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
	}

	s.started = false
	s.logger.Info(ctx, "draft service stopped")
}

// SubmitPick validates, dedupes, and enqueues one pick event. A pick
// without an event id gets one assigned. Rejected picks are unrecorded
// from the deduper so the client can retry with the same id.
func (s *Service) SubmitPick(ctx context.Context, pick model.PickEvent) SubmitStatus {
	if pick.EventID == "" {
		pick.EventID = uuid.NewString()
	}
	if pick.TS.IsZero() {
		pick.TS = time.Now().UTC()
	}

	if s.deduper.SeenAndRecord(ctx, pick.EventID) {
		metrics.RecordPickDuplicate()
		s.logger.Debug(ctx, "duplicate pick skipped",
			logger.String("eventID", pick.EventID),
			logger.String("playerID", pick.PlayerID),
		)
		return SubmitDuplicate
	}

	if !s.queue.Enqueue(ctx, pick) {
		s.deduper.Unrecord(ctx, pick.EventID)
		s.logger.Warn(ctx, "pick queue full, rejecting",
			logger.String("eventID", pick.EventID),
			logger.String("playerID", pick.PlayerID),
		)
		return SubmitRejected
	}

	s.logger.Debug(ctx, "pick enqueued",
		logger.String("eventID", pick.EventID),
		logger.String("playerID", pick.PlayerID),
		logger.Float64("price", pick.Price),
	)
	return SubmitAccepted
}

// ReplaceProjections swaps in a new projection pool. Entries without a
// pre-assigned tier are classified by percentile within the incoming
// pool before storage, so board queries serve tiers directly.
func (s *Service) ReplaceProjections(ctx context.Context, entries []model.ProjectionEntry) error {
	classified := make([]model.ProjectionEntry, len(entries))
	copy(classified, entries)
	for i := range classified {
		if !classified[i].Tier.Valid() {
			classified[i].Tier = s.calc.ClassifyTier(classified[i].ProjectedValue, entries)
		}
	}

	if err := s.store.ReplaceProjections(ctx, classified); err != nil {
		return err
	}

	_, err := s.RecalculateAndPublish(ctx, s.currentDraftID())
	return err
}

// ConfigureDraft sets the draft room's budget and slot count, resetting
// purchases, and publishes a fresh snapshot.
func (s *Service) ConfigureDraft(ctx context.Context, draftID string, totalBudget float64, totalSlots int) error {
	if err := s.store.ConfigureDraft(ctx, draftID, totalBudget, totalSlots); err != nil {
		return err
	}

	s.draftMu.Lock()
	s.draftID = draftID
	s.draftMu.Unlock()

	_, err := s.RecalculateAndPublish(ctx, draftID)
	return err
}

// RecalculateAndPublish recomputes the inflation snapshot from current
// draft state, caches it, and fans it out. Implements the worker
// pool's recalculator.
func (s *Service) RecalculateAndPublish(ctx context.Context, draftID string) (model.InflationSnapshot, error) {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()

	projections := s.store.Projections(ctx)
	purchases := s.store.Purchases(ctx)
	state := s.store.DraftState(ctx)

	overall := s.calc.OverallInflation(purchases, projections)
	byTier := s.calc.TierInflation(purchases, projections)
	depletion := s.calc.BudgetDepletion(
		state.TotalBudget,
		state.SpentBudget,
		float64(state.SlotsRemaining()),
		float64(state.TotalSlots),
	)

	id := state.DraftID
	if id == "" {
		id = draftID
	}

	s.seq++
	snapshot := model.InflationSnapshot{
		DraftID:   id,
		Seq:       s.seq,
		Overall:   overall,
		ByTier:    byTier,
		Depletion: depletion,
		Purchases: len(purchases),
		PoolSize:  len(projections),
		TS:        time.Now().UTC(),
	}

	s.latest.Store(&snapshot)
	s.broker.Publish(ctx, snapshot)

	metrics.RecordSnapshotPublished()
	metrics.UpdateOverallInflation(overall)
	for tier, rate := range byTier {
		metrics.UpdateTierInflation(string(tier), rate)
	}
	metrics.UpdateDepletionMultiplier(depletion.Multiplier)

	return snapshot, nil
}

// LatestSnapshot returns the most recently published snapshot. The
// boolean is false before the first recalculation.
func (s *Service) LatestSnapshot() (model.InflationSnapshot, bool) {
	if p := s.latest.Load(); p != nil {
		return *p, true
	}
	return model.InflationSnapshot{}, false
}

// Subscribe attaches a snapshot listener for streaming consumers.
func (s *Service) Subscribe() (<-chan model.InflationSnapshot, func()) {
	return s.broker.Subscribe()
}

// TopBoard returns the top n best-available players by projected value.
func (s *Service) TopBoard(ctx context.Context, n int) ([]types.BoardEntry, error) {
	entries, err := s.store.TopAvailable(ctx, n)
	if err != nil {
		return nil, err
	}

	// Convert to API format
	apiEntries := make([]types.BoardEntry, len(entries))
	for i, entry := range entries {
		apiEntries[i] = types.BoardEntry{
			Rank:           entry.Rank,
			PlayerID:       entry.PlayerID,
			ProjectedValue: entry.ProjectedValue,
			Tier:           string(entry.Tier),
		}
	}

	return apiEntries, nil
}

// PlayerRank returns the board position and tier for a given player id.
func (s *Service) PlayerRank(ctx context.Context, playerID string) (types.BoardEntry, error) {
	entry, err := s.store.Rank(ctx, playerID)
	if err != nil {
		return types.BoardEntry{}, err
	}

	return types.BoardEntry{
		Rank:           entry.Rank,
		PlayerID:       entry.PlayerID,
		ProjectedValue: entry.ProjectedValue,
		Tier:           string(entry.Tier),
	}, nil
}

// BudgetDepletion runs the depletion calculator directly on the given
// accounting values.
func (s *Service) BudgetDepletion(totalBudget, spentBudget, slotsRemaining, totalSlots float64) model.BudgetDepletionResult {
	return s.calc.BudgetDepletion(totalBudget, spentBudget, slotsRemaining, totalSlots)
}

// DraftState returns the current draft accounting counters.
func (s *Service) DraftState(ctx context.Context) model.DraftState {
	return s.store.DraftState(ctx)
}

// Ready reports whether the service has started.
func (s *Service) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}

	if s.started {
		state := s.store.DraftState(ctx)

		stats["draftID"] = state.DraftID
		stats["queueLength"] = s.queue.Len(ctx)
		stats["poolSize"] = s.store.Count(ctx)
		stats["purchases"] = len(s.store.Purchases(ctx))
		stats["spentBudget"] = state.SpentBudget
		stats["slotsFilled"] = state.SlotsFilled
		stats["subscribers"] = s.broker.SubscriberCount()
		stats["dedupeEntries"] = s.deduper.Size()
		if p := s.latest.Load(); p != nil {
			stats["snapshotSeq"] = p.Seq
		}
		// Stores that publish periodic board snapshots also report how
		// much of the board the cache currently covers.
		if bs, ok := s.store.(interface{ Board() *repository.BoardSnapshot }); ok {
			stats["boardCacheSize"] = len(bs.Board().TopCache)
		}

		// Update metrics
		metrics.UpdateWorkerCount(s.workerCount)
		metrics.UpdatePoolSize(s.store.Count(ctx))
	}

	return stats
}

// currentDraftID resolves the active draft id for instrumentation and
// recalculation callers.
func (s *Service) currentDraftID() string {
	s.draftMu.RLock()
	defer s.draftMu.RUnlock()
	return s.draftID
}
