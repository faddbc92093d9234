// Package worker defines worker contracts for asynchronous pick processing.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gavelhq/gavel/internal/domain/model"
	"github.com/gavelhq/gavel/pkg/logger"
	"github.com/gavelhq/gavel/pkg/metrics"
)

// Default worker configuration constants.
const (
	metricsUpdateInterval = 5 * time.Second
	workerShutdownTimeout = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// Pick abstracts what workers read off the queue.
// Using the model.PickEvent type for consistency.
type Pick = model.PickEvent

// Recorder applies a completed purchase to the draft state.
type Recorder interface {
	RecordPurchase(ctx context.Context, p model.DraftedPurchase) (bool, error)
}

// Recalculator rebuilds the inflation snapshot after a purchase lands and
// hands it to subscribers. Implementations serialize publication so
// snapshot sequence numbers stay monotonic across workers.
type Recalculator interface {
	RecalculateAndPublish(ctx context.Context, draftID string) (model.InflationSnapshot, error)
}

// Queue defines how workers receive picks.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Pick
}

// Worker processes picks and drives snapshot recalculation using the
// provided interfaces.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	// It will process any remaining picks before stopping.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for processing picks.
type InMemoryWorker struct {
	queue    Queue
	recorder Recorder
	recalc   Recalculator
	name     string

	// busy is true while a pick is being processed; the pool reads it for
	// the active-worker gauge.
	busy atomic.Bool

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	// Logging
	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, recorder Recorder, recalc Recalculator, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		recorder: recorder,
		recalc:   recalc,
		name:     "worker", // default name
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"), // will be updated by options
	}

	// Apply all options
	for _, opt := range opts {
		opt(w)
	}

	// Set up logger with worker name if not already set
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer func() {
		close(w.done)
	}()

	pickChan := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case pick, ok := <-pickChan:
			if !ok {
				// Channel closed, worker should stop
				return
			}

			if err := w.processPick(ctx, pick); err != nil {
				w.logger.Error(ctx, "error processing pick", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker. Safe to call more than once.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	// Signal shutdown
	w.stopOnce.Do(func() {
		close(w.shutdown)
	})

	// Wait for worker to finish or context to timeout
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processPick handles a single pick: the purchase lands in the store, then
// the snapshot is recalculated and published.
func (w *InMemoryWorker) processPick(ctx context.Context, pick Pick) error {
	w.busy.Store(true)
	defer w.busy.Store(false)

	// Track overall processing latency
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	onBoard, err := w.recorder.RecordPurchase(ctx, pick.Purchase())
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "record_purchase")
		w.logger.Error(ctx, "purchase update failed for pick",
			logger.String("event_id", pick.EventID),
			logger.Error(err),
		)
		return fmt.Errorf("purchase update failed for pick %s: %w", pick.EventID, err)
	}
	if !onBoard {
		// Picks for players outside the pool still count toward inflation;
		// only the board is unaffected.
		w.logger.Debug(ctx, "pick for player not on the board",
			logger.String("event_id", pick.EventID),
			logger.String("player_id", pick.PlayerID),
		)
	}

	snapshot, err := w.recalc.RecalculateAndPublish(ctx, pick.DraftID)
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "recalculate")
		w.logger.Error(ctx, "snapshot recalculation failed for pick",
			logger.String("event_id", pick.EventID),
			logger.Error(err),
		)
		return fmt.Errorf("snapshot recalculation failed for pick %s: %w", pick.EventID, err)
	}

	metrics.RecordPickProcessed()
	w.logger.Debug(ctx, "pick processed",
		logger.String("event_id", pick.EventID),
		logger.String("player_id", pick.PlayerID),
		logger.Uint64("seq", snapshot.Seq),
		logger.Float64("overall", snapshot.Overall),
	)
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	// Shutdown control
	shutdown chan struct{}
	stopOnce sync.Once

	// Logging
	logger logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(workerCount int, queue Queue, recorder Recorder, recalc Recalculator) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    queue,
		shutdown: make(chan struct{}),
		logger:   logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(
			queue,
			recorder,
			recalc,
			WithName("worker-"+strconv.Itoa(i)),
		)
	}

	// Initialize worker metrics
	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	metrics.UpdateWorkerIdleCount(workerCount)

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}

	// Start metrics updater
	go p.startMetricsUpdater(ctx)
}

// startMetricsUpdater starts a background goroutine that updates worker metrics.
func (p *Pool) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case <-ticker.C:
			p.updateMetrics()
		}
	}
}

// updateMetrics refreshes the worker gauges from each worker's busy flag.
func (p *Pool) updateMetrics() {
	active := 0
	for _, worker := range p.workers {
		if worker.busy.Load() {
			active++
		}
	}
	metrics.UpdateWorkerCount(len(p.workers))
	metrics.UpdateWorkerActiveCount(active)
	metrics.UpdateWorkerIdleCount(len(p.workers) - active)
}

// Stop gracefully stops all workers.
func (p *Pool) Stop() {
	// Stop the metrics updater
	p.stopOnce.Do(func() {
		close(p.shutdown)
	})

	// Signal and wait for each worker
	ctx, cancel := context.WithTimeout(context.Background(), workerShutdownTimeout)
	defer cancel()
	for _, worker := range p.workers {
		_ = worker.Shutdown(ctx)
	}
}

// Shutdown gracefully shuts down the entire worker pool.
func (p *Pool) Shutdown(ctx context.Context) error {
	// First close the queue to stop new picks
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	// Stop the metrics updater
	p.stopOnce.Do(func() {
		close(p.shutdown)
	})

	// Wait for all workers to finish or context to timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, worker := range p.workers {
		if err := worker.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}

	return nil
}
