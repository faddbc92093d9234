// Package pubsub fans inflation snapshots out to live consumers.
//
// The Broker keeps an in-process subscriber registry that feeds the
// SSE stream, and optionally forwards every snapshot to an external
// upstream (NATS) for other services. Local delivery never blocks: a
// subscriber that cannot keep up skips intermediate snapshots and
// resumes with the next one it can accept, which is the right trade
// for a live ticker where only the latest state matters.
package pubsub

import (
	"context"
	"sync"

	"github.com/gavelhq/gavel/internal/domain/model"
	"github.com/gavelhq/gavel/pkg/logger"
	"github.com/gavelhq/gavel/pkg/metrics"
)

// Constants for broker configuration.
const (
	// defaultBufferSize is the per-subscriber channel buffer. A small
	// buffer absorbs scheduling jitter without letting a dead consumer
	// hold stale snapshots alive.
	defaultBufferSize = 16
)

// Upstream exports snapshots beyond the process boundary.
type Upstream interface {
	Publish(ctx context.Context, snapshot model.InflationSnapshot) error
	Close()
}

// Broker delivers each published snapshot to every active subscriber.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[uint64]chan model.InflationSnapshot
	nextID      uint64
	closed      bool

	bufferSize int
	upstream   Upstream
	log        logger.Logger
}

// NewBroker creates a broker with the given options applied.
func NewBroker(opts ...Option) *Broker {
	b := &Broker{
		subscribers: make(map[uint64]chan model.InflationSnapshot),
		bufferSize:  defaultBufferSize,
		log:         logger.Get().Named("pubsub"),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Subscribe registers a new consumer and returns its snapshot channel
// together with a cancel function. Cancel is idempotent and closes the
// channel. Subscribing to a closed broker yields an already-closed
// channel so shutdown races resolve to an immediately-ending stream.
func (b *Broker) Subscribe() (<-chan model.InflationSnapshot, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan model.InflationSnapshot)
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	ch := make(chan model.InflationSnapshot, b.bufferSize)
	b.subscribers[id] = ch
	metrics.UpdateSubscriberCount(len(b.subscribers))

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(sub)
			metrics.UpdateSubscriberCount(len(b.subscribers))
		}
	}

	return ch, cancel
}

// Publish fans the snapshot out to all local subscribers and then to
// the upstream when one is configured. Upstream failures are counted
// and logged but never propagate: a flaky export must not stall pick
// processing.
func (b *Broker) Publish(ctx context.Context, snapshot model.InflationSnapshot) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	// Sends happen under the read lock so a concurrent cancel (which
	// needs the write lock to close its channel) cannot race a send
	// on a closed channel.
	for _, ch := range b.subscribers {
		select {
		case ch <- snapshot:
		default:
		}
	}
	b.mu.RUnlock()

	if b.upstream == nil {
		return
	}

	if err := b.upstream.Publish(ctx, snapshot); err != nil {
		metrics.RecordUpstreamPublishError()
		metrics.RecordErrorByComponent("pubsub", "upstream_publish")
		b.log.Warn(ctx, "upstream publish failed",
			logger.String("draft_id", snapshot.DraftID),
			logger.Uint64("seq", snapshot.Seq),
			logger.Error(err))
		return
	}
	metrics.RecordUpstreamPublish()
}

// SubscriberCount returns the number of active subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close terminates all subscriber channels and shuts down the
// upstream. Safe to call more than once.
func (b *Broker) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for id, ch := range b.subscribers {
		delete(b.subscribers, id)
		close(ch)
	}
	metrics.UpdateSubscriberCount(0)
	b.mu.Unlock()

	if b.upstream != nil {
		b.upstream.Close()
	}
}
