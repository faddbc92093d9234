// Package queue defines the contract for enqueuing and consuming pick
// events.
//
// Implementations may use channels or more advanced structures. The
// in-memory bounded queue is enough for a single draft room feed.
package queue

import (
	"context"
	"sync"

	"github.com/gavelhq/gavel/internal/domain/model"
	"github.com/gavelhq/gavel/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 65536
	defaultBufferSize    = 65536
)

// Pick represents the payload type flowing through the queue.
// Using the model.PickEvent type for type safety.
type Pick = model.PickEvent

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a pick to the queue.
	// Returns false if the queue is full and the pick was not enqueued.
	Enqueue(ctx context.Context, p Pick) bool

	// Dequeue returns a channel that will receive picks as they become available.
	// The channel will be closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Pick

	// Len returns the current number of queued picks.
	Len(ctx context.Context) int

	// Close gracefully shuts down the queue.
	// After closing, no new picks can be enqueued and the dequeue channel will be closed.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	picks      chan Pick
	capacity   int
	bufferSize int
	mu         sync.RWMutex
	closed     bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity:   defaultQueueCapacity,
		bufferSize: defaultBufferSize,
	}

	// Apply all options
	for _, opt := range opts {
		opt(q)
	}

	// Initialize the picks channel with the configured buffer size
	q.picks = make(chan Pick, q.bufferSize)

	// Initialize metrics
	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0.0)

	return q
}

// Enqueue adds a pick to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, p Pick) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return false
	}

	// Check if we're at capacity
	if len(q.picks) >= q.capacity {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "capacity_exceeded")
		return false
	}

	select {
	case q.picks <- p:
		metrics.RecordQueueEnqueue()
		currentSize := len(q.picks)
		metrics.UpdateQueueSize(currentSize)
		metrics.UpdateQueueUtilization(float64(currentSize) / float64(q.capacity))
		return true
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return false // context cancelled
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return false // queue is full
	}
}

// Dequeue returns a channel that will receive picks as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Pick {
	// Wrap the channel to track dequeue metrics
	dequeueChan := make(chan Pick)
	go func() {
		defer close(dequeueChan)
		for pick := range q.picks {
			select {
			case dequeueChan <- pick:
				metrics.RecordQueueDequeue()
				currentSize := len(q.picks)
				metrics.UpdateQueueSize(currentSize)
				metrics.UpdateQueueUtilization(float64(currentSize) / float64(q.capacity))
			case <-ctx.Done():
				return
			}
		}
	}()
	return dequeueChan
}

// Len returns the current number of queued picks.
func (q *InMemoryQueue) Len(ctx context.Context) int {
	size := len(q.picks)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
	return size
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil // already closed
	}

	// Close the picks channel to signal consumers to stop
	close(q.picks)
	q.closed = true

	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
