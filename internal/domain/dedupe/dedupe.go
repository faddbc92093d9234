// Package dedupe defines the interface for idempotency tracking.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Default deduper configuration.
const (
	defaultMaxSize = 50000
)

// Deduper records seen pick event IDs to ensure at-most-once processing.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	// This is the ONLY method for deduplication - thread-safe and atomic.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord removes an ID from the seen list, allowing it to be retried.
	// This should only be used when a pick was marked as seen but failed
	// to be processed (e.g., queue backpressure).
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// inMemoryDeduper implements Deduper backed by a map plus a ring of slots.
// For bounded mode (maxSize > 0): the ring holds insertion order and the
// oldest live entry is evicted when a slot is reused.
// For unbounded mode (maxSize <= 0): map only (no eviction, no size limit).
type inMemoryDeduper struct {
	mu      sync.RWMutex
	seen    map[string]int // id -> ring slot in bounded mode, -1 in unbounded
	ring    []string       // insertion-ordered slots, reused circularly
	next    int            // next ring slot to write
	full    bool           // ring has wrapped at least once
	maxSize int            // maximum number of IDs to keep (0 or negative = UNBOUNDED)
	size    atomic.Int64   // current number of live entries (atomic)
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
	}

	// Apply all options
	for _, opt := range opts {
		opt(d)
	}

	d.seen = make(map[string]int)
	if d.maxSize > 0 {
		d.ring = make([]string, d.maxSize)
	}

	return d
}

// SeenAndRecord atomically checks if id was seen and records it if not.
// This is the ONLY method for deduplication.
// Returns true if id was already seen, false if it was newly recorded.
func (d *inMemoryDeduper) SeenAndRecord(ctx context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[id]; exists {
		return true // Already seen
	}

	if d.maxSize > 0 {
		// BOUNDED MODE: claim the next ring slot, evicting whatever live
		// entry still owns it. Slots freed by Unrecord hold stale ids; the
		// slot-index check below keeps a stale string from evicting a
		// re-recorded id that now lives in a newer slot.
		slot := d.next
		if d.full {
			old := d.ring[slot]
			if j, ok := d.seen[old]; ok && j == slot {
				delete(d.seen, old)
				d.size.Add(-1)
			}
		}

		d.ring[slot] = id
		d.seen[id] = slot
		d.next++
		if d.next == d.maxSize {
			d.next = 0
			d.full = true
		}
	} else {
		// UNBOUNDED MODE: just use the map
		d.seen[id] = -1
	}
	d.size.Add(1)
	return false // Newly recorded
}

// Unrecord removes an ID from the seen list, allowing it to be retried.
func (d *inMemoryDeduper) Unrecord(ctx context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[id]; !exists {
		return
	}
	// The ring slot keeps the stale string; it is ignored on reuse because
	// the id no longer maps to it.
	delete(d.seen, id)
	d.size.Add(-1)
}

// Size returns the current number of entries in the deduper.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
