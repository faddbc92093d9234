// Package repository defines the draft board store interface and errors.
package repository

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gavelhq/gavel/internal/domain/model"
	"github.com/gavelhq/gavel/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Ordering: projected value DESC, then playerID ASC (deterministic).
// We implement a BST comparator where "less" means ranks earlier
// (i.e., higher projected value ranks earlier). This makes in-order
// traversal produce the board from best to worst available player.

// valueScale controls fixed-point scaling from float64. Auction values are
// currency amounts, so 9 decimal places is far more precision than any
// projection source provides.
const valueScale = 1_000_000_000

// Default store configuration.
const (
	defaultSnapshotInterval = 1 * time.Second
	defaultTopCacheSize     = 300
)

type valueFP int64

func toFixedPoint(x float64) valueFP {
	if math.IsNaN(x) {
		return 0
	}
	if math.IsInf(x, 1) {
		return valueFP(math.MaxInt64)
	}
	if math.IsInf(x, -1) {
		return valueFP(math.MinInt64)
	}

	scaled := math.Round(x * valueScale)
	if scaled >= float64(math.MaxInt64) {
		return valueFP(math.MaxInt64)
	}
	if scaled <= float64(math.MinInt64) {
		return valueFP(math.MinInt64)
	}
	return valueFP(scaled)
}

func toFloat(x valueFP) float64 {
	return float64(x) / valueScale
}

// record stores the fixed-point value plus the tier tag for an available
// player.
type record struct {
	value valueFP
	tier  model.ValueTier
}

// BoardSnapshot is an immutable view of the board published periodically
// for cheap dashboard and stats reads.
type BoardSnapshot struct {
	// Rank and value in O(1) for reads
	RankByPlayer  map[string]int
	ValueByPlayer map[string]float64

	// Fast Top-K cache up to M items
	TopCache []Entry // sorted by projected value desc
}

// treap node
type node struct {
	id    string
	value valueFP
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aValue, aID) should appear before (bValue, bID)
// on the board (better players first).
func less(aValue valueFP, aID string, bValue valueFP, bID string) bool {
	if aValue != bValue {
		return aValue > bValue // higher projected value ranks earlier
	}
	return aID < bID // tie-breaker by id asc
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id string, value valueFP) *node {
	if n == nil {
		return &node{id: id, value: value, prio: rand.Uint64(), size: 1}
	}
	if less(value, id, n.value, n.id) {
		n.left = insert(n.left, id, value)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, value)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, value valueFP) *node {
	if n == nil {
		return nil
	}
	if value == n.value && id == n.id {
		// Merge children by rotating highest priority up until leaf.
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, value)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, value)
		}
	} else if less(value, id, n.value, n.id) {
		n.left = deleteNode(n.left, id, value)
	} else {
		n.right = deleteNode(n.right, id, value)
	}
	fix(n)
	return n
}

// rankOf returns the 1-based board position of (id, value), or 0 if the
// player is not in the treap. O(log n) via subtree sizes.
func rankOf(n *node, id string, value valueFP) int {
	rank := 1
	for n != nil {
		if value == n.value && id == n.id {
			return rank + nsize(n.left)
		}
		if less(value, id, n.value, n.id) {
			n = n.left
		} else {
			rank += nsize(n.left) + 1
			n = n.right
		}
	}
	return 0
}

// collectTopN appends up to limit entries in board order (best players
// first). Ranks are assigned by the caller from slice positions.
func collectTopN(n *node, limit int, available map[string]record, out *[]Entry) {
	if n == nil || len(*out) >= limit {
		return
	}

	// Traverse left subtree first (higher values, or same value with lower ID)
	collectTopN(n.left, limit, available, out)

	if len(*out) < limit {
		if rec, exists := available[n.id]; exists {
			*out = append(*out, Entry{PlayerID: n.id, ProjectedValue: toFloat(rec.value), Tier: rec.tier})
		}
	}

	if len(*out) < limit {
		collectTopN(n.right, limit, available, out)
	}
}

type TreapStore struct {
	mu        sync.RWMutex
	root      *node
	available map[string]record                // players still on the board
	pool      []model.ProjectionEntry          // loaded projection pool, load order
	poolByID  map[string]model.ProjectionEntry // pool indexed by player id
	purchases []model.DraftedPurchase
	purchased map[string]struct{}
	state     model.DraftState

	snapshotInterval time.Duration // how often to publish a board snapshot
	topCacheSize     int           // board rows kept per snapshot

	// snapshot is an atomic pointer to the latest BoardSnapshot
	snapshot atomic.Pointer[BoardSnapshot]

	// Periodic snapshot management
	wg       sync.WaitGroup
	stopChan chan struct{}
}

// NewTreapStore constructs a treap store with configuration options.
func NewTreapStore(ctx context.Context, opts ...Option) *TreapStore {
	s := &TreapStore{
		snapshotInterval: defaultSnapshotInterval,
		topCacheSize:     defaultTopCacheSize,
		available:        make(map[string]record),
		poolByID:         make(map[string]model.ProjectionEntry),
		purchased:        make(map[string]struct{}),
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	// Initialize stop channel and start the background snapshot goroutine
	s.stopChan = make(chan struct{})
	s.startBackground(ctx)

	return s
}

// startBackground starts a goroutine that publishes board snapshots and
// refreshes store gauges at the configured interval.
func (s *TreapStore) startBackground(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.snapshotInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.publishSnapshot()
				s.updateGauges()
			}
		}
	}()
}

// publishSnapshot rebuilds and publishes a new board snapshot.
func (s *TreapStore) publishSnapshot() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.publishSnapshotLocked()
}

// publishSnapshotLocked rebuilds the snapshot. Caller must hold at least a
// read lock.
func (s *TreapStore) publishSnapshotLocked() {
	// Top-M cache for fast dashboard queries
	topCache := make([]Entry, 0, s.topCacheSize)
	collectTopN(s.root, s.topCacheSize, s.available, &topCache)
	for i := range topCache {
		topCache[i].Rank = i + 1
	}

	// Full rank and value maps; in-order traversal is already board order
	all := make([]Entry, 0, len(s.available))
	collectAll(s.root, s.available, &all)

	rankByPlayer := make(map[string]int, len(all))
	valueByPlayer := make(map[string]float64, len(all))
	for i, entry := range all {
		rankByPlayer[entry.PlayerID] = i + 1
		valueByPlayer[entry.PlayerID] = entry.ProjectedValue
	}

	s.snapshot.Store(&BoardSnapshot{
		RankByPlayer:  rankByPlayer,
		ValueByPlayer: valueByPlayer,
		TopCache:      topCache,
	})
}

// updateGauges refreshes the store-owned metrics gauges.
func (s *TreapStore) updateGauges() {
	s.mu.RLock()
	poolSize := len(s.pool)
	purchaseCount := len(s.purchases)
	spent := s.state.SpentBudget
	remaining := s.state.TotalBudget - s.state.SpentBudget
	s.mu.RUnlock()

	metrics.UpdatePoolSize(poolSize)
	metrics.UpdatePurchaseCount(purchaseCount)
	metrics.UpdateBudgetSpent(spent)
	metrics.UpdateBudgetRemaining(remaining)
}

// Board returns the latest published board snapshot. Never nil; before the
// first publish it returns an empty snapshot.
func (s *TreapStore) Board() *BoardSnapshot {
	if snap := s.snapshot.Load(); snap != nil {
		return snap
	}
	return &BoardSnapshot{
		RankByPlayer:  map[string]int{},
		ValueByPlayer: map[string]float64{},
	}
}

// Close gracefully shuts down the background snapshot goroutine.
func (s *TreapStore) Close() error {
	select {
	case <-s.stopChan:
		// Channel already closed
	default:
		close(s.stopChan)
	}
	s.wg.Wait()
	return nil
}

// ReplaceProjections implements Store.ReplaceProjections. The whole pool
// is swapped; purchased players stay off the board.
func (s *TreapStore) ReplaceProjections(ctx context.Context, entries []model.ProjectionEntry) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	pool := make([]model.ProjectionEntry, len(entries))
	copy(pool, entries)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pool = pool
	s.poolByID = make(map[string]model.ProjectionEntry, len(pool))
	s.available = make(map[string]record, len(pool))
	s.root = nil

	for _, entry := range pool {
		// Last write wins on duplicate player ids
		if prev, ok := s.poolByID[entry.PlayerID]; ok {
			s.root = deleteNode(s.root, entry.PlayerID, toFixedPoint(prev.ProjectedValue))
			delete(s.available, entry.PlayerID)
		}
		s.poolByID[entry.PlayerID] = entry

		if _, gone := s.purchased[entry.PlayerID]; gone {
			continue
		}
		fp := toFixedPoint(entry.ProjectedValue)
		s.available[entry.PlayerID] = record{value: fp, tier: entry.Tier}
		s.root = insert(s.root, entry.PlayerID, fp)
	}

	s.publishSnapshotLocked()
	return nil
}

// RecordPurchase implements Store.RecordPurchase.
func (s *TreapStore) RecordPurchase(ctx context.Context, p model.DraftedPurchase) (bool, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	price := p.ActualPrice
	if math.IsNaN(price) || math.IsInf(price, 0) {
		price = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.purchases = append(s.purchases, p)
	s.state.SpentBudget += price
	s.state.SlotsFilled++

	onBoard := false
	if rec, ok := s.available[p.PlayerID]; ok {
		s.root = deleteNode(s.root, p.PlayerID, rec.value)
		delete(s.available, p.PlayerID)
		onBoard = true
	}
	s.purchased[p.PlayerID] = struct{}{}

	return onBoard, nil
}

// ConfigureDraft implements Store.ConfigureDraft. The purchase log is
// cleared and every pooled player goes back on the board.
func (s *TreapStore) ConfigureDraft(ctx context.Context, draftID string, totalBudget float64, totalSlots int) error {
	if totalBudget <= 0 || totalSlots <= 0 || math.IsNaN(totalBudget) || math.IsInf(totalBudget, 0) {
		return ErrInvalidDraft
	}

	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = model.DraftState{
		DraftID:     draftID,
		TotalBudget: totalBudget,
		TotalSlots:  totalSlots,
	}
	s.purchases = nil
	s.purchased = make(map[string]struct{})

	s.available = make(map[string]record, len(s.poolByID))
	s.root = nil
	for id, entry := range s.poolByID {
		fp := toFixedPoint(entry.ProjectedValue)
		s.available[id] = record{value: fp, tier: entry.Tier}
		s.root = insert(s.root, id, fp)
	}

	s.publishSnapshotLocked()
	return nil
}

// Projections implements Store.Projections.
func (s *TreapStore) Projections(ctx context.Context) []model.ProjectionEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.ProjectionEntry, len(s.pool))
	copy(out, s.pool)
	return out
}

// Purchases implements Store.Purchases.
func (s *TreapStore) Purchases(ctx context.Context) []model.DraftedPurchase {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.DraftedPurchase, len(s.purchases))
	copy(out, s.purchases)
	return out
}

// DraftState implements Store.DraftState.
func (s *TreapStore) DraftState(ctx context.Context) model.DraftState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// TopAvailable implements Store.TopAvailable in O(n + log n) for the
// traversal bounded by n.
func (s *TreapStore) TopAvailable(ctx context.Context, n int) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	if n < 1 {
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, n)
	collectTopN(s.root, n, s.available, &out)
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, nil
}

// Rank implements Store.Rank in O(log n) via treap subtree sizes.
func (s *TreapStore) Rank(ctx context.Context, playerID string) (Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.available[playerID]
	if !ok {
		return Entry{}, ErrNotFound
	}

	return Entry{
		Rank:           rankOf(s.root, playerID, rec.value),
		PlayerID:       playerID,
		ProjectedValue: toFloat(rec.value),
		Tier:           rec.tier,
	}, nil
}

// Count returns the number of players still on the board.
func (s *TreapStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.available)
}

// collectAll appends all entries in board order (best players first).
func collectAll(n *node, available map[string]record, out *[]Entry) {
	if n == nil {
		return
	}
	collectAll(n.left, available, out)
	if rec, ok := available[n.id]; ok {
		*out = append(*out, Entry{
			PlayerID:       n.id,
			ProjectedValue: toFloat(rec.value),
			Tier:           rec.tier,
		})
	}
	collectAll(n.right, available, out)
}
