package draftsim

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// Generator produces a synthetic auction from a seed. The same seed
// yields the same pool, the same picks, and the same event ids, which
// is what makes replaying a run against the dedupe layer meaningful.
type Generator struct {
	cfg Config
	rng *rand.Rand
}

// NewGenerator creates a generator for the given configuration
func NewGenerator(cfg Config) *Generator {
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewPCG(cfg.Seed, cfg.Seed)),
	}
}

// GeneratePool builds the projection pool. Values follow a decaying
// curve so the pool has a few expensive players and a long cheap tail,
// roughly the shape of a real auction sheet. Every third row carries an
// explicit tier, the rest are left for the service to classify.
func (g *Generator) GeneratePool() []ProjectionRow {
	n := g.cfg.Players
	values := make([]float64, n)
	for i := 0; i < n; i++ {
		base := topProjectedValue * math.Exp(-valueDecay*float64(i)/float64(n))
		noise := 1 + (g.rng.Float64()*2-1)*valueNoise
		v := base * noise
		if v < minProjectedValue {
			v = minProjectedValue
		}
		values[i] = math.Round(v*100) / 100
	}

	pool := make([]ProjectionRow, n)
	for i := 0; i < n; i++ {
		row := ProjectionRow{
			PlayerID:       fmt.Sprintf("player-%04d", i+1),
			ProjectedValue: values[i],
		}
		if i%3 == 0 {
			row.Tier = classifyTier(percentileOf(values, values[i]))
		}
		pool[i] = row
	}
	return pool
}

// GeneratePicks selects distinct players from the pool and prices each
// at a jittered multiple of its projection. One pick per player: a sold
// player leaves the pool, so a second pick for the same id would be a
// different auction.
func (g *Generator) GeneratePicks(pool []ProjectionRow) []Pick {
	count := g.cfg.Picks
	if count > len(pool) {
		count = len(pool)
	}

	prefix := g.cfg.DraftID
	if prefix == "" {
		prefix = "sim"
	}

	order := g.rng.Perm(len(pool))
	base := time.Now().UTC()

	picks := make([]Pick, count)
	for i := 0; i < count; i++ {
		row := pool[order[i]]
		jitter := priceJitterMin + g.rng.Float64()*(priceJitterMax-priceJitterMin)
		price := math.Round(row.ProjectedValue*jitter*100) / 100
		picks[i] = Pick{
			EventID:  fmt.Sprintf("%s-%x-%04d", prefix, g.cfg.Seed, i),
			PlayerID: row.PlayerID,
			Price:    price,
			TS:       base.Add(time.Duration(i) * time.Second).Format(time.RFC3339),
		}
	}
	return picks
}

// Pool shape parameters. The top value and decay put roughly the first
// tenth of the pool above half the top price, matching how auction
// value sheets concentrate money in a short head.
const (
	topProjectedValue = 60.0
	valueDecay        = 3.0
	valueNoise        = 0.10
	minProjectedValue = 1.0

	priceJitterMin = 0.85
	priceJitterMax = 1.25
)
