package draftsim

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/gavelhq/gavel/pkg/logger"
)

// Runner executes one simulated auction end to end: configure the
// draft, load a generated pool, push picks through the API, wait for
// the pipeline to drain, then verify the service's figures against a
// local re-derivation.
type Runner struct {
	cfg    Config
	client *Client
	log    logger.Logger
}

// NewRunner creates a runner for the given configuration
func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:    cfg,
		client: NewClient(cfg),
		log:    logger.Named("draftsim"),
	}
}

// RunArtifact is the on-disk record of one run. Replaying the picks
// from a saved artifact (or rerunning the same seed) exercises the
// dedupe path: every pick should come back as a duplicate.
type RunArtifact struct {
	Seed     uint64          `json:"seed"`
	DraftID  string          `json:"draft_id"`
	Pool     []ProjectionRow `json:"projections"`
	Picks    []Pick          `json:"picks"`
	Snapshot Snapshot        `json:"snapshot"`
	Board    []BoardEntry    `json:"board"`
	Stats    ArtifactStats   `json:"stats"`
}

// ArtifactStats summarizes the submission phase inside the artifact
type ArtifactStats struct {
	Submitted  int     `json:"submitted"`
	Successful int     `json:"successful"`
	Duplicate  int     `json:"duplicate"`
	Failed     int     `json:"failed"`
	DurationMS float64 `json:"duration_ms"`
	P95MS      float64 `json:"p95_ms"`
}

// Run drives the full cycle and returns an error when any phase fails
// or the verification finds a disagreement
func (r *Runner) Run(ctx context.Context) error {
	start := time.Now()

	readyCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err := r.client.WaitReady(readyCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("waiting for service: %w", err)
	}

	draftID, err := r.client.ConfigureDraft(ctx, r.cfg)
	if err != nil {
		return fmt.Errorf("configuring draft: %w", err)
	}
	r.log.Info(ctx, "draft configured",
		logger.String("draft_id", draftID),
		logger.Float64("total_budget", r.cfg.TotalBudget),
		logger.Int("total_slots", r.cfg.TotalSlots))

	gen := NewGenerator(r.cfg)
	pool := gen.GeneratePool()
	picks := gen.GeneratePicks(pool)
	r.log.Info(ctx, "auction generated",
		logger.Uint64("seed", r.cfg.Seed),
		logger.Int("players", len(pool)),
		logger.Int("picks", len(picks)))

	count, err := r.client.LoadProjections(ctx, pool)
	if err != nil {
		return fmt.Errorf("loading projections: %w", err)
	}
	if count != len(pool) {
		return fmt.Errorf("loading projections: loaded %d of %d rows", count, len(pool))
	}

	fmt.Printf("submitting %d picks with %d workers\n", len(picks), r.cfg.Workers)
	result := r.client.SubmitPicks(ctx, picks, r.cfg.Workers)
	r.log.Info(ctx, "submission finished",
		logger.Int("successful", result.Successful),
		logger.Int("duplicate", result.Duplicate),
		logger.Int("failed", result.Failed))

	snap, err := r.drain(ctx, result.Successful)
	if err != nil {
		return err
	}

	board, err := r.client.Board(ctx, r.cfg.TopN)
	if err != nil {
		return fmt.Errorf("fetching board: %w", err)
	}

	verified, err := r.verify(ctx, pool, picks, result, snap, board)
	if err != nil {
		return err
	}

	duration := time.Since(start)
	r.printSummary(result, snap, duration, verified)

	if r.cfg.OutputFile != "" {
		artifact := RunArtifact{
			Seed:     r.cfg.Seed,
			DraftID:  draftID,
			Pool:     pool,
			Picks:    picks,
			Snapshot: snap,
			Board:    board,
			Stats: ArtifactStats{
				Submitted:  len(picks),
				Successful: result.Successful,
				Duplicate:  result.Duplicate,
				Failed:     result.Failed,
				DurationMS: float64(duration.Milliseconds()),
				P95MS:      float64(latencyAt(result.Latencies, 0.95).Microseconds()) / 1000.0,
			},
		}
		if err := saveArtifact(r.cfg.OutputFile, artifact); err != nil {
			return fmt.Errorf("saving run artifact: %w", err)
		}
		r.log.Info(ctx, "run artifact saved", logger.String("file", r.cfg.OutputFile))
	}
	return nil
}

// drain polls the snapshot endpoint until the purchase count catches up
// with the accepted picks. Acceptance is asynchronous; the snapshot is
// the only signal that the pipeline has applied everything.
func (r *Runner) drain(ctx context.Context, wanted int) (Snapshot, error) {
	deadline := time.Now().Add(DrainTimeout)
	ticker := time.NewTicker(DrainPollInterval)
	defer ticker.Stop()

	var last Snapshot
	for {
		snap, status, err := r.client.Snapshot(ctx)
		if err == nil && status == StatusOK {
			last = snap
			if snap.Purchases >= wanted {
				return snap, nil
			}
		}
		if time.Now().After(deadline) {
			return last, fmt.Errorf("drain timed out: %d of %d picks applied after %s",
				last.Purchases, wanted, DrainTimeout)
		}
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-ticker.C:
		}
	}
}

// verify runs the local re-derivation when the room is clean. Duplicate
// acks mean the service already held state from an earlier run with
// this seed, and failures mean only part of the auction applied; either
// way the local model no longer matches what the service saw, so the
// numeric checks would only produce noise.
func (r *Runner) verify(ctx context.Context, pool []ProjectionRow, picks []Pick, result SubmitResult, snap Snapshot, board []BoardEntry) (bool, error) {
	if result.Duplicate > 0 || result.Failed > 0 {
		r.log.Warn(ctx, "skipping verification",
			logger.Int("duplicate", result.Duplicate),
			logger.Int("failed", result.Failed))
		return false, nil
	}

	report := VerifySnapshot(r.cfg, pool, picks, snap)
	boardReport := VerifyBoard(pool, picks, board, r.cfg.TopN)
	report.Checks += boardReport.Checks
	report.Failures = append(report.Failures, boardReport.Failures...)

	if len(board) > 0 {
		entry, err := r.client.Rank(ctx, board[0].PlayerID)
		if err != nil {
			return false, fmt.Errorf("rank lookup: %w", err)
		}
		report.check(entry.Rank == 1,
			"rank: board leader %s ranked %d", board[0].PlayerID, entry.Rank)
	}

	if !report.OK() {
		for _, f := range report.Failures {
			fmt.Printf("  FAIL %s\n", f)
		}
		return false, fmt.Errorf("verification failed: %d of %d checks", len(report.Failures), report.Checks)
	}
	r.log.Info(ctx, "verification passed", logger.Int("checks", report.Checks))
	return true, nil
}

func (r *Runner) printSummary(result SubmitResult, snap Snapshot, duration time.Duration, verified bool) {
	fmt.Println()
	fmt.Println("=== draft simulation summary ===")
	fmt.Printf("draft:        %s (seq %d)\n", snap.DraftID, snap.Seq)
	fmt.Printf("picks:        %d ok, %d duplicate, %d failed\n",
		result.Successful, result.Duplicate, result.Failed)
	fmt.Printf("inflation:    %+.4f overall\n", snap.Overall)
	for _, tier := range []string{TierElite, TierMid, TierLower} {
		fmt.Printf("  %-11s %+.4f\n", tier+":", snap.ByTier[tier])
	}
	fmt.Printf("depletion:    %.3fx (%.0f spent, %.0f remaining, %.0f slots)\n",
		snap.Depletion.Multiplier, snap.Depletion.Spent,
		snap.Depletion.Remaining, snap.Depletion.SlotsRemaining)
	if len(result.Latencies) > 0 {
		fmt.Printf("latency:      p50 %s  p95 %s  p99 %s  max %s\n",
			latencyAt(result.Latencies, 0.50),
			latencyAt(result.Latencies, 0.95),
			latencyAt(result.Latencies, 0.99),
			latencyAt(result.Latencies, 1.0))
	}
	fmt.Printf("duration:     %s\n", duration.Round(time.Millisecond))
	if verified {
		fmt.Println("verification: passed")
	} else {
		fmt.Println("verification: skipped")
	}
}

// latencyAt returns the q-quantile of the recorded latencies. The input
// is copied so repeated calls do not disturb the caller's slice.
func latencyAt(latencies []time.Duration, q float64) time.Duration {
	if len(latencies) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(latencies))
	copy(sorted, latencies)
	slices.Sort(sorted)

	idx := int(float64(len(sorted)) * q)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func saveArtifact(path string, artifact RunArtifact) error {
	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}
