package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gavelhq/gavel/internal/draftsim"
)

var cfg = draftsim.Config{}

var rootCmd = &cobra.Command{
	Use:   "draftsim",
	Short: "Simulate an auction draft against a running gavel service",
	Long: `draftsim generates a synthetic projection pool and pick stream from a
seed, drives them through the gavel HTTP API, waits for the pipeline to
drain, and verifies the reported inflation figures against a local
re-derivation of the same math.

The run expects a freshly started service: it reconfigures the draft
room, which resets any purchase state. Rerunning the same seed against
a service that already ingested it makes every pick ack as a duplicate,
which exercises the idempotent ingestion path but skips the numeric
verification.`,
	Example: `  # default run against a local service
  draftsim

  # a bigger, faster auction
  draftsim --players 500 --picks 300 --workers 16

  # replay the same auction to watch the dedupe layer absorb it
  draftsim --seed 99 && draftsim --seed 99`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := draftsim.SetupLogging(cfg.Verbose); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return draftsim.NewRunner(cfg).Run(ctx)
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&cfg.BaseURL, "base-url", draftsim.DefaultBaseURL, "base URL of the gavel service")
	flags.StringVar(&cfg.DraftID, "draft-id", draftsim.DefaultDraftID, "draft id to configure (empty lets the server assign one)")
	flags.IntVar(&cfg.Players, "players", draftsim.DefaultPlayers, "size of the generated projection pool")
	flags.IntVar(&cfg.Picks, "picks", draftsim.DefaultPicks, "number of picks to submit (capped at the pool size)")
	flags.Float64Var(&cfg.TotalBudget, "budget", draftsim.DefaultTotalBudget, "league-wide auction budget")
	flags.IntVar(&cfg.TotalSlots, "slots", draftsim.DefaultTotalSlots, "league-wide roster slots")
	flags.IntVar(&cfg.Workers, "workers", draftsim.DefaultWorkers, "concurrent pick submitters")
	flags.DurationVar(&cfg.Timeout, "timeout", draftsim.DefaultTimeout, "per-request HTTP timeout")
	flags.IntVar(&cfg.TopN, "top", draftsim.DefaultTopN, "board entries to fetch and check")
	flags.Uint64Var(&cfg.Seed, "seed", draftsim.DefaultSeed, "generator seed; the same seed replays the identical auction")
	flags.StringVar(&cfg.OutputFile, "output", draftsim.DefaultOutputFile, "file for the run artifact (empty disables saving)")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", false, "enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
