package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rwaltman/basisengine/internal/engine"
	"github.com/rwaltman/basisengine/internal/store"
	"github.com/rwaltman/basisengine/pkg/config"
	"github.com/rwaltman/basisengine/pkg/database"
	"github.com/rwaltman/basisengine/pkg/logger"
)

// runCmd executes one refresh cycle and prints the ranked result.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one refresh cycle and print the ranked opportunities",
	Long: `Runs a single cycle against the configured market-data sources:
quote snapshot, curve bootstrap, CTD selection, pair pricing and ranking.
No database required; results go to stdout.

Example:
  basisengine run
  basisengine run --strategy config/strategy/treasury_basis_v1.yaml
  basisengine run --dry-run=false   # persist the cycle to postgres`,
	RunE: runOnce,
}

var runDryRun bool

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runDryRun, "dry-run", true, "skip database persistence")
}

func runOnce(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	strategy, hash, err := loadStrategy(log)
	if err != nil {
		return err
	}

	deps := newFeedDeps(cfg, log)
	if !runDryRun {
		db, err := database.New(cfg)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()
		if err := store.Migrate(context.Background(), db.Pool); err != nil {
			return fmt.Errorf("migrate schema: %w", err)
		}
		deps = withStores(deps, db, nil)
	}

	eng, err := engine.New(strategy, hash, deps, log)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	snap, err := eng.RunCycle(ctx)
	if err != nil {
		return fmt.Errorf("refresh cycle: %w", err)
	}

	printSnapshot(snap)
	return nil
}

func printSnapshot(snap *engine.Snapshot) {
	fmt.Printf("Curve as of %s  (%d nodes, %d excluded, %d quotes rejected)\n",
		snap.CurveAsOf.Format(time.RFC3339), snap.Curve.NodeCount(), len(snap.Exclusions), len(snap.Rejected))

	fmt.Println("\nCTD selections:")
	for tenor, r := range snap.CTDs {
		fmt.Printf("  %-4s %-8s cusip=%s cf=%.4f irr=%+.6f netbasis=%+.6f fdv01=%.6f\n",
			tenor, r.Contract, r.CUSIP, r.ConversionFactor, r.ImpliedRepo, r.NetBasis, r.FuturesDV01)
	}

	fmt.Printf("\nRanked opportunities (%d):\n", len(snap.Opportunities))
	for _, o := range snap.Opportunities {
		fmt.Printf("  #%d %-8s theo=%+.6f obs=%+.6f edge=%+.4fbp net=%+.6f size=%+d/%+d overlay=%+.2f [%s]\n",
			o.Rank, o.PairKey(), o.TheoreticalPrice, o.ObservedPrice, o.EdgeBps, o.NetEdge,
			o.Near.Qty, o.Far.Qty, o.NetOverlay, o.Compliance)
	}

	if len(snap.Orders) > 0 {
		fmt.Printf("\nOrder requests (%d):\n", len(snap.Orders))
		for _, ord := range snap.Orders {
			fmt.Printf("  %s %s %s %d / %s %s %d limit=%.6f\n",
				ord.ID, ord.Near.Side, ord.Near.Symbol, ord.Near.Qty,
				ord.Far.Side, ord.Far.Symbol, ord.Far.Qty, ord.LimitPrice)
		}
	}

	fmt.Printf("\nCycle completed in %s\n", snap.Elapsed)
}
