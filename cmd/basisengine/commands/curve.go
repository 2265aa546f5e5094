package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rwaltman/basisengine/internal/curve"
	"github.com/rwaltman/basisengine/internal/feed/treasury"
	"github.com/rwaltman/basisengine/internal/normalize"
	"github.com/rwaltman/basisengine/pkg/config"
	"github.com/rwaltman/basisengine/pkg/logger"
)

// curveCmd bootstraps and prints the discount curve without the rest of
// the cycle. Useful for eyeballing curve quality against a new quote set.
var curveCmd = &cobra.Command{
	Use:   "curve",
	Short: "Bootstrap the discount curve and print its nodes",
	RunE:  runCurve,
}

func init() {
	rootCmd.AddCommand(curveCmd)
}

func runCurve(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	strategy, _, err := loadStrategy(log)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
	defer cancel()

	snap, err := treasury.NewClient(cfg.Treasury, log).FetchSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("fetch quotes: %w", err)
	}

	norm := normalize.New(strategy.Quotes, log).Normalize(snap.AsOf, snap.Quotes)
	fmt.Printf("Quotes: %d accepted, %d rejected\n", len(norm.Accepted), len(norm.Rejected))
	for _, rej := range norm.Rejected {
		fmt.Printf("  rejected %-9s %s %s\n", rej.Quote.CUSIP, rej.Reason, rej.Detail)
	}

	bootstrapper, err := curve.NewBootstrapper(strategy.Curve, log)
	if err != nil {
		return err
	}
	result, err := bootstrapper.Build(snap.AsOf, norm.Accepted)
	if err != nil {
		return fmt.Errorf("bootstrap curve: %w", err)
	}

	fmt.Printf("\nCurve as of %s (%s):\n", result.Curve.AsOf().Format(time.RFC3339), result.Curve.InterpolationRule())
	fmt.Printf("  %10s  %10s  %10s\n", "maturity", "discount", "zero")
	for _, n := range result.Curve.Nodes() {
		fmt.Printf("  %9.4fy  %10.6f  %9.4f%%\n", n.Maturity, n.Discount, n.ZeroRate*100)
	}
	for _, ex := range result.Exclusions {
		fmt.Printf("  excluded %-9s %s\n", ex.CUSIP, ex.Reason)
	}

	return nil
}
