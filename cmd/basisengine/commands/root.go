package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	strategyFile string
	verbose      bool
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "basisengine",
	Short: "Treasury basis engine - curve, CTD and calendar-spread analytics",
	Long: `Treasury basis decision-support engine.

Bootstraps a zero-coupon discount curve from cash Treasury quotes,
selects the cheapest-to-deliver issue per futures tenor, and ranks
diagonal calendar-spread mispricings with duration-neutral sizing.

Examples:
  basisengine run
  basisengine daemon --refresh "*/30 * * * * *"
  basisengine curve`,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&strategyFile, "strategy",
		"config/strategy/treasury_basis_v1.yaml", "strategy config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
