package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "backtester",
	Short: "A daily backtester for A-share momentum strategies",
	Long: `Backtester simulates a momentum strategy over Chinese A-share daily data.

It pulls historical bars from a local AkTools instance, optionally caches
them in Postgres, replays the trading calendar day by day and reports the
resulting equity curve and performance metrics.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
