package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "autotrader",
	Short: "An AI-assisted trading account simulator",
	Long: `Autotrader is a simulated trading account driven by an AI market oracle.

It provides:
  - A virtual account with risk-based position sizing
  - Automated BUY/SELL/HOLD decisions per instrument
  - Stop-loss and take-profit execution against live prices
  - Manual trade, wallet and risk management over a JSON API
  - Trade and equity journaling to CSV or SQLite`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
