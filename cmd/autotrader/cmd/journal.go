package cmd

import (
	"fmt"

	"github.com/nebulamarket/autotrader/journal"
	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the trade journal",
	Long: `Display closed trades recorded in a SQLite journal.

Example:
  autotrader journal --db ./autotrader.sqlite`,
	Args: cobra.NoArgs,
	RunE: runJournal,
}

var journalDBPath string

func init() {
	rootCmd.AddCommand(journalCmd)

	journalCmd.Flags().StringVarP(&journalDBPath, "db", "d", "./autotrader.sqlite", "path to SQLite journal DB")
}

func runJournal(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	trades, err := j.ListTrades()
	if err != nil {
		return fmt.Errorf("list trades: %w", err)
	}
	if len(trades) == 0 {
		fmt.Println("No closed trades recorded.")
		return nil
	}

	fmt.Printf("%-27s %-8s %-5s %8s %12s %12s %12s %s\n",
		"TRADE", "SYMBOL", "SIDE", "LOTS", "ENTRY", "EXIT", "PNL", "REASON")
	var total float64
	for _, t := range trades {
		fmt.Printf("%-27s %-8s %-5s %8.2f %12.4f %12.4f %12.2f %s\n",
			t.TradeID, t.Symbol, t.Side, t.LotSize, t.EntryPrice, t.ExitPrice, t.PnL, t.Reason)
		total += t.PnL
	}
	fmt.Printf("\n%d trades, total PnL: $%.2f\n", len(trades), total)
	return nil
}
