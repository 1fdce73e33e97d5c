package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/nebulamarket/autotrader/advisor"
	"github.com/nebulamarket/autotrader/config"
	"github.com/nebulamarket/autotrader/market"
	"github.com/nebulamarket/autotrader/pricefeed"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze SYMBOL",
	Short: "Ask the market oracle for a one-off analysis",
	Long: `Request a single BUY/SELL/HOLD analysis for an instrument and print it.
No trade is executed.

Example:
  autotrader analyze XAUUSD`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

var analyzeConfigPath string

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVarP(&analyzeConfigPath, "config", "f", "", "path to config file (YAML or JSON)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	symbol := args[0]
	if _, ok := market.Meta(symbol); !ok {
		return fmt.Errorf("unknown symbol: %s (known: %v)", symbol, market.Symbols())
	}

	cfg := config.Default()
	if analyzeConfigPath != "" {
		var err error
		cfg, err = config.LoadFromFile(analyzeConfigPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}

	apiKey := cfg.Advisor.ResolveAPIKey()
	if apiKey == "" {
		return fmt.Errorf("no advisor API key: set advisor.api_key or GEMINI_API_KEY")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	analysis, err := advisorClient(cfg.Advisor, apiKey).Analyze(ctx, symbol)
	if err != nil {
		return fmt.Errorf("analyze %s: %w", symbol, err)
	}

	printAnalysis(analysis)
	printPrice(ctx, pricefeed.New(), symbol)
	return nil
}

func printPrice(ctx context.Context, src market.PriceSource, symbol string) {
	q, err := src.GetPrice(ctx, symbol)
	if err != nil {
		return
	}
	fmt.Printf("  Price:     %.4f\n", q.Price)
}

func printAnalysis(a advisor.MarketAnalysis) {
	fmt.Printf("Analysis for %s\n", a.Symbol)
	fmt.Printf("  Decision:  %s\n", a.Decision)
	fmt.Printf("  Sentiment: %.2f (%s)\n", a.SentimentScore, a.SentimentCategory)
	fmt.Printf("  Reasoning: %s\n", a.Reasoning)
	if len(a.Sources) > 0 {
		fmt.Println("  Sources:")
		for _, src := range a.Sources {
			fmt.Printf("    - %s (%s)\n", src.Title, src.URL)
		}
	}
}
