package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/nebulamarket/autotrader/advisor"
	"github.com/nebulamarket/autotrader/bot"
	"github.com/nebulamarket/autotrader/config"
	"github.com/nebulamarket/autotrader/internal/logger"
	"github.com/nebulamarket/autotrader/journal"
	"github.com/nebulamarket/autotrader/pricefeed"
	"github.com/nebulamarket/autotrader/risk"
	"github.com/nebulamarket/autotrader/sim"
	"github.com/nebulamarket/autotrader/web"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the simulator",
	Long: `Start the trading simulator: the price reconciliation loop, the
decision loop and the HTTP API.

The bot starts paused unless --start or auto_start in the config is set.

Example:
  autotrader run --config autotrader.yaml --start`,
	RunE: runRun,
}

var (
	runConfigPath string
	runAutoStart  bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML or JSON)")
	runCmd.Flags().BoolVar(&runAutoStart, "start", false, "start automated trading immediately")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if runConfigPath != "" {
		var err error
		cfg, err = config.LoadFromFile(runConfigPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	j, err := newJournal(cfg.Journal)
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	defer j.Close()

	engine := sim.NewEngine(sim.Account{
		Balance: cfg.Account.Balance,
		Equity:  cfg.Account.Balance,
	}, j)
	engine.SetLogger(log)

	store := risk.NewStore()
	for sym, settings := range cfg.Risk {
		if err := store.Update(sym, settings); err != nil {
			return fmt.Errorf("apply risk override for %s: %w", sym, err)
		}
	}

	enabled, err := bot.NewEnabledSet(cfg.Bot.EnabledSymbols...)
	if err != nil {
		return fmt.Errorf("enable symbols: %w", err)
	}

	activity := bot.NewActivityLog(bot.DefaultActivityCapacity)
	engine.SetCloseListener(bot.NewCloseNotifier(log, activity))

	apiKey := cfg.Advisor.ResolveAPIKey()
	if apiKey == "" {
		return fmt.Errorf("no advisor API key: set advisor.api_key or GEMINI_API_KEY")
	}
	adv := advisorClient(cfg.Advisor, apiKey)

	decisionInterval, _ := cfg.Bot.ParseDecisionInterval()
	priceInterval, _ := cfg.Bot.ParsePriceInterval()

	feed := pricefeed.New()
	reconciler := bot.NewReconciler(engine, feed, priceInterval, log)
	trader := bot.NewTrader(engine, adv, store, enabled, activity, log, bot.TraderConfig{
		Interval:            decisionInterval,
		ConvictionThreshold: cfg.Bot.ConvictionThreshold,
	})
	if runAutoStart || cfg.Bot.AutoStart {
		trader.Start()
	}

	server := web.NewServer(cfg.Web.Addr, &web.Controller{
		Engine:   engine,
		Trader:   trader,
		Risk:     store,
		Enabled:  enabled,
		Activity: activity,
	}, log)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go reconciler.Run(ctx)
	go trader.Run(ctx)

	log.Info("simulator up",
		zap.Float64("balance", cfg.Account.Balance),
		zap.Strings("enabled", enabled.List()),
		zap.Duration("decision_interval", decisionInterval),
		zap.Duration("price_interval", priceInterval),
		zap.Bool("running", trader.IsRunning()),
	)

	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("http api: %w", err)
	}
	return nil
}

func advisorClient(cfg config.AdvisorConfig, apiKey string) *advisor.GeminiClient {
	return advisor.NewGeminiClient(cfg.BaseURL, apiKey, cfg.Model)
}

func newJournal(cfg config.JournalConfig) (journal.Journal, error) {
	switch cfg.Type {
	case "csv":
		return journal.NewCSV(cfg.TradesFile, cfg.EquityFile)
	case "sqlite":
		return journal.NewSQLite(cfg.DBPath)
	default:
		return journal.Nop{}, nil
	}
}
