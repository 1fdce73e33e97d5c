package bot

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/nebulamarket/autotrader/advisor"
	"github.com/nebulamarket/autotrader/market"
	"github.com/nebulamarket/autotrader/risk"
	"github.com/nebulamarket/autotrader/sim"
	"go.uber.org/zap"
)

// DefaultConvictionThreshold is the minimum absolute sentiment score
// required to act on a BUY/SELL signal.
const DefaultConvictionThreshold = 0.4

type TraderConfig struct {
	// Interval between scans of the enabled set.
	Interval time.Duration
	// ConvictionThreshold gates automated opens; see
	// DefaultConvictionThreshold.
	ConvictionThreshold float64
	// AnalysisTimeout bounds a single oracle call. Zero means the scan
	// interval: a call slower than a full cycle counts as failed.
	AnalysisTimeout time.Duration
}

// Trader is the decision loop. While running it scans the enabled
// instruments sequentially, asking the advisor for a signal and applying
// reversal/open logic to the engine. Oracle failures skip the instrument
// for the cycle; they never stop the loop.
type Trader struct {
	engine   *sim.Engine
	advisor  advisor.Advisor
	risk     *risk.Store
	enabled  *EnabledSet
	activity *ActivityLog
	log      *zap.Logger

	interval  time.Duration
	threshold float64
	timeout   time.Duration

	mu       sync.Mutex
	running  bool
	lastRun  time.Time
	analyses map[string]advisor.MarketAnalysis
}

func NewTrader(engine *sim.Engine, adv advisor.Advisor, store *risk.Store, enabled *EnabledSet, activity *ActivityLog, log *zap.Logger, cfg TraderConfig) *Trader {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.ConvictionThreshold <= 0 {
		cfg.ConvictionThreshold = DefaultConvictionThreshold
	}
	if cfg.AnalysisTimeout <= 0 {
		cfg.AnalysisTimeout = cfg.Interval
	}

	return &Trader{
		engine:    engine,
		advisor:   adv,
		risk:      store,
		enabled:   enabled,
		activity:  activity,
		log:       log,
		interval:  cfg.Interval,
		threshold: cfg.ConvictionThreshold,
		timeout:   cfg.AnalysisTimeout,
		analyses:  make(map[string]advisor.MarketAnalysis),
	}
}

// Start enables automated trading. The next tick begins scanning.
func (t *Trader) Start() {
	t.mu.Lock()
	t.running = true
	t.mu.Unlock()

	t.log.Info("bot started")
	t.activity.Add(LevelInfo, "System started.")
}

func (t *Trader) Stop() {
	t.mu.Lock()
	t.running = false
	t.mu.Unlock()

	t.log.Info("bot stopped")
	t.activity.Add(LevelInfo, "System stopped.")
}

func (t *Trader) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// LastRun is when the most recent scan finished (zero before the first).
func (t *Trader) LastRun() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastRun
}

// Analyses returns the most recent analysis per symbol.
func (t *Trader) Analyses() map[string]advisor.MarketAnalysis {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]advisor.MarketAnalysis, len(t.analyses))
	for sym, a := range t.analyses {
		out[sym] = a
	}
	return out
}

func (t *Trader) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !t.IsRunning() {
				continue
			}
			t.Scan(ctx)
		}
	}
}

// Scan runs one decision pass over the enabled set. Instruments are
// processed one at a time: the oracle is rate-sensitive, and the
// reversal/open outcome for one symbol must not race the next.
func (t *Trader) Scan(ctx context.Context) {
	symbols := t.enabled.List()
	if len(symbols) == 0 {
		t.activity.Add(LevelWarning, "System: No symbols enabled. Please enable a symbol to trade.")
		return
	}

	t.activity.Add(LevelInfo, "System: Background scan for %s", strings.Join(symbols, ", "))

	for _, sym := range symbols {
		if ctx.Err() != nil {
			return
		}
		t.processSymbol(ctx, sym)
	}

	t.mu.Lock()
	t.lastRun = time.Now()
	t.mu.Unlock()
}

// AnalyzeOnly consults the oracle for a symbol and records the result
// without executing any trade logic. Used for user-triggered inspection.
func (t *Trader) AnalyzeOnly(ctx context.Context, symbol string) (advisor.MarketAnalysis, error) {
	actx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	analysis, err := t.advisor.Analyze(actx, symbol)
	if err != nil {
		t.activity.Add(LevelError, "[%s] Analysis failed: %v", symbol, err)
		return advisor.MarketAnalysis{}, err
	}

	t.storeAnalysis(symbol, analysis)
	t.activity.Add(LevelSuccess, "[%s] Analysis Complete. Signal: %s", symbol, analysis.Decision)
	return analysis, nil
}

func (t *Trader) processSymbol(ctx context.Context, symbol string) {
	actx, cancel := context.WithTimeout(ctx, t.timeout)
	analysis, err := t.advisor.Analyze(actx, symbol)
	cancel()
	if err != nil {
		t.log.Warn("analysis failed, skipping symbol",
			zap.String("symbol", symbol), zap.Error(err))
		t.activity.Add(LevelError, "[%s] Analysis failed, skipping this cycle.", symbol)
		return
	}

	t.storeAnalysis(symbol, analysis)

	// Stopped while the oracle call was in flight: discard the result.
	if !t.IsRunning() {
		return
	}

	if active, ok := t.engine.ActiveTrade(symbol); ok {
		t.maybeReverse(active, analysis)
		// Never open while a position exists, and never open in the same
		// pass as a reversal close.
		return
	}

	t.maybeOpen(symbol, analysis)
}

func (t *Trader) maybeReverse(active sim.Trade, analysis advisor.MarketAnalysis) {
	signal := sideFor(analysis.Decision)
	if signal == "" || !active.Side.Opposite(signal) {
		return
	}

	closed, err := t.engine.CloseTrade(active.ID, sim.ReasonReversal)
	if err != nil {
		t.log.Error("reversal close failed",
			zap.String("trade_id", active.ID), zap.Error(err))
		return
	}

	t.log.Info("reversal close",
		zap.String("symbol", closed.Symbol),
		zap.String("was", string(closed.Side)),
		zap.Float64("pnl", closed.PnL))
}

func (t *Trader) maybeOpen(symbol string, analysis advisor.MarketAnalysis) {
	if analysis.Decision == advisor.Hold {
		return
	}
	if math.Abs(analysis.SentimentScore) <= t.threshold {
		// Below conviction: a no-op outcome, not an error.
		t.log.Debug("signal below conviction threshold",
			zap.String("symbol", symbol),
			zap.Float64("score", analysis.SentimentScore))
		return
	}

	settings, ok := t.risk.Get(symbol)
	if !ok {
		return
	}
	meta, ok := market.Meta(symbol)
	if !ok {
		return
	}

	balance := t.engine.Account().Balance
	lots := risk.LotSize(balance, settings.RiskPercentage, settings.StopLossDistance, meta.ContractSize)
	if lots <= 0 {
		t.activity.Add(LevelWarning, "[%s] Lot size too small. skipping.", symbol)
		return
	}

	opened, err := t.engine.OpenTrade(sim.OpenRequest{
		Symbol:             symbol,
		Side:               sideFor(analysis.Decision),
		LotSize:            lots,
		StopLossDistance:   settings.StopLossDistance,
		TakeProfitDistance: settings.TakeProfitDistance,
		RiskPercentage:     settings.RiskPercentage,
	})
	if err != nil {
		t.log.Error("automated open failed",
			zap.String("symbol", symbol), zap.Error(err))
		return
	}

	t.log.Info("automated open",
		zap.String("symbol", symbol),
		zap.String("side", string(opened.Side)),
		zap.Float64("lots", opened.LotSize),
		zap.Float64("entry", opened.EntryPrice))
	t.activity.Add(LevelSuccess, "[%s] Opened %s %.2f Lots @ %.2f. TP: %.2f",
		symbol, opened.Side, opened.LotSize, opened.EntryPrice, opened.TakeProfit)
}

func (t *Trader) storeAnalysis(symbol string, a advisor.MarketAnalysis) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.analyses[symbol] = a
}

func sideFor(d advisor.Decision) sim.Side {
	switch d {
	case advisor.Buy:
		return sim.Buy
	case advisor.Sell:
		return sim.Sell
	default:
		return ""
	}
}
