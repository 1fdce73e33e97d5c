package bot

import (
	"context"
	"time"

	"github.com/nebulamarket/autotrader/market"
	"github.com/nebulamarket/autotrader/sim"
	"go.uber.org/zap"
)

// QuoteFetcher resolves many symbols concurrently, degrading individual
// failures to fallback quotes instead of returning errors.
type QuoteFetcher interface {
	FetchAll(ctx context.Context, symbols []string) []market.Quote
}

// Reconciler is the periodic price-refresh/PnL/stop-take pass. Each cycle
// fetches every instrument in parallel, then applies all results to the
// engine as a single batch, so balance and equity always reflect the
// closures of the cycle that produced them.
type Reconciler struct {
	engine   *sim.Engine
	feed     QuoteFetcher
	interval time.Duration
	log      *zap.Logger
}

func NewReconciler(engine *sim.Engine, feed QuoteFetcher, interval time.Duration, log *zap.Logger) *Reconciler {
	return &Reconciler{engine: engine, feed: feed, interval: interval, log: log}
}

func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce executes one reconciliation cycle. Fetches that do not resolve
// within the cycle interval count as failed for this cycle and fall back
// inside the feed.
func (r *Reconciler) RunOnce(ctx context.Context) {
	fctx, cancel := context.WithTimeout(ctx, r.interval)
	defer cancel()

	quotes := r.feed.FetchAll(fctx, market.Symbols())

	closed, err := r.engine.ApplyQuotes(quotes)
	if err != nil {
		r.log.Warn("reconcile journal write failed", zap.Error(err))
	}

	if len(closed) > 0 {
		r.log.Info("reconcile cycle closed trades", zap.Int("count", len(closed)))
	} else {
		r.log.Debug("reconcile cycle complete", zap.Int("quotes", len(quotes)))
	}
}
