package bot

import (
	"github.com/nebulamarket/autotrader/sim"
	"go.uber.org/zap"
)

// CloseNotifier turns engine close events into activity-feed entries and
// structured logs. It implements sim.CloseListener and is called outside
// the engine lock.
type CloseNotifier struct {
	log      *zap.Logger
	activity *ActivityLog
}

func NewCloseNotifier(log *zap.Logger, activity *ActivityLog) *CloseNotifier {
	return &CloseNotifier{log: log, activity: activity}
}

func (n *CloseNotifier) OnTradeClosed(t sim.Trade) {
	n.log.Info("trade closed",
		zap.String("trade_id", t.ID),
		zap.String("symbol", t.Symbol),
		zap.String("side", string(t.Side)),
		zap.String("reason", string(t.CloseReason)),
		zap.Float64("close_price", t.ClosePrice),
		zap.Float64("pnl", t.PnL),
	)

	switch t.CloseReason {
	case sim.ReasonTakeProfit:
		n.activity.Add(LevelSuccess, "[%s] Take Profit Hit! Closed %s @ %.2f. PnL: $%.2f",
			t.Symbol, t.Side, t.ClosePrice, t.PnL)
	case sim.ReasonStopLoss:
		n.activity.Add(LevelError, "[%s] Stop Loss Hit! Closed %s @ %.2f. PnL: $%.2f",
			t.Symbol, t.Side, t.ClosePrice, t.PnL)
	case sim.ReasonReversal:
		n.activity.Add(levelForPnL(t.PnL), "[%s] Closed %s on reversal. PnL: $%.2f",
			t.Symbol, t.Side, t.PnL)
	default:
		n.activity.Add(levelForPnL(t.PnL), "[%s] Manual Close. PnL: $%.2f", t.Symbol, t.PnL)
	}
}

func levelForPnL(pnl float64) Level {
	if pnl >= 0 {
		return LevelSuccess
	}
	return LevelWarning
}
