package bot

import (
	"testing"

	"github.com/nebulamarket/autotrader/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCloseNotifierMessages(t *testing.T) {
	cases := []struct {
		reason  sim.CloseReason
		pnl     float64
		level   Level
		message string
	}{
		{sim.ReasonTakeProfit, 200, LevelSuccess, "[XAUUSD] Take Profit Hit! Closed BUY @ 2020.00. PnL: $200.00"},
		{sim.ReasonStopLoss, -110, LevelError, "[XAUUSD] Stop Loss Hit! Closed BUY @ 2020.00. PnL: $-110.00"},
		{sim.ReasonReversal, 50, LevelSuccess, "[XAUUSD] Closed BUY on reversal. PnL: $50.00"},
		{sim.ReasonReversal, -50, LevelWarning, "[XAUUSD] Closed BUY on reversal. PnL: $-50.00"},
		{sim.ReasonManual, -10, LevelWarning, "[XAUUSD] Manual Close. PnL: $-10.00"},
	}

	for _, tc := range cases {
		activity := NewActivityLog(10)
		n := NewCloseNotifier(zap.NewNop(), activity)

		n.OnTradeClosed(sim.Trade{
			ID:          "trade-1",
			Symbol:      "XAUUSD",
			Side:        sim.Buy,
			Status:      sim.StatusClosed,
			CloseReason: tc.reason,
			ClosePrice:  2020,
			PnL:         tc.pnl,
		})

		events := activity.Events()
		require.Len(t, events, 1, "reason %s", tc.reason)
		assert.Equal(t, tc.level, events[0].Level, "reason %s", tc.reason)
		assert.Equal(t, tc.message, events[0].Message, "reason %s", tc.reason)
	}
}
