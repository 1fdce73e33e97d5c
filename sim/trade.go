package sim

import "time"

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Opposite reports whether s and other are opposing trade directions.
func (s Side) Opposite(other Side) bool {
	return (s == Buy && other == Sell) || (s == Sell && other == Buy)
}

type Status string

const (
	StatusOpen   Status = "OPEN"
	StatusClosed Status = "CLOSED"
)

type CloseReason string

const (
	ReasonManual     CloseReason = "MANUAL"
	ReasonReversal   CloseReason = "REVERSAL"
	ReasonStopLoss   CloseReason = "STOP_LOSS"
	ReasonTakeProfit CloseReason = "TAKE_PROFIT"
)

// Trade is a single position. CLOSED is terminal: ClosePrice, CloseTime,
// CloseReason and the realized PnL are set exactly once.
type Trade struct {
	ID             string    `json:"id"`
	Symbol         string    `json:"symbol"`
	Side           Side      `json:"side"`
	EntryPrice     float64   `json:"entryPrice"`
	LotSize        float64   `json:"lotSize"`
	StopLoss       float64   `json:"stopLoss"`
	TakeProfit     float64   `json:"takeProfit"`     // 0 means no take profit
	RiskPercentage float64   `json:"riskPercentage"` // 0 for manual trades (not risk-sized)
	OpenTime       time.Time `json:"openTime"`

	// PnL is floating while OPEN, realized once CLOSED.
	PnL         float64     `json:"pnl"`
	ClosePrice  float64     `json:"closePrice,omitempty"`
	CloseTime   time.Time   `json:"closeTime,omitzero"`
	CloseReason CloseReason `json:"closeReason,omitempty"`
	Status      Status      `json:"status"`
}

func (t *Trade) IsOpen() bool { return t.Status == StatusOpen }

// directionalDiff is the signed price move in the trade's favorable
// direction: exit-entry for BUY, entry-exit for SELL.
func (t *Trade) directionalDiff(price float64) float64 {
	if t.Side == Buy {
		return price - t.EntryPrice
	}
	return t.EntryPrice - price
}

// profitAt is the PnL of the trade marked at price.
func (t *Trade) profitAt(price, contractSize float64) float64 {
	return t.directionalDiff(price) * contractSize * t.LotSize
}

func (t *Trade) hitStopLoss(price float64) bool {
	if t.Side == Buy {
		return price <= t.StopLoss
	}
	return price >= t.StopLoss
}

func (t *Trade) hitTakeProfit(price float64) bool {
	if t.TakeProfit == 0 {
		return false
	}
	if t.Side == Buy {
		return price >= t.TakeProfit
	}
	return price <= t.TakeProfit
}
