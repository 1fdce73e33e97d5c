// journal/journal.go
package journal

import "time"

// TradeRecord is written once per closed trade.
type TradeRecord struct {
	TradeID    string
	Symbol     string
	Side       string
	LotSize    float64
	EntryPrice float64
	ExitPrice  float64
	OpenTime   time.Time
	CloseTime  time.Time
	PnL        float64
	Reason     string
}

// EquitySnapshot is written once per reconciliation batch.
type EquitySnapshot struct {
	Time        time.Time
	Balance     float64
	Equity      float64
	FloatingPnL float64
	OpenTrades  int
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// Nop discards all records. Used when journaling is disabled.
type Nop struct{}

func (Nop) RecordTrade(TradeRecord) error     { return nil }
func (Nop) RecordEquity(EquitySnapshot) error { return nil }
func (Nop) Close() error                      { return nil }
