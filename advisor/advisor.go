// Package advisor adapts an external market-analysis oracle into a trade
// signal. The oracle searches recent news for an instrument and answers
// with a BUY/SELL/HOLD decision, a sentiment score and its reasoning; it
// is slow (seconds) and allowed to fail, in which case the decision loop
// skips the instrument for that cycle.
package advisor

import (
	"context"
	"errors"
	"time"
)

type Decision string

const (
	Buy  Decision = "BUY"
	Sell Decision = "SELL"
	Hold Decision = "HOLD"
)

type SentimentCategory string

const (
	Positive SentimentCategory = "POSITIVE"
	Negative SentimentCategory = "NEGATIVE"
	Neutral  SentimentCategory = "NEUTRAL"
)

// ErrUnavailable marks transport, rate-limit and parse failures. Callers
// treat it as "no signal this cycle", never as a reason to stop.
var ErrUnavailable = errors.New("advisor unavailable")

type NewsSource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// MarketAnalysis is the oracle's full answer for one instrument.
type MarketAnalysis struct {
	Symbol            string            `json:"symbol"`
	Timestamp         time.Time         `json:"timestamp"`
	Decision          Decision          `json:"decision"`
	SentimentScore    float64           `json:"sentimentScore"` // -1 bearish .. 1 bullish
	SentimentCategory SentimentCategory `json:"sentimentCategory"`
	Reasoning         string            `json:"reasoning"`
	Sources           []NewsSource      `json:"sources"`
}

type Advisor interface {
	Analyze(ctx context.Context, symbol string) (MarketAnalysis, error)
}
