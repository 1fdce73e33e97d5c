package market

import (
	"context"
	"time"
)

// Quote is the latest tradable price for a symbol.
type Quote struct {
	Symbol string    `json:"symbol"`
	Price  float64   `json:"price"`
	Time   time.Time `json:"time"`
}

// PriceSource provides latest prices for instruments.
type PriceSource interface {
	GetPrice(ctx context.Context, symbol string) (Quote, error)
}
