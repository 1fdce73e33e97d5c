package sim

import "errors"

var (
	ErrInvalidLotSize    = errors.New("invalid lot size")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAlreadyClosed     = errors.New("trade already closed")
	ErrTradeNotFound     = errors.New("trade not found")
	ErrNoPrice           = errors.New("no price for symbol")
	ErrUnknownSymbol     = errors.New("unknown symbol")
)
