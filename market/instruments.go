// market/instruments.go
package market

import "sort"

type Group string

const (
	GroupCrypto  Group = "crypto"
	GroupMarkets Group = "markets" // forex, metals, indices, US stocks
)

// InstrumentMeta is the static contract metadata for a tradable symbol.
// The registry is read-only after process start.
type InstrumentMeta struct {
	Symbol                    string
	DisplayName               string
	Group                     Group
	ContractSize              float64
	DefaultStopLossDistance   float64 // price units
	DefaultTakeProfitDistance float64 // price units
	InitialPrice              float64 // seed for the synthetic feed
}

var Instruments = map[string]InstrumentMeta{
	"XAUUSD": {
		Symbol:                    "XAUUSD",
		DisplayName:               "Gold",
		Group:                     GroupMarkets,
		ContractSize:              100,
		DefaultStopLossDistance:   10,
		DefaultTakeProfitDistance: 20,
		InitialPrice:              2350.0,
	},
	"BTCUSD": {
		Symbol:                    "BTCUSD",
		DisplayName:               "Bitcoin",
		Group:                     GroupCrypto,
		ContractSize:              1,
		DefaultStopLossDistance:   800,
		DefaultTakeProfitDistance: 1600,
		InitialPrice:              64000.0,
	},
	"ETHUSD": {
		Symbol:                    "ETHUSD",
		DisplayName:               "Ethereum",
		Group:                     GroupCrypto,
		ContractSize:              1,
		DefaultStopLossDistance:   50,
		DefaultTakeProfitDistance: 100,
		InitialPrice:              3400.0,
	},
	"SOLUSD": {
		Symbol:                    "SOLUSD",
		DisplayName:               "Solana",
		Group:                     GroupCrypto,
		ContractSize:              10,
		DefaultStopLossDistance:   4,
		DefaultTakeProfitDistance: 8,
		InitialPrice:              145.0,
	},
	"DOGEUSD": {
		Symbol:                    "DOGEUSD",
		DisplayName:               "Dogecoin",
		Group:                     GroupCrypto,
		ContractSize:              10000,
		DefaultStopLossDistance:   0.005,
		DefaultTakeProfitDistance: 0.01,
		InitialPrice:              0.12,
	},
	"EURUSD": {
		Symbol:                    "EURUSD",
		DisplayName:               "EUR/USD",
		Group:                     GroupMarkets,
		ContractSize:              100000,
		DefaultStopLossDistance:   0.004,
		DefaultTakeProfitDistance: 0.008,
		InitialPrice:              1.0850,
	},
	"GBPUSD": {
		Symbol:                    "GBPUSD",
		DisplayName:               "GBP/USD",
		Group:                     GroupMarkets,
		ContractSize:              100000,
		DefaultStopLossDistance:   0.005,
		DefaultTakeProfitDistance: 0.01,
		InitialPrice:              1.2700,
	},
	"US500": {
		Symbol:                    "US500",
		DisplayName:               "S&P 500",
		Group:                     GroupMarkets,
		ContractSize:              50,
		DefaultStopLossDistance:   25,
		DefaultTakeProfitDistance: 50,
		InitialPrice:              5300.0,
	},
	"US100": {
		Symbol:                    "US100",
		DisplayName:               "Nasdaq 100",
		Group:                     GroupMarkets,
		ContractSize:              20,
		DefaultStopLossDistance:   90,
		DefaultTakeProfitDistance: 180,
		InitialPrice:              18500.0,
	},
	"TSLA": {
		Symbol:                    "TSLA",
		DisplayName:               "Tesla",
		Group:                     GroupMarkets,
		ContractSize:              100,
		DefaultStopLossDistance:   6,
		DefaultTakeProfitDistance: 12,
		InitialPrice:              180.0,
	},
	"NVDA": {
		Symbol:                    "NVDA",
		DisplayName:               "Nvidia",
		Group:                     GroupMarkets,
		ContractSize:              100,
		DefaultStopLossDistance:   30,
		DefaultTakeProfitDistance: 60,
		InitialPrice:              1050.0,
	},
}

// Meta looks up instrument metadata by symbol.
func Meta(symbol string) (InstrumentMeta, bool) {
	m, ok := Instruments[symbol]
	return m, ok
}

// Symbols returns every registered symbol in sorted order.
func Symbols() []string {
	syms := make([]string, 0, len(Instruments))
	for s := range Instruments {
		syms = append(syms, s)
	}
	sort.Strings(syms)
	return syms
}
