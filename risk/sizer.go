package risk

import "math"

// LotSize converts a risk budget into a lot size:
//
//	lots = (balance * riskPct/100) / (stopDistance * contractSize)
//
// rounded to 2 decimal places. A non-positive stop distance or contract
// size yields 0. Callers must treat a result <= 0 as "no trade", not as an
// error: the signal is simply too small to size.
func LotSize(balance, riskPct, stopDistance, contractSize float64) float64 {
	if stopDistance <= 0 || contractSize <= 0 {
		return 0
	}

	riskAmount := balance * riskPct / 100
	lots := riskAmount / (stopDistance * contractSize)
	return math.Round(lots*100) / 100
}
