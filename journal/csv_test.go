package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	fh, err := os.Open(path)
	require.NoError(t, err)
	defer fh.Close()

	rows, err := csv.NewReader(fh).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVJournalWritesHeadersAndRows(t *testing.T) {
	dir := t.TempDir()
	tradesPath := filepath.Join(dir, "trades.csv")
	equityPath := filepath.Join(dir, "equity.csv")

	j, err := NewCSV(tradesPath, equityPath)
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, j.RecordTrade(TradeRecord{
		TradeID:    "t1",
		Symbol:     "EURUSD",
		Side:       "SELL",
		LotSize:    1.25,
		EntryPrice: 1.0850,
		ExitPrice:  1.0800,
		OpenTime:   now,
		CloseTime:  now.Add(time.Minute),
		PnL:        625,
		Reason:     "STOP_LOSS",
	}))
	require.NoError(t, j.RecordEquity(EquitySnapshot{
		Time: now, Balance: 10625, Equity: 10625,
	}))
	require.NoError(t, j.Close())

	trades := readCSV(t, tradesPath)
	require.Len(t, trades, 2)
	assert.Equal(t, "trade_id", trades[0][0])
	assert.Equal(t, "t1", trades[1][0])
	assert.Equal(t, "SELL", trades[1][2])
	assert.Equal(t, "STOP_LOSS", trades[1][9])

	equity := readCSV(t, equityPath)
	require.Len(t, equity, 2)
	assert.Equal(t, "balance", equity[0][1])
	assert.Equal(t, "10625.000000", equity[1][1])
}
