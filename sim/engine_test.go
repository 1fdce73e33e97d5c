package sim

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/nebulamarket/autotrader/journal"
	"github.com/nebulamarket/autotrader/market"
)

type testJournal struct {
	trades []journal.TradeRecord
	equity []journal.EquitySnapshot
}

func (j *testJournal) RecordTrade(rec journal.TradeRecord) error {
	j.trades = append(j.trades, rec)
	return nil
}

func (j *testJournal) RecordEquity(rec journal.EquitySnapshot) error {
	j.equity = append(j.equity, rec)
	return nil
}

func (j *testJournal) Close() error { return nil }

type testListener struct {
	closed []Trade
}

func (l *testListener) OnTradeClosed(t Trade) { l.closed = append(l.closed, t) }

func newTestEngine(t *testing.T, balance float64) (*Engine, *testJournal) {
	t.Helper()
	j := &testJournal{}
	return NewEngine(Account{Balance: balance, Equity: balance}, j), j
}

func setQuote(t *testing.T, e *Engine, symbol string, price float64, tm time.Time) []Trade {
	t.Helper()
	closed, err := e.ApplyQuotes([]market.Quote{{Symbol: symbol, Price: price, Time: tm}})
	if err != nil {
		t.Fatalf("apply quotes: %v", err)
	}
	return closed
}

func openTrade(t *testing.T, e *Engine, req OpenRequest) Trade {
	t.Helper()
	tr, err := e.OpenTrade(req)
	if err != nil {
		t.Fatalf("open trade: %v", err)
	}
	return tr
}

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestOpenTradeProtectivePrices(t *testing.T) {
	e, _ := newTestEngine(t, 10000)
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	setQuote(t, e, "XAUUSD", 2000, t0)

	buy := openTrade(t, e, OpenRequest{
		Symbol: "XAUUSD", Side: Buy, LotSize: 1,
		StopLossDistance: 10, TakeProfitDistance: 20,
	})
	if buy.StopLoss != 1990 || buy.TakeProfit != 2020 {
		t.Fatalf("buy protective: sl %v tp %v", buy.StopLoss, buy.TakeProfit)
	}
	if buy.Status != StatusOpen || buy.EntryPrice != 2000 {
		t.Fatalf("buy open state: %+v", buy)
	}

	sell := openTrade(t, e, OpenRequest{
		Symbol: "XAUUSD", Side: Sell, LotSize: 1,
		StopLossDistance: 10, TakeProfitDistance: 20,
	})
	if sell.StopLoss != 2010 || sell.TakeProfit != 1980 {
		t.Fatalf("sell protective: sl %v tp %v", sell.StopLoss, sell.TakeProfit)
	}

	noTake := openTrade(t, e, OpenRequest{
		Symbol: "XAUUSD", Side: Buy, LotSize: 1, StopLossDistance: 10,
	})
	if noTake.TakeProfit != 0 {
		t.Fatalf("zero take distance must disable take profit, got %v", noTake.TakeProfit)
	}
}

func TestOpenTradeRejectsBadInput(t *testing.T) {
	e, _ := newTestEngine(t, 10000)

	_, err := e.OpenTrade(OpenRequest{Symbol: "XAUUSD", Side: Buy, LotSize: 0, StopLossDistance: 10})
	if !errors.Is(err, ErrInvalidLotSize) {
		t.Fatalf("zero lots: got %v", err)
	}
	_, err = e.OpenTrade(OpenRequest{Symbol: "XAUUSD", Side: Buy, LotSize: -1, StopLossDistance: 10})
	if !errors.Is(err, ErrInvalidLotSize) {
		t.Fatalf("negative lots: got %v", err)
	}
	_, err = e.OpenTrade(OpenRequest{Symbol: "NOPE", Side: Buy, LotSize: 1, StopLossDistance: 10})
	if !errors.Is(err, ErrUnknownSymbol) {
		t.Fatalf("unknown symbol: got %v", err)
	}
	_, err = e.OpenTrade(OpenRequest{Symbol: "XAUUSD", Side: Buy, LotSize: 1, StopLossDistance: 0})
	if err == nil {
		t.Fatal("zero stop distance must be rejected")
	}

	if _, trades := e.Snapshot(); len(trades) != 0 {
		t.Fatalf("rejected opens must not create trades, got %d", len(trades))
	}
}

func TestCloseTradeRealizesPnL(t *testing.T) {
	e, j := newTestEngine(t, 10000)
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	setQuote(t, e, "XAUUSD", 2000, t0)

	tr := openTrade(t, e, OpenRequest{
		Symbol: "XAUUSD", Side: Buy, LotSize: 0.5,
		StopLossDistance: 50, TakeProfitDistance: 100,
	})

	setQuote(t, e, "XAUUSD", 2010, t0.Add(time.Minute))

	closed, err := e.CloseTrade(tr.ID, ReasonManual)
	if err != nil {
		t.Fatalf("close: %v", err)
	}

	wantPnL := (2010.0 - 2000.0) * 100 * 0.5
	if !approxEqual(closed.PnL, wantPnL, 1e-9) {
		t.Fatalf("pnl: got %v want %v", closed.PnL, wantPnL)
	}
	if closed.Status != StatusClosed || closed.ClosePrice != 2010 || closed.CloseReason != ReasonManual {
		t.Fatalf("close state: %+v", closed)
	}

	acct := e.Account()
	if !approxEqual(acct.Balance, 10000+wantPnL, 1e-9) {
		t.Fatalf("balance: got %v want %v", acct.Balance, 10000+wantPnL)
	}
	if !approxEqual(acct.Equity, acct.Balance, 1e-9) {
		t.Fatalf("equity after closing the only trade: got %v want %v", acct.Equity, acct.Balance)
	}

	if len(j.trades) != 1 || j.trades[0].Reason != "MANUAL" {
		t.Fatalf("journal trades: %+v", j.trades)
	}
}

func TestCloseTradeSellSide(t *testing.T) {
	e, _ := newTestEngine(t, 10000)
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	setQuote(t, e, "EURUSD", 1.0850, t0)

	tr := openTrade(t, e, OpenRequest{
		Symbol: "EURUSD", Side: Sell, LotSize: 0.1,
		StopLossDistance: 0.01, TakeProfitDistance: 0.02,
	})

	setQuote(t, e, "EURUSD", 1.0840, t0.Add(time.Minute))

	closed, err := e.CloseTrade(tr.ID, ReasonManual)
	if err != nil {
		t.Fatalf("close: %v", err)
	}

	wantPnL := (1.0850 - 1.0840) * 100000 * 0.1
	if !approxEqual(closed.PnL, wantPnL, 1e-9) {
		t.Fatalf("sell pnl: got %v want %v", closed.PnL, wantPnL)
	}
}

func TestCloseTradeIsIdempotentSafe(t *testing.T) {
	e, j := newTestEngine(t, 10000)
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	setQuote(t, e, "XAUUSD", 2000, t0)

	tr := openTrade(t, e, OpenRequest{
		Symbol: "XAUUSD", Side: Buy, LotSize: 1, StopLossDistance: 50,
	})

	if _, err := e.CloseTrade(tr.ID, ReasonManual); err != nil {
		t.Fatalf("first close: %v", err)
	}
	before := e.Account()

	_, err := e.CloseTrade(tr.ID, ReasonManual)
	if !errors.Is(err, ErrAlreadyClosed) {
		t.Fatalf("second close: got %v want ErrAlreadyClosed", err)
	}

	after := e.Account()
	if before != after {
		t.Fatalf("double close mutated the account: %+v -> %+v", before, after)
	}
	if len(j.trades) != 1 {
		t.Fatalf("double close journaled twice: %d records", len(j.trades))
	}

	if _, err := e.CloseTrade("missing", ReasonManual); !errors.Is(err, ErrTradeNotFound) {
		t.Fatalf("missing trade: got %v", err)
	}
}

// The reference scenario: balance 10000, BUY 1 lot gold at 2000 with stop
// 1990 and take 2020, contract size 100. Price 1989 closes the trade at a
// 1100 loss leaving balance 8900.
func TestStopLossScenario(t *testing.T) {
	e, j := newTestEngine(t, 10000)
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	setQuote(t, e, "XAUUSD", 2000, t0)

	openTrade(t, e, OpenRequest{
		Symbol: "XAUUSD", Side: Buy, LotSize: 1,
		StopLossDistance: 10, TakeProfitDistance: 20,
	})

	closed := setQuote(t, e, "XAUUSD", 1989, t0.Add(time.Minute))
	if len(closed) != 1 {
		t.Fatalf("expected 1 closed trade, got %d", len(closed))
	}
	if closed[0].CloseReason != ReasonStopLoss {
		t.Fatalf("reason: got %v want STOP_LOSS", closed[0].CloseReason)
	}
	if !approxEqual(closed[0].PnL, -1100, 1e-9) {
		t.Fatalf("pnl: got %v want -1100", closed[0].PnL)
	}

	acct := e.Account()
	if !approxEqual(acct.Balance, 8900, 1e-9) {
		t.Fatalf("balance: got %v want 8900", acct.Balance)
	}
	if !approxEqual(acct.Equity, 8900, 1e-9) {
		t.Fatalf("equity: got %v want 8900", acct.Equity)
	}

	last := j.equity[len(j.equity)-1]
	if !approxEqual(last.Balance, 8900, 1e-9) || last.OpenTrades != 0 {
		t.Fatalf("equity snapshot: %+v", last)
	}
}

func TestTakeProfitClose(t *testing.T) {
	e, _ := newTestEngine(t, 10000)
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	setQuote(t, e, "XAUUSD", 2000, t0)

	openTrade(t, e, OpenRequest{
		Symbol: "XAUUSD", Side: Sell, LotSize: 1,
		StopLossDistance: 10, TakeProfitDistance: 20,
	})

	closed := setQuote(t, e, "XAUUSD", 1979, t0.Add(time.Minute))
	if len(closed) != 1 || closed[0].CloseReason != ReasonTakeProfit {
		t.Fatalf("sell take profit: %+v", closed)
	}
	wantPnL := (2000.0 - 1979.0) * 100 * 1
	if !approxEqual(closed[0].PnL, wantPnL, 1e-9) {
		t.Fatalf("pnl: got %v want %v", closed[0].PnL, wantPnL)
	}
}

// When a protective update makes both triggers satisfiable at once the
// stop loss wins and the trade closes exactly once.
func TestStopLossTakesPrecedence(t *testing.T) {
	e, j := newTestEngine(t, 10000)
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	setQuote(t, e, "XAUUSD", 2000, t0)

	tr := openTrade(t, e, OpenRequest{
		Symbol: "XAUUSD", Side: Buy, LotSize: 1,
		StopLossDistance: 10, TakeProfitDistance: 20,
	})
	if _, err := e.UpdateProtective(tr.ID, 2100, 2050); err != nil {
		t.Fatalf("update protective: %v", err)
	}

	closed := setQuote(t, e, "XAUUSD", 2060, t0.Add(time.Minute))
	if len(closed) != 1 {
		t.Fatalf("trade must close exactly once, got %d closures", len(closed))
	}
	if closed[0].CloseReason != ReasonStopLoss {
		t.Fatalf("reason: got %v want STOP_LOSS", closed[0].CloseReason)
	}
	if len(j.trades) != 1 {
		t.Fatalf("journal must hold one record, got %d", len(j.trades))
	}
}

func TestEquityTracksFloatingPnL(t *testing.T) {
	e, _ := newTestEngine(t, 10000)
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	setQuote(t, e, "XAUUSD", 2000, t0)
	setQuote(t, e, "BTCUSD", 64000, t0)

	openTrade(t, e, OpenRequest{
		Symbol: "XAUUSD", Side: Buy, LotSize: 1,
		StopLossDistance: 100, TakeProfitDistance: 0,
	})
	openTrade(t, e, OpenRequest{
		Symbol: "BTCUSD", Side: Sell, LotSize: 0.5,
		StopLossDistance: 2000, TakeProfitDistance: 0,
	})

	if _, err := e.ApplyQuotes([]market.Quote{
		{Symbol: "XAUUSD", Price: 2012, Time: t0.Add(time.Minute)},
		{Symbol: "BTCUSD", Price: 63800, Time: t0.Add(time.Minute)},
	}); err != nil {
		t.Fatalf("apply quotes: %v", err)
	}

	goldPnL := (2012.0 - 2000.0) * 100 * 1   // +1200
	btcPnL := (64000.0 - 63800.0) * 1 * 0.5  // +100
	wantEquity := 10000 + goldPnL + btcPnL

	acct, trades := e.Snapshot()
	if !approxEqual(acct.Balance, 10000, 1e-9) {
		t.Fatalf("balance must not move on floating pnl: %v", acct.Balance)
	}
	if !approxEqual(acct.Equity, wantEquity, 1e-9) {
		t.Fatalf("equity: got %v want %v", acct.Equity, wantEquity)
	}

	for _, tr := range trades {
		if tr.Status != StatusOpen {
			t.Fatalf("no trade should have closed: %+v", tr)
		}
	}
}

// Balance after a batch equals balance before plus the realized PnL of the
// trades that batch closed.
func TestBatchBalanceConservation(t *testing.T) {
	e, _ := newTestEngine(t, 10000)
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	setQuote(t, e, "XAUUSD", 2000, t0)

	openTrade(t, e, OpenRequest{
		Symbol: "XAUUSD", Side: Buy, LotSize: 1,
		StopLossDistance: 10, TakeProfitDistance: 20,
	})
	openTrade(t, e, OpenRequest{
		Symbol: "XAUUSD", Side: Sell, LotSize: 0.5,
		StopLossDistance: 10, TakeProfitDistance: 20,
	})

	before := e.Account().Balance
	closed := setQuote(t, e, "XAUUSD", 1989, t0.Add(time.Minute))

	var realized float64
	for _, tr := range closed {
		realized += tr.PnL
	}
	after := e.Account().Balance
	if !approxEqual(after, before+realized, 1e-9) {
		t.Fatalf("balance conservation: %v + %v != %v", before, realized, after)
	}
}

func TestUpdateProtectiveRules(t *testing.T) {
	e, _ := newTestEngine(t, 10000)
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	setQuote(t, e, "XAUUSD", 2000, t0)

	tr := openTrade(t, e, OpenRequest{
		Symbol: "XAUUSD", Side: Buy, LotSize: 1, StopLossDistance: 10,
	})

	updated, err := e.UpdateProtective(tr.ID, 1985, 2030)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.StopLoss != 1985 || updated.TakeProfit != 2030 {
		t.Fatalf("update result: %+v", updated)
	}

	if _, err := e.UpdateProtective("missing", 1, 2); !errors.Is(err, ErrTradeNotFound) {
		t.Fatalf("missing: got %v", err)
	}

	if _, err := e.CloseTrade(tr.ID, ReasonManual); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := e.UpdateProtective(tr.ID, 1985, 2030); !errors.Is(err, ErrAlreadyClosed) {
		t.Fatalf("closed trade update: got %v", err)
	}
}

func TestWalletOperations(t *testing.T) {
	e, _ := newTestEngine(t, 1000)

	acct, err := e.Deposit(250)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if acct.Balance != 1250 || acct.Equity != 1250 {
		t.Fatalf("deposit result: %+v", acct)
	}

	if _, err := e.Deposit(0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero deposit: got %v", err)
	}
	if _, err := e.Withdraw(-5); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("negative withdraw: got %v", err)
	}

	if _, err := e.Withdraw(2000); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("overdraw: got %v", err)
	}
	if got := e.Account(); got.Balance != 1250 {
		t.Fatalf("failed withdraw must not change balance: %+v", got)
	}

	acct, err = e.Withdraw(1250)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if acct.Balance != 0 || acct.Equity != 0 {
		t.Fatalf("withdraw result: %+v", acct)
	}
}

func TestActiveTradeIsOldestOpen(t *testing.T) {
	e, _ := newTestEngine(t, 10000)
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	setQuote(t, e, "XAUUSD", 2000, t0)

	first := openTrade(t, e, OpenRequest{
		Symbol: "XAUUSD", Side: Buy, LotSize: 1, StopLossDistance: 100,
	})
	openTrade(t, e, OpenRequest{
		Symbol: "XAUUSD", Side: Buy, LotSize: 1, StopLossDistance: 100,
	})

	active, ok := e.ActiveTrade("XAUUSD")
	if !ok || active.ID != first.ID {
		t.Fatalf("active trade: got %+v want %s", active, first.ID)
	}

	if _, err := e.CloseTrade(first.ID, ReasonManual); err != nil {
		t.Fatalf("close: %v", err)
	}
	active, ok = e.ActiveTrade("XAUUSD")
	if !ok || active.ID == first.ID {
		t.Fatalf("active must advance to the next open trade: %+v", active)
	}

	if _, ok := e.ActiveTrade("BTCUSD"); ok {
		t.Fatal("no open btc trade expected")
	}
}

func TestCloseListenerNotified(t *testing.T) {
	e, _ := newTestEngine(t, 10000)
	l := &testListener{}
	e.SetCloseListener(l)

	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	setQuote(t, e, "XAUUSD", 2000, t0)

	openTrade(t, e, OpenRequest{
		Symbol: "XAUUSD", Side: Buy, LotSize: 1,
		StopLossDistance: 10, TakeProfitDistance: 20,
	})
	setQuote(t, e, "XAUUSD", 1989, t0.Add(time.Minute))

	if len(l.closed) != 1 || l.closed[0].CloseReason != ReasonStopLoss {
		t.Fatalf("listener: %+v", l.closed)
	}
}

func TestApplyQuotesIgnoresBadQuotes(t *testing.T) {
	e, _ := newTestEngine(t, 10000)
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	setQuote(t, e, "XAUUSD", 2000, t0)

	if _, err := e.ApplyQuotes([]market.Quote{
		{Symbol: "XAUUSD", Price: 0, Time: t0},
		{Symbol: "", Price: 5, Time: t0},
	}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	q, err := e.Quote("XAUUSD")
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if q.Price != 2000 {
		t.Fatalf("bad quote overwrote price: %v", q.Price)
	}
}

type failingJournal struct {
	testJournal
	tradeErr  error
	equityErr error
}

func (j *failingJournal) RecordTrade(rec journal.TradeRecord) error {
	if j.tradeErr != nil {
		return j.tradeErr
	}
	return j.testJournal.RecordTrade(rec)
}

func (j *failingJournal) RecordEquity(rec journal.EquitySnapshot) error {
	if j.equityErr != nil {
		return j.equityErr
	}
	return j.testJournal.RecordEquity(rec)
}

func TestApplyQuotesSurvivesJournalFailure(t *testing.T) {
	j := &failingJournal{tradeErr: errors.New("disk full")}
	e := NewEngine(Account{Balance: 10000, Equity: 10000}, j)
	l := &testListener{}
	e.SetCloseListener(l)
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	setQuote(t, e, "XAUUSD", 2000, t0)
	setQuote(t, e, "TSLA", 180, t0)
	openTrade(t, e, OpenRequest{
		Symbol: "XAUUSD", Side: Buy, LotSize: 1, StopLossDistance: 10,
	})
	openTrade(t, e, OpenRequest{
		Symbol: "TSLA", Side: Buy, LotSize: 1, StopLossDistance: 6,
	})

	closed, err := e.ApplyQuotes([]market.Quote{
		{Symbol: "XAUUSD", Price: 1989, Time: t0.Add(time.Minute)},
		{Symbol: "TSLA", Price: 170, Time: t0.Add(time.Minute)},
	})
	if err == nil {
		t.Fatal("expected journal error to be reported")
	}

	// Both stops must still close despite the failing journal.
	if len(closed) != 2 {
		t.Fatalf("closed %d trades, want 2", len(closed))
	}
	for _, tr := range closed {
		if tr.Status != StatusClosed || tr.CloseReason != ReasonStopLoss {
			t.Fatalf("closed trade state: %+v", tr)
		}
	}
	if len(l.closed) != 2 {
		t.Fatalf("listener saw %d closures, want 2", len(l.closed))
	}

	// XAUUSD -1100, TSLA -1000; no open trades so equity == balance.
	acct := e.Account()
	if !approxEqual(acct.Balance, 7900, 1e-9) {
		t.Fatalf("balance %v, want 7900", acct.Balance)
	}
	if !approxEqual(acct.Equity, acct.Balance, 1e-9) {
		t.Fatalf("equity %v, want %v", acct.Equity, acct.Balance)
	}
}

func TestApplyQuotesReportsEquityJournalFailure(t *testing.T) {
	j := &failingJournal{}
	e := NewEngine(Account{Balance: 10000, Equity: 10000}, j)
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	setQuote(t, e, "XAUUSD", 2000, t0)
	tr := openTrade(t, e, OpenRequest{
		Symbol: "XAUUSD", Side: Buy, LotSize: 1, StopLossDistance: 10,
	})

	j.equityErr = errors.New("disk full")
	_, err := e.ApplyQuotes([]market.Quote{
		{Symbol: "XAUUSD", Price: 2005, Time: t0.Add(time.Minute)},
	})
	if err == nil {
		t.Fatal("expected equity journal error to be reported")
	}

	// The batch still applied: floating PnL refreshed, equity consistent.
	_, trades := e.Snapshot()
	for _, got := range trades {
		if got.ID == tr.ID && !approxEqual(got.PnL, 500, 1e-9) {
			t.Fatalf("floating pnl %v, want 500", got.PnL)
		}
	}
	acct := e.Account()
	if !approxEqual(acct.Equity, 10500, 1e-9) {
		t.Fatalf("equity %v, want 10500", acct.Equity)
	}
}

func TestCloseTradeSucceedsWhenJournalFails(t *testing.T) {
	j := &failingJournal{tradeErr: errors.New("disk full")}
	e := NewEngine(Account{Balance: 10000, Equity: 10000}, j)
	l := &testListener{}
	e.SetCloseListener(l)
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	setQuote(t, e, "XAUUSD", 2000, t0)
	tr := openTrade(t, e, OpenRequest{
		Symbol: "XAUUSD", Side: Buy, LotSize: 1, StopLossDistance: 10,
	})
	setQuote(t, e, "XAUUSD", 2004, t0.Add(time.Minute))

	closed, err := e.CloseTrade(tr.ID, ReasonManual)
	if err != nil {
		t.Fatalf("close must succeed once the state change commits: %v", err)
	}
	if closed.Status != StatusClosed || !approxEqual(closed.PnL, 400, 1e-9) {
		t.Fatalf("closed: %+v", closed)
	}
	if got := e.Account().Balance; !approxEqual(got, 10400, 1e-9) {
		t.Fatalf("balance %v, want 10400", got)
	}
	if len(l.closed) != 1 {
		t.Fatalf("listener saw %d closures, want 1", len(l.closed))
	}
}
