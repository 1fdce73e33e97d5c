package sim

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nebulamarket/autotrader/internal/id"
	"github.com/nebulamarket/autotrader/journal"
	"github.com/nebulamarket/autotrader/market"
	"go.uber.org/zap"
)

// Account is the simulated account state. Balance changes only when a
// trade closes or on deposit/withdraw; Equity is always balance plus the
// floating PnL of the open trades.
type Account struct {
	Balance float64 `json:"balance"`
	Equity  float64 `json:"equity"`
}

// CloseListener is notified after the engine closes a trade, whether by a
// stop/take trigger or an explicit close. Called outside the engine lock.
type CloseListener interface {
	OnTradeClosed(t Trade)
}

// OpenRequest describes a new position. Stop and take distances are in
// price units relative to the entry; a zero take distance disables the
// take profit.
type OpenRequest struct {
	Symbol             string
	Side               Side
	LotSize            float64
	StopLossDistance   float64
	TakeProfitDistance float64
	RiskPercentage     float64
}

// Engine owns the account and the trade ledger. All mutations are
// serialized through one mutex; network fetches happen elsewhere and only
// their results are applied here.
type Engine struct {
	mu       sync.Mutex
	acct     Account
	quotes   map[string]market.Quote
	trades   map[string]*Trade
	journal  journal.Journal
	listener CloseListener
	log      *zap.Logger
	now      func() time.Time
}

// NewEngine creates an engine with every registered instrument seeded at
// its initial price, so opens are possible before the first live fetch.
func NewEngine(acct Account, j journal.Journal) *Engine {
	e := &Engine{
		acct:    acct,
		quotes:  make(map[string]market.Quote, len(market.Instruments)),
		trades:  make(map[string]*Trade),
		journal: j,
		log:     zap.NewNop(),
		now:     time.Now,
	}
	for sym, meta := range market.Instruments {
		e.quotes[sym] = market.Quote{Symbol: sym, Price: meta.InitialPrice, Time: e.now()}
	}
	return e
}

// SetCloseListener registers an optional listener for closed trades.
func (e *Engine) SetCloseListener(l CloseListener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listener = l
}

// SetLogger replaces the no-op default logger.
func (e *Engine) SetLogger(log *zap.Logger) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.log = log
}

func (e *Engine) Account() Account {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.acct
}

// Snapshot returns copies of the account and all trades, ordered by open
// time (trade IDs are time-sortable).
func (e *Engine) Snapshot() (Account, []Trade) {
	e.mu.Lock()
	defer e.mu.Unlock()

	trades := make([]Trade, 0, len(e.trades))
	for _, t := range e.trades {
		trades = append(trades, *t)
	}
	sort.Slice(trades, func(i, j int) bool { return trades[i].ID < trades[j].ID })

	return e.acct, trades
}

// ActiveTrade returns the oldest OPEN trade for a symbol. The decision
// loop treats it as "the" position on that instrument.
func (e *Engine) ActiveTrade(symbol string) (Trade, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var active *Trade
	for _, t := range e.trades {
		if !t.IsOpen() || t.Symbol != symbol {
			continue
		}
		if active == nil || t.ID < active.ID {
			active = t
		}
	}
	if active == nil {
		return Trade{}, false
	}
	return *active, true
}

func (e *Engine) Quote(symbol string) (market.Quote, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	q, ok := e.quotes[symbol]
	if !ok {
		return market.Quote{}, fmt.Errorf("%w: %s", ErrNoPrice, symbol)
	}
	return q, nil
}

// Quotes returns a copy of the latest known price per symbol.
func (e *Engine) Quotes() map[string]market.Quote {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[string]market.Quote, len(e.quotes))
	for sym, q := range e.quotes {
		out[sym] = q
	}
	return out
}

// OpenTrade opens a position at the latest known price. Stop loss sits
// StopLossDistance below the entry for BUY and above for SELL; the take
// profit is mirrored.
func (e *Engine) OpenTrade(req OpenRequest) (Trade, error) {
	if req.LotSize <= 0 {
		return Trade{}, fmt.Errorf("open %s: %w: %g", req.Symbol, ErrInvalidLotSize, req.LotSize)
	}
	if req.StopLossDistance <= 0 {
		return Trade{}, fmt.Errorf("open %s: stop loss distance must be positive", req.Symbol)
	}
	if req.TakeProfitDistance < 0 {
		return Trade{}, fmt.Errorf("open %s: take profit distance must not be negative", req.Symbol)
	}
	if _, ok := market.Meta(req.Symbol); !ok {
		return Trade{}, fmt.Errorf("%w: %s", ErrUnknownSymbol, req.Symbol)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	q, ok := e.quotes[req.Symbol]
	if !ok {
		return Trade{}, fmt.Errorf("open %s: %w", req.Symbol, ErrNoPrice)
	}
	entry := q.Price

	stop := entry - req.StopLossDistance
	take := entry + req.TakeProfitDistance
	if req.Side == Sell {
		stop = entry + req.StopLossDistance
		take = entry - req.TakeProfitDistance
	}
	if req.TakeProfitDistance == 0 {
		take = 0
	}

	t := &Trade{
		ID:             id.New(),
		Symbol:         req.Symbol,
		Side:           req.Side,
		EntryPrice:     entry,
		LotSize:        req.LotSize,
		StopLoss:       stop,
		TakeProfit:     take,
		RiskPercentage: req.RiskPercentage,
		OpenTime:       e.now(),
		Status:         StatusOpen,
	}
	e.trades[t.ID] = t

	return *t, nil
}

// CloseTrade closes an open trade at the latest known price and applies
// its realized PnL to the balance immediately. Closing a CLOSED trade
// fails with ErrAlreadyClosed and changes nothing. A journal write
// failure is logged, never surfaced: the close has already committed.
func (e *Engine) CloseTrade(tradeID string, reason CloseReason) (Trade, error) {
	e.mu.Lock()

	t, ok := e.trades[tradeID]
	if !ok {
		e.mu.Unlock()
		return Trade{}, fmt.Errorf("close %s: %w", tradeID, ErrTradeNotFound)
	}
	if !t.IsOpen() {
		e.mu.Unlock()
		return Trade{}, fmt.Errorf("close %s: %w", tradeID, ErrAlreadyClosed)
	}

	q, ok := e.quotes[t.Symbol]
	if !ok {
		e.mu.Unlock()
		return Trade{}, fmt.Errorf("close %s: %w: %s", tradeID, ErrNoPrice, t.Symbol)
	}
	meta, ok := market.Meta(t.Symbol)
	if !ok {
		e.mu.Unlock()
		return Trade{}, fmt.Errorf("close %s: %w: %s", tradeID, ErrUnknownSymbol, t.Symbol)
	}

	jerr := e.closeLocked(t, q.Price, meta.ContractSize, e.closeTime(q), reason)
	e.revalueLocked()

	closed := *t
	listener := e.listener
	log := e.log
	e.mu.Unlock()

	if jerr != nil {
		log.Warn("journal trade record failed",
			zap.String("trade_id", closed.ID), zap.Error(jerr))
	}
	if listener != nil {
		listener.OnTradeClosed(closed)
	}
	return closed, nil
}

// UpdateProtective replaces the stop loss and take profit of an open
// trade. No other state changes.
func (e *Engine) UpdateProtective(tradeID string, stopLoss, takeProfit float64) (Trade, error) {
	if stopLoss <= 0 {
		return Trade{}, fmt.Errorf("update %s: stop loss must be positive", tradeID)
	}
	if takeProfit < 0 {
		return Trade{}, fmt.Errorf("update %s: take profit must not be negative", tradeID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok := e.trades[tradeID]
	if !ok {
		return Trade{}, fmt.Errorf("update %s: %w", tradeID, ErrTradeNotFound)
	}
	if !t.IsOpen() {
		return Trade{}, fmt.Errorf("update %s: %w", tradeID, ErrAlreadyClosed)
	}

	t.StopLoss = stopLoss
	t.TakeProfit = takeProfit
	return *t, nil
}

// ApplyQuotes is one reconciliation batch: store the fetched quotes,
// refresh floating PnL on every open trade, close stop/take hits at the
// current price (stop loss checked first), apply the realized PnL to the
// balance exactly once, and recompute equity. Returns the trades closed by
// this batch. Journal write failures never interrupt the batch: every
// trade is still evaluated and the returned error joins them for the
// caller to log.
func (e *Engine) ApplyQuotes(quotes []market.Quote) ([]Trade, error) {
	e.mu.Lock()

	for _, q := range quotes {
		if q.Symbol == "" || q.Price <= 0 {
			continue
		}
		e.quotes[q.Symbol] = q
	}

	var closed []Trade
	var errs []error
	for _, t := range e.trades {
		if !t.IsOpen() {
			continue
		}
		q, ok := e.quotes[t.Symbol]
		if !ok {
			continue
		}
		meta, ok := market.Meta(t.Symbol)
		if !ok {
			continue
		}

		switch {
		case t.hitStopLoss(q.Price):
			if err := e.closeLocked(t, q.Price, meta.ContractSize, e.closeTime(q), ReasonStopLoss); err != nil {
				errs = append(errs, fmt.Errorf("journal trade %s: %w", t.ID, err))
			}
			closed = append(closed, *t)
		case t.hitTakeProfit(q.Price):
			if err := e.closeLocked(t, q.Price, meta.ContractSize, e.closeTime(q), ReasonTakeProfit); err != nil {
				errs = append(errs, fmt.Errorf("journal trade %s: %w", t.ID, err))
			}
			closed = append(closed, *t)
		default:
			t.PnL = t.profitAt(q.Price, meta.ContractSize)
		}
	}

	floating := e.revalueLocked()

	if err := e.journal.RecordEquity(journal.EquitySnapshot{
		Time:        e.now(),
		Balance:     e.acct.Balance,
		Equity:      e.acct.Equity,
		FloatingPnL: floating,
		OpenTrades:  e.openCountLocked(),
	}); err != nil {
		errs = append(errs, fmt.Errorf("journal equity: %w", err))
	}

	listener := e.listener
	e.mu.Unlock()

	if listener != nil {
		for _, t := range closed {
			listener.OnTradeClosed(t)
		}
	}
	return closed, errors.Join(errs...)
}

// Deposit adds funds. Balance and equity move by the same delta under the
// engine lock so a concurrent reconciliation batch never sees a half
// applied transfer.
func (e *Engine) Deposit(amount float64) (Account, error) {
	if amount <= 0 {
		return Account{}, fmt.Errorf("deposit: %w: %g", ErrInvalidAmount, amount)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.acct.Balance += amount
	e.acct.Equity += amount
	return e.acct, nil
}

// Withdraw removes funds, failing with ErrInsufficientFunds if the amount
// exceeds the balance. Nothing changes on failure.
func (e *Engine) Withdraw(amount float64) (Account, error) {
	if amount <= 0 {
		return Account{}, fmt.Errorf("withdraw: %w: %g", ErrInvalidAmount, amount)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if amount > e.acct.Balance {
		return Account{}, fmt.Errorf("withdraw %g: %w (balance %g)", amount, ErrInsufficientFunds, e.acct.Balance)
	}

	e.acct.Balance -= amount
	e.acct.Equity -= amount
	return e.acct, nil
}

// closeLocked commits the close: trade fields, then the realized PnL to
// the balance. The returned error is the journal write only; the close
// itself cannot fail once called.
func (e *Engine) closeLocked(t *Trade, price, contractSize float64, tm time.Time, reason CloseReason) error {
	pnl := t.profitAt(price, contractSize)

	t.PnL = pnl
	t.ClosePrice = price
	t.CloseTime = tm
	t.CloseReason = reason
	t.Status = StatusClosed

	e.acct.Balance += pnl

	return e.journal.RecordTrade(journal.TradeRecord{
		TradeID:    t.ID,
		Symbol:     t.Symbol,
		Side:       string(t.Side),
		LotSize:    t.LotSize,
		EntryPrice: t.EntryPrice,
		ExitPrice:  price,
		OpenTime:   t.OpenTime,
		CloseTime:  tm,
		PnL:        pnl,
		Reason:     string(reason),
	})
}

// revalueLocked recomputes floating PnL for open trades at the latest
// quotes and restores equity = balance + floating. Returns the floating
// sum.
func (e *Engine) revalueLocked() float64 {
	var floating float64
	for _, t := range e.trades {
		if !t.IsOpen() {
			continue
		}
		if q, ok := e.quotes[t.Symbol]; ok {
			if meta, ok := market.Meta(t.Symbol); ok {
				t.PnL = t.profitAt(q.Price, meta.ContractSize)
			}
		}
		floating += t.PnL
	}
	e.acct.Equity = e.acct.Balance + floating
	return floating
}

func (e *Engine) openCountLocked() int {
	n := 0
	for _, t := range e.trades {
		if t.IsOpen() {
			n++
		}
	}
	return n
}

func (e *Engine) closeTime(q market.Quote) time.Time {
	if !q.Time.IsZero() {
		return q.Time
	}
	return e.now()
}
