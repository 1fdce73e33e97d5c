// Package pricefeed resolves instrument symbols to tradable prices.
//
// Crypto symbols are quoted from the Binance REST API and gold from the
// goldprice.org public feed; everything else (and every failed fetch)
// degrades to a seeded random walk around the last known price, so the
// feed never surfaces transport failures to the trading engine.
package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/nebulamarket/autotrader/market"
	"golang.org/x/time/rate"
)

const (
	defaultBinanceURL = "https://api.binance.com"
	defaultGoldURL    = "https://data-asg.goldprice.org/dbXRates/USD"

	// walkVolatility is the synthetic move per tick as a fraction of the
	// instrument's initial price.
	walkVolatility = 0.0002
)

// binancePairs maps our crypto symbols to Binance USDT tickers.
var binancePairs = map[string]string{
	"BTCUSD":  "BTCUSDT",
	"ETHUSD":  "ETHUSDT",
	"SOLUSD":  "SOLUSDT",
	"DOGEUSD": "DOGEUSDT",
}

type Feed struct {
	// BinanceURL and GoldURL may be overridden before first use (tests,
	// mirrors). HTTP defaults to a client with FetchTimeout.
	BinanceURL string
	GoldURL    string
	HTTP       *http.Client
	Limiter    *rate.Limiter

	mu   sync.Mutex
	last map[string]float64
	rng  *rand.Rand
	now  func() time.Time
}

var _ market.PriceSource = (*Feed)(nil)

// New builds a feed seeded with every registered instrument's initial
// price.
func New() *Feed {
	f := &Feed{
		BinanceURL: defaultBinanceURL,
		GoldURL:    defaultGoldURL,
		HTTP:       &http.Client{Timeout: 5 * time.Second},
		Limiter:    rate.NewLimiter(rate.Every(200*time.Millisecond), 5),
		last:       make(map[string]float64, len(market.Instruments)),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		now:        time.Now,
	}
	for sym, meta := range market.Instruments {
		f.last[sym] = meta.InitialPrice
	}
	return f
}

// GetPrice returns the latest tradable price for symbol. Transport
// failures fall back to the last known (or synthetic) price; the only
// error case is an unregistered symbol.
func (f *Feed) GetPrice(ctx context.Context, symbol string) (market.Quote, error) {
	meta, ok := market.Meta(symbol)
	if !ok {
		return market.Quote{}, fmt.Errorf("pricefeed: unknown symbol %q", symbol)
	}

	var price float64
	switch {
	case binancePairs[symbol] != "":
		fetched, err := f.fetchBinance(ctx, binancePairs[symbol])
		if err != nil {
			price = f.lastKnown(symbol)
		} else {
			price = fetched
			f.remember(symbol, fetched)
		}

	case symbol == "XAUUSD":
		// Walk first so gold keeps moving even when the live lookup is
		// down, then prefer the live fix when available.
		price = f.walkStep(symbol, meta)
		if fetched, err := f.fetchGold(ctx); err == nil && fetched > 0 {
			price = fetched
			f.remember(symbol, fetched)
		}

	default:
		price = f.walkStep(symbol, meta)
	}

	return market.Quote{Symbol: symbol, Price: price, Time: f.now()}, nil
}

// FetchAll resolves every symbol concurrently and returns once each fetch
// has succeeded or fallen back. One stalled instrument cannot block the
// others past its own timeout.
func (f *Feed) FetchAll(ctx context.Context, symbols []string) []market.Quote {
	quotes := make([]market.Quote, len(symbols))

	var wg sync.WaitGroup
	for i, sym := range symbols {
		wg.Add(1)
		go func(i int, sym string) {
			defer wg.Done()
			q, err := f.GetPrice(ctx, sym)
			if err != nil {
				return
			}
			quotes[i] = q
		}(i, sym)
	}
	wg.Wait()

	out := quotes[:0]
	for _, q := range quotes {
		if q.Symbol != "" {
			out = append(out, q)
		}
	}
	return out
}

func (f *Feed) lastKnown(symbol string) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last[symbol]
}

func (f *Feed) remember(symbol string, price float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last[symbol] = price
}

// walkStep advances the synthetic random walk for symbol by at most
// half the per-tick volatility in either direction.
func (f *Feed) walkStep(symbol string, meta market.InstrumentMeta) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	vol := meta.InitialPrice * walkVolatility
	next := f.last[symbol] + (f.rng.Float64()-0.5)*vol
	if next <= 0 {
		next = f.last[symbol]
	}
	f.last[symbol] = next
	return next
}

func (f *Feed) fetchBinance(ctx context.Context, pair string) (float64, error) {
	if err := f.Limiter.Wait(ctx); err != nil {
		return 0, err
	}

	url := f.BinanceURL + "/api/v3/ticker/price?symbol=" + pair
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := f.HTTP.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("binance ticker http %d", resp.StatusCode)
	}

	var body struct {
		Price string `json:"price"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, err
	}

	price, err := strconv.ParseFloat(body.Price, 64)
	if err != nil || price <= 0 {
		return 0, fmt.Errorf("binance ticker bad price %q", body.Price)
	}
	return price, nil
}

func (f *Feed) fetchGold(ctx context.Context) (float64, error) {
	if err := f.Limiter.Wait(ctx); err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.GoldURL, nil)
	if err != nil {
		return 0, err
	}

	resp, err := f.HTTP.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("goldprice http %d", resp.StatusCode)
	}

	var body struct {
		Items []struct {
			XAUPrice float64 `json:"xauPrice"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, err
	}
	if len(body.Items) == 0 {
		return 0, fmt.Errorf("goldprice empty response")
	}
	return body.Items[0].XAUPrice, nil
}
