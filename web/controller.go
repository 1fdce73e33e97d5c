package web

import (
	"time"

	"github.com/nebulamarket/autotrader/advisor"
	"github.com/nebulamarket/autotrader/bot"
	"github.com/nebulamarket/autotrader/market"
	"github.com/nebulamarket/autotrader/risk"
	"github.com/nebulamarket/autotrader/sim"
)

// Controller bundles the simulator components a handler may touch.
type Controller struct {
	Engine   *sim.Engine
	Trader   *bot.Trader
	Risk     *risk.Store
	Enabled  *bot.EnabledSet
	Activity *bot.ActivityLog
}

// stateView is the full dashboard snapshot returned by GET /api/state.
type stateView struct {
	Account        sim.Account                       `json:"account"`
	Trades         []sim.Trade                       `json:"trades"`
	Quotes         map[string]market.Quote           `json:"quotes"`
	Running        bool                              `json:"running"`
	LastRun        *time.Time                        `json:"lastRun,omitempty"`
	EnabledSymbols []string                          `json:"enabledSymbols"`
	Analyses       map[string]advisor.MarketAnalysis `json:"analyses"`
	RiskSettings   map[string]risk.Settings          `json:"riskSettings"`
}

func (c *Controller) state() stateView {
	acct, trades := c.Engine.Snapshot()

	view := stateView{
		Account:        acct,
		Trades:         trades,
		Quotes:         c.Engine.Quotes(),
		Running:        c.Trader.IsRunning(),
		EnabledSymbols: c.Enabled.List(),
		Analyses:       c.Trader.Analyses(),
		RiskSettings:   c.Risk.All(),
	}
	if last := c.Trader.LastRun(); !last.IsZero() {
		view.LastRun = &last
	}
	return view
}
