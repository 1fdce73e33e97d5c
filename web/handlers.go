package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nebulamarket/autotrader/advisor"
	"github.com/nebulamarket/autotrader/risk"
	"github.com/nebulamarket/autotrader/sim"
	"go.uber.org/zap"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("encode response", zap.Error(err))
	}
}

// writeError maps domain errors onto HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, sim.ErrTradeNotFound):
		status = http.StatusNotFound
	case errors.Is(err, sim.ErrAlreadyClosed):
		status = http.StatusConflict
	case errors.Is(err, sim.ErrInvalidLotSize),
		errors.Is(err, sim.ErrInvalidAmount),
		errors.Is(err, sim.ErrUnknownSymbol),
		errors.Is(err, sim.ErrNoPrice):
		status = http.StatusBadRequest
	case errors.Is(err, sim.ErrInsufficientFunds):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, advisor.ErrUnavailable):
		status = http.StatusBadGateway
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.ctl.state())
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.ctl.Activity.Events())
}

func (s *Server) handleBotStart(w http.ResponseWriter, r *http.Request) {
	s.ctl.Trader.Start()
	s.writeJSON(w, http.StatusOK, map[string]bool{"running": true})
}

func (s *Server) handleBotStop(w http.ResponseWriter, r *http.Request) {
	s.ctl.Trader.Stop()
	s.writeJSON(w, http.StatusOK, map[string]bool{"running": false})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Symbol string `json:"symbol"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	analysis, err := s.ctl.Trader.AnalyzeOnly(r.Context(), req.Symbol)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, analysis)
}

func (s *Server) handleOpenTrade(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Symbol             string  `json:"symbol"`
		Side               string  `json:"side"`
		LotSize            float64 `json:"lotSize"`
		StopLossDistance   float64 `json:"stopLossDistance"`
		TakeProfitDistance float64 `json:"takeProfitDistance"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	side := sim.Side(req.Side)
	if side != sim.Buy && side != sim.Sell {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "side must be BUY or SELL"})
		return
	}

	trade, err := s.ctl.Engine.OpenTrade(sim.OpenRequest{
		Symbol:             req.Symbol,
		Side:               side,
		LotSize:            req.LotSize,
		StopLossDistance:   req.StopLossDistance,
		TakeProfitDistance: req.TakeProfitDistance,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, trade)
}

func (s *Server) handleCloseTrade(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TradeID string `json:"tradeId"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	trade, err := s.ctl.Engine.CloseTrade(req.TradeID, sim.ReasonManual)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, trade)
}

func (s *Server) handleProtective(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TradeID    string  `json:"tradeId"`
		StopLoss   float64 `json:"stopLoss"`
		TakeProfit float64 `json:"takeProfit"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	trade, err := s.ctl.Engine.UpdateProtective(req.TradeID, req.StopLoss, req.TakeProfit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, trade)
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	s.handleWalletOp(w, r, s.ctl.Engine.Deposit)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	s.handleWalletOp(w, r, s.ctl.Engine.Withdraw)
}

func (s *Server) handleWalletOp(w http.ResponseWriter, r *http.Request, op func(float64) (sim.Account, error)) {
	var req struct {
		Amount float64 `json:"amount"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	acct, err := op(req.Amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, acct)
}

func (s *Server) handleGetRisk(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.ctl.Risk.All())
}

func (s *Server) handleUpdateRisk(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Symbol   string        `json:"symbol"`
		Settings risk.Settings `json:"settings"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	if err := s.ctl.Risk.Update(req.Symbol, req.Settings); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, req.Settings)
}

func (s *Server) handleEnableSymbol(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Symbol string `json:"symbol"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	if err := s.ctl.Enabled.Enable(req.Symbol); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, s.ctl.Enabled.List())
}

func (s *Server) handleDisableSymbol(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Symbol string `json:"symbol"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	s.ctl.Enabled.Disable(req.Symbol)
	s.writeJSON(w, http.StatusOK, s.ctl.Enabled.List())
}
