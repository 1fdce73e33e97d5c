// Package web exposes the simulator over a JSON HTTP API. All state
// mutation goes through the engine and bot packages; handlers only
// translate requests and map domain errors to status codes.
package web

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type Server struct {
	ctl  *Controller
	log  *zap.Logger
	http *http.Server
}

func NewServer(addr string, ctl *Controller, log *zap.Logger) *Server {
	s := &Server{ctl: ctl, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/activity", s.handleActivity)
	mux.HandleFunc("POST /api/bot/start", s.handleBotStart)
	mux.HandleFunc("POST /api/bot/stop", s.handleBotStop)
	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	mux.HandleFunc("POST /api/trades", s.handleOpenTrade)
	mux.HandleFunc("POST /api/trades/close", s.handleCloseTrade)
	mux.HandleFunc("POST /api/trades/protective", s.handleProtective)
	mux.HandleFunc("POST /api/wallet/deposit", s.handleDeposit)
	mux.HandleFunc("POST /api/wallet/withdraw", s.handleWithdraw)
	mux.HandleFunc("GET /api/risk", s.handleGetRisk)
	mux.HandleFunc("PUT /api/risk", s.handleUpdateRisk)
	mux.HandleFunc("POST /api/symbols/enable", s.handleEnableSymbol)
	mux.HandleFunc("POST /api/symbols/disable", s.handleDisableSymbol)

	s.http = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Handler exposes the route table for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http api listening", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down http api")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
