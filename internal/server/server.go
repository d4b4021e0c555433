// Package server exposes the read API and WebSocket feed for the dashboard.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/idlprotocol/idlbot/internal/domain"
	"github.com/idlprotocol/idlbot/internal/server/handler"
	"github.com/idlprotocol/idlbot/internal/server/middleware"
	"github.com/idlprotocol/idlbot/internal/server/ws"
)

// apiRateLimit caps requests per client IP per minute when a limiter is
// configured. The quote endpoint hits the RPC node on every call, so the API
// is not free to serve.
const apiRateLimit = 120

// Config holds the HTTP server settings.
type Config struct {
	Port        int
	CORSOrigins []string
}

// Handlers aggregates the endpoint handlers the server registers.
type Handlers struct {
	Health *handler.HealthHandler
	Status *handler.StatusHandler
	State  *handler.StateHandler
	Market *handler.MarketHandler
	Bet    *handler.BetHandler
	Staker *handler.StakerHandler
	Sync   *handler.SyncHandler
}

// Server is the HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a Server with all routes registered. wsHub and limiter may be
// nil, which disables the WebSocket feed and rate limiting respectively.
func New(cfg Config, h Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", h.Health.HealthCheck)
	mux.HandleFunc("GET /api/status", h.Status.GetStatus)
	mux.HandleFunc("GET /api/state", h.State.GetState)

	mux.HandleFunc("GET /api/markets", h.Market.ListMarkets)
	mux.HandleFunc("GET /api/markets/{address}", h.Market.GetMarket)
	mux.HandleFunc("GET /api/markets/{address}/bets", h.Bet.ListMarketBets)
	mux.HandleFunc("POST /api/markets/{address}/quote", h.Bet.QuotePayout)

	mux.HandleFunc("GET /api/bets", h.Bet.ListOwnerBets)
	mux.HandleFunc("GET /api/bets/{address}", h.Bet.GetBet)

	mux.HandleFunc("GET /api/stakers/{address}", h.Staker.GetStaker)
	mux.HandleFunc("GET /api/badges/{address}", h.Staker.GetBadge)

	mux.HandleFunc("POST /api/sync", h.Sync.TriggerSync)

	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Middleware chain, innermost first.
	var root http.Handler = mux
	if limiter != nil {
		root = middleware.RateLimit(limiter, apiRateLimit, time.Minute, logger)(root)
	}
	root = middleware.Logging(logger)(root)
	root = middleware.CORS(cfg.CORSOrigins)(root)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      root,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// Start listens and serves until the server errors or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
