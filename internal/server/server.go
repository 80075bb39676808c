// Package server wires the HTTP API: routes, middleware chain, and the
// WebSocket event stream.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/predmarket/marketd/internal/domain"
	"github.com/predmarket/marketd/internal/server/handler"
	"github.com/predmarket/marketd/internal/server/middleware"
	"github.com/predmarket/marketd/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port          int
	CORSOrigins   []string
	APIKey        string // empty disables authentication
	RateLimit     int    // requests per window per client, 0 disables
	RateWindowSec int
}

// Handlers aggregates the HTTP handlers the server registers.
type Handlers struct {
	Health     *handler.HealthHandler
	Markets    *handler.MarketHandler
	Trades     *handler.TradeHandler
	Liquidity  *handler.LiquidityHandler
	Resolution *handler.ResolutionHandler
	Settlement *handler.SettlementHandler
	Governance *handler.GovernanceHandler
	Users      *handler.UserHandler
	Reports    *handler.ReportHandler
	Oracle     *handler.OracleHandler
}

// Server is the HTTP + WebSocket API for the market engine.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer registers all routes and builds the middleware chain. limiter may
// be nil to disable rate limiting regardless of config.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check, no auth.
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Market lifecycle.
	mux.HandleFunc("POST /api/markets", handlers.Markets.CreateMarket)
	mux.HandleFunc("GET /api/markets", handlers.Markets.ListMarkets)
	mux.HandleFunc("GET /api/markets/{id}", handlers.Markets.GetMarket)
	mux.HandleFunc("POST /api/markets/{id}/meta", handlers.Markets.CreateMetaMarket)
	mux.HandleFunc("POST /api/markets/{id}/restore", handlers.Markets.Restore)
	mux.HandleFunc("GET /api/stats", handlers.Markets.Stats)

	// Trading.
	mux.HandleFunc("POST /api/markets/{id}/predict", handlers.Trades.PlacePrediction)
	mux.HandleFunc("POST /api/markets/{id}/sell", handlers.Trades.SellPosition)

	// Liquidity.
	mux.HandleFunc("POST /api/markets/{id}/liquidity", handlers.Liquidity.AddLiquidity)
	mux.HandleFunc("DELETE /api/markets/{id}/liquidity", handlers.Liquidity.RemoveLiquidity)

	// Resolution, voting, evidence.
	mux.HandleFunc("POST /api/markets/{id}/resolve", handlers.Resolution.ResolveByAuthority)
	mux.HandleFunc("POST /api/markets/{id}/resolve/oracle", handlers.Resolution.ResolveWithOracle)
	mux.HandleFunc("POST /api/markets/{id}/resolve/community", handlers.Resolution.ResolveByCommunity)
	mux.HandleFunc("POST /api/markets/{id}/resolve/time", handlers.Resolution.ResolveTimeBased)
	mux.HandleFunc("POST /api/markets/{id}/resolve/votes", handlers.Resolution.VoteOnResolution)
	mux.HandleFunc("POST /api/markets/{id}/votes", handlers.Resolution.VoteOnEligibility)
	mux.HandleFunc("POST /api/markets/{id}/evidence", handlers.Resolution.SubmitEvidence)
	mux.HandleFunc("GET /api/markets/{id}/evidence", handlers.Resolution.ListEvidence)

	// Settlement.
	mux.HandleFunc("POST /api/markets/{id}/claim", handlers.Settlement.ClaimWinnings)

	// Moderation.
	mux.HandleFunc("POST /api/markets/{id}/report", handlers.Reports.ReportContent)
	mux.HandleFunc("GET /api/markets/{id}/reports", handlers.Reports.ListReports)

	// Governance.
	mux.HandleFunc("POST /api/governance/actions", handlers.Governance.SignAction)
	mux.HandleFunc("GET /api/governance/actions", handlers.Governance.ListActions)

	// Oracle feed ingestion.
	mux.HandleFunc("POST /api/oracle/feeds", handlers.Oracle.RegisterFeed)
	mux.HandleFunc("POST /api/oracle/feeds/{id}/readings", handlers.Oracle.PostReading)

	// Users.
	mux.HandleFunc("GET /api/users/{id}", handlers.Users.GetProfile)
	mux.HandleFunc("POST /api/users/{id}/reputation", handlers.Users.UpdateReputation)
	mux.HandleFunc("POST /api/users/{id}/verify", handlers.Users.VerifyHuman)

	// Event stream.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	if limiter != nil && cfg.RateLimit > 0 {
		window := time.Duration(cfg.RateWindowSec) * time.Second
		if window <= 0 {
			window = time.Minute
		}
		h = middleware.RateLimit(limiter, cfg.RateLimit, window)(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      h,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// Start blocks serving requests until the server errors or shuts down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
