// Package app owns the application lifecycle: it wires stores, caches, blob
// storage, and services, starts the HTTP server and WebSocket hub, and tears
// everything down on shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/predmarket/marketd/internal/config"
	"github.com/predmarket/marketd/internal/moderation"
	"github.com/predmarket/marketd/internal/server"
	"github.com/predmarket/marketd/internal/server/handler"
	"github.com/predmarket/marketd/internal/server/ws"
	"github.com/predmarket/marketd/internal/service"
)

// shutdownTimeout bounds the drain of in-flight requests.
const shutdownTimeout = 10 * time.Second

// App is the root application object.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates an App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies, starts the API server and event hub, and
// blocks until the context is cancelled or a component fails.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("storage", a.cfg.Storage),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	logger := a.logger
	engine := a.cfg.Engine

	reputation := service.NewReputationService(deps.ProfileStore, deps.Clock, logger)
	markets := service.NewMarketService(deps.MarketStore, deps.LiquidityStore,
		deps.MarketCache, deps.LockManager, deps.Ledger, reputation,
		deps.SignalBus, deps.Clock, engine, logger)
	trades := service.NewTradeService(deps.MarketStore, deps.PositionStore,
		deps.ProfileStore, deps.LiquidityStore, deps.MarketCache,
		deps.LockManager, deps.Ledger, reputation, deps.SignalBus, deps.Clock,
		engine, logger)
	liquidity := service.NewLiquidityService(deps.MarketStore, deps.LiquidityStore,
		deps.MarketCache, deps.LockManager, deps.Ledger, deps.SignalBus,
		deps.Clock, engine, logger)
	resolution := service.NewResolutionService(deps.MarketStore, deps.GovernanceStore,
		deps.EvidenceStore, deps.MarketCache, deps.LockManager, reputation,
		deps.Oracle, deps.Archiver, deps.SignalBus, deps.Clock, engine,
		a.cfg.Governance.EligibilityThreshold, logger)
	settlement := service.NewSettlementService(deps.MarketStore, deps.PositionStore,
		deps.ProfileStore, deps.LockManager, deps.Ledger, deps.SignalBus,
		deps.Clock, engine, logger)
	governance := service.NewGovernanceService(deps.MarketStore, deps.GovernanceStore,
		deps.MarketCache, deps.LockManager, deps.SignalBus, deps.Clock, logger)
	matcher := moderation.NewTermMatcher(a.cfg.Moderation.BannedTerms)
	reports := service.NewModerationService(deps.MarketStore, deps.ReportStore,
		deps.MarketCache, deps.LockManager, matcher, deps.SignalBus, deps.Clock,
		logger)

	handlers := server.Handlers{
		Health:     handler.NewHealthHandler(logger),
		Markets:    handler.NewMarketHandler(markets, logger),
		Trades:     handler.NewTradeHandler(trades, logger),
		Liquidity:  handler.NewLiquidityHandler(liquidity, logger),
		Resolution: handler.NewResolutionHandler(resolution, logger),
		Settlement: handler.NewSettlementHandler(settlement, logger),
		Governance: handler.NewGovernanceHandler(governance, logger),
		Users:      handler.NewUserHandler(reputation, logger),
		Reports:    handler.NewReportHandler(reports, logger),
		Oracle:     handler.NewOracleHandler(deps.Oracle, logger),
	}

	hub := ws.NewHub(deps.SignalBus, service.ChannelMarketEvents, logger)
	srv := server.NewServer(server.Config{
		Port:          a.cfg.Server.Port,
		CORSOrigins:   a.cfg.Server.CORSOrigins,
		APIKey:        a.cfg.Server.APIKey,
		RateLimit:     a.cfg.Server.RateLimit,
		RateWindowSec: a.cfg.Server.RateWindowSec,
	}, handlers, hub, deps.RateLimiter, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return hub.Run(gctx)
	})
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close tears down all resources in reverse registration order. Safe to call
// multiple times.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
