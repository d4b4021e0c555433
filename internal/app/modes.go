package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/idlprotocol/idlbot/internal/pipeline"
	"github.com/idlprotocol/idlbot/internal/server"
	"github.com/idlprotocol/idlbot/internal/server/handler"
	"github.com/idlprotocol/idlbot/internal/server/ws"
	"github.com/idlprotocol/idlbot/internal/service"
)

// services bundles the domain services the modes share. The daemon never
// signs, so none of them get a sender attached; submissions go through the
// CLI.
type services struct {
	market *service.MarketService
	bet    *service.BetService
	stake  *service.StakeService
}

func (a *App) buildServices(deps *Dependencies) *services {
	market := service.NewMarketService(
		deps.ProgramID, deps.Chain,
		deps.MarketStore, deps.MarketCache, deps.StateCache,
		deps.SignalBus, deps.AuditStore, a.logger,
	)
	bet := service.NewBetService(
		deps.ProgramID, deps.Chain, market, market,
		deps.BetStore, deps.LockManager, deps.AuditStore, deps.SignalBus, a.logger,
	)
	stake := service.NewStakeService(
		deps.ProgramID, deps.Chain, market,
		deps.AuditStore, deps.SignalBus, a.logger,
	)
	return &services{market: market, bet: bet, stake: stake}
}

func (a *App) buildWatcher(deps *Dependencies, svcs *services) *pipeline.Watcher {
	w := pipeline.NewWatcher(
		svcs.market, svcs.bet, svcs.market, svcs.stake,
		deps.SignalBus,
		a.cfg.Watcher.PollInterval.Duration,
		a.cfg.Watcher.SyncTimeout.Duration,
		a.logger,
	)
	if deps.Archiver != nil {
		w = w.WithArchiver(
			deps.Archiver, deps.LockManager,
			a.cfg.Watcher.ArchiveInterval.Duration,
			a.cfg.Watcher.ArchiveAfterDays,
		)
	}
	return w.WithNotifier(deps.Notifier)
}

// WatchMode runs the chain sync and archive loops without the HTTP API.
func (a *App) WatchMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting watch mode")

	if !a.cfg.Watcher.Enabled {
		a.logger.WarnContext(ctx, "watcher.enabled is false, but watch mode always runs the watcher")
	}

	g, ctx := errgroup.WithContext(ctx)

	svcs := a.buildServices(deps)
	w := a.buildWatcher(deps, svcs)
	g.Go(func() error {
		return w.Run(ctx)
	})

	return g.Wait()
}

// ServeMode runs the HTTP API and WebSocket hub over the store and cache. It
// never touches the sync loops; a watch-mode process elsewhere keeps the data
// fresh and this process sees its events through the signal bus.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	if !a.cfg.Server.Enabled {
		return fmt.Errorf("serve mode: server.enabled is false, nothing to run")
	}

	g, ctx := errgroup.WithContext(ctx)

	svcs := a.buildServices(deps)
	a.startServer(ctx, g, deps, svcs, nil)

	return g.Wait()
}

// FullMode runs the watcher and the HTTP API in one process.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	if !a.cfg.Watcher.Enabled && !a.cfg.Server.Enabled {
		return fmt.Errorf("full mode: watcher and server are both disabled, nothing to run")
	}

	g, ctx := errgroup.WithContext(ctx)

	svcs := a.buildServices(deps)

	var w *pipeline.Watcher
	if a.cfg.Watcher.Enabled {
		w = a.buildWatcher(deps, svcs)
		g.Go(func() error {
			return w.Run(ctx)
		})
	} else {
		a.logger.WarnContext(ctx, "watcher.enabled is false, running without chain sync")
	}

	if a.cfg.Server.Enabled {
		a.startServer(ctx, g, deps, svcs, w)
	} else {
		a.logger.WarnContext(ctx, "server.enabled is false, running without the API")
	}

	return g.Wait()
}

// startServer adds the WebSocket hub and HTTP server goroutines to the given
// errgroup. watcher may be nil (serve mode); the status endpoint then reports
// no sync activity.
func (a *App) startServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, svcs *services, watcher *pipeline.Watcher) {
	hub := ws.NewHub(deps.SignalBus, a.logger, ws.Config{
		Mode:      a.cfg.Mode,
		StartedAt: a.startedAt,
	})
	g.Go(func() error {
		return hub.Run(ctx)
	})

	var (
		lastSync handler.SyncSource
		trigger  handler.SyncTrigger
	)
	if watcher != nil {
		lastSync = watcher
		trigger = watcher
	}

	h := server.Handlers{
		Health: handler.NewHealthHandler(),
		Status: handler.NewStatusHandler(a.cfg.Mode, a.startedAt, lastSync, svcs.market, a.logger),
		State:  handler.NewStateHandler(svcs.market, a.logger),
		Market: handler.NewMarketHandler(svcs.market, a.logger),
		Bet:    handler.NewBetHandler(svcs.bet, a.logger),
		Staker: handler.NewStakerHandler(svcs.stake, a.logger),
		Sync:   handler.NewSyncHandler(trigger, a.logger),
	}

	srv := server.New(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
	}, h, hub, deps.RateLimiter, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.logger.Info("HTTP server shutting down")
		return srv.Shutdown(shutCtx)
	})
}
