package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/marketgroups/internal/feed"
	"github.com/alanyoungcy/marketgroups/internal/server"
	"github.com/alanyoungcy/marketgroups/internal/server/handler"
	"github.com/alanyoungcy/marketgroups/internal/server/ws"
)

// shutdownTimeout bounds the graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

// ServeMode runs the HTTP API and the websocket hub. Recomputes are only
// triggered by snapshot ingests through the API.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startSessionSweeper(ctx, g, deps)
	a.startHTTPServer(ctx, g, deps)
	return ignoreCanceled(g.Wait())
}

// WorkerMode runs the bus feeders: snapshot updates trigger organizer
// recomputes and selection notifications drive the bet-builder gates.
func (a *App) WorkerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting worker mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startSessionSweeper(ctx, g, deps)
	a.startFeeders(ctx, g, deps)
	return ignoreCanceled(g.Wait())
}

// FullMode runs the feeders and, when enabled, the HTTP server in one
// process.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startSessionSweeper(ctx, g, deps)
	a.startFeeders(ctx, g, deps)
	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps)
	}
	return ignoreCanceled(g.Wait())
}

func (a *App) startFeeders(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	snapshots := feed.NewSnapshotFeeder(deps.SignalBus, deps.Organizers, deps.Metrics, a.logger)
	g.Go(func() error {
		return snapshots.Run(ctx)
	})

	if deps.BetBuilder == nil {
		a.logger.InfoContext(ctx, "bet builder disabled; selection feeder not started")
		return
	}
	selections := feed.NewSelectionFeeder(deps.SignalBus, deps.BetBuilder, deps.Metrics, a.logger)
	g.Go(func() error {
		return selections.Run(ctx)
	})
}

func (a *App) startSessionSweeper(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if deps.BetBuilder == nil {
		return
	}
	bb := a.cfg.BetBuilder
	g.Go(func() error {
		return deps.BetBuilder.RunSweeper(ctx, bb.SweepInterval.Duration, bb.SessionIdleTTL.Duration)
	})
}

func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	hub := ws.NewHub(deps.SignalBus, a.cfg.Server.CORSOrigins, a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	checks := map[string]handler.CheckFunc{"redis": deps.Redis.Ping}
	if deps.Postgres != nil {
		checks["postgres"] = deps.Postgres.Ping
	}

	handlers := server.Handlers{
		Health:     handler.NewHealthHandler(checks, a.logger),
		Organizers: handler.NewOrganizerHandler(deps.Organizers, a.logger),
	}
	if deps.BetBuilder != nil {
		handlers.BetBuilder = handler.NewBetBuilderHandler(deps.BetBuilder, a.logger)
	}
	if deps.Metrics != nil {
		handlers.Metrics = deps.Metrics.Handler()
	}

	srv := server.NewServer(server.Config{
		Port:               a.cfg.Server.Port,
		CORSOrigins:        a.cfg.Server.CORSOrigins,
		APIKey:             a.cfg.Server.APIKey,
		RateLimitPerMinute: a.cfg.Server.RateLimitPerMinute,
		MetricsPath:        a.cfg.Metrics.Path,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("http shutdown incomplete", slog.String("error", err.Error()))
			return err
		}
		return nil
	})
}

// ignoreCanceled treats cancellation as a clean stop.
func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
