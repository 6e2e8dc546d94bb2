package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/marketgroups/internal/cache/redis"
	"github.com/alanyoungcy/marketgroups/internal/config"
	"github.com/alanyoungcy/marketgroups/internal/domain"
	"github.com/alanyoungcy/marketgroups/internal/grouping"
	"github.com/alanyoungcy/marketgroups/internal/metrics"
	"github.com/alanyoungcy/marketgroups/internal/ordering"
	"github.com/alanyoungcy/marketgroups/internal/platform/sportsbook"
	"github.com/alanyoungcy/marketgroups/internal/service"
	"github.com/alanyoungcy/marketgroups/internal/store/postgres"
)

// Dependencies bundles everything the application modes need. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Redis    *redis.Client
	Postgres *postgres.Client // nil when postgres.enabled is false

	Snapshots   domain.SnapshotCache
	SignalBus   *redis.SignalBus
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager
	Settings    domain.OperatorSettingsStore // nil without Postgres

	Metrics *metrics.Metrics // nil when metrics.enabled is false
	Engine  *grouping.Engine

	Organizers *service.OrganizerService
	BetBuilder *service.BetBuilderService // nil when betbuilder.enabled is false
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	if cfg.Metrics.Enabled {
		deps.Metrics = metrics.New(cfg.Metrics.Namespace)
	}

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.Redis = redisClient
	deps.Snapshots = redis.NewSnapshotCache(redisClient, cfg.Redis.SnapshotTTL.Duration)
	deps.SignalBus = redis.NewSignalBus(redisClient)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)

	// --- PostgreSQL (operator settings only) ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		deps.Postgres = pgClient
		deps.Settings = postgres.NewOperatorSettingsStore(pgClient.Pool())
	}

	// --- Grouping engine ---
	deps.Engine = grouping.NewEngine(
		ordering.NewCodeRanker(cfg.Ordering.Ranks),
		nil,
		grouping.Options{
			NamePolicy:              grouping.NamePolicy(cfg.Grouping.NamePolicy),
			ColumnListedKeyPrefixes: cfg.Grouping.ColumnListedKeyPrefixes,
			Logger:                  logger,
		},
	)

	deps.Organizers = service.NewOrganizerService(
		deps.Engine,
		deps.Snapshots,
		deps.Settings,
		deps.SignalBus,
		deps.LockManager,
		deps.Metrics,
		service.OrganizerServiceConfig{
			Operator:        cfg.Grouping.Operator,
			StaticUngrouped: cfg.Grouping.UngroupedMarketTypeIDs,
			SettingsTTL:     cfg.Grouping.SettingsTTL.Duration,
			LockTTL:         cfg.Grouping.RecomputeLockTTL.Duration,
		},
		logger,
	)

	// --- Bet builder ---
	if cfg.BetBuilder.Enabled {
		client := sportsbook.NewClient(cfg.BetBuilder.BaseURL, cfg.BetBuilder.APIKey, cfg.BetBuilder.Timeout.Duration, logger)
		deps.BetBuilder = service.NewBetBuilderService(
			client, deps.SignalBus, deps.Metrics, cfg.BetBuilder.Timeout.Duration, logger,
		)
		closers = append(closers, func() { _ = deps.BetBuilder.Close() })
	}

	return deps, cleanup, nil
}
