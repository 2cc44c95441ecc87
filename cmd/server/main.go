package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"cpfregistry/internal/cpf"
	cpfmetrics "cpfregistry/internal/cpf/metrics"
	cpfservice "cpfregistry/internal/cpf/service"
	cpfstore "cpfregistry/internal/cpf/store"
	"cpfregistry/internal/platform/config"
	"cpfregistry/internal/platform/httpserver"
	"cpfregistry/internal/platform/logger"
	"cpfregistry/internal/platform/metrics"
	"cpfregistry/internal/platform/postgres"
	"cpfregistry/internal/platform/postgres/migrate"
	"cpfregistry/internal/platform/ratelimit"
	"cpfregistry/internal/platform/redis"
	"cpfregistry/internal/platform/telemetry"
	httptransport "cpfregistry/internal/transport/http"
)

// registryStore is what main needs from a store: the service port plus a ping
// for /health.
type registryStore interface {
	cpf.Store
	Ping(ctx context.Context) error
}

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "cpf-registry: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.Log)

	tracing, err := telemetry.New(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	tracing.SetGlobal()
	defer shutdownTracing(tracing, cfg, log)
	if tracing.Exporting {
		log.Info("exporting traces", "endpoint", cfg.Telemetry.Endpoint)
	}

	reg := metrics.NewRegistry()
	httpMetrics := metrics.New(reg)

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	svc, err := cpf.NewService(store,
		cpfservice.WithLogger(log),
		cpfservice.WithMetrics(cpfmetrics.New(reg)),
		cpfservice.WithTracer(tracing.Tracer()),
	)
	if err != nil {
		return err
	}

	deps := httptransport.Deps{
		Logger:      log,
		Routes:      []httptransport.Routes{cpf.NewHandler(svc, log)},
		Health:      store,
		Metrics:     httpMetrics,
		Gatherer:    reg,
		CORSOrigins: cfg.CORS.AllowedOrigins,
		TrustProxy:  cfg.TrustProxy,
	}

	var limiter *ratelimit.Store
	if cfg.RateLimit.Enabled() {
		limiter = ratelimit.NewStore(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		deps.RateLimit = limiter

		stats, closeStats, err := openStats(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer closeStats()
		deps.RateLimitStats = stats
	} else {
		log.Info("rate limiting disabled")
	}

	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(deps))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting cpf registry", "addr", cfg.Addr, "storage", cfg.Storage)
		return httpserver.ListenAndServe(gctx, srv, cfg.ShutdownTimeout)
	})
	if limiter != nil {
		g.Go(func() error { return limiter.Run(gctx) })
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("cpf registry stopped")
	return nil
}

// shutdownTracing flushes buffered spans; the run context is already
// cancelled at this point so it gets its own deadline.
func shutdownTracing(p *telemetry.Provider, cfg config.Config, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := p.Shutdown(ctx); err != nil {
		log.Error("failed to flush traces", "error", err)
	}
}

// openStore selects the in-memory or Postgres store, applying migrations first
// when configured.
func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (registryStore, func(), error) {
	if !cfg.UsesPostgres() {
		log.Warn("using in-memory storage; records are lost on restart")
		return cpfstore.NewInMemory(), func() {}, nil
	}

	if cfg.Database.MigrateOnStart {
		if err := migrate.Run(cfg.Database.URL, migrate.DirectionUp); err != nil {
			return nil, nil, fmt.Errorf("apply migrations: %w", err)
		}
		log.Info("database migrations applied")
	}

	db, err := postgres.Open(ctx, postgres.Config{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, nil, err
	}
	log.Info("connected to postgres", "driver", cfg.Database.Driver)

	return cpfstore.NewPostgres(db), func() {
		if err := db.Close(); err != nil {
			log.Error("failed to close database", "error", err)
		}
	}, nil
}

// openStats uses Redis when REDIS_URL is set and keeps counters in memory otherwise.
func openStats(ctx context.Context, cfg config.Config, log *slog.Logger) (ratelimit.StatsStore, func(), error) {
	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	if client == nil {
		return ratelimit.NewMemoryStats(), func() {}, nil
	}
	log.Info("recording rate limit stats in redis")
	return ratelimit.NewRedisStats(client.Client), func() {
		if err := client.Close(); err != nil {
			log.Error("failed to close redis", "error", err)
		}
	}, nil
}
