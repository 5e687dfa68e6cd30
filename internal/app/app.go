// Package app assembles the service from configuration. Every backing
// dependency is optional: without a database URL, Redis URL or Kafka brokers
// the corresponding in-memory implementation is used.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"supplierflow/internal/effects"
	"supplierflow/internal/matcher"
	"supplierflow/internal/platform/config"
	"supplierflow/internal/platform/httpserver"
	"supplierflow/internal/platform/kafka"
	"supplierflow/internal/platform/metrics"
	platformredis "supplierflow/internal/platform/redis"
	"supplierflow/internal/ratelimit"
	ratelimitmetrics "supplierflow/internal/ratelimit/metrics"
	"supplierflow/internal/submission/handler"
	"supplierflow/internal/submission/lock"
	submissionmetrics "supplierflow/internal/submission/metrics"
	"supplierflow/internal/submission/service"
	"supplierflow/internal/submission/store"
	"supplierflow/internal/submission/vault"
	httptransport "supplierflow/internal/transport/http"
	"supplierflow/pkg/platform/circuit"
)

// App is a fully wired server and the resources it owns.
type App struct {
	Server  *http.Server
	Service *service.Service

	logger          *slog.Logger
	shutdownTimeout time.Duration
	closers         []func() error
}

// New connects to every configured backend and builds the router. On error,
// anything already opened is closed.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (a *App, err error) {
	a = &App{logger: logger, shutdownTimeout: cfg.Server.ShutdownTimeout}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	checks := map[string]httptransport.HealthCheck{}

	opts := []service.Option{
		service.WithLogger(logger),
		service.WithMetrics(submissionmetrics.New(reg)),
		service.WithThresholds(matcher.Thresholds{
			Suppliers: cfg.Matcher.SupplierThreshold,
			Watchlist: cfg.Matcher.WatchlistThreshold,
		}),
	}

	var st service.Store = store.NewInMemory()
	if cfg.Database.URL != "" {
		db, err := openDB(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		checks["postgres"] = db.PingContext
		st = store.NewPostgres(db)
		opts = append(opts,
			service.WithStoreTx(service.NewPostgresTx(db)),
			service.WithWatchlist(store.NewPostgresWatchlist(db)),
		)
		logger.InfoContext(ctx, "using postgres submission store", "driver", cfg.Database.Driver)
	}

	secrets := vault.Store(vault.NewInMemory())
	var limits ratelimit.Store = ratelimit.NewInMemory()
	rdb, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if rdb != nil {
		a.closers = append(a.closers, rdb.Close)
		checks["redis"] = rdb.Health
		secrets = vault.NewRedis(rdb.Client, cfg.Vault.TTL)
		limits = ratelimit.NewRedis(rdb.Client)
		opts = append(opts, service.WithLocker(lock.NewRedis(rdb.Client, cfg.Lock.TTL,
			lock.WithRetryWait(cfg.Lock.RetryWait),
			lock.WithLogger(logger),
		)))
		logger.InfoContext(ctx, "using redis vault and submission lock")
	}
	sealer, err := vault.New(secrets, []byte(cfg.Vault.Key))
	if err != nil {
		return nil, fmt.Errorf("configure vault: %w", err)
	}
	opts = append(opts, service.WithSealer(sealer))

	publisher, err := a.publisher(ctx, cfg.Kafka, checks)
	if err != nil {
		return nil, err
	}
	opts = append(opts, service.WithPublisher(publisher))

	if cfg.Matcher.WatchlistSeed != "" {
		seed, err := matcher.LoadNamesFile(cfg.Matcher.WatchlistSeed)
		if err != nil {
			return nil, fmt.Errorf("load watchlist seed: %w", err)
		}
		opts = append(opts, service.WithWatchlistSeed(seed))
		logger.InfoContext(ctx, "watchlist seed loaded", "entries", len(seed))
	}

	a.Service = service.New(st, opts...)
	h, err := handler.New(a.Service, logger)
	if err != nil {
		return nil, fmt.Errorf("build submission handler: %w", err)
	}
	deps := httptransport.Deps{
		Submissions:    h,
		Logger:         logger,
		Metrics:        metrics.New(reg),
		Gatherer:       reg,
		RequestTimeout: cfg.Server.RequestTimeout,
		Checks:         checks,
	}
	if cfg.RateLimit.Enabled {
		deps.RateLimit = ratelimit.NewMiddleware(limits, cfg.RateLimit.Requests, cfg.RateLimit.Window,
			ratelimit.WithLogger(logger),
			ratelimit.WithMetrics(ratelimitmetrics.New(reg)),
		).Writes
	}
	router := httptransport.NewRouter(deps)
	a.Server = httpserver.New(cfg.Server, router)
	return a, nil
}

func (a *App) publisher(ctx context.Context, cfg config.Kafka, checks map[string]httptransport.HealthCheck) (effects.Publisher, error) {
	logPublisher := effects.NewLogPublisher(a.logger)
	cl, err := kafka.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cl == nil {
		return logPublisher, nil
	}
	a.closers = append(a.closers, func() error {
		cl.Close()
		return nil
	})
	checks["kafka"] = func(ctx context.Context) error { return cl.Ping(ctx) }

	if cfg.EnsureTopic {
		if err := kafka.EnsureTopic(ctx, cl, cfg.Topic, cfg.Partitions, cfg.ReplicationFactor); err != nil {
			return nil, err
		}
	}
	breaker := circuit.New("kafka-effects", circuit.WithFailureThreshold(5), circuit.WithCooldown(30*time.Second))
	a.logger.InfoContext(ctx, "publishing effects to kafka", "topic", cfg.Topic, "brokers", cfg.Brokers)
	return effects.MultiPublisher{
		logPublisher,
		effects.NewKafkaPublisher(cl, cfg.Topic, effects.WithBreaker(breaker)),
	}, nil
}

func openDB(ctx context.Context, cfg config.Database) (*sql.DB, error) {
	db, err := sql.Open(cfg.Driver, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLife)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if cfg.Migrate {
		if err := store.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
	}
	return db, nil
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.InfoContext(ctx, "starting supplierflow", "addr", a.Server.Addr)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return a.Close()
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.shutdownTimeout)
	defer cancel()
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return a.Close()
}

// Close releases backend connections in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
