package admin

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/cloo-solutions/plotsearch/internal/broker"
	"github.com/cloo-solutions/plotsearch/internal/config"
	"github.com/cloo-solutions/plotsearch/internal/database"
	"github.com/cloo-solutions/plotsearch/internal/jobs"
	"github.com/cloo-solutions/plotsearch/internal/logging"
	"github.com/cloo-solutions/plotsearch/internal/metrics"
	"github.com/cloo-solutions/plotsearch/internal/repository"
	"github.com/cloo-solutions/plotsearch/internal/service"
	"github.com/cloo-solutions/plotsearch/internal/telemetry"
	"github.com/jackc/pgx/v5/pgxpool"
)

// app bundles the wired services shared by serve and sweep.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	pool    *pgxpool.Pool

	search   *service.SearchService
	geo      *service.GeoService
	saved    *service.SavedSearchService
	shutdown []func()
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.Setup(logging.Options{
		Writer: os.Stderr,
		Format: cfg.LogFormat,
		Debug:  cfg.Debug,
	})

	a := &app{cfg: cfg, logger: logger, metrics: metrics.New()}

	// 10% sampling outside development
	sampleRate := 0.1
	if cfg.Environment == "development" {
		sampleRate = 1.0
	}
	flush, err := telemetry.Init(telemetry.Config{
		DSN:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		TracesSampleRate: sampleRate,
		Debug:            cfg.Debug,
	})
	if err != nil {
		logger.Warn("telemetry init failed, continuing without tracing", "error", err)
	} else {
		a.shutdown = append(a.shutdown, flush)
	}

	pool, err := database.NewPool(ctx, database.Config{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.pool = pool
	a.shutdown = append(a.shutdown, pool.Close)
	logger.Info("connected to database", "geography", cfg.GeographyEnabled)

	return a, nil
}

// wire builds repositories and services. Call after migrations ran.
func (a *app) wire() {
	properties := repository.NewPropertyRepository(a.pool, a.cfg.GeographyEnabled)
	locations := repository.NewLocationRepository(a.pool)
	features := repository.NewFeatureRepository(a.pool)
	savedSearches := repository.NewSavedSearchRepository(a.pool)

	executor := service.NewQueryExecutor(properties, service.ExecutorConfig{
		StoreTimeout:  a.cfg.StoreTimeout,
		MaxCandidates: a.cfg.MaxCandidates,
	}, a.logger, a.metrics)

	a.search = service.NewSearchService(executor, locations, features, a.logger, a.metrics)
	a.geo = service.NewGeoService(executor, a.logger, a.metrics)
	a.saved = service.NewSavedSearchService(savedSearches, repository.NewTxRunner(a.pool), a.search, a.logger, a.metrics)
}

// publisher returns a RabbitMQ publisher when a broker is configured and
// a log-only publisher otherwise.
func (a *app) publisher() (jobs.MatchPublisher, error) {
	if !a.cfg.HasBroker() {
		a.logger.Info("no broker configured, sweep results are logged only")
		return broker.NewLogPublisher(a.logger), nil
	}
	p, err := broker.NewPublisher(broker.Config{
		URL:      a.cfg.RabbitMQURL,
		Exchange: a.cfg.SweepExchange,
	}, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}
	a.shutdown = append(a.shutdown, func() {
		if err := p.Close(); err != nil {
			a.logger.Warn("broker close failed", "error", err)
		}
	})
	return p, nil
}

func (a *app) sweepProcessor(exact bool) (*jobs.SweepProcessor, error) {
	pub, err := a.publisher()
	if err != nil {
		return nil, err
	}
	return jobs.NewSweepProcessor(a.saved, pub, jobs.SweepConfig{Exact: exact}, a.logger, a.metrics), nil
}

func (a *app) close() {
	for i := len(a.shutdown) - 1; i >= 0; i-- {
		a.shutdown[i]()
	}
	a.shutdown = nil
}
