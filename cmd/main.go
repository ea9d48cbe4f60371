package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/rigmatch/internal/adapters/dataset"
	"github.com/okian/rigmatch/internal/adapters/http/api"
	"github.com/okian/rigmatch/internal/adapters/http/site"
	"github.com/okian/rigmatch/internal/adapters/http/swagger"
	"github.com/okian/rigmatch/internal/adapters/inventory"
	"github.com/okian/rigmatch/internal/adapters/modelstore"
	app "github.com/okian/rigmatch/internal/app"
	"github.com/okian/rigmatch/internal/config"
	"github.com/okian/rigmatch/internal/domain/catalog"
	"github.com/okian/rigmatch/internal/domain/dedupe"
	"github.com/okian/rigmatch/internal/domain/scoring"
	"github.com/okian/rigmatch/pkg/logger"
	"github.com/okian/rigmatch/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 30 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	metrics.GetRegistry().MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	svc, cleanup, err := buildService(ctx, cfg)
	if err != nil {
		loggerInstance.Error(ctx, "failed to build service", logger.Error(err))
		os.Exit(1)
	}
	defer cleanup()

	if err := svc.Start(ctx); err != nil {
		loggerInstance.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop()

	// Start service metrics updater
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           buildHandler(ctx, cfg, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// buildService wires the catalog sources, the inventory oracle and the model
// store into an unstarted service. cleanup closes the inventory.
func buildService(ctx context.Context, cfg *config.Config) (*app.Service, func(), error) {
	inv, err := inventory.Open(ctx, cfg.InventoryDB, inventory.WithLogger(logger.Named("inventory")))
	if err != nil {
		return nil, nil, fmt.Errorf("open inventory: %w", err)
	}
	cleanup := func() { _ = inv.Close() }
	if err := inv.EnsureSchema(ctx); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("inventory schema: %w", err)
	}

	loader := catalog.NewCombinedLoader(logger.Named("catalog"),
		catalog.NamedLoader{
			Name:   "datasets",
			Loader: dataset.NewCSVLoader(cfg.DatasetsDir, dataset.WithLogger(logger.Named("dataset"))),
		},
		catalog.NamedLoader{Name: "inventory", Loader: inv},
	)
	oracle := inventory.NewBreakerOracle(inv,
		inventory.WithFailureThreshold(cfg.OracleFailureThreshold),
		inventory.WithOpenTimeout(cfg.OracleOpenTimeout()),
		inventory.WithBreakerLogger(logger.Named("oracle")),
	)

	opts := []app.Option{
		app.WithLogger(logger.Named("service")),
		app.WithOracle(oracle),
		app.WithInventory(inv),
		app.WithScorer(scoring.NewRuleScorer(scoring.WithPSUHeadroom(cfg.PSUHeadroomWatts))),
		app.WithQueueSize(cfg.RebuildQueueSize),
		app.WithMaxFeatures(cfg.MaxFeatures),
	}
	if cfg.ModelPath != "" {
		opts = append(opts, app.WithModelStore(
			modelstore.NewFileStore(cfg.ModelPath, modelstore.WithLogger(logger.Named("modelstore")))))
	}
	return app.New(loader, opts...), cleanup, nil
}

// buildHandler returns the router serving the API, its OpenAPI document and
// the docs pages.
func buildHandler(ctx context.Context, cfg *config.Config, svc api.Dependencies) http.Handler {
	r := api.NewRouter(api.WithCORSOrigins(cfg.CORSOrigins()...))
	swagger.Register(ctx, r)
	site.Register(ctx, r)
	api.NewServer(svc,
		api.WithDefaultCount(cfg.DefaultCount),
		api.WithMaxCount(cfg.MaxCount),
		api.WithMaxRequestBytes(cfg.MaxRequestBytes),
		api.WithLogger(logger.Named("api")),
		api.WithDeduper(dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(cfg.SyncDedupeSize))),
		api.WithAdminRateLimit(cfg.AdminRateLimit, time.Minute),
	).Register(ctx, r)
	return r
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateServiceMetrics copies queue gauges from the service statistics.
func updateServiceMetrics(svc api.StatsProvider) {
	stats := svc.GetStats()
	metrics.UpdateQueueSize(stats.QueueLength)
	metrics.UpdateQueueCapacity(stats.QueueCapacity)
}
