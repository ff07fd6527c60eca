package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/MikeSquared-Agency/Archetype/internal/api"
	"github.com/MikeSquared-Agency/Archetype/internal/broker"
	"github.com/MikeSquared-Agency/Archetype/internal/cache"
	"github.com/MikeSquared-Agency/Archetype/internal/config"
	"github.com/MikeSquared-Agency/Archetype/internal/hermes"
	"github.com/MikeSquared-Agency/Archetype/internal/metrics"
	"github.com/MikeSquared-Agency/Archetype/internal/scoring"
	"github.com/MikeSquared-Agency/Archetype/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logging.NewLogger()
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Store
	var st store.Store
	if cfg.Database.URL != "" {
		db, err := store.NewPostgresStore(ctx, cfg.Database.URL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		if cfg.Database.Migrate {
			if err := db.Migrate(ctx); err != nil {
				logger.Error("failed to migrate database", "error", err)
				os.Exit(1)
			}
		}
		st = db
		logger.Info("connected to database")
	} else {
		st = store.NewMemoryStore(nil)
		logger.Warn("no database configured, catalog is kept in memory")
	}

	// Redis cache (optional)
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			logger.Error("invalid redis url", "error", err)
			os.Exit(1)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, reads fall through to the store", "error", err)
		}
		st = cache.NewCatalogStore(st, rdb, cfg.Redis.TTL(), logger)
		logger.Info("catalog cache enabled", "ttl", cfg.Redis.TTL())
	}
	defer st.Close()

	// Hermes (optional)
	var hermesClient hermes.Client
	if cfg.Hermes.URL != "" {
		hc, err := hermes.NewNATSClient(ctx, cfg.Hermes.URL, logger)
		if err != nil {
			logger.Warn("failed to connect to hermes, running without events", "error", err)
		} else {
			hermesClient = hc
			defer hc.Close()
			logger.Info("connected to hermes")
		}
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Broker
	b := broker.New(st, hermesClient, m, broker.Options{
		Tunables:        cfg.Calibration.Tunables(),
		CalibrateOnSave: cfg.Calibration.OnSave,
		Interval:        cfg.Calibration.Interval(),
	}, logger)
	if seed := cfg.Calibration.Seed; seed != 0 {
		b.SetRandSource(func() scoring.Rand { return scoring.NewRand(seed) })
	}
	if err := b.SetupSubscriptions(); err != nil {
		logger.Warn("failed to subscribe to calibration requests", "error", err)
	}
	b.Start(ctx)
	defer b.Stop()
	logger.Info("broker started", "calibration_interval", cfg.Calibration.Interval(), "calibrate_on_save", cfg.Calibration.OnSave)

	// Scorer
	policy, _ := cfg.Matching.MatchPolicy()
	var tieRand scoring.Rand
	if cfg.Calibration.Seed != 0 {
		tieRand = scoring.NewRand(cfg.Calibration.Seed)
	}
	scorer := scoring.NewScorer(scoring.NewMatcher(policy, tieRand), logger)

	// API server
	router := api.NewRouter(st, hermesClient, b, scorer, m, cfg, logger)
	apiServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Metrics server
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler:           api.NewMetricsRouter(reg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("API server starting", "port", cfg.Server.Port, "policy", policy)
		if err := apiServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("API server error", "error", err)
		}
	}()

	go func() {
		logger.Info("metrics server starting", "port", cfg.Server.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = apiServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)

	logger.Info("shutdown complete")
}
