package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/davidleathers/advice-risk-scorer/internal/api/rest"
	"github.com/davidleathers/advice-risk-scorer/internal/infrastructure/cache"
	"github.com/davidleathers/advice-risk-scorer/internal/infrastructure/config"
	"github.com/davidleathers/advice-risk-scorer/internal/infrastructure/database"
	"github.com/davidleathers/advice-risk-scorer/internal/infrastructure/mlclient"
	"github.com/davidleathers/advice-risk-scorer/internal/infrastructure/repository"
	"github.com/davidleathers/advice-risk-scorer/internal/infrastructure/telemetry"
	"github.com/davidleathers/advice-risk-scorer/internal/metrics"
	"github.com/davidleathers/advice-risk-scorer/internal/service/fraud"
	registrysvc "github.com/davidleathers/advice-risk-scorer/internal/service/registry"
	"github.com/davidleathers/advice-risk-scorer/internal/service/rules"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to configuration file")
		migrate    = flag.Bool("migrate", false, "Apply database migrations before serving")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := telemetry.NewLogger(cfg.LogLevel, cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *migrate, logger); err != nil {
		logger.Error("application failed", zap.Error(err))
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

func run(ctx context.Context, cfg *config.Config, migrate bool, logger *zap.Logger) error {
	logger.Info("starting advice risk scorer",
		zap.String("version", cfg.Version),
		zap.String("environment", cfg.Environment),
		zap.Int("port", cfg.Server.Port),
		zap.Bool("ml_enabled", cfg.ML.Enabled))

	provider, err := telemetry.InitializeOpenTelemetry(ctx, telemetry.ConfigFrom(cfg))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("failed to shutdown telemetry", zap.Error(err))
		}
	}()

	appMetrics, err := metrics.NewRegistry(cfg.Telemetry.ServiceName)
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}

	if migrate {
		if err := applyMigrations(cfg.Database.URL, logger); err != nil {
			return err
		}
	}

	pool, err := database.NewPool(ctx, &cfg.Database, logger)
	if err != nil {
		return err
	}
	defer pool.Close()
	appMetrics.SetDBPoolSize(int64(pool.Config().MaxConns))

	redisCache, err := cache.NewRedisCache(&cfg.Redis, logger)
	if err != nil {
		return err
	}
	defer redisCache.Close()

	store := repository.NewRegistryRepository(pool)
	lookup := registrysvc.NewLookup(store, redisCache, appMetrics, cfg.Registry, logger)

	ruleEngine, err := rules.Load(cfg.Rules.Path)
	if err != nil {
		return err
	}
	logger.Info("rule table loaded",
		zap.String("path", cfg.Rules.Path),
		zap.Int("rules", len(ruleEngine.Rules())))

	checkers := []rest.HealthChecker{
		{Name: "postgres", Check: store.Ping},
		{Name: "redis", Check: redisCache.Ping},
	}

	// A nil *Client must not reach the service as a non-nil interface.
	var scorer fraud.MLScorer
	if cfg.ML.Enabled {
		client, err := mlclient.NewClient(cfg.ML, appMetrics, logger)
		if err != nil {
			return err
		}
		scorer = client
		checkers = append(checkers, rest.HealthChecker{Name: "ml", Optional: true, Check: client.Health})
	}

	analyzer := fraud.NewService(lookup, ruleEngine, scorer, appMetrics,
		fraud.Config{NoRegIDPenalty: cfg.Scoring.NoRegIDPenalty}, logger)

	promRegistry := newPrometheusRegistry(cfg, pool)
	handler := rest.NewRouter(cfg.Server, rest.Dependencies{
		Handlers: rest.NewHandlers(analyzer, lookup, logger),
		Health:   rest.NewHealthService(cfg.Version, 5*time.Second, logger, checkers...),
		Metrics:  promRegistry,
		Logger:   logger,
	})

	return rest.NewServer(cfg.Server, handler, logger).Run(ctx)
}

func applyMigrations(databaseURL string, logger *zap.Logger) error {
	migrator, err := database.NewMigrator(databaseURL, logger)
	if err != nil {
		return err
	}
	defer migrator.Close()
	return migrator.Up()
}
