// API server entry point for GeoInsight.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/geoinsight/geoinsight/internal/application/insight"
	"github.com/geoinsight/geoinsight/internal/application/querycache"
	"github.com/geoinsight/geoinsight/internal/config"
	domaininsight "github.com/geoinsight/geoinsight/internal/domain/insight"
	"github.com/geoinsight/geoinsight/internal/domain/spatial"
	"github.com/geoinsight/geoinsight/internal/infrastructure/database/postgres"
	"github.com/geoinsight/geoinsight/internal/infrastructure/database/redis"
	"github.com/geoinsight/geoinsight/internal/infrastructure/messaging/kafka"
	"github.com/geoinsight/geoinsight/internal/infrastructure/monitoring/logging"
	"github.com/geoinsight/geoinsight/internal/infrastructure/monitoring/prometheus"
	"github.com/geoinsight/geoinsight/internal/infrastructure/search/milvus"
	"github.com/geoinsight/geoinsight/internal/infrastructure/search/vector"
	"github.com/geoinsight/geoinsight/internal/infrastructure/storage/minio"
	"github.com/geoinsight/geoinsight/internal/infrastructure/translator"
	httpserver "github.com/geoinsight/geoinsight/internal/interfaces/http"
	"github.com/geoinsight/geoinsight/internal/interfaces/http/handlers"
)

const defaultConfigPath = "configs/config.yaml"

// version is injected via ldflags.
var version = "dev"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("apiserver exited", logging.Err(err))
	}
}

// loadConfig reads the config file, or falls back to environment-only
// configuration when the file does not exist.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.LoadFromEnv()
	}
	return config.Load(path)
}

func run(cfg *config.Config, logger logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting geoinsight apiserver",
		logging.String("version", version),
		logging.Int("port", cfg.Server.Port))

	// PostgreSQL
	pool, err := postgres.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.Database.MigrationPath != "" {
		if err := postgres.RunMigrations(cfg.Database.DSN(), cfg.Database.MigrationPath); err != nil {
			return err
		}
	}

	// Redis
	redisClient, err := redis.NewClient(cfg.Redis, logger)
	if err != nil {
		return err
	}
	defer redisClient.Close()
	resultCache := redis.NewCache(redisClient, logger)
	refreshLock := redis.NewMutex(redisClient, "insight:refresh", logger,
		redis.WithLockTTL(cfg.Insight.LockTTL))

	// Spatial directory, loaded once at startup.
	units, err := postgres.NewSpatialUnitRepository(pool).ListUnits(ctx)
	if err != nil {
		return err
	}
	resolver := spatial.NewResolver(spatial.NewDirectory(units, logger))

	// Fact store
	factRepo := postgres.NewFactRepository(pool, logger)
	factStore := postgres.NewFactStore(factRepo, resolver, logger)
	store := domaininsight.NewStore()

	// Snapshot archiver; the API keeps working without object storage.
	var archiver insight.Archiver
	if a, err := minio.NewArchiver(ctx, cfg.MinIO, logger); err != nil {
		logger.Warn("snapshot archiving disabled", logging.Err(err))
	} else {
		archiver = a
	}

	// Refresh-completed notifications.
	var notifier insight.Notifier
	producer := kafka.NewProducer(cfg.Kafka, logger)
	defer producer.Close()
	notifier = producer

	insightSvc := insight.NewService(factStore, store, resultCache, cfg.Insight, logger)
	refresher := insight.NewRefresher(factStore, store, refreshLock, resultCache,
		archiver, notifier, logger)

	// Vector index; degrade to in-process search when Milvus is down.
	var index vector.Index
	if idx, err := milvus.NewIndex(ctx, cfg.Milvus, logger); err != nil {
		logger.Warn("milvus unavailable, using in-memory vector index", logging.Err(err))
		index = vector.NewMemoryIndex(cfg.Milvus.EmbeddingDim)
	} else {
		index = idx
	}

	// Query cache over the LLM translator.
	openaiClient := translator.NewOpenAIClient(cfg.Translator, logger)
	queryCache := querycache.NewService(postgres.NewCacheEntryRepository(pool),
		index, openaiClient, openaiClient, cfg.QueryCache, logger)
	if err := queryCache.Warm(ctx); err != nil {
		logger.Warn("query cache warmup failed", logging.Err(err))
	}
	defer queryCache.Close(context.Background())

	// Metrics
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            "geoinsight",
		EnableGoMetrics:      true,
		EnableProcessMetrics: true,
	}, logger)
	if err != nil {
		return err
	}
	metrics := prometheus.NewAppMetrics(collector)

	// First snapshot in the background so /advanced serves shortly after boot.
	go func() {
		if err := refresher.Refresh(ctx); err != nil {
			logger.Warn("initial refresh failed", logging.Err(err))
		}
	}()

	router := httpserver.NewRouter(httpserver.RouterConfig{
		InsightHandler:   handlers.NewInsightHandler(insightSvc),
		AssistantHandler: handlers.NewAssistantHandler(queryCache, insightSvc),
		AdminHandler:     handlers.NewAdminHandler(refresher),
		HealthHandler: handlers.NewHealthHandler(version,
			handlers.CheckerFunc{ComponentName: "postgres", Fn: pool.Ping},
			handlers.CheckerFunc{ComponentName: "redis", Fn: redisClient.Ping},
		),
		Logger:           logger,
		Metrics:          metrics,
		MetricsCollector: collector,
		RateLimiter:      httpserver.NewRateLimiter(cfg.Server),
		Mode:             cfg.Server.Mode,
	})

	server := httpserver.NewServer(cfg.Server, router, logger)
	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	return server.Stop(context.Background())
}
