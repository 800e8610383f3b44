// Background worker entry point: consumes fact-update events and keeps
// the advanced-insight snapshot fresh.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geoinsight/geoinsight/internal/application/insight"
	"github.com/geoinsight/geoinsight/internal/config"
	domaininsight "github.com/geoinsight/geoinsight/internal/domain/insight"
	"github.com/geoinsight/geoinsight/internal/domain/spatial"
	"github.com/geoinsight/geoinsight/internal/infrastructure/database/postgres"
	"github.com/geoinsight/geoinsight/internal/infrastructure/database/redis"
	"github.com/geoinsight/geoinsight/internal/infrastructure/messaging/kafka"
	"github.com/geoinsight/geoinsight/internal/infrastructure/monitoring/logging"
	"github.com/geoinsight/geoinsight/internal/infrastructure/storage/minio"
	"github.com/geoinsight/geoinsight/pkg/errors"
)

const (
	defaultConfigPath = "configs/config.yaml"
	defaultHealthPort = 8081
)

var version = "dev"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	healthPort := flag.Int("health-port", defaultHealthPort, "health probe port")
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

	if err := run(cfg, logger, *healthPort); err != nil {
		logger.Fatal("worker exited", logging.Err(err))
	}
}

func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.LoadFromEnv()
	}
	return config.Load(path)
}

func run(cfg *config.Config, logger logging.Logger, healthPort int) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting geoinsight worker", logging.String("version", version))

	pool, err := postgres.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := redis.NewClient(cfg.Redis, logger)
	if err != nil {
		return err
	}
	defer redisClient.Close()
	resultCache := redis.NewCache(redisClient, logger)
	refreshLock := redis.NewMutex(redisClient, "insight:refresh", logger,
		redis.WithLockTTL(cfg.Insight.LockTTL))

	units, err := postgres.NewSpatialUnitRepository(pool).ListUnits(ctx)
	if err != nil {
		return err
	}
	resolver := spatial.NewResolver(spatial.NewDirectory(units, logger))
	factStore := postgres.NewFactStore(postgres.NewFactRepository(pool, logger), resolver, logger)

	var archiver insight.Archiver
	if a, err := minio.NewArchiver(ctx, cfg.MinIO, logger); err != nil {
		logger.Warn("snapshot archiving disabled", logging.Err(err))
	} else {
		archiver = a
	}

	producer := kafka.NewProducer(cfg.Kafka, logger)
	defer producer.Close()

	refresher := insight.NewRefresher(factStore, domaininsight.NewStore(),
		refreshLock, resultCache, archiver, producer, logger)

	consumer := kafka.NewFactsConsumer(cfg.Kafka, refresher, cfg.Insight.RefreshDebounce, logger)
	defer consumer.Close()

	// Health probe for orchestration.
	healthSrv := startHealthServer(healthPort, logger)
	defer func() { _ = healthSrv.Shutdown(context.Background()) }()

	// Scheduled rebuilds cover the case where no events arrive at all.
	go runScheduled(ctx, refresher, cfg.Insight.RefreshInterval, logger)

	logger.Info("consuming fact updates",
		logging.String("topic", cfg.Kafka.FactsTopic),
		logging.Duration("debounce", cfg.Insight.RefreshDebounce))

	err = consumer.Run(ctx)
	if err == context.Canceled {
		return nil
	}
	return err
}

// runScheduled refreshes on the configured interval.  A run already in
// progress elsewhere is normal and only logged.
func runScheduled(ctx context.Context, refresher *insight.Refresher,
	interval time.Duration, logger logging.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := refresher.Refresh(ctx); err != nil {
				if errors.IsCode(err, errors.ErrCodeRefreshInProgress) {
					logger.Info("scheduled refresh skipped, already running")
					continue
				}
				logger.Error("scheduled refresh failed", logging.Err(err))
			}
		case <-ctx.Done():
			return
		}
	}
}

func startHealthServer(port int, logger logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"alive"}`))
	})
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", logging.Err(err))
		}
	}()
	return srv
}
