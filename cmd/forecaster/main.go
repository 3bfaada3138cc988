package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/couchcryptid/weather-forecast-service/internal/adapter/api"
	"github.com/couchcryptid/weather-forecast-service/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/weather-forecast-service/internal/adapter/kafka"
	"github.com/couchcryptid/weather-forecast-service/internal/adapter/memory"
	"github.com/couchcryptid/weather-forecast-service/internal/adapter/sqlstore"
	"github.com/couchcryptid/weather-forecast-service/internal/config"
	"github.com/couchcryptid/weather-forecast-service/internal/domain"
	"github.com/couchcryptid/weather-forecast-service/internal/forecast"
	"github.com/couchcryptid/weather-forecast-service/internal/model"
	"github.com/couchcryptid/weather-forecast-service/internal/observability"
	"github.com/couchcryptid/weather-forecast-service/internal/pipeline"
	"github.com/couchcryptid/weather-forecast-service/internal/scheduler"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
)

// memoryRetention caps the in-memory store at roughly 60 days of minute samples.
const memoryRetention = 60 * 24 * 60

// sampleStore is what every store backend provides.
type sampleStore interface {
	forecast.SampleStore
	pipeline.SampleLoader
	CheckReadiness(ctx context.Context) error
	Close() error
}

func main() {
	// A missing .env file is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open sample store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}

	ranges, err := model.LoadFeatureRanges(firstNonEmpty(cfg.ModelConfigPath, model.Locate(model.DefaultConfigPaths)))
	if err != nil {
		logger.Warn("model config unusable, using default feature ranges", "error", err)
		ranges = domain.DefaultFeatureRanges()
	}
	adapter := model.Open(
		firstNonEmpty(cfg.ModelPath, model.Locate(model.DefaultArtifactPaths)),
		ranges,
		model.BreakerSettings{MaxFailures: cfg.BreakerFailures, OpenTimeout: cfg.BreakerTimeout},
		logger, metrics,
	)

	var forecaster forecast.Forecaster = forecast.NewEngine(store, adapter, clock, logger, metrics)
	if cfg.ForecastCacheSize > 0 {
		forecaster = forecast.NewCachedForecaster(forecaster, store, clock, metrics, cfg.ForecastCacheSize)
	}

	readiness := httpadapter.Readiness{{Name: "store", Fn: store.CheckReadiness}}

	var reader *kafkaadapter.Reader
	if cfg.IngestEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		p := pipeline.New(reader, pipeline.NewTransformer(clock), store, logger, metrics, cfg.BatchSize)
		readiness = append(readiness, httpadapter.Check{Name: "pipeline", Fn: p.CheckReadiness})

		go func() {
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
	} else {
		logger.Info("sample ingest disabled")
	}

	writer := kafkaadapter.NewWriter(cfg, logger)
	publisher := scheduler.New(forecaster, writer, cfg.ForecastPublishInterval, clock, logger, metrics)
	if err := publisher.Start(); err != nil {
		logger.Error("failed to start forecast publisher", "error", err)
	}

	opsSrv := httpadapter.NewServer(cfg.HTTPAddr, readiness, logger)
	apiSrv := api.NewServer(cfg.APIAddr, api.Deps{
		Forecaster: forecaster,
		Samples:    store,
		Model:      adapter,
		Clock:      clock,
		Logger:     logger,
	})

	go func() {
		if err := opsSrv.Start(); err != nil {
			logger.Error("ops server error", "error", err)
		}
	}()
	go func() {
		if err := apiSrv.Start(); err != nil {
			logger.Error("api server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	publisher.Stop()
	if err := apiSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("api server shutdown error", "error", err)
	}
	if err := opsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("ops server shutdown error", "error", err)
	}
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}
	if err := store.Close(); err != nil {
		logger.Error("sample store close error", "error", err)
	}

	logger.Info("shutdown complete")
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (sampleStore, error) {
	if cfg.StoreDriver == config.StoreMemory {
		logger.Info("using in-memory sample store", "retention", memoryRetention)
		return memory.NewStore(memoryRetention), nil
	}
	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	s, err := sqlstore.Open(connectCtx, cfg.StoreDriver, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
