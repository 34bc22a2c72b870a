package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/groundwater-dss-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/groundwater-dss-service/internal/adapter/kafka"
	"github.com/couchcryptid/groundwater-dss-service/internal/adapter/postgres"
	"github.com/couchcryptid/groundwater-dss-service/internal/adapter/wellapi"
	"github.com/couchcryptid/groundwater-dss-service/internal/config"
	"github.com/couchcryptid/groundwater-dss-service/internal/dashboard"
	"github.com/couchcryptid/groundwater-dss-service/internal/model"
	"github.com/couchcryptid/groundwater-dss-service/internal/observability"
	"github.com/couchcryptid/groundwater-dss-service/internal/session"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"
)

func main() {
	// A .env file is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A missing or corrupt model disables forecasting but not the dashboard.
	var regressor model.Regressor
	if m, err := model.Load(cfg.ModelPath); err != nil {
		logger.Warn("forecasting disabled", "model_path", cfg.ModelPath, "error", err)
	} else {
		regressor = m
		metrics.ModelLoaded.Set(1)
		logger.Info("model loaded", "model_path", cfg.ModelPath, "model", m.Name())
	}

	clock := clockwork.NewRealClock()
	client := wellapi.NewClient(wellapi.Options{
		Endpoint:   cfg.WellAPIURL,
		IDParam:    cfg.WellAPIIDParam,
		Timeout:    cfg.WellAPITimeout,
		MaxRetries: cfg.WellAPIMaxRetries,
	}, metrics, logger)
	source := wellapi.NewCachedSource(client, cfg.WellAPICacheSize, cfg.WellAPICacheTTL, clock, metrics, logger)

	var store session.Store
	if cfg.RedisURL != "" {
		rdb, err := session.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		store = session.NewRedisStore(rdb, cfg.SessionTTL)
		logger.Info("redis session store enabled")
	} else {
		store = session.NewMemoryStore(cfg.SessionMax, cfg.SessionTTL, clock)
		logger.Info("in-memory session store enabled", "max_sessions", cfg.SessionMax)
	}

	opts := dashboard.Options{
		DefaultHorizon: cfg.ForecastDefaultHorizon,
		MinHorizon:     cfg.ForecastMinHorizon,
		MaxHorizon:     cfg.ForecastMaxHorizon,
		FillGaps:       cfg.ForecastFillGaps,
		SessionTTL:     cfg.SessionTTL,
		Clock:          clock,
	}

	if cfg.DatabaseURL != "" {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		if err := postgres.Migrate(ctx, pool); err != nil {
			logger.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
		opts.Archive = postgres.NewArchive(pool)
		logger.Info("postgres archive enabled")
	}

	var publisher *kafkaadapter.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		publisher = kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaForecastTopic, logger)
		opts.Publisher = publisher
		logger.Info("kafka forecast events enabled", "topic", cfg.KafkaForecastTopic)
	}

	svc := dashboard.New(source, store, regressor, opts, logger, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
