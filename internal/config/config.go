package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Well data API.
	WellAPIURL        string
	WellAPIIDParam    string
	WellAPITimeout    time.Duration
	WellAPIMaxRetries int
	WellAPICacheSize  int
	WellAPICacheTTL   time.Duration

	// Forecasting.
	ModelPath              string
	ForecastDefaultHorizon int
	ForecastMinHorizon     int
	ForecastMaxHorizon     int
	ForecastFillGaps       bool

	// Sessions. RedisURL selects the Redis store when set.
	SessionTTL time.Duration
	SessionMax int
	RedisURL   string

	// Optional sinks, disabled when empty.
	DatabaseURL        string
	KafkaBrokers       []string
	KafkaForecastTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	apiTimeout, err := parseDuration("WELL_API_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parseDuration("WELL_API_CACHE_TTL", "15m")
	if err != nil {
		return nil, err
	}
	sessionTTL, err := parseDuration("SESSION_TTL", "24h")
	if err != nil {
		return nil, err
	}

	maxRetries, err := parseInt("WELL_API_MAX_RETRIES", 3, 0)
	if err != nil {
		return nil, err
	}
	cacheSize, err := parseInt("WELL_API_CACHE_SIZE", 100, 1)
	if err != nil {
		return nil, err
	}
	sessionMax, err := parseInt("SESSION_MAX", 1000, 1)
	if err != nil {
		return nil, err
	}
	defHorizon, err := parseInt("FORECAST_DEFAULT_HORIZON", 90, 1)
	if err != nil {
		return nil, err
	}
	minHorizon, err := parseInt("FORECAST_MIN_HORIZON", 1, 1)
	if err != nil {
		return nil, err
	}
	maxHorizon, err := parseInt("FORECAST_MAX_HORIZON", 365, 1)
	if err != nil {
		return nil, err
	}

	fillGaps, err := strconv.ParseBool(sharedcfg.EnvOrDefault("FORECAST_FILL_GAPS", "true"))
	if err != nil {
		return nil, errors.New("invalid FORECAST_FILL_GAPS")
	}

	var brokers []string
	if v := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		WellAPIURL:        strings.TrimSpace(os.Getenv("WELL_API_URL")),
		WellAPIIDParam:    sharedcfg.EnvOrDefault("WELL_API_ID_PARAM", "wellId"),
		WellAPITimeout:    apiTimeout,
		WellAPIMaxRetries: maxRetries,
		WellAPICacheSize:  cacheSize,
		WellAPICacheTTL:   cacheTTL,

		ModelPath:              sharedcfg.EnvOrDefault("MODEL_PATH", "groundwater_model.json"),
		ForecastDefaultHorizon: defHorizon,
		ForecastMinHorizon:     minHorizon,
		ForecastMaxHorizon:     maxHorizon,
		ForecastFillGaps:       fillGaps,

		SessionTTL: sessionTTL,
		SessionMax: sessionMax,
		RedisURL:   os.Getenv("REDIS_URL"),

		DatabaseURL:        os.Getenv("DATABASE_URL"),
		KafkaBrokers:       brokers,
		KafkaForecastTopic: sharedcfg.EnvOrDefault("KAFKA_FORECAST_TOPIC", "well-forecasts"),
	}

	if cfg.WellAPIURL == "" {
		return nil, errors.New("WELL_API_URL is required")
	}
	if cfg.WellAPIIDParam == "" {
		return nil, errors.New("WELL_API_ID_PARAM must not be empty")
	}
	if cfg.ForecastMinHorizon > cfg.ForecastMaxHorizon {
		return nil, errors.New("FORECAST_MIN_HORIZON exceeds FORECAST_MAX_HORIZON")
	}
	if cfg.ForecastDefaultHorizon < cfg.ForecastMinHorizon || cfg.ForecastDefaultHorizon > cfg.ForecastMaxHorizon {
		return nil, errors.New("FORECAST_DEFAULT_HORIZON is outside FORECAST_MIN_HORIZON..FORECAST_MAX_HORIZON")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaForecastTopic == "" {
		return nil, errors.New("KAFKA_FORECAST_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseInt(key string, def, minimum int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < minimum {
		return 0, fmt.Errorf("invalid %s: must be an integer >= %d", key, minimum)
	}
	return n, nil
}
