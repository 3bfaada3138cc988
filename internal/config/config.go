package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/go-playground/validator/v10"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreMySQL    = "mysql"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string `validate:"required,min=1,dive,required"`
	KafkaSourceTopic string   `validate:"required"`
	KafkaSinkTopic   string   `validate:"required"`
	KafkaGroupID     string   `validate:"required"`
	IngestEnabled    bool
	HTTPAddr         string `validate:"required"`
	APIAddr          string `validate:"required"`
	LogLevel         string `validate:"oneof=debug info warn warning error"`
	LogFormat        string `validate:"oneof=json text"`
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Sample store configuration.
	StoreDriver string `validate:"oneof=memory postgres mysql"`
	DatabaseURL string `validate:"required_unless=StoreDriver memory"`

	// Model and forecast configuration.
	ModelPath               string
	ModelConfigPath         string
	ForecastCacheSize       int           `validate:"gte=0"`
	ForecastPublishInterval time.Duration `validate:"gte=0"`
	BreakerFailures         uint32        `validate:"gte=1"`
	BreakerTimeout          time.Duration `validate:"gt=0"`
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	publishInterval, err := parseDuration("FORECAST_PUBLISH_INTERVAL", "1h", true)
	if err != nil {
		return nil, err
	}

	breakerTimeout, err := parseDuration("INFERENCE_BREAKER_TIMEOUT", "2m", false)
	if err != nil {
		return nil, err
	}

	cacheSize, err := parseInt("FORECAST_CACHE_SIZE", 64)
	if err != nil {
		return nil, err
	}

	breakerFailures, err := parseInt("INFERENCE_BREAKER_FAILURES", 3)
	if err != nil {
		return nil, err
	}
	if breakerFailures < 1 {
		return nil, errors.New("invalid INFERENCE_BREAKER_FAILURES: must be at least 1")
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   strings.TrimSpace(sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "sensor-readings")),
		KafkaSinkTopic:     strings.TrimSpace(sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "next-day-forecasts")),
		KafkaGroupID:       strings.TrimSpace(sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "weather-forecast")),
		IngestEnabled:      sharedcfg.EnvOrDefault("INGEST_ENABLED", "true") == "true",
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		APIAddr:            sharedcfg.EnvOrDefault("API_ADDR", ":8081"),
		LogLevel:           strings.ToLower(sharedcfg.EnvOrDefault("LOG_LEVEL", "info")),
		LogFormat:          strings.ToLower(sharedcfg.EnvOrDefault("LOG_FORMAT", "json")),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		StoreDriver: strings.ToLower(sharedcfg.EnvOrDefault("STORE_DRIVER", StoreMemory)),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		ModelPath:               os.Getenv("MODEL_PATH"),
		ModelConfigPath:         os.Getenv("MODEL_CONFIG_PATH"),
		ForecastCacheSize:       cacheSize,
		ForecastPublishInterval: publishInterval,
		BreakerFailures:         uint32(breakerFailures),
		BreakerTimeout:          breakerTimeout,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envNames maps struct fields to the variables that set them, for error messages.
var envNames = map[string]string{
	"KafkaBrokers":            "KAFKA_BROKERS",
	"KafkaSourceTopic":        "KAFKA_SOURCE_TOPIC",
	"KafkaSinkTopic":          "KAFKA_SINK_TOPIC",
	"KafkaGroupID":            "KAFKA_GROUP_ID",
	"HTTPAddr":                "HTTP_ADDR",
	"APIAddr":                 "API_ADDR",
	"LogLevel":                "LOG_LEVEL",
	"LogFormat":               "LOG_FORMAT",
	"StoreDriver":             "STORE_DRIVER",
	"DatabaseURL":             "DATABASE_URL",
	"ForecastCacheSize":       "FORECAST_CACHE_SIZE",
	"ForecastPublishInterval": "FORECAST_PUBLISH_INTERVAL",
	"BreakerFailures":         "INFERENCE_BREAKER_FAILURES",
	"BreakerTimeout":          "INFERENCE_BREAKER_TIMEOUT",
}

var validate = validator.New()

func (c *Config) validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	name := envNames[fe.StructField()]
	if name == "" {
		name = fe.StructField()
	}
	if fe.Tag() == "required" || fe.Tag() == "required_unless" || fe.Tag() == "min" {
		return fmt.Errorf("%s is required", name)
	}
	return fmt.Errorf("invalid %s: failed %s validation", name, fe.Tag())
}

func parseDuration(key, def string, allowZero bool) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d < 0 || (!allowZero && d == 0) {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}
