package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/yieldprophet-runner/internal/archive"
	"github.com/couchcryptid/yieldprophet-runner/internal/archive/core"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Weather provider configuration.
	WeatherBaseURL   string
	WeatherTimeout   time.Duration
	WeatherCacheSize int
	WeatherCachePath string // sqlite file; empty disables the persistent cache

	LongTermYears int
	RulesPath     string

	Archive archive.Config
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	weatherTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("WEATHER_TIMEOUT", "30s"))
	if err != nil || weatherTimeout <= 0 {
		return nil, errors.New("invalid WEATHER_TIMEOUT")
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	years, err := parsePositiveInt("LONG_TERM_YEARS", 30)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "yieldprophet-jobs"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "simulation-specs"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "yieldprophet-runner"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		WeatherBaseURL:   os.Getenv("WEATHER_BASE_URL"),
		WeatherTimeout:   weatherTimeout,
		WeatherCacheSize: parseWeatherCacheSize(),
		WeatherCachePath: os.Getenv("WEATHER_CACHE_PATH"),

		LongTermYears: years,
		RulesPath:     os.Getenv("SOIL_RULES_PATH"),

		Archive: archive.Config{
			Driver:      core.Driver(sharedcfg.EnvOrDefault("ARCHIVE_DRIVER", string(core.DriverFilesystem))),
			FSRoot:      sharedcfg.EnvOrDefault("ARCHIVE_FS_ROOT", "./archive"),
			S3Bucket:    os.Getenv("ARCHIVE_S3_BUCKET"),
			S3Region:    os.Getenv("ARCHIVE_S3_REGION"),
			S3Endpoint:  os.Getenv("ARCHIVE_S3_ENDPOINT"),
			S3PathStyle: os.Getenv("ARCHIVE_S3_PATH_STYLE") == "true",
		},
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	switch cfg.Archive.Driver {
	case core.DriverFilesystem, core.DriverMemory:
	case core.DriverS3:
		if cfg.Archive.S3Bucket == "" {
			return nil, errors.New("ARCHIVE_S3_BUCKET is required for the s3 archive driver")
		}
	default:
		return nil, fmt.Errorf("invalid ARCHIVE_DRIVER %q", cfg.Archive.Driver)
	}

	return cfg, nil
}

func parseWeatherCacheSize() int {
	if s := os.Getenv("WEATHER_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 256
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}
