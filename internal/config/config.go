package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/couchcryptid/seasonal-resampler/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all batch settings, populated from environment variables.
type Config struct {
	DailyDataDir      string
	ProbabilitiesFile string
	OutputDir         string
	ForecastYear      int
	Mode              domain.Mode

	Workers         int
	ExpectedSeasons int
	// Seed is zero and SeedSet false when RESAMPLE_SEED is unset; the run then
	// derives a seed from the clock.
	Seed         uint64
	SeedSet      bool
	OutputPeriod string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	KafkaEnabled        bool
	KafkaBrokers        []string
	KafkaTopic          string
	KafkaPublishTimeout time.Duration

	LedgerPath string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DailyDataDir:      os.Getenv("DAILY_DATA_DIR"),
		ProbabilitiesFile: os.Getenv("PROBABILITIES_FILE"),
		OutputDir:         os.Getenv("OUTPUT_DIR"),
		OutputPeriod:      os.Getenv("OUTPUT_PERIOD"),
		HTTPAddr:          os.Getenv("HTTP_ADDR"),
		LogLevel:          sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:         sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:   shutdownTimeout,
		KafkaTopic:        sharedcfg.EnvOrDefault("KAFKA_TOPIC", "seasonal-forecasts"),
		LedgerPath:        os.Getenv("LEDGER_PATH"),
	}

	if cfg.DailyDataDir == "" {
		return nil, errors.New("DAILY_DATA_DIR is required")
	}
	if cfg.ProbabilitiesFile == "" {
		return nil, errors.New("PROBABILITIES_FILE is required")
	}
	if cfg.OutputDir == "" {
		return nil, errors.New("OUTPUT_DIR is required")
	}

	if cfg.ForecastYear, err = parseForecastYear(); err != nil {
		return nil, err
	}
	if cfg.Mode, err = domain.ParseMode(sharedcfg.EnvOrDefault("FORECAST_MODE", string(domain.ModeTrimonthly))); err != nil {
		return nil, fmt.Errorf("invalid FORECAST_MODE: %w", err)
	}
	if cfg.Workers, err = parsePositiveInt("WORKERS", runtime.NumCPU()); err != nil {
		return nil, err
	}
	if cfg.ExpectedSeasons, err = parseNonNegativeInt("EXPECTED_SEASONS", 2); err != nil {
		return nil, err
	}
	if s := os.Getenv("RESAMPLE_SEED"); s != "" {
		seed, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, errors.New("invalid RESAMPLE_SEED")
		}
		cfg.Seed, cfg.SeedSet = seed, true
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = sharedcfg.ParseBrokers(brokers)
	}
	publishTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("KAFKA_PUBLISH_TIMEOUT", "10s"))
	if err != nil || publishTimeout <= 0 {
		return nil, errors.New("invalid KAFKA_PUBLISH_TIMEOUT")
	}
	cfg.KafkaPublishTimeout = publishTimeout

	cfg.KafkaEnabled = len(cfg.KafkaBrokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		cfg.KafkaEnabled = v == "true"
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when Kafka is enabled")
	}

	return cfg, nil
}

func parseForecastYear() (int, error) {
	s := os.Getenv("FORECAST_YEAR")
	if s == "" {
		return 0, errors.New("FORECAST_YEAR is required")
	}
	year, err := strconv.Atoi(s)
	if err != nil || year < 1900 || year > 9999 {
		return 0, errors.New("invalid FORECAST_YEAR")
	}
	return year, nil
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

func parseNonNegativeInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s: must be zero or a positive integer", key)
	}
	return n, nil
}
