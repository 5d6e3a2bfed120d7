// Package config loads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Environment variable names.
const (
	EnvLogLevel        = "LEDGER_LOG_LEVEL"
	EnvDatabaseURL     = "DATABASE_URL"
	EnvRedisAddr       = "REDIS_ADDR"
	EnvFingerprintTTL  = "LEDGER_FINGERPRINT_TTL"
	EnvBigQueryProject = "BQ_PROJECT"
	EnvBigQueryDataset = "BQ_DATASET"
	EnvDefaultPageSize = "LEDGER_DEFAULT_PAGE_SIZE"
	EnvMaxPageSize     = "LEDGER_MAX_PAGE_SIZE"
)

// Config holds everything the binaries need to wire a ledger.
type Config struct {
	LogLevel string

	// DatabaseURL selects the Postgres store. Empty means in-memory.
	DatabaseURL string

	// RedisAddr enables the fingerprint cache when set.
	RedisAddr      string
	FingerprintTTL time.Duration

	BigQueryProject string
	BigQueryDataset string

	DefaultPageSize int
	MaxPageSize     int
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		LogLevel:        "info",
		FingerprintTTL:  30 * 24 * time.Hour,
		BigQueryDataset: "finance",
		DefaultPageSize: 20,
		MaxPageSize:     100,
	}
}

// Load reads the environment over Defaults and validates the result.
func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	cfg := Defaults()

	if v := getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	cfg.DatabaseURL = getenv(EnvDatabaseURL)
	cfg.RedisAddr = getenv(EnvRedisAddr)
	cfg.BigQueryProject = getenv(EnvBigQueryProject)
	if v := getenv(EnvBigQueryDataset); v != "" {
		cfg.BigQueryDataset = v
	}

	var errs []error
	if v := getenv(EnvFingerprintTTL); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvFingerprintTTL, err))
		}
		cfg.FingerprintTTL = d
	}
	if v := getenv(EnvDefaultPageSize); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvDefaultPageSize, err))
		}
		cfg.DefaultPageSize = n
	}
	if v := getenv(EnvMaxPageSize); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvMaxPageSize, err))
		}
		cfg.MaxPageSize = n
	}
	if len(errs) > 0 {
		return Config{}, fmt.Errorf("config.Load: %w", errors.Join(errs...))
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges and cross-field rules.
func (c Config) Validate() error {
	var errs []error
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log level %q: %w", c.LogLevel, err))
	}
	if c.FingerprintTTL < 0 {
		errs = append(errs, fmt.Errorf("fingerprint TTL must not be negative, got %s", c.FingerprintTTL))
	}
	if c.MaxPageSize < 1 {
		errs = append(errs, fmt.Errorf("max page size must be at least 1, got %d", c.MaxPageSize))
	}
	if c.DefaultPageSize < 1 || c.DefaultPageSize > c.MaxPageSize {
		errs = append(errs, fmt.Errorf("default page size must be within 1..%d, got %d", c.MaxPageSize, c.DefaultPageSize))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config.Validate: %w", errors.Join(errs...))
	}
	return nil
}

// ExportEnabled reports whether a BigQuery project is configured.
func (c Config) ExportEnabled() bool {
	return c.BigQueryProject != ""
}
