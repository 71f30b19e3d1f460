package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/repository"
)

type Config struct {
	Env             string
	HTTPPort        string
	DBDriver        repository.Driver
	DBPath          string
	DB              repository.Credentials
	RedisAddr       string
	RedisPassword   string
	KafkaBrokers    []string
	CatalogID       string
	SeedCatalog     bool
	RecoveryEvery   time.Duration
	RecoveryStale   time.Duration
	FailureRate     int
	FailCheckout    bool
	RequestTimeout  time.Duration
	ProviderTimeout time.Duration
	ShutdownTimeout time.Duration
}

func loadConfig() (*Config, error) {
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	failureRate, err := strconv.Atoi(getEnv("PAYMENT_FAILURE_RATE", "0"))
	if err != nil || failureRate < 0 || failureRate > 100 {
		return nil, fmt.Errorf("invalid PAYMENT_FAILURE_RATE %q: want 0..100", os.Getenv("PAYMENT_FAILURE_RATE"))
	}

	cfg := &Config{
		Env:      getEnv("APP_ENV", "development"),
		HTTPPort: getEnv("HTTP_PORT", "8080"),
		DBDriver: repository.Driver(getEnv("DB_DRIVER", string(repository.DriverSQLite))),
		DBPath:   getEnv("DB_PATH", "storefront.db"),
		DB: repository.Credentials{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "storefront"),
		},
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		KafkaBrokers:  splitList(getEnv("KAFKA_BROKERS", "")),
		CatalogID:     getEnv("CATALOG_ID", "product-catalog"),
		SeedCatalog:   getEnv("SEED_CATALOG", "true") == "true",
		FailureRate:   failureRate,
		FailCheckout:  os.Getenv("FAIL_CHECKOUT") != "",
	}

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"RECOVERY_INTERVAL", "30s", &cfg.RecoveryEvery},
		{"RECOVERY_STALE_AFTER", "1m", &cfg.RecoveryStale},
		{"REQUEST_TIMEOUT", "30s", &cfg.RequestTimeout},
		{"PROVIDER_TIMEOUT", "5s", &cfg.ProviderTimeout},
		{"SHUTDOWN_TIMEOUT", "10s", &cfg.ShutdownTimeout},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getEnv(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		if v <= 0 {
			return nil, fmt.Errorf("invalid %s: %s is not positive", d.key, v)
		}
		*d.dst = v
	}

	switch cfg.DBDriver {
	case repository.DriverSQLite, repository.DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
