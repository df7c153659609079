// Package config reads the service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures runtime configuration values for the babylog binaries.
type Config struct {
	HTTPAddress         string
	MetricsAddress      string
	PostgresURL         string // empty selects the in-memory store
	KafkaBrokers        []string
	SchemaRegistryURL   string
	OutboxPollInterval  time.Duration
	OutboxBatchSize     int
	JWTSecret           string
	JWTIssuer           string
	CacheTTL            time.Duration
	CacheSweepInterval  time.Duration
	Timezone            string
	InvalidationTopic   string
	ConsumerGroupPrefix string
	DLQPollInterval     time.Duration // Interval between DLQ polling iterations.
	DLQMaxRetries       int           // Maximum number of DLQ retry attempts before quarantine.
	DLQBaseDelay        time.Duration // Base delay used for exponential backoff.
	CORSAllowedOrigins  []string
}

// Load reads environment variables into Config, applying defaults for local development.
func Load() Config {
	return Config{
		HTTPAddress:         getEnv("HTTP_ADDRESS", ":8080"),
		MetricsAddress:      getEnv("METRICS_ADDRESS", ":9090"),
		PostgresURL:         os.Getenv("POSTGRES_URL"),
		KafkaBrokers:        splitAndTrim(os.Getenv("KAFKA_BROKERS")),
		SchemaRegistryURL:   getEnv("SCHEMA_REGISTRY_URL", "http://schema-registry:8081"),
		OutboxPollInterval:  getDurationEnv("OUTBOX_POLL_INTERVAL", 2*time.Second),
		OutboxBatchSize:     getIntEnv("OUTBOX_BATCH_SIZE", 25),
		JWTSecret:           getEnv("JWT_SECRET", "dev-secret-change-me"),
		JWTIssuer:           getEnv("JWT_ISSUER", "babylog.identity"),
		CacheTTL:            getDurationEnv("CACHE_TTL", 5*time.Minute),
		CacheSweepInterval:  getDurationEnv("CACHE_SWEEP_INTERVAL", time.Minute),
		Timezone:            getEnv("TIMEZONE", "Local"),
		InvalidationTopic:   getEnv("INVALIDATION_TOPIC", "babylog_activity_changes"),
		ConsumerGroupPrefix: getEnv("CONSUMER_GROUP_PREFIX", "babylog-api"),
		DLQPollInterval:     getDurationEnv("DLQ_POLL_INTERVAL", 30*time.Second),
		DLQMaxRetries:       getIntEnv("DLQ_MAX_RETRIES", 5),
		DLQBaseDelay:        getDurationEnv("DLQ_BASE_DELAY", time.Minute),
		CORSAllowedOrigins:  splitAndTrim(getEnv("CORS_ALLOWED_ORIGINS", "*")),
	}
}

// Location resolves Timezone. "Local" and "" mean the process zone.
func (c Config) Location() (*time.Location, error) {
	switch c.Timezone {
	case "", "Local":
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// EventsEnabled reports whether change events can be relayed through Kafka.
func (c Config) EventsEnabled() bool {
	return c.PostgresURL != "" && len(c.KafkaBrokers) > 0
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
