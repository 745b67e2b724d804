// Package config loads service settings from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	DatabaseURL     string
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Scheduler loops. Ingestion and assessment poll the store
	// independently; they never call each other.
	IngestInterval time.Duration
	AssessInterval time.Duration
	IngestSources  []string
	QueryLimit     int

	// Classification oracle.
	ClassifierURL     string
	ClassifierTimeout time.Duration

	// Places/directions provider.
	MapsAPIKey      string
	MapsTimeout     time.Duration
	PlacesCacheSize int

	// Optional Kafka integration: a raw-reports feed topic and an
	// assessed-events sink topic. Disabled when no brokers are set.
	KafkaBrokers       []string
	KafkaReportsTopic  string
	KafkaAssessedTopic string
	KafkaGroupID       string

	// USGS earthquake feed.
	USGSFeedURL string
	USGSTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	ingestInterval, err := parseDuration("INGEST_INTERVAL", "300s")
	if err != nil {
		return nil, err
	}
	assessInterval, err := parseDuration("ASSESS_INTERVAL", "30s")
	if err != nil {
		return nil, err
	}
	classifierTimeout, err := parseDuration("CLASSIFIER_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	mapsTimeout, err := parseDuration("MAPS_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	usgsTimeout, err := parseDuration("USGS_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		IngestInterval: ingestInterval,
		AssessInterval: assessInterval,
		IngestSources:  splitList(envOrDefault("INGEST_SOURCES", "USGS")),
		QueryLimit:     parsePositiveInt("QUERY_LIMIT", 50),

		ClassifierURL:     os.Getenv("CLASSIFIER_URL"),
		ClassifierTimeout: classifierTimeout,

		MapsAPIKey:      os.Getenv("MAPS_API_KEY"),
		MapsTimeout:     mapsTimeout,
		PlacesCacheSize: parsePositiveInt("PLACES_CACHE_SIZE", 1000),

		KafkaBrokers:       splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaReportsTopic:  envOrDefault("KAFKA_REPORTS_TOPIC", "raw-hazard-reports"),
		KafkaAssessedTopic: envOrDefault("KAFKA_ASSESSED_TOPIC", "assessed-events"),
		KafkaGroupID:       envOrDefault("KAFKA_GROUP_ID", "crisis-intel"),

		USGSFeedURL: envOrDefault("USGS_FEED_URL",
			"https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/2.5_day.geojson"),
		USGSTimeout: usgsTimeout,
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.ClassifierURL == "" {
		return nil, errors.New("CLASSIFIER_URL is required")
	}
	if len(cfg.IngestSources) == 0 {
		return nil, errors.New("INGEST_SOURCES is required")
	}

	return cfg, nil
}

// KafkaEnabled reports whether the optional Kafka integration is configured.
func (c *Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return fallback
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
