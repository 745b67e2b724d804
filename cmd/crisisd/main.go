package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/crisis-intel-service/internal/adapter/classifier"
	"github.com/couchcryptid/crisis-intel-service/internal/adapter/googlemaps"
	httpadapter "github.com/couchcryptid/crisis-intel-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/crisis-intel-service/internal/adapter/kafka"
	"github.com/couchcryptid/crisis-intel-service/internal/adapter/mockfeed"
	"github.com/couchcryptid/crisis-intel-service/internal/adapter/postgres"
	"github.com/couchcryptid/crisis-intel-service/internal/adapter/usgs"
	"github.com/couchcryptid/crisis-intel-service/internal/assess"
	"github.com/couchcryptid/crisis-intel-service/internal/config"
	"github.com/couchcryptid/crisis-intel-service/internal/geo"
	"github.com/couchcryptid/crisis-intel-service/internal/ingest"
	"github.com/couchcryptid/crisis-intel-service/internal/observability"
	"github.com/couchcryptid/crisis-intel-service/internal/scheduler"
)

func main() {
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

	pool, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	repo := postgres.NewRepository(pool)

	// Places and directions are feature-flagged via MAPS_API_KEY.
	var places geo.PlacesClient
	var directions geo.DirectionsClient
	if cfg.MapsAPIKey != "" {
		maps := googlemaps.NewClient(cfg.MapsAPIKey, cfg.MapsTimeout, logger)
		places = googlemaps.NewCachedPlaces(maps, cfg.PlacesCacheSize, metrics)
		directions = maps
		logger.Info("maps provider enabled", "cache_size", cfg.PlacesCacheSize, "timeout", cfg.MapsTimeout)
	} else {
		logger.Info("maps provider disabled")
	}

	ingestor := ingest.New(repo, logger, metrics)
	for _, source := range cfg.IngestSources {
		switch source {
		case usgs.SourceName:
			ingestor.Register(source, usgs.NewClient(cfg.USGSFeedURL, cfg.USGSTimeout, logger))
		case mockfeed.SourceName:
			ingestor.Register(source, mockfeed.New())
		default:
			logger.Warn("unknown ingest source, skipping", "source", source)
		}
	}

	var reportsFeed *kafkaadapter.Feed
	var publisher *kafkaadapter.Publisher
	var assessPublisher assess.Publisher
	if cfg.KafkaEnabled() {
		reportsFeed = kafkaadapter.NewFeed(cfg, logger)
		ingestor.Register(kafkaadapter.SourceName, reportsFeed)
		publisher = kafkaadapter.NewPublisher(cfg, logger)
		assessPublisher = publisher
		logger.Info("kafka integration enabled",
			"reports_topic", cfg.KafkaReportsTopic,
			"assessed_topic", cfg.KafkaAssessedTopic,
		)
	} else {
		logger.Info("kafka integration disabled")
	}

	oracle := classifier.NewClient(cfg.ClassifierURL, cfg.ClassifierTimeout, logger)
	orchestrator := assess.New(repo, oracle, assessPublisher, logger, metrics, clock, cfg.QueryLimit)
	engine := geo.New(repo, places, directions, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, repo, repo, ingestor, orchestrator, engine, logger)

	ingestLoop := scheduler.NewLoop("ingest", cfg.IngestInterval, ingestor.RunCycle, logger, metrics, clock)
	assessLoop := scheduler.NewLoop("assess", cfg.AssessInterval, orchestrator.ProcessCycle, logger, metrics, clock)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()
	go func() {
		if err := ingestLoop.Run(ctx); err != nil {
			logger.Error("ingest loop error", "error", err)
		}
	}()
	go func() {
		if err := assessLoop.Run(ctx); err != nil {
			logger.Error("assess loop error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if reportsFeed != nil {
		if err := reportsFeed.Close(); err != nil {
			logger.Error("kafka feed close error", "error", err)
		}
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
