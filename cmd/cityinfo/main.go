package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/city-info-service/internal/adapter/census"
	"github.com/couchcryptid/city-info-service/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/city-info-service/internal/adapter/kafka"
	"github.com/couchcryptid/city-info-service/internal/adapter/mapquest"
	"github.com/couchcryptid/city-info-service/internal/adapter/noaa"
	"github.com/couchcryptid/city-info-service/internal/adapter/quandl"
	"github.com/couchcryptid/city-info-service/internal/adapter/relay"
	"github.com/couchcryptid/city-info-service/internal/adapter/sidebar"
	"github.com/couchcryptid/city-info-service/internal/config"
	"github.com/couchcryptid/city-info-service/internal/coordinator"
	"github.com/couchcryptid/city-info-service/internal/domain"
	"github.com/couchcryptid/city-info-service/internal/observability"
	"github.com/couchcryptid/city-info-service/internal/pipeline"
	"github.com/couchcryptid/city-info-service/internal/provider"
	"github.com/couchcryptid/city-info-service/internal/reference"
	"github.com/couchcryptid/city-info-service/internal/watcher"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	// Geocoding and elevation share one MapQuest client.
	mq := mapquest.NewClient(cfg.MapQuestAPIKey, cfg.ProviderTimeout, metrics, logger)
	geocoder := mapquest.NewCachedGeocoder(mq, cfg.GeocodeCacheSize, metrics)

	// Housing data goes through the request relay, optionally cached in Redis.
	var fetcher domain.Relay = relay.NewClient(cfg.ProviderTimeout, logger)
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		fetcher = relay.NewCachedRelay(fetcher, rdb, cfg.RelayCacheTTL, metrics, logger)
		logger.Info("relay cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.RelayCacheTTL)
	}

	store := reference.NewStore(os.DirFS(cfg.ReferenceDataDir))
	resolver := reference.NewResolver(store, geocoder, logger)

	elevation := provider.NewElevation(mq)
	providers := []provider.DataProvider{
		provider.NewHousing(resolver, quandl.NewClient(fetcher, cfg.QuandlAPIKey), logger),
		provider.NewDemographics(resolver, census.NewClient(cfg.CensusAPIKey, cfg.ProviderTimeout, logger)),
		elevation,
		provider.NewWeather(noaa.NewClient(cfg.NOAAToken, cfg.ProviderTimeout, logger), logger),
	}

	doc := sidebar.NewDocument()
	w := watcher.New(doc, clock, cfg.PollInterval, logger, metrics)

	deps := coordinator.Dependencies{
		Host:      doc,
		Tracker:   w,
		Geocoder:  resolver,
		Elevation: elevation,
		Providers: providers,
		Clock:     clock,
		Logger:    logger,
		Metrics:   metrics,
	}

	var (
		navReader   *kafkaadapter.NavigationReader
		panelWriter *kafkaadapter.PanelWriter
	)
	if cfg.KafkaEnabled() {
		navReader = kafkaadapter.NewNavigationReader(cfg, doc, logger)
		panelWriter = kafkaadapter.NewPanelWriter(cfg)
		deps.Sink = panelWriter
		logger.Info("kafka enabled", "brokers", cfg.KafkaBrokers,
			"navigation_topic", cfg.KafkaNavigationTopic, "panel_topic", cfg.KafkaPanelTopic)
	}

	coord := coordinator.New(deps, cfg.RenderTimeout, cfg.RenderRetryInterval)
	p := pipeline.New(store, w, coord, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, doc, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start navigation consumer.
	if navReader != nil {
		go func() {
			if err := navReader.Run(ctx); err != nil {
				logger.Error("navigation reader error", "error", err)
			}
		}()
	}

	// Start pipeline.
	pipelineDone := make(chan struct{})
	go func() {
		defer close(pipelineDone)
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
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
	select {
	case <-pipelineDone:
	case <-shutdownCtx.Done():
		logger.Warn("pipeline did not stop before shutdown timeout")
	}
	if navReader != nil {
		if err := navReader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if panelWriter != nil {
		if err := panelWriter.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			logger.Error("redis close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
