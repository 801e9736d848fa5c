package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Place watching and rendering.
	PollInterval        time.Duration
	RenderTimeout       time.Duration
	RenderRetryInterval time.Duration

	ReferenceDataDir string

	// Data provider credentials. An empty key is sent as no key.
	MapQuestAPIKey   string
	GeocodeCacheSize int
	QuandlAPIKey     string
	CensusAPIKey     string
	NOAAToken        string
	ProviderTimeout  time.Duration

	// Kafka is disabled when no brokers are configured.
	KafkaBrokers         []string
	KafkaNavigationTopic string
	KafkaPanelTopic      string
	KafkaGroupID         string

	// The relay response cache is disabled when no Redis address is configured.
	RedisAddr     string
	RelayCacheTTL time.Duration
}

// KafkaEnabled reports whether navigation events and panels go through Kafka.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	pollInterval, err := parsePositiveDuration("POLL_INTERVAL", "1s")
	if err != nil {
		return nil, err
	}
	renderTimeout, err := parsePositiveDuration("RENDER_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	retryInterval, err := parsePositiveDuration("RENDER_RETRY_INTERVAL", "250ms")
	if err != nil {
		return nil, err
	}
	if retryInterval > renderTimeout {
		return nil, errors.New("RENDER_RETRY_INTERVAL must not exceed RENDER_TIMEOUT")
	}

	providerTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("PROVIDER_TIMEOUT", "0s"))
	if err != nil || providerTimeout < 0 {
		return nil, errors.New("invalid PROVIDER_TIMEOUT")
	}
	relayCacheTTL, err := parsePositiveDuration("RELAY_CACHE_TTL", "24h")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		PollInterval:        pollInterval,
		RenderTimeout:       renderTimeout,
		RenderRetryInterval: retryInterval,

		ReferenceDataDir: sharedcfg.EnvOrDefault("REFERENCE_DATA_DIR", "data/reference"),

		MapQuestAPIKey:   os.Getenv("MAPQUEST_API_KEY"),
		GeocodeCacheSize: parseGeocodeCacheSize(),
		QuandlAPIKey:     os.Getenv("QUANDL_API_KEY"),
		CensusAPIKey:     os.Getenv("CENSUS_API_KEY"),
		NOAAToken:        os.Getenv("NOAA_TOKEN"),
		ProviderTimeout:  providerTimeout,

		KafkaBrokers:         sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaNavigationTopic: sharedcfg.EnvOrDefault("KAFKA_NAVIGATION_TOPIC", "map-navigation"),
		KafkaPanelTopic:      sharedcfg.EnvOrDefault("KAFKA_PANEL_TOPIC", "city-info-panels"),
		KafkaGroupID:         sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "city-info"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RelayCacheTTL: relayCacheTTL,
	}

	return cfg, nil
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}

func parseGeocodeCacheSize() int {
	if s := os.Getenv("GEOCODE_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
