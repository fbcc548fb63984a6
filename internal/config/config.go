package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/siasic/seismic-watch/internal/geo"
	"github.com/siasic/seismic-watch/internal/ingest"
)

type Config struct {
	Server  ServerConfig
	Feed    FeedConfig
	Worker  WorkerConfig
	Dataset DatasetConfig
	DB      DatabaseConfig
	Logging LoggingConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	RateLimitRPS   float64
	RateLimitBurst int
}

type FeedConfig struct {
	BaseURL      string
	Timeout      time.Duration
	PollInterval time.Duration
	AutoRefresh  bool
	Floor        ingest.MagnitudeFloor
	Window       ingest.TimeWindow
	Region       geo.Region
}

type WorkerConfig struct {
	Count      int
	BufferSize int
}

type DatasetConfig struct {
	Path string
}

type DatabaseConfig struct {
	Path string
}

type LoggingConfig struct {
	Level string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "localhost"),
			Port:           getEnvInt("SERVER_PORT", 8080),
			RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 10),
			RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 20),
		},
		Feed: FeedConfig{
			BaseURL:      getEnv("USGS_BASE_URL", "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary"),
			Timeout:      getEnvDuration("USGS_TIMEOUT", 30*time.Second),
			PollInterval: getEnvDuration("USGS_POLL_INTERVAL", 5*time.Minute),
			AutoRefresh:  getEnvBool("AUTO_REFRESH", true),
			Floor:        ingest.MagnitudeFloor(getEnv("FEED_FLOOR", string(ingest.FloorAll))),
			Window:       ingest.TimeWindow(getEnv("FEED_WINDOW", string(ingest.WindowDay))),
			Region:       geo.Region(getEnv("FEED_REGION", string(geo.RegionColombia))),
		},
		Worker: WorkerConfig{
			Count:      getEnvInt("WORKER_COUNT", 2),
			BufferSize: getEnvInt("WORKER_BUFFER_SIZE", 20),
		},
		Dataset: DatasetConfig{
			Path: getEnv("DATASET_PATH", ""),
		},
		DB: DatabaseConfig{
			Path: getEnv("DB_PATH", ":memory:"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Feed.PollInterval < time.Minute {
		return fmt.Errorf("poll interval must be at least 1 minute")
	}

	if _, ok := ingest.ParseMagnitudeFloor(string(c.Feed.Floor)); !ok {
		return fmt.Errorf("invalid feed floor: %s", c.Feed.Floor)
	}
	if _, ok := ingest.ParseTimeWindow(string(c.Feed.Window)); !ok {
		return fmt.Errorf("invalid feed window: %s", c.Feed.Window)
	}
	if _, ok := geo.ParseRegion(string(c.Feed.Region)); !ok {
		return fmt.Errorf("invalid feed region: %s", c.Feed.Region)
	}

	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}
