package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "PLOTSEARCH"

type Config struct {
	Port      string `envconfig:"PORT" default:"8080"`
	Debug     bool   `envconfig:"DEBUG" default:"false"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"10"`
	DBMinConns  int32  `envconfig:"DB_MIN_CONNS" default:"1"`

	// GeographyEnabled means the database has PostGIS and the properties
	// table carries the generated geography column.
	GeographyEnabled bool          `envconfig:"GEOGRAPHY_ENABLED" default:"false"`
	StoreTimeout     time.Duration `envconfig:"STORE_TIMEOUT" default:"5s"`
	MaxCandidates    int           `envconfig:"MAX_CANDIDATES" default:"5000"`

	AuthServiceURL string `envconfig:"AUTH_SERVICE_URL"`

	RabbitMQURL   string        `envconfig:"RABBITMQ_URL"`
	SweepExchange string        `envconfig:"SWEEP_EXCHANGE" default:"saved_search.events"`
	SweepInterval time.Duration `envconfig:"SWEEP_INTERVAL" default:"5m"`
	SweepExact    bool          `envconfig:"SWEEP_EXACT" default:"false"`

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
}

// Load reads an optional .env file, then PLOTSEARCH_* variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("failed to process config: %s_DATABASE_URL is empty", envPrefix)
	}
	if cfg.MaxCandidates <= 0 {
		return nil, fmt.Errorf("failed to process config: %s_MAX_CANDIDATES must be positive", envPrefix)
	}
	if cfg.DBMinConns > cfg.DBMaxConns {
		return nil, fmt.Errorf("failed to process config: %s_DB_MIN_CONNS exceeds %s_DB_MAX_CONNS", envPrefix, envPrefix)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasAuth() bool {
	return c.AuthServiceURL != ""
}

func (c *Config) HasBroker() bool {
	return c.RabbitMQURL != ""
}

func (c *Config) SweepEnabled() bool {
	return c.SweepInterval > 0
}
