package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"DRIFTNET_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"DRIFTNET_DB_MAX_CONNS" default:"8"`

	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY" default:""`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL" default:""`
	OpenAIModel   string `envconfig:"DRIFTNET_MODEL" default:"gpt-4o-mini"`

	SpeciesRegistryURL string `envconfig:"SPECIES_REGISTRY_URL" default:"https://www.marinespecies.org/rest"`

	ExtractConcurrency  int `envconfig:"DRIFTNET_EXTRACT_CONCURRENCY" default:"3"`
	FetchTimeoutSeconds int `envconfig:"DRIFTNET_FETCH_TIMEOUT_SECONDS" default:"12"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("DRIFTNET_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("DRIFTNET_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DRIFTNET_DB_MIN_CONNS (%d) cannot exceed DRIFTNET_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if strings.TrimSpace(c.OpenAIModel) == "" {
		return fmt.Errorf("DRIFTNET_MODEL is required")
	}
	if c.ExtractConcurrency < 1 {
		return fmt.Errorf("DRIFTNET_EXTRACT_CONCURRENCY must be >= 1")
	}
	if c.FetchTimeoutSeconds < 1 {
		return fmt.Errorf("DRIFTNET_FETCH_TIMEOUT_SECONDS must be >= 1")
	}
	return nil
}
