// Package config defines the service configuration, loaded from a YAML
// file and then overridden by MARKET_* environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Market   MarketConfig   `yaml:"market"`
	LogLevel string         `yaml:"log_level" envconfig:"LOG_LEVEL"`
}

type ServerConfig struct {
	Addr      string        `yaml:"addr" envconfig:"SERVER_ADDR"`
	RateLimit time.Duration `yaml:"rate_limit" envconfig:"SERVER_RATE_LIMIT"`
}

type DatabaseConfig struct {
	// DSN empty means run on the in-memory repository.
	DSN string `yaml:"dsn" envconfig:"DB_DSN"`
}

type RedisConfig struct {
	// Addr empty means run on the in-memory cache.
	Addr     string        `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password string        `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int           `yaml:"db" envconfig:"REDIS_DB"`
	TTL      time.Duration `yaml:"ttl" envconfig:"REDIS_TTL"`
}

type MarketConfig struct {
	ID           string `yaml:"id" envconfig:"MARKET_ID"`
	Owner        string `yaml:"owner" envconfig:"OWNER"`
	PricePerUnit int64  `yaml:"price_per_unit" envconfig:"PRICE_PER_UNIT"`
	Scaling      string `yaml:"scaling" envconfig:"SCALING"`
}

// Load reads the YAML file at path (optional), applies MARKET_* environment
// overrides, fills defaults and validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := envconfig.Process("market", cfg); err != nil {
		return nil, fmt.Errorf("config: env overrides: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
