package config

import "fmt"

func (c *Config) Validate() error {
	if c.Market.Owner == "" {
		return fmt.Errorf("config: market.owner is required")
	}
	if c.Market.PricePerUnit <= 0 {
		return fmt.Errorf("config: market.price_per_unit must be positive, got %d", c.Market.PricePerUnit)
	}
	switch c.Market.Scaling {
	case "integer", "rational":
	default:
		return fmt.Errorf("config: market.scaling must be integer or rational, got %q", c.Market.Scaling)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log_level must be debug, info, warn or error, got %q", c.LogLevel)
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("config: redis.db must be non-negative, got %d", c.Redis.DB)
	}
	return nil
}
