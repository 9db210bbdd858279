package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultAddr      = ":8080"
	DefaultRateLimit = 100 * time.Millisecond
	DefaultRedisTTL  = 5 * time.Minute
	DefaultMarketID  = "energy"
	// Day price of collected renewable energy, settlement currency per Wh.
	DefaultPricePerUnit = 2500
	DefaultScaling      = "integer"
	DefaultLogLevel     = "info"
)

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.RateLimit == 0 {
		c.Server.RateLimit = DefaultRateLimit
	}
	if c.Redis.TTL == 0 {
		c.Redis.TTL = DefaultRedisTTL
	}
	if c.Market.ID == "" {
		c.Market.ID = DefaultMarketID
	}
	if c.Market.PricePerUnit == 0 {
		c.Market.PricePerUnit = DefaultPricePerUnit
	}
	if c.Market.Scaling == "" {
		c.Market.Scaling = DefaultScaling
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
}
