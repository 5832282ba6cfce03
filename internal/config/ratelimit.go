package config

import (
    "time"

    "github.com/kelseyhightower/envconfig"
)

// RateLimitConfig configures the token bucket limiter applied to /api.
// Variables use the RATE_LIMIT_ prefix, e.g. RATE_LIMIT_CAPACITY.
type RateLimitConfig struct {
    Enabled        bool          `envconfig:"ENABLED" default:"true"`
    Capacity       int           `envconfig:"CAPACITY" default:"60"`
    RefillTokens   int           `envconfig:"REFILL_TOKENS" default:"1"`
    RefillInterval time.Duration `envconfig:"REFILL_INTERVAL" default:"1s"`
    TTL            time.Duration `envconfig:"TTL" default:"10m"`
    KeyStrategy    string        `envconfig:"KEY_STRATEGY" default:"ip_route"`
    Prefix         string        `envconfig:"PREFIX" default:"rl"`
}

// LoadRateLimitConfig reads RATE_LIMIT_* variables and clamps the result
// to usable values.  Parse failures fall back to the defaults.
func LoadRateLimitConfig() RateLimitConfig {
    var c RateLimitConfig
    if err := envconfig.Process("RATE_LIMIT", &c); err != nil {
        c = RateLimitConfig{Enabled: true, Capacity: 60, RefillTokens: 1, RefillInterval: time.Second, TTL: 10 * time.Minute, KeyStrategy: "ip_route", Prefix: "rl"}
    }
    return c.normalise()
}

func (c RateLimitConfig) normalise() RateLimitConfig {
    if c.Capacity < 1 {
        c.Capacity = 1
    }
    if c.RefillTokens < 1 {
        c.RefillTokens = 1
    }
    if c.RefillInterval <= 0 {
        c.RefillInterval = time.Second
    }
    if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
        c.TTL = minTTL
    }
    return c
}
