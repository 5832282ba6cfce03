package config

import (
    "strings"
    "time"

    "github.com/kelseyhightower/envconfig"
)

// CacheConfig defines settings for the response cache middleware.
// When Enabled is false or no Redis client is configured, caching will be disabled.
// MethodList names the HTTP methods to cache; TTL is the lifetime of an entry.
type CacheConfig struct {
    Enabled      bool          `envconfig:"ENABLED" default:"true"`
    MethodList   []string      `envconfig:"METHODS" default:"GET"`
    TTL          time.Duration `envconfig:"TTL" default:"30s"`
    KeyStrategy  string        `envconfig:"KEY_STRATEGY" default:"route_query"`
    Prefix       string        `envconfig:"PREFIX" default:"cache"`
    MaxBodyBytes int           `envconfig:"MAX_BODY_BYTES" default:"1048576"`
}

// LoadCacheConfig reads CACHE_* variables.  Parse failures fall back to
// the defaults.
func LoadCacheConfig() CacheConfig {
    var c CacheConfig
    if err := envconfig.Process("CACHE", &c); err != nil {
        c = CacheConfig{Enabled: true, MethodList: []string{"GET"}, TTL: 30 * time.Second, KeyStrategy: "route_query", Prefix: "cache", MaxBodyBytes: 1 << 20}
    }
    return c
}

// Methods returns the cacheable methods as an upper-cased set.
func (c CacheConfig) Methods() map[string]bool {
    m := map[string]bool{}
    for _, p := range c.MethodList {
        p = strings.TrimSpace(strings.ToUpper(p))
        if p != "" {
            m[p] = true
        }
    }
    return m
}
