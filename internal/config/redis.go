package config

// Redis backs the rate limiter, the response cache and the asynq task
// queue.  If the server cannot be reached at startup NewRedisClient
// returns nil and callers degrade: the limiter falls back to an
// in-process bucket, caching is disabled and hold-expiry tasks are not
// scheduled.

import (
    "context"
    "crypto/tls"
    "time"

    "github.com/kelseyhightower/envconfig"
    "github.com/redis/go-redis/v9"
)

// RedisConfig is read from REDIS_* variables.  Addr is derived from
// REDIS_HOST and REDIS_PORT when both are set.
type RedisConfig struct {
    Host     string `envconfig:"HOST"`
    Port     string `envconfig:"PORT"`
    Addr     string `envconfig:"ADDR" default:"localhost:6379"`
    Password string `envconfig:"PASSWORD"`
    DB       int    `envconfig:"DB" default:"0"`
    TLS      bool   `envconfig:"TLS" default:"false"`
}

// LoadRedisConfig reads REDIS_* variables.
func LoadRedisConfig() RedisConfig {
    var c RedisConfig
    if err := envconfig.Process("REDIS", &c); err != nil {
        c = RedisConfig{Addr: "localhost:6379"}
    }
    if c.Host != "" && c.Port != "" {
        c.Addr = c.Host + ":" + c.Port
    }
    return c
}

// Options converts the config into go-redis client options.
func (c RedisConfig) Options() *redis.Options {
    opts := &redis.Options{Addr: c.Addr, Password: c.Password, DB: c.DB}
    if c.TLS {
        opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
    }
    return opts
}

// NewRedisClient connects using cfg and pings the server with a short
// timeout.  The returned client is nil if the ping fails.
func NewRedisClient(cfg RedisConfig) *redis.Client {
    client := redis.NewClient(cfg.Options())
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        _ = client.Close()
        return nil
    }
    return client
}
