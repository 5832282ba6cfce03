package middleware

import (
    "fmt"
    "math"
    "net/http"
    "strconv"
    "strings"
    "sync"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"
    "golang.org/x/time/rate"

    "github.com/iliyamo/resort-booking/internal/config"
)

// tokenBucketScript refills KEYS[1] by ARGV[3] tokens every ARGV[4] ms up to
// ARGV[2] and takes one token.  Returns {allowed, remaining, retry_after_ms}.
var tokenBucketScript = redis.NewScript(`
    local key = KEYS[1]
    local now_ms = tonumber(ARGV[1])
    local capacity = tonumber(ARGV[2])
    local refill_tokens = tonumber(ARGV[3])
    local interval_ms = tonumber(ARGV[4])
    local ttl_seconds = tonumber(ARGV[5])

    local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
    local tokens = tonumber(state[1])
    local last_refill = tonumber(state[2])
    if tokens == nil or last_refill == nil then
        tokens = capacity
        last_refill = now_ms
    end

    local elapsed = math.max(0, now_ms - last_refill)
    local intervals = math.floor(elapsed / interval_ms)
    if intervals > 0 then
        tokens = math.min(capacity, tokens + (intervals * refill_tokens))
        last_refill = last_refill + (intervals * interval_ms)
    end

    local allowed = 0
    local retry_after_ms = 0
    if tokens > 0 then
        allowed = 1
        tokens = tokens - 1
    else
        retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
    end

    redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
    redis.call('EXPIRE', key, ttl_seconds)
    return { allowed, tokens, retry_after_ms }
`)

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

// NewRateLimiter picks the Redis token bucket when a client is available
// and an in-process limiter otherwise.
func NewRateLimiter(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
    if !cfg.Enabled {
        return passThrough
    }
    if rdb == nil {
        return NewLocalLimiter(cfg)
    }
    return NewTokenBucket(cfg, rdb, log)
}

// NewTokenBucket limits requests with a token bucket kept in Redis so that
// every instance shares the same budget.  Redis errors fail open.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
    if log == nil {
        log = zap.NewNop()
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := buildRateKey(cfg, c)
            args := []interface{}{
                time.Now().UnixMilli(),
                cfg.Capacity,
                cfg.RefillTokens,
                cfg.RefillInterval.Milliseconds(),
                int64(cfg.TTL / time.Second),
            }
            vals, err := tokenBucketScript.Run(c.Request().Context(), rdb, []string{key}, args...).Slice()
            if err != nil || len(vals) != 3 {
                log.Warn("rate limit script failed, allowing request", zap.String("key", key), zap.Error(err))
                return next(c)
            }
            allowed := fmt.Sprint(vals[0]) == "1"
            remaining := asInt64(vals[1])
            setRateHeaders(c, cfg.Capacity, remaining)
            if !allowed {
                return tooManyRequests(c, time.Duration(asInt64(vals[2]))*time.Millisecond)
            }
            return next(c)
        }
    }
}

// NewLocalLimiter keeps one x/time/rate limiter per key in memory.  Idle
// keys are dropped after cfg.TTL.
func NewLocalLimiter(cfg config.RateLimitConfig) echo.MiddlewareFunc {
    every := cfg.RefillInterval / time.Duration(cfg.RefillTokens)
    ll := &localLimiters{
        limit:   rate.Every(every),
        burst:   cfg.Capacity,
        ttl:     cfg.TTL,
        entries: map[string]*localEntry{},
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            lim := ll.get(buildRateKey(cfg, c), time.Now())
            r := lim.Reserve()
            delay := r.Delay()
            if delay > 0 {
                r.Cancel()
                setRateHeaders(c, cfg.Capacity, 0)
                return tooManyRequests(c, delay)
            }
            setRateHeaders(c, cfg.Capacity, int64(lim.Tokens()))
            return next(c)
        }
    }
}

type localEntry struct {
    lim      *rate.Limiter
    lastSeen time.Time
}

type localLimiters struct {
    mu        sync.Mutex
    limit     rate.Limit
    burst     int
    ttl       time.Duration
    entries   map[string]*localEntry
    lastSweep time.Time
}

func (l *localLimiters) get(key string, now time.Time) *rate.Limiter {
    l.mu.Lock()
    defer l.mu.Unlock()
    if now.Sub(l.lastSweep) > l.ttl {
        for k, e := range l.entries {
            if now.Sub(e.lastSeen) > l.ttl {
                delete(l.entries, k)
            }
        }
        l.lastSweep = now
    }
    e, ok := l.entries[key]
    if !ok {
        e = &localEntry{lim: rate.NewLimiter(l.limit, l.burst)}
        l.entries[key] = e
    }
    e.lastSeen = now
    return e.lim
}

func setRateHeaders(c echo.Context, capacity int, remaining int64) {
    if remaining < 0 {
        remaining = 0
    }
    c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(capacity))
    c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
}

func tooManyRequests(c echo.Context, retry time.Duration) error {
    secs := int(math.Ceil(retry.Seconds()))
    if secs < 1 {
        secs = 1
    }
    c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
    return c.JSON(http.StatusTooManyRequests, echo.Map{
        "error":       "too_many_requests",
        "message":     "rate limit exceeded",
        "retry_after": secs,
    })
}

func asInt64(v interface{}) int64 {
    switch t := v.(type) {
    case int64:
        return t
    case int:
        return int64(t)
    case float64:
        return int64(t)
    case string:
        if n, err := strconv.ParseInt(t, 10, 64); err == nil {
            return n
        }
    }
    return 0
}

func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
    ip := c.RealIP()
    if ip == "" {
        ip = "unknown"
    }
    uid := subject(c)
    route := c.Request().Method + " " + c.Path()

    parts := []string{cfg.Prefix}
    switch strings.ToLower(cfg.KeyStrategy) {
    case "ip":
        parts = append(parts, "ip", ip)
    case "user":
        parts = append(parts, "user", uid)
    case "route":
        parts = append(parts, "route", route)
    case "ip_user":
        parts = append(parts, "ip", ip, "user", uid)
    case "ip_route":
        parts = append(parts, "ip", ip, "route", route)
    default:
        parts = append(parts, "ip", ip, "user", uid, "route", route)
    }
    return strings.Join(parts, ":")
}
