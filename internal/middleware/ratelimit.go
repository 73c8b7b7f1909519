package middleware

import (
    "math"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"

    "github.com/iliyamo/online-class-gate/internal/config"
)

// takeToken refills the bucket for the elapsed time and takes one token.
// Returns {allowed, tokens left, ms until the next token}.
var takeToken = redis.NewScript(`
local key      = KEYS[1]
local now      = tonumber(ARGV[1])
local burst    = tonumber(ARGV[2])
local every    = tonumber(ARGV[3])
local idle     = tonumber(ARGV[4])

local state  = redis.call('HMGET', key, 'tokens', 'at')
local tokens = tonumber(state[1])
local at     = tonumber(state[2])
if tokens == nil or at == nil then
    tokens = burst
    at = now
end

local gained = math.floor(math.max(0, now - at) / every)
if gained > 0 then
    tokens = math.min(burst, tokens + gained)
    at = at + gained * every
end

local allowed = 0
local wait = 0
if tokens > 0 then
    allowed = 1
    tokens = tokens - 1
else
    wait = math.max(0, every - (now - at))
end

redis.call('HSET', key, 'tokens', tokens, 'at', at)
redis.call('PEXPIRE', key, idle)
return {allowed, tokens, wait}
`)

// RateLimiter hands out per-IP token-bucket middleware for the public
// endpoints.  Without Redis, or when disabled, its middleware passes every
// request through; a Redis error fails open.
type RateLimiter struct {
    cfg config.RateLimitConfig
    rdb *redis.Client
    log *zap.Logger
    now func() time.Time
}

func NewRateLimiter(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) *RateLimiter {
    if log == nil {
        log = zap.NewNop()
    }
    return &RateLimiter{cfg: cfg, rdb: rdb, log: log, now: time.Now}
}

// Session limits login, registration and logout.
func (l *RateLimiter) Session() echo.MiddlewareFunc { return l.limit(l.cfg.Session) }

// Recovery limits the password forgot, reset and cancel endpoints.  They
// share one bucket so switching endpoints does not buy extra code guesses.
func (l *RateLimiter) Recovery() echo.MiddlewareFunc { return l.limit(l.cfg.Recovery) }

func (l *RateLimiter) limit(b config.Bucket) echo.MiddlewareFunc {
    if !l.cfg.Enabled || l.rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := l.key(b, c)
            vals, err := takeToken.Run(c.Request().Context(), l.rdb, []string{key},
                l.now().UnixMilli(), b.Burst, b.Every.Milliseconds(), b.Idle().Milliseconds()).Int64Slice()
            if err != nil || len(vals) != 3 {
                l.log.Warn("rate limit check failed", zap.String("key", key), zap.Error(err))
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(b.Burst))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(vals[1], 10))
            if vals[0] == 1 {
                return next(c)
            }

            secs := int(math.Ceil(float64(vals[2]) / 1000.0))
            h.Set("Retry-After", strconv.Itoa(secs))
            Logger(c).Info("rate limited", zap.String("bucket", b.Name), zap.String("ip", c.RealIP()))
            return c.JSON(http.StatusTooManyRequests, echo.Map{
                "error":       "too many requests",
                "retry_after": secs,
            })
        }
    }
}

// key is <prefix>:<bucket>:<client ip>.
func (l *RateLimiter) key(b config.Bucket, c echo.Context) string {
    ip := c.RealIP()
    if ip == "" {
        ip = "unknown"
    }
    return l.cfg.Prefix + ":" + b.Name + ":" + ip
}
