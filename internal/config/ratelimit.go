package config

import "time"

// Bucket is one token-bucket policy.  A caller may spend Burst requests at
// once and regains one request every Every.
type Bucket struct {
    Name  string
    Burst int
    Every time.Duration
}

// Idle is how long an untouched bucket takes to refill completely; the
// Redis key may expire after that without changing behaviour.
func (b Bucket) Idle() time.Duration {
    return time.Duration(b.Burst) * b.Every
}

// RateLimitConfig guards the unauthenticated endpoints.  Callers there have
// no identity yet, so buckets are keyed by client IP.  Session endpoints
// (login, register, logout) and password recovery spend from separate
// buckets: recovery sends mail and guesses codes, so it is much tighter.
type RateLimitConfig struct {
    Enabled  bool
    Prefix   string
    Session  Bucket
    Recovery Bucket
}

func LoadRateLimitConfig() RateLimitConfig {
    return RateLimitConfig{
        Enabled: envBool("RATE_LIMIT_ENABLED", true),
        Prefix:  envStr("RATE_LIMIT_PREFIX", "rl"),
        Session: loadBucket("session",
            envInt("RATE_LIMIT_SESSION_BURST", 10),
            envDur("RATE_LIMIT_SESSION_EVERY", 6*time.Second)),
        Recovery: loadBucket("recovery",
            envInt("RATE_LIMIT_RECOVERY_BURST", 5),
            envDur("RATE_LIMIT_RECOVERY_EVERY", time.Minute)),
    }
}

func loadBucket(name string, burst int, every time.Duration) Bucket {
    if burst < 1 {
        burst = 1
    }
    if every <= 0 {
        every = time.Second
    }
    return Bucket{Name: name, Burst: burst, Every: every}
}
