package resetcode

import (
	"errors"
	"fmt"
	"strings"
)

// Backend names accepted in RESET_STORE.  An empty value means auto: Redis
// when it is reachable, otherwise memory.
const (
	BackendAuto   = ""
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// ErrRedisUnavailable is returned when Redis was requested explicitly but no
// client could be connected.
var ErrRedisUnavailable = errors.New("reset store: redis requested but unavailable")

// ChooseBackend resolves the configured backend against whether Redis is up.
// The second result reports a fallback from auto to memory, which callers
// should log.
func ChooseBackend(configured string, redisUp bool) (string, bool, error) {
	switch strings.ToLower(strings.TrimSpace(configured)) {
	case BackendMemory:
		return BackendMemory, false, nil
	case BackendRedis:
		if !redisUp {
			return "", false, ErrRedisUnavailable
		}
		return BackendRedis, false, nil
	case BackendAuto:
		if !redisUp {
			return BackendMemory, true, nil
		}
		return BackendRedis, false, nil
	default:
		return "", false, fmt.Errorf("reset store: unknown backend %q", configured)
	}
}
