package resetcode

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// expiryGrace keeps a record in Redis for a while after it expires so a late
// verification is reported as expired rather than not found.
const expiryGrace = time.Minute

// Each operation runs as one script so that Redis executes it atomically
// against concurrent calls for the same key.
var (
	putScript = redis.NewScript(`
		redis.call('DEL', KEYS[1])
		redis.call('HSET', KEYS[1], 'code', ARGV[1], 'expires_at_ms', ARGV[2], 'attempts', 0)
		redis.call('PEXPIRE', KEYS[1], ARGV[3])
		return 1
	`)

	consumeScript = redis.NewScript(`
		local state = redis.call('HMGET', KEYS[1], 'code', 'expires_at_ms')
		if not state[1] then
			return 0
		end
		local now_ms = tonumber(ARGV[2])
		if now_ms >= tonumber(state[2]) then
			redis.call('DEL', KEYS[1])
			return 2
		end
		if state[1] ~= ARGV[1] then
			local attempts = redis.call('HINCRBY', KEYS[1], 'attempts', 1)
			local max_attempts = tonumber(ARGV[3])
			if max_attempts > 0 and attempts >= max_attempts then
				redis.call('DEL', KEYS[1])
			end
			return 3
		end
		redis.call('DEL', KEYS[1])
		return 1
	`)
)

// RedisStore keeps records as hashes under prefix:userID.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewRedisStore returns a Store on rdb.  An empty prefix defaults to "reset".
func NewRedisStore(rdb redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "reset"
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) key(userID string) string { return s.prefix + ":" + userID }

func (s *RedisStore) Put(ctx context.Context, userID string, rec Record) error {
	keep := time.Until(rec.ExpiresAt)
	if keep < 0 {
		keep = 0
	}
	keep += expiryGrace
	return putScript.Run(ctx, s.rdb, []string{s.key(userID)},
		rec.Code, rec.ExpiresAt.UnixMilli(), keep.Milliseconds()).Err()
}

func (s *RedisStore) Consume(ctx context.Context, userID, code string, now time.Time, maxAttempts int) error {
	res, err := consumeScript.Run(ctx, s.rdb, []string{s.key(userID)},
		code, now.UnixMilli(), maxAttempts).Int64()
	if err != nil {
		return err
	}
	switch res {
	case 1:
		return nil
	case 0:
		return ErrCodeNotFound
	case 2:
		return ErrCodeExpired
	case 3:
		return ErrCodeMismatch
	default:
		return fmt.Errorf("unexpected consume result %d", res)
	}
}

func (s *RedisStore) Delete(ctx context.Context, userID string) error {
	return s.rdb.Del(ctx, s.key(userID)).Err()
}
