package lease

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/authservice/internal/common"
)

// releaseScript deletes the key only if it still holds our value, so a
// holder whose ttl lapsed cannot drop somebody else's lease.
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`)

type RedisLocker struct {
	rdb    redis.UniversalClient
	prefix string
}

func NewRedisLocker(rdb redis.UniversalClient, prefix string) *RedisLocker {
	return &RedisLocker{rdb: rdb, prefix: prefix}
}

func (l *RedisLocker) TryAcquire(ctx context.Context, key string, ttl time.Duration) (Release, bool, error) {
	owner, err := common.MakeRandHexString(16)
	if err != nil {
		return nil, false, fmt.Errorf("lease owner: %w", err)
	}

	full := l.prefix + key
	ok, err := l.rdb.SetNX(ctx, full, owner, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis setnx %s: %w", full, err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.rdb, []string{full}, owner).Err(); err != nil {
			return fmt.Errorf("redis release %s: %w", full, err)
		}
		return nil
	}
	return release, true, nil
}
