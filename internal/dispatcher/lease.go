package dispatcher

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// Lease elects a single active poller across processes.
type Lease interface {
	// Acquire takes or renews the lease and reports whether this owner holds it.
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

const DefaultLeaseKey = "poller:lease"

// deletes the key only while it still names the caller
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLease struct {
	rdb   *redis.Client
	key   string
	owner string
	ttl   time.Duration
}

func NewRedisLease(rdb *redis.Client, key, owner string, ttl time.Duration) *RedisLease {
	if key == "" {
		key = DefaultLeaseKey
	}
	return &RedisLease{rdb: rdb, key: key, owner: owner, ttl: ttl}
}

func (l *RedisLease) Acquire(ctx context.Context) (bool, error) {
	ok, err := l.rdb.SetNX(ctx, l.key, l.owner, l.ttl).Result()
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}
	holder, err := l.rdb.Get(ctx, l.key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if holder != l.owner {
		return false, nil
	}
	if err := l.rdb.Expire(ctx, l.key, l.ttl).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (l *RedisLease) Release(ctx context.Context) error {
	return releaseScript.Run(ctx, l.rdb, []string{l.key}, l.owner).Err()
}
