package currency

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "fxrate:"

// RedisCache shares the rate cache across processes. Entries carry
// their CachedAt so introspection still reports ages.
type RedisCache struct {
	rdb *redis.Client
	now func() time.Time
}

func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb, now: time.Now}
}

func (c *RedisCache) Get(ctx context.Context, key string) (Entry, bool, error) {
	raw, err := c.rdb.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}

	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, e Entry, ttl time.Duration) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, redisKeyPrefix+key, raw, ttl).Err()
}

func (c *RedisCache) Stats(ctx context.Context) ([]CacheStat, error) {
	keys, err := c.rdb.Keys(ctx, redisKeyPrefix+"*").Result()
	if err != nil {
		return nil, err
	}

	now := c.now()
	out := make([]CacheStat, 0, len(keys))
	for _, k := range keys {
		raw, err := c.rdb.Get(ctx, k).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, err
		}
		var e Entry
		if err := json.Unmarshal(raw, &e); err != nil {
			continue
		}
		out = append(out, CacheStat{
			Pair: k[len(redisKeyPrefix):],
			Rate: e.Rate,
			Age:  ageString(now.Sub(e.CachedAt)),
		})
	}
	return out, nil
}

func (c *RedisCache) Clear(ctx context.Context) error {
	keys, err := c.rdb.Keys(ctx, redisKeyPrefix+"*").Result()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}
