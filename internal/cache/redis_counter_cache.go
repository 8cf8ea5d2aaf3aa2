package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const hotKeyScoresKey = "interaction:hotkey:scores"

// RedisCounterCache implements CounterCache backed by Redis.
type RedisCounterCache struct {
	client *redis.Client
}

// NewRedisCounterCache creates a new Redis-backed counter cache.
func NewRedisCounterCache(address, password string, db int) (*RedisCounterCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCounterCache{client: client}, nil
}

// GetCount returns the cached counter value.
func (c *RedisCounterCache) GetCount(ctx context.Context, key string) (int64, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("redis get count: %w", err)
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse count: %w", err)
	}
	return count, true, nil
}

// SetCount writes a counter value, typically after recomputing it from
// the database.
func (c *RedisCounterCache) SetCount(ctx context.Context, key string, count int64) error {
	if err := c.client.Set(ctx, key, count, 0).Err(); err != nil {
		return fmt.Errorf("redis set count: %w", err)
	}
	return nil
}

// condIncrScript atomically increments the key only if it exists.
// Returns {newValue, 1} if incremented, {0, 0} if the key was missing.
var condIncrScript = redis.NewScript(`
local key = KEYS[1]
if redis.call("EXISTS", key) == 1 then
  return {redis.call("INCR", key), 1}
end
return {0, 0}
`)

// condDecrScript atomically decrements the key only if it exists and the
// current value is above zero. Returns {newValue, 1} on success,
// {current, 1} when already at the floor, {0, 0} if missing.
var condDecrScript = redis.NewScript(`
local key = KEYS[1]
if redis.call("EXISTS", key) == 1 then
  local val = tonumber(redis.call("GET", key))
  if val and val > 0 then
    return {redis.call("DECR", key), 1}
  end
  return {val or 0, 1}
end
return {0, 0}
`)

// CondIncr atomically increments key only if it exists. A missing key is
// left missing so the read path rebuilds it from the database instead of
// trusting a counter that restarted at 1.
func (c *RedisCounterCache) CondIncr(ctx context.Context, key string) (int64, bool, error) {
	return c.runCond(ctx, condIncrScript, key)
}

// CondDecr atomically decrements key with a floor at zero.
func (c *RedisCounterCache) CondDecr(ctx context.Context, key string) (int64, bool, error) {
	return c.runCond(ctx, condDecrScript, key)
}

func (c *RedisCounterCache) runCond(ctx context.Context, script *redis.Script, key string) (int64, bool, error) {
	res, err := script.Run(ctx, c.client, []string{key}).Result()
	if err != nil {
		return 0, false, fmt.Errorf("redis cond counter op: %w", err)
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) != 2 {
		return 0, false, fmt.Errorf("redis cond counter op: unexpected reply %v", res)
	}
	value, _ := vals[0].(int64)
	existed, _ := vals[1].(int64)
	return value, existed == 1, nil
}

// GetFlag reads a membership flag. A missing key means the flag was never
// cached (distinct from a cached "false").
func (c *RedisCounterCache) GetFlag(ctx context.Context, key string) (bool, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, false, nil
		}
		return false, false, fmt.Errorf("redis get flag: %w", err)
	}
	return val == "1", true, nil
}

// SetFlag writes a membership flag. "0" is stored rather than deleting the
// key so negative lookups also stay O(1).
func (c *RedisCounterCache) SetFlag(ctx context.Context, key string, value bool) error {
	v := "0"
	if value {
		v = "1"
	}
	if err := c.client.Set(ctx, key, v, 0).Err(); err != nil {
		return fmt.Errorf("redis set flag: %w", err)
	}
	return nil
}

// RecordAccess bumps the entity's score in the hot-key sorted set.
func (c *RedisCounterCache) RecordAccess(ctx context.Context, entityKey string) error {
	if err := c.client.ZIncrBy(ctx, hotKeyScoresKey, 1, entityKey).Err(); err != nil {
		return fmt.Errorf("redis record access: %w", err)
	}
	return nil
}

// TopHotKeys returns the n most accessed entity keys.
func (c *RedisCounterCache) TopHotKeys(ctx context.Context, n int64) ([]string, error) {
	keys, err := c.client.ZRevRange(ctx, hotKeyScoresKey, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis top hot keys: %w", err)
	}
	return keys, nil
}

// ResetHotKeys clears the hot-key sorted set for the next cycle.
func (c *RedisCounterCache) ResetHotKeys(ctx context.Context) error {
	if err := c.client.Del(ctx, hotKeyScoresKey).Err(); err != nil {
		return fmt.Errorf("redis reset hot keys: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (c *RedisCounterCache) Close() error {
	return c.client.Close()
}

var _ CounterCache = (*RedisCounterCache)(nil)
