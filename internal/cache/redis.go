package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sparklink-app/sparklink/internal/config"
)

// messageCountTTL bounds staleness of cached per-match message counts.
const messageCountTTL = time.Hour

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.Client.Get(ctx, key).Result()
}

func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.Client.Del(ctx, key).Err()
}

// KeyForMessageCount generates the Redis key for a match's message count.
func (c *RedisCache) KeyForMessageCount(matchID string) string {
	return fmt.Sprintf("msgcount:%s", matchID)
}

// MessageCount returns the cached message count for a match.
// The second return reports a cache hit; a miss is not an error.
func (c *RedisCache) MessageCount(ctx context.Context, matchID string) (int64, bool, error) {
	key := c.KeyForMessageCount(matchID)
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil // cache miss
	} else if err != nil {
		return 0, false, err
	}

	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		// unreadable value, treat as miss and clear it
		_ = c.Client.Del(ctx, key).Err()
		return 0, false, nil
	}

	// refresh TTL on access
	_ = c.Client.Expire(ctx, key, messageCountTTL).Err()
	return n, true, nil
}

// SetMessageCount stores a freshly computed count with the standard TTL.
func (c *RedisCache) SetMessageCount(ctx context.Context, matchID string, count int64) error {
	return c.Client.Set(ctx, c.KeyForMessageCount(matchID), count, messageCountTTL).Err()
}

// BumpMessageCount increments the cached count after a message append.
// If the key is not present the increment is skipped; the next read
// repopulates from the database.
func (c *RedisCache) BumpMessageCount(ctx context.Context, matchID string) error {
	key := c.KeyForMessageCount(matchID)
	exists, err := c.Client.Exists(ctx, key).Result()
	if err != nil || exists == 0 {
		return err
	}
	if err := c.Client.Incr(ctx, key).Err(); err != nil {
		return err
	}
	return c.Client.Expire(ctx, key, messageCountTTL).Err()
}
