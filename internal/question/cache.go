package question

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultCacheTTL = 5 * time.Minute
	cachePrefix     = "copycats"
)

// Cache stores JSON-encoded read results.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any) error
	Delete(ctx context.Context, keys ...string) error
}

// RedisCache is the Redis-backed Cache.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ Cache = (*RedisCache)(nil)

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

type noopCache struct{}

func (noopCache) Get(context.Context, string, any) (bool, error) { return false, nil }
func (noopCache) Set(context.Context, string, any) error         { return nil }
func (noopCache) Delete(context.Context, ...string) error        { return nil }

func cacheKey(parts ...string) string {
	return cachePrefix + ":" + strings.Join(parts, ":")
}

func testNumbersKey() string { return cacheKey("testnumbers") }
func skillsKey() string      { return cacheKey("skills") }

func questionNumbersKey(testNumber string) string {
	return cacheKey("questionnumbers", testNumber)
}

// clonesKey names the cached clone list of a resolved original: its record
// id under containment, its stored key otherwise.
func clonesKey(m Matcher, q Question) string {
	if m.NeedsRecordID() {
		return cacheKey("clones", m.Strategy(), q.ID)
	}
	return cacheKey("clones", m.Strategy(), q.TestNumber, q.QuestionNumber)
}
