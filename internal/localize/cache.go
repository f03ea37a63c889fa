package localize

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores successful translations.
type Cache interface {
	Get(ctx context.Context, lang, text string) (string, bool, error)
	Set(ctx context.Context, lang, text, translated string) error
}

// RedisCache keeps translations in Redis with a TTL.
type RedisCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisCache creates a translation cache.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if client == nil {
		panic("localize: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &RedisCache{redis: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, lang, text string) (string, bool, error) {
	val, err := c.redis.Get(ctx, translationKey(lang, text)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("localize: cache get: %w", err)
	}
	return val, true, nil
}

func (c *RedisCache) Set(ctx context.Context, lang, text, translated string) error {
	if err := c.redis.Set(ctx, translationKey(lang, text), translated, c.ttl).Err(); err != nil {
		return fmt.Errorf("localize: cache set: %w", err)
	}
	return nil
}

func translationKey(lang, text string) string {
	sum := sha256.Sum256([]byte(lang + "\x00" + text))
	return fmt.Sprintf("translation:%s:%s", lang, hex.EncodeToString(sum[:]))
}
