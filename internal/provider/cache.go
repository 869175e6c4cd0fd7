package provider

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrKeyNotFound = errors.New("cache: key not found")

// Cache stores completions by key. Get returns ErrKeyNotFound on a miss.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

// NewRedisCacheFromURL parses a redis:// URL.
func NewRedisCacheFromURL(url, prefix string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse REDIS_URL: %w", err)
	}
	return NewRedisCache(redis.NewClient(opts), prefix, ttl), nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	v, err := c.client.Get(ctx, c.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrKeyNotFound
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

func (c *RedisCache) Set(ctx context.Context, key, value string) error {
	return c.client.Set(ctx, c.prefix+key, value, c.ttl).Err()
}

func (c *RedisCache) Close() error { return c.client.Close() }

// cacheKey identifies a completion by the enabled chain and the prompt.
func cacheKey(providers []Provider, p Prompt) string {
	var b strings.Builder
	for _, pr := range providers {
		cfg := pr.Config()
		if cfg.Ready() != nil {
			continue
		}
		fmt.Fprintf(&b, "%s/%s;", cfg.Name, cfg.Model)
	}
	b.WriteString("\x00")
	b.WriteString(p.System)
	b.WriteString("\x00")
	b.WriteString(p.User)
	sum := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
