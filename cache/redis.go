// Package cache holds the slug-keyed post caches used to accelerate single-post lookups.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rpupo63/meetup-site-backend/models"
)

const (
	DefaultTTL       = time.Hour
	defaultKeyPrefix = "blog:post:slug:"
)

// RedisCache stores JSON-encoded posts under a slug key with a TTL
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, ttl: ttl, prefix: defaultKeyPrefix}
}

func (c *RedisCache) Get(ctx context.Context, slug string) (*models.BlogPost, bool, error) {
	raw, err := c.client.Get(ctx, c.key(slug)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var post models.BlogPost
	if err := json.Unmarshal(raw, &post); err != nil {
		// A corrupt entry is treated as a miss and dropped.
		_ = c.client.Del(ctx, c.key(slug)).Err()
		return nil, false, nil
	}
	return &post, true, nil
}

func (c *RedisCache) Set(ctx context.Context, slug string, post *models.BlogPost) error {
	raw, err := json.Marshal(post)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(slug), raw, c.ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, slugs ...string) error {
	if len(slugs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(slugs))
	for _, s := range slugs {
		keys = append(keys, c.key(s))
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *RedisCache) key(slug string) string {
	return c.prefix + slug
}
