package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/rpupo63/meetup-site-backend/models"
)

const DefaultSize = 1024

// MemoryCache is a bounded in-process cache with per-entry expiry
type MemoryCache struct {
	lru *expirable.LRU[string, *models.BlogPost]
}

func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryCache{lru: expirable.NewLRU[string, *models.BlogPost](size, nil, ttl)}
}

func (c *MemoryCache) Get(_ context.Context, slug string) (*models.BlogPost, bool, error) {
	post, ok := c.lru.Get(slug)
	if !ok {
		return nil, false, nil
	}
	return post.Clone(), true, nil
}

func (c *MemoryCache) Set(_ context.Context, slug string, post *models.BlogPost) error {
	c.lru.Add(slug, post.Clone())
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, slugs ...string) error {
	for _, s := range slugs {
		c.lru.Remove(s)
	}
	return nil
}

// Len reports the number of live entries
func (c *MemoryCache) Len() int {
	return c.lru.Len()
}
