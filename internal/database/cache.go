package database

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pagelens/pagelens/internal/models"
)

// Cache is a best-effort Redis read cache for persisted extraction
// documents. Fetched pages and parse trees are never cached; only result
// sets that were explicitly saved. Every method degrades to a no-op on
// Redis errors.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Cache{
		client: client,
		ttl:    ttl,
		logger: logger.With("component", "extraction_cache"),
	}
}

func cacheKey(id string) string {
	return "extraction:" + id
}

func (c *Cache) Get(ctx context.Context, id string) (*models.Extraction, bool) {
	data, err := c.client.Get(ctx, cacheKey(id)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("cache read failed", "id", id, "error", err)
		}
		return nil, false
	}

	var e models.Extraction
	if err := json.Unmarshal(data, &e); err != nil {
		c.logger.Warn("cache entry corrupt, dropping", "id", id, "error", err)
		c.client.Del(ctx, cacheKey(id))
		return nil, false
	}
	return &e, true
}

func (c *Cache) Put(ctx context.Context, e *models.Extraction) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(e.ID), data, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", "id", e.ID, "error", err)
	}
}

func (c *Cache) Invalidate(ctx context.Context, id string) {
	if err := c.client.Del(ctx, cacheKey(id)).Err(); err != nil {
		c.logger.Warn("cache invalidation failed", "id", id, "error", err)
	}
}
