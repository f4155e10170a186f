package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// CatalogCache stores serialized catalog query results. Failures are logged and
// reported as misses so the catalog keeps serving without redis.
type CatalogCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCatalogCache(client *redis.Client, ttl time.Duration) *CatalogCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CatalogCache{client: client, ttl: ttl}
}

func (c *CatalogCache) Get(ctx context.Context, query string) ([]byte, bool) {
	data, err := c.client.Get(ctx, fmt.Sprintf(keyCatalogQuery, query)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("Catalog cache lookup failed", "query", query, "error", err)
		}
		return nil, false
	}
	return data, true
}

func (c *CatalogCache) Set(ctx context.Context, query string, data []byte) {
	if err := c.client.Set(ctx, fmt.Sprintf(keyCatalogQuery, query), data, c.ttl).Err(); err != nil {
		slog.Warn("Catalog cache store failed", "query", query, "error", err)
	}
}
