package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"office-dashboard/internal/dashboard/domain/repository"

	"github.com/redis/go-redis/v9"
)

var _ repository.PageCache = (*PageCache)(nil)

// PageCache stores rendered HTML under a per-tenant generation number.
// Bumping the generation invalidates every page of the tenant at once;
// stale entries age out through their TTL.
type PageCache struct {
	client redis.UniversalClient
}

func NewPageCache(client redis.UniversalClient) *PageCache {
	return &PageCache{client: client}
}

func generationKey(tenantID string) string {
	return "pagecache:" + tenantID + ":gen"
}

func (c *PageCache) pageKey(ctx context.Context, tenantID, slug string) (string, error) {
	gen, err := c.client.Get(ctx, generationKey(tenantID)).Result()
	if errors.Is(err, redis.Nil) {
		gen = "0"
	} else if err != nil {
		return "", err
	}
	return fmt.Sprintf("pagecache:%s:%s:%s", tenantID, gen, slug), nil
}

func (c *PageCache) Get(ctx context.Context, tenantID, slug string) ([]byte, bool, error) {
	key, err := c.pageKey(ctx, tenantID, slug)
	if err != nil {
		return nil, false, err
	}
	html, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return html, true, nil
}

func (c *PageCache) Set(ctx context.Context, tenantID, slug string, html []byte, ttl time.Duration) error {
	key, err := c.pageKey(ctx, tenantID, slug)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, html, ttl).Err()
}

func (c *PageCache) InvalidateTenant(ctx context.Context, tenantID string) error {
	return c.client.Incr(ctx, generationKey(tenantID)).Err()
}
