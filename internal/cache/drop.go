package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	slugKeyPrefix     = "slug:"
	negCacheKeySuffix = ":neg"

	// NegativeCacheTTL is the TTL for negative cache entries.
	// Unknown slugs are hammered by scanners, so remember misses briefly.
	NegativeCacheTTL = 5 * time.Minute
)

// IsNegativelyCached checks if a slug is in the negative cache.
func (c *Cache) IsNegativelyCached(ctx context.Context, slug string) (bool, error) {
	key := slugKeyPrefix + slug + negCacheKeySuffix

	exists, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check negative cache: %w", err)
	}

	return exists > 0, nil
}

// SetNegativeCache marks a slug as not found.
func (c *Cache) SetNegativeCache(ctx context.Context, slug string) error {
	key := slugKeyPrefix + slug + negCacheKeySuffix

	err := c.client.SetEx(ctx, key, "", NegativeCacheTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to set negative cache: %w", err)
	}

	return nil
}

// InvalidateSlug clears any negative cache entry for a slug.
// Called after a drop is created or renamed so the new slug resolves
// immediately.
func (c *Cache) InvalidateSlug(ctx context.Context, slug string) error {
	key := slugKeyPrefix + slug + negCacheKeySuffix

	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate slug cache: %w", err)
	}

	return nil
}
