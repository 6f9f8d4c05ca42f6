package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"tokoisi/backend/internal/domain"
)

const DefaultMemoryReportCacheSize = 256

// MemoryReportCache keeps reports in process. Used when no redis is configured.
// Entries share the TTL given at construction; the per-call ttl only disables
// caching when it is not positive.
type MemoryReportCache struct {
	entries *expirable.LRU[string, domain.SalesReport]
}

func NewMemoryReportCache(size int, ttl time.Duration) *MemoryReportCache {
	if size < 1 {
		size = DefaultMemoryReportCacheSize
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &MemoryReportCache{entries: expirable.NewLRU[string, domain.SalesReport](size, nil, ttl)}
}

func (c *MemoryReportCache) Get(_ context.Context, key string) (*domain.SalesReport, bool, error) {
	report, ok := c.entries.Get(key)
	if !ok {
		return nil, false, nil
	}
	return &report, true, nil
}

func (c *MemoryReportCache) Set(_ context.Context, key string, value *domain.SalesReport, ttl time.Duration) error {
	if value == nil || ttl <= 0 {
		return nil
	}
	c.entries.Add(key, *value)
	return nil
}

func (c *MemoryReportCache) Len() int {
	return c.entries.Len()
}
