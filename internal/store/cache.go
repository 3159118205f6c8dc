package store

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/oszuidwest/diario-bordo/internal/types"
)

// RefugoFinder looks up scrap records by label.
type RefugoFinder interface {
	RefugoByEtiqueta(ctx context.Context, etiqueta string) (*types.Refugo, error)
}

// LabelCache caches label lookups for a limited time. Misses are not cached,
// so a label that appears later is found on the next scan.
type LabelCache struct {
	next  RefugoFinder
	cache *expirable.LRU[string, types.Refugo]
}

// NewLabelCache wraps next with an LRU of the given size and entry TTL.
func NewLabelCache(next RefugoFinder, size int, ttl time.Duration) *LabelCache {
	return &LabelCache{
		next:  next,
		cache: expirable.NewLRU[string, types.Refugo](size, nil, ttl),
	}
}

// RefugoByEtiqueta returns the cached record or loads it from the store.
func (c *LabelCache) RefugoByEtiqueta(ctx context.Context, etiqueta string) (*types.Refugo, error) {
	if r, ok := c.cache.Get(etiqueta); ok {
		return &r, nil
	}

	r, err := c.next.RefugoByEtiqueta(ctx, etiqueta)
	if err != nil {
		return nil, err
	}
	c.cache.Add(etiqueta, *r)
	return r, nil
}

// Purge drops all cached entries, e.g. after an import.
func (c *LabelCache) Purge() {
	c.cache.Purge()
}

// Len returns the number of cached labels.
func (c *LabelCache) Len() int {
	return c.cache.Len()
}
