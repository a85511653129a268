package resolver

import (
	"context"
	"time"

	"github.com/bluele/gcache"
	"github.com/tcfw/siop/pkg/did"
	"github.com/tcfw/siop/pkg/did/w3cdid"
)

const (
	DefaultCacheSize = 100
	DefaultCacheTTL  = 5 * time.Minute
)

// Cache memoises successful resolutions of the wrapped resolver.
type Cache struct {
	next  did.Resolver
	cache gcache.Cache
}

func NewCache(next did.Resolver, size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}

	b := gcache.New(size).LRU()
	if ttl > 0 {
		b = b.Expiration(ttl)
	}

	return &Cache{next: next, cache: b.Build()}
}

func (c *Cache) Resolve(ctx context.Context, id w3cdid.URL) (*w3cdid.Document, error) {
	if v, err := c.cache.Get(string(id)); err == nil {
		return v.(*w3cdid.Document), nil
	}

	doc, err := c.next.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	_ = c.cache.Set(string(id), doc)

	return doc, nil
}

// Purge drops every cached document
func (c *Cache) Purge() {
	c.cache.Purge()
}
