package fetch

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cached answers repeat fetches of the same URL from an LRU of successful
// bodies. Catalogs often list several items under one page.
type Cached struct {
	next    Fetcher
	pages   *lru.Cache[string, string]
	metrics *Metrics
}

// NewCached wraps next with a cache holding up to size pages.
func NewCached(next Fetcher, size int, metrics *Metrics) (*Cached, error) {
	pages, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("create page cache: %w", err)
	}
	return &Cached{next: next, pages: pages, metrics: metrics}, nil
}

// Fetch returns the cached body for url or fetches and remembers it.
// Failed fetches are never cached.
func (c *Cached) Fetch(ctx context.Context, url string) (string, error) {
	if body, ok := c.pages.Get(url); ok {
		c.metrics.IncCacheHit()
		return body, nil
	}
	body, err := c.next.Fetch(ctx, url)
	if err != nil {
		return body, err
	}
	c.pages.Add(url, body)
	return body, nil
}

// Len reports the number of cached pages.
func (c *Cached) Len() int {
	return c.pages.Len()
}
