package content

import (
	"context"
	"os"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Extractor turns a file into ProcessedContent.
type Extractor interface {
	Process(ctx context.Context, path string) (*ProcessedContent, error)
}

type cacheKey struct {
	path    string
	size    int64
	modTime int64
}

// CachedProcessor memoizes extraction results keyed by path, size, and
// modification time, so unchanged files are not re-read during rebuilds
// and watch-mode updates.
type CachedProcessor struct {
	inner  Extractor
	cache  *lru.Cache[cacheKey, *ProcessedContent]
	hits   atomic.Int64
	misses atomic.Int64

	observe func(hit bool)
}

// Observe installs a callback invoked on every cache lookup.
func (c *CachedProcessor) Observe(fn func(hit bool)) {
	c.observe = fn
}

// NewCachedProcessor wraps inner with an LRU cache of size entries.
// A size of zero or less disables caching and returns inner unchanged.
func NewCachedProcessor(inner Extractor, size int) (Extractor, error) {
	if size <= 0 {
		return inner, nil
	}
	c, err := lru.New[cacheKey, *ProcessedContent](size)
	if err != nil {
		return nil, err
	}
	return &CachedProcessor{inner: inner, cache: c}, nil
}

// Process returns a cached result when the file is unchanged.
func (c *CachedProcessor) Process(ctx context.Context, path string) (*ProcessedContent, error) {
	info, err := os.Stat(path)
	if err != nil {
		return c.inner.Process(ctx, path)
	}

	key := cacheKey{path: path, size: info.Size(), modTime: info.ModTime().UnixNano()}
	if pc, ok := c.cache.Get(key); ok {
		c.hits.Add(1)
		c.notify(true)
		clone := *pc
		return &clone, nil
	}

	c.misses.Add(1)
	c.notify(false)
	pc, err := c.inner.Process(ctx, path)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, pc)
	clone := *pc
	return &clone, nil
}

func (c *CachedProcessor) notify(hit bool) {
	if c.observe != nil {
		c.observe(hit)
	}
}

// Stats returns cache hit and miss counts.
func (c *CachedProcessor) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Purge drops every cached entry.
func (c *CachedProcessor) Purge() {
	c.cache.Purge()
}
