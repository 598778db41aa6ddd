package penpost

import (
	"context"
	"sync"
	"time"
)

// PublishedSource is what PostCache loads from.
type PublishedSource interface {
	ListPublished(ctx context.Context) ([]Post, error)
	DistinctAuthors(ctx context.Context) ([]string, error)
}

// PostCache is an in-memory cache of published posts and their authors with
// a TTL. View counts in cached posts may lag by up to one TTL.
type PostCache struct {
	mu      sync.RWMutex
	posts   []Post
	authors []string
	fetched time.Time
	ttl     time.Duration
	source  PublishedSource
}

// NewPostCache creates a PostCache backed by the given source.
func NewPostCache(src PublishedSource, ttl time.Duration) *PostCache {
	return &PostCache{source: src, ttl: ttl}
}

func (c *PostCache) valid() bool {
	return c.posts != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *PostCache) Invalidate() {
	c.mu.Lock()
	c.posts = nil
	c.authors = nil
	c.mu.Unlock()
}

func (c *PostCache) load(ctx context.Context) error {
	if c.valid() {
		return nil
	}
	posts, err := c.source.ListPublished(ctx)
	if err != nil {
		return err
	}
	authors, err := c.source.DistinctAuthors(ctx)
	if err != nil {
		return err
	}
	if posts == nil {
		posts = []Post{}
	}
	c.posts = posts
	c.authors = authors
	c.fetched = time.Now()
	return nil
}

// ensureLoaded returns cached posts and authors after ensuring the cache is
// fresh. It tries a read lock first; only takes a write lock if a reload is
// needed. Callers must not modify the returned slices.
func (c *PostCache) ensureLoaded(ctx context.Context) ([]Post, []string, error) {
	c.mu.RLock()
	if c.valid() {
		posts, authors := c.posts, c.authors
		c.mu.RUnlock()
		return posts, authors, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.load(ctx); err != nil {
		return nil, nil, err
	}
	return c.posts, c.authors, nil
}

// ListPublished returns published posts, newest first.
func (c *PostCache) ListPublished(ctx context.Context) ([]Post, error) {
	posts, _, err := c.ensureLoaded(ctx)
	return posts, err
}

// ListByAuthor returns the author's published posts, newest first.
func (c *PostCache) ListByAuthor(ctx context.Context, author string) ([]Post, error) {
	posts, _, err := c.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	filtered := []Post{}
	for _, p := range posts {
		if p.Author == author {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

// Authors returns the sorted authors of published posts.
func (c *PostCache) Authors(ctx context.Context) ([]string, error) {
	_, authors, err := c.ensureLoaded(ctx)
	return authors, err
}
