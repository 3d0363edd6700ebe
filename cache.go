package chainpost

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// PostCache is an in-memory cache of the repository's post listing with TTL.
// It exists so listing pages, the feed, and the sitemap don't hit the active
// backend on every request; Invalidate is called after each publish.
type PostCache struct {
	mu      sync.RWMutex
	posts   []Post
	fetched time.Time
	ttl     time.Duration
	repo    *Repository
}

// NewPostCache creates a PostCache backed by the given Repository.
func NewPostCache(repo *Repository, ttl time.Duration) *PostCache {
	return &PostCache{repo: repo, ttl: ttl}
}

func (c *PostCache) valid() bool {
	return c.posts != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *PostCache) Invalidate() {
	c.mu.Lock()
	c.posts = nil
	c.mu.Unlock()
}

// ensureLoaded returns cached posts after ensuring the cache is fresh. It
// tries a read lock first; only takes a write lock if a reload is needed.
func (c *PostCache) ensureLoaded(ctx context.Context) ([]Post, error) {
	c.mu.RLock()
	if c.valid() {
		posts := c.posts
		c.mu.RUnlock()
		return posts, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid() {
		return c.posts, nil
	}
	posts, err := c.repo.ListPosts(ctx)
	if err != nil {
		return nil, err
	}
	c.posts = posts
	c.fetched = time.Now()
	return posts, nil
}

// ListPosts returns posts newest-first by canonical timestamp, optionally
// filtered by category (case-insensitive). The local store hands back
// insertion order, so the sort always happens here rather than trusting the
// backend.
func (c *PostCache) ListPosts(ctx context.Context, category string) ([]Post, error) {
	posts, err := c.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Post, 0, len(posts))
	normalized := strings.ToLower(strings.TrimSpace(category))
	for _, p := range posts {
		if normalized == "" || strings.ToLower(p.Category) == normalized {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})
	return out, nil
}

// GetPost returns a single post by slug. Cache misses go to the repository
// directly so a fresh publish is visible before the TTL expires.
func (c *PostCache) GetPost(ctx context.Context, slug string) (Post, error) {
	posts, err := c.ensureLoaded(ctx)
	if err != nil {
		return Post{}, err
	}
	for _, p := range posts {
		if p.Slug == slug {
			return p, nil
		}
	}
	return c.repo.GetPostBySlug(ctx, slug)
}
