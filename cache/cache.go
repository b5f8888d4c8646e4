package cache

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/use-agent/leadscout/instagram"
	"github.com/use-agent/leadscout/models"
)

// entry holds a cached profile with its creation timestamp.
type entry struct {
	profile   *models.Profile
	createdAt time.Time
}

// Cache is an in-memory profile cache keyed by lowercase username.
// It is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
	done       chan struct{}
	once       sync.Once
}

// New creates a Cache. A background goroutine evicts entries older than
// ttl every ttl/4 (at most every 5 minutes).
func New(maxEntries int, ttl time.Duration) *Cache {
	c := &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
		done:       make(chan struct{}),
	}

	go c.cleanupLoop()
	return c
}

// Key normalises a username for lookups.
func Key(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// Get returns a copy of the cached profile when it is younger than the TTL.
func (c *Cache) Get(username string) (*models.Profile, bool) {
	c.mu.RLock()
	e, ok := c.store[Key(username)]
	c.mu.RUnlock()

	if !ok || c.now().Sub(e.createdAt) > c.ttl {
		return nil, false
	}
	p := *e.profile
	return &p, true
}

// Set stores a profile. If the cache is at capacity, a random entry is
// evicted to make room.
func (c *Cache) Set(username string, p *models.Profile) {
	if p == nil || c.maxEntries <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	key := Key(username)
	if _, exists := c.store[key]; !exists && len(c.store) >= c.maxEntries {
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}

	cp := *p
	c.store[key] = &entry{profile: &cp, createdAt: c.now()}
}

// Len reports the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Stop ends the cleanup goroutine.
func (c *Cache) Stop() {
	c.once.Do(func() { close(c.done) })
}

func (c *Cache) cleanupLoop() {
	every := c.ttl / 4
	if every <= 0 || every > 5*time.Minute {
		every = 5 * time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			cutoff := c.now().Add(-c.ttl)
			c.mu.Lock()
			for k, e := range c.store {
				if e.createdAt.Before(cutoff) {
					delete(c.store, k)
				}
			}
			c.mu.Unlock()
		}
	}
}

// ProfileFetcher is the fetcher being decorated.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, profileURL string) (*models.Profile, error)
}

// Fetcher serves profiles from the cache and falls through to next on a
// miss. Failures are not cached.
type Fetcher struct {
	next  ProfileFetcher
	cache *Cache
}

// NewFetcher wraps next with c.
func NewFetcher(next ProfileFetcher, c *Cache) *Fetcher {
	return &Fetcher{next: next, cache: c}
}

func (f *Fetcher) FetchProfile(ctx context.Context, profileURL string) (*models.Profile, error) {
	ref, ok := instagram.ParseProfileURL(profileURL)
	if !ok {
		return f.next.FetchProfile(ctx, profileURL)
	}
	if p, hit := f.cache.Get(ref.Username); hit {
		slog.Debug("profile cache hit", "username", ref.Username)
		return p, nil
	}
	p, err := f.next.FetchProfile(ctx, profileURL)
	if err != nil {
		return nil, err
	}
	f.cache.Set(ref.Username, p)
	return p, nil
}
