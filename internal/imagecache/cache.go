// Package imagecache fetches and short-term caches remote images
// referenced by events, shielding origins from repeated fetches and
// hiding origin URLs from the browser. It is deliberately not a
// general web cache: entries are keyed by exact URL string, staleness
// is checked lazily on read, and there is no size bound or eviction
// beyond the TTL.
package imagecache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/merakimiles/alerts/internal/metrics"
)

// DefaultTTL is how long a fetched image is served from memory.
const DefaultTTL = 5 * time.Minute

var (
	// ErrBadURL marks a missing, malformed, or non-http(s) URL.
	ErrBadURL = errors.New("invalid image url")
	// ErrUpstream marks a non-success response from the origin.
	ErrUpstream = errors.New("upstream fetch failed")
)

type entry struct {
	body        []byte
	contentType string
	fetchedAt   time.Time
}

// Cache is a TTL-bounded in-memory image cache with an injected HTTP
// client for origin fetches.
type Cache struct {
	client *http.Client
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]entry
}

// New creates a cache using the given client and TTL. A nil client
// falls back to http.DefaultClient (transport default timeouts).
func New(client *http.Client, ttl time.Duration) *Cache {
	if client == nil {
		client = http.DefaultClient
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		client:  client,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry),
	}
}

// Get returns the image bytes and content type for the URL, from cache
// when fetched within the TTL window, otherwise from the origin.
// Non-success origin responses are surfaced as ErrUpstream and are not
// cached.
func (c *Cache) Get(ctx context.Context, rawURL string) ([]byte, string, error) {
	if rawURL == "" {
		return nil, "", ErrBadURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, "", ErrBadURL
	}

	now := c.now()
	c.mu.Lock()
	if e, ok := c.entries[rawURL]; ok && now.Sub(e.fetchedAt) < c.ttl {
		c.mu.Unlock()
		metrics.ImageCacheHits.Inc()
		return e.body, e.contentType, nil
	}
	c.mu.Unlock()
	metrics.ImageCacheMisses.Inc()

	// Fetch outside the lock; concurrent misses for the same URL may
	// race to fetch, last one wins the cache slot.
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrBadURL, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		metrics.ImageFetchErrors.Inc()
		return nil, "", fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.ImageFetchErrors.Inc()
		return nil, "", fmt.Errorf("%w: origin returned %d", ErrUpstream, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ImageFetchErrors.Inc()
		return nil, "", fmt.Errorf("failed to read image body: %w", err)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	c.mu.Lock()
	c.entries[rawURL] = entry{body: body, contentType: contentType, fetchedAt: now}
	c.mu.Unlock()

	return body, contentType, nil
}

// Len returns the number of cached entries, fresh or stale.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
