// ABOUTME: Thread-safe TTL cache decorating API key resolution.
// ABOUTME: Bounds repeated bcrypt verification cost under sustained key traffic.

package keycache

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/hamco/hamco/internal/auth"
)

// Observer receives cache outcomes, typically for metrics.
type Observer interface {
	CacheHit()
	CacheMiss()
	CacheEviction()
}

// entry stores a resolution result and its bookkeeping. A nil principal
// marks a cached negative (the secret failed verification).
type entry struct {
	principal *auth.Principal
	prefix    string
	timestamp time.Time
	element   *list.Element
}

// Cache wraps a KeyResolver with a short-lived, size-limited result
// cache. Entries are keyed by a SHA-256 fingerprint of the full
// plaintext secret, never by the prefix alone: a prefix-keyed entry
// would hand the cached principal to a wrong-suffix candidate. The
// cache is a pure optimization; resolution is correct with it removed.
//
// Entry lifetime is the TTL, so a revoked key stops authenticating
// within one TTL at worst; InvalidatePrefix tightens that to
// immediately when the revocation path can reach the cache.
type Cache struct {
	inner auth.KeyResolver

	mu      sync.RWMutex
	entries map[string]*entry
	order   *list.List // fingerprints in insertion order (oldest at front)
	ttl     time.Duration
	maxSize int
	done    chan struct{}
	closed  bool

	observer Observer
}

// New creates a cache in front of the given resolver. A background
// goroutine periodically removes expired entries; call Close when done.
func New(inner auth.KeyResolver, ttl time.Duration, maxSize int) *Cache {
	c := &Cache{
		inner:   inner,
		entries: make(map[string]*entry),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		done:    make(chan struct{}),
	}
	go c.cleanup()
	return c
}

// WithObserver attaches a cache outcome observer (metrics).
func (c *Cache) WithObserver(obs Observer) *Cache {
	c.observer = obs
	return c
}

// Resolve returns the cached result for the secret if present and
// fresh, otherwise consults the inner resolver and caches the outcome.
// Malformed secrets are rejected without touching the cache or storage.
// Storage failures are never cached.
func (c *Cache) Resolve(ctx context.Context, secret string) (*auth.Principal, error) {
	if !auth.ValidSecretFormat(secret) {
		return nil, auth.ErrKeyInvalid
	}

	fp := fingerprint(secret)

	if principal, ok, valid := c.lookup(fp); ok {
		c.hit()
		if !valid {
			return nil, auth.ErrKeyInvalid
		}
		return principal, nil
	}
	c.miss()

	principal, err := c.inner.Resolve(ctx, secret)
	if err != nil {
		if errors.Is(err, auth.ErrKeyInvalid) {
			c.storeResult(fp, auth.KeyPrefix(secret), nil)
		}
		return nil, err
	}

	c.storeResult(fp, auth.KeyPrefix(secret), principal)
	return principal, nil
}

// lookup returns (principal, found, positive) for a fingerprint.
func (c *Cache) lookup(fp string) (*auth.Principal, bool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[fp]
	if !ok || time.Since(e.timestamp) >= c.ttl {
		return nil, false, false
	}
	if e.principal == nil {
		return nil, true, false
	}
	return e.principal, true, true
}

// storeResult caches a positive or negative resolution.
func (c *Cache) storeResult(fp, prefix string, principal *auth.Principal) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, exists := c.entries[fp]; exists {
		e.principal = principal
		e.prefix = prefix
		e.timestamp = time.Now()
		c.order.MoveToBack(e.element)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	elem := c.order.PushBack(fp)
	c.entries[fp] = &entry{
		principal: principal,
		prefix:    prefix,
		timestamp: time.Now(),
		element:   elem,
	}
}

// InvalidatePrefix eagerly drops every entry whose secret carries the
// given prefix. Revocation calls this so a revoked key stops
// authenticating immediately instead of after TTL expiry.
func (c *Cache) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for fp, e := range c.entries {
		if e.prefix == prefix {
			c.order.Remove(e.element)
			delete(c.entries, fp)
		}
	}
}

// Len returns the current number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// evictOldest removes the oldest entry. Must be called with mu held.
func (c *Cache) evictOldest() {
	front := c.order.Front()
	if front == nil {
		return
	}

	fp, _ := front.Value.(string)
	c.order.Remove(front)
	delete(c.entries, fp)
	if c.observer != nil {
		c.observer.CacheEviction()
	}
}

// cleanup runs in a background goroutine, periodically removing expired entries.
func (c *Cache) cleanup() {
	interval := c.ttl
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

// removeExpired drops all entries older than the TTL.
func (c *Cache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := time.Now().Add(-c.ttl)
	for elem := c.order.Front(); elem != nil; {
		next := elem.Next()
		fp, _ := elem.Value.(string)
		e, ok := c.entries[fp]
		if !ok {
			c.order.Remove(elem)
			elem = next
			continue
		}
		if e.timestamp.After(cutoff) {
			// Insertion order means everything after this is fresher.
			break
		}
		c.order.Remove(elem)
		delete(c.entries, fp)
		elem = next
	}
}

// Close stops the cleanup goroutine. Safe to call more than once.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		close(c.done)
		c.closed = true
	}
}

func (c *Cache) hit() {
	if c.observer != nil {
		c.observer.CacheHit()
	}
}

func (c *Cache) miss() {
	if c.observer != nil {
		c.observer.CacheMiss()
	}
}

// fingerprint derives the cache key from the full plaintext secret.
// The raw secret itself never sits in the map.
func fingerprint(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
