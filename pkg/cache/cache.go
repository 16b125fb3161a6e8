package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/snow-ghost/mutagen/core"
)

// Key identifies a cached completion by prompt text and sampling parameters.
type Key string

// NewKey hashes the prompt together with the parameters that shape the
// completion, so changing temperature or length never serves a stale result.
func NewKey(prompt, model string, temp, topP float32, maxLen, n int) Key {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%.4f|%.4f|%d|%d", model, prompt, temp, topP, maxLen, n)
	return Key(hex.EncodeToString(h.Sum(nil)))
}

// Entry is one cached set of generations with an expiry.
type Entry struct {
	Generations []core.Generation
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// expired reports whether the entry's TTL has passed.
func (e *Entry) expired() bool {
	return time.Now().After(e.ExpiresAt)
}

// CompletionCache is an LRU cache of model generations with TTL support.
type CompletionCache struct {
	cache      *lru.Cache[Key, *Entry]
	defaultTTL time.Duration
	mu         sync.Mutex
}

// NewCompletionCache creates a completion cache holding up to maxSize
// entries, each alive for defaultTTL.
func NewCompletionCache(maxSize int, defaultTTL time.Duration) (*CompletionCache, error) {
	c, err := lru.New[Key, *Entry](maxSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}
	if defaultTTL <= 0 {
		defaultTTL = time.Hour
	}
	return &CompletionCache{cache: c, defaultTTL: defaultTTL}, nil
}

// Get retrieves cached generations, dropping expired entries on access.
func (c *CompletionCache) Get(key Key) ([]core.Generation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	if entry.expired() {
		c.cache.Remove(key)
		return nil, false
	}
	return entry.Generations, true
}

// Set stores generations under key with the default TTL.
func (c *CompletionCache) Set(key Key, gens []core.Generation) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	c.cache.Add(key, &Entry{
		Generations: gens,
		CreatedAt:   now,
		ExpiresAt:   now.Add(c.defaultTTL),
	})
}

// Len returns the number of cached entries.
func (c *CompletionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Len()
}

// Purge removes all entries.
func (c *CompletionCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Purge()
}
