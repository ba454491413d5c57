package generative

import (
	"context"
	"sync"
)

// Cache stores generated translations in memory so repeated phrases in a
// batch only hit the service once.
type Cache struct {
	next Generator

	mu           sync.RWMutex
	translations map[cacheKey]string
}

type cacheKey struct {
	text string
	lang string
}

// NewCache wraps next with an in-memory cache.
func NewCache(next Generator) *Cache {
	return &Cache{
		next:         next,
		translations: make(map[cacheKey]string),
	}
}

// Name returns the wrapped generator's name.
func (c *Cache) Name() string {
	return c.next.Name()
}

// Generate returns a cached translation or asks the wrapped generator.
// Errors are not cached.
func (c *Cache) Generate(ctx context.Context, text, lang string) (string, error) {
	key := cacheKey{text: text, lang: lang}
	c.mu.RLock()
	out, ok := c.translations[key]
	c.mu.RUnlock()
	if ok {
		return out, nil
	}

	out, err := c.next.Generate(ctx, text, lang)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	c.translations[key] = out
	c.mu.Unlock()
	return out, nil
}

// Len returns the number of cached translations.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.translations)
}
