package repository

import (
	"context"
	"sync"
	"time"

	"hotelbook/internal/models"
)

type cacheEntry struct {
	value     models.RecommendationResult
	expiresAt time.Time
}

// MemoryRecommendationCache keeps results in process memory until their TTL
// passes. Last write wins.
type MemoryRecommendationCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	now     func() time.Time
}

func NewMemoryRecommendationCache() *MemoryRecommendationCache {
	return &MemoryRecommendationCache{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

func (c *MemoryRecommendationCache) Get(ctx context.Context, key string) (*models.RecommendationResult, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(entry.expiresAt) {
		c.mu.Lock()
		if cur, still := c.entries[key]; still && cur.expiresAt.Equal(entry.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false, nil
	}
	out := cloneResult(entry.value)
	return &out, true, nil
}

func (c *MemoryRecommendationCache) Set(ctx context.Context, key string, value *models.RecommendationResult, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = models.RecommendationCacheTTL
	}
	c.mu.Lock()
	c.entries[key] = cacheEntry{value: cloneResult(*value), expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

func (c *MemoryRecommendationCache) InvalidateAll(ctx context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryRecommendationCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func cloneResult(r models.RecommendationResult) models.RecommendationResult {
	r.Recommendations = append([]models.RankedRecommendation(nil), r.Recommendations...)
	return r
}
