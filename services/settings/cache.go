// Package settings caches per-organization settings documents in memory.
package settings

import (
	"container/list"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/upb/membership-backend/models"
)

// cacheEntry represents a single cache entry with TTL
type cacheEntry struct {
	settings   *models.OrgSettings
	insertedAt time.Time
	element    *list.Element
}

func (e *cacheEntry) isExpired(ttl time.Duration) bool {
	return time.Since(e.insertedAt) > ttl
}

// Cache is an LRU cache with TTL keyed by organization ID. Safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*cacheEntry
	lruList *list.List
	maxSize int
	ttl     time.Duration
	hits    uint64
	misses  uint64
}

// NewCache creates a Cache holding at most maxSize documents for ttl each
func NewCache(maxSize int, ttl time.Duration) *Cache {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &Cache{
		entries: make(map[uuid.UUID]*cacheEntry),
		lruList: list.New(),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// Get returns the cached settings of orgID, or nil if missing or expired
func (c *Cache) Get(orgID uuid.UUID) *models.OrgSettings {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[orgID]
	if !exists || entry.isExpired(c.ttl) {
		c.misses++
		if exists {
			c.remove(orgID)
		}
		return nil
	}

	c.lruList.MoveToFront(entry.element)
	c.hits++
	return entry.settings
}

// Set stores the settings document of its organization
func (c *Cache) Set(s *models.OrgSettings) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, exists := c.entries[s.OrgID]; exists {
		entry.settings = s
		entry.insertedAt = time.Now()
		c.lruList.MoveToFront(entry.element)
		return
	}

	if c.lruList.Len() >= c.maxSize {
		c.evictLRU()
	}

	entry := &cacheEntry{settings: s, insertedAt: time.Now()}
	entry.element = c.lruList.PushFront(s.OrgID)
	c.entries[s.OrgID] = entry
}

// Invalidate drops the cached settings of orgID
func (c *Cache) Invalidate(orgID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remove(orgID)
}

// Clear removes all entries
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[uuid.UUID]*cacheEntry)
	c.lruList.Init()
}

// CacheStats represents cache statistics
type CacheStats struct {
	Size    int
	MaxSize int
	Hits    uint64
	Misses  uint64
	HitRate float64
}

// Stats returns cache statistics
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := CacheStats{
		Size:    c.lruList.Len(),
		MaxSize: c.maxSize,
		Hits:    c.hits,
		Misses:  c.misses,
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	return stats
}

// CleanupExpired removes all expired entries and returns how many were dropped
func (c *Cache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expired []uuid.UUID
	for id, entry := range c.entries {
		if entry.isExpired(c.ttl) {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		c.remove(id)
	}
	return len(expired)
}

// StartCleanupWorker runs CleanupExpired every interval until stopCh is closed
func (c *Cache) StartCleanupWorker(interval time.Duration, stopCh <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.CleanupExpired()
		case <-stopCh:
			return
		}
	}
}

// must be called with lock held
func (c *Cache) remove(orgID uuid.UUID) {
	if entry, exists := c.entries[orgID]; exists {
		c.lruList.Remove(entry.element)
		delete(c.entries, orgID)
	}
}

// must be called with lock held
func (c *Cache) evictLRU() {
	back := c.lruList.Back()
	if back == nil {
		return
	}
	orgID := back.Value.(uuid.UUID)
	c.lruList.Remove(back)
	delete(c.entries, orgID)
}
