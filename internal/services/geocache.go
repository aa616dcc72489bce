package services

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"gasdash-backend/internal/models"
)

// Geocoder is satisfied by GeocodingService and GeocodeCache
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*models.Location, error)
}

// GeocodeCache memoizes address lookups to reduce Maps API calls. When a
// Redis client is supplied, entries are shared across server instances.
type GeocodeCache struct {
	inner      Geocoder
	rdb        *redis.Client
	cache      map[string]*cacheEntry
	mutex      sync.RWMutex
	maxEntries int
	ttl        time.Duration
	stats      cacheStats
	stop       chan struct{}
	stopOnce   sync.Once
}

type cacheEntry struct {
	Location     models.Location
	CreatedAt    time.Time
	LastAccessed time.Time
	HitCount     int
}

type cacheStats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	mutex     sync.RWMutex
}

// NewGeocodeCache wraps inner with a 24h cache of up to 1000 addresses.
// rdb may be nil.
func NewGeocodeCache(inner Geocoder, rdb *redis.Client) *GeocodeCache {
	c := &GeocodeCache{
		inner:      inner,
		rdb:        rdb,
		cache:      make(map[string]*cacheEntry),
		maxEntries: 1000,
		ttl:        24 * time.Hour,
		stop:       make(chan struct{}),
	}

	go c.cleanupExpired(time.Hour)

	return c
}

// addressKey normalizes an address so trivially different spellings share an entry
func addressKey(address string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(address)), " ")
	hash := md5.Sum([]byte(normalized))
	return fmt.Sprintf("geocode:%x", hash[:8])
}

// Geocode returns the cached location for address or asks the inner geocoder
func (c *GeocodeCache) Geocode(ctx context.Context, address string) (*models.Location, error) {
	key := addressKey(address)
	if loc, ok := c.get(ctx, key); ok {
		return &loc, nil
	}

	loc, err := c.inner.Geocode(ctx, address)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, *loc)
	return loc, nil
}

func (c *GeocodeCache) get(ctx context.Context, key string) (models.Location, bool) {
	c.mutex.Lock()
	entry, found := c.cache[key]
	if found && time.Since(entry.CreatedAt) > c.ttl {
		delete(c.cache, key)
		found = false
		c.recordEviction()
	}
	if found {
		entry.LastAccessed = time.Now()
		entry.HitCount++
		loc := entry.Location
		c.mutex.Unlock()
		c.recordHit()
		return loc, true
	}
	c.mutex.Unlock()

	if c.rdb != nil {
		raw, err := c.rdb.Get(ctx, key).Bytes()
		if err == nil {
			var loc models.Location
			if err := json.Unmarshal(raw, &loc); err == nil {
				c.remember(key, loc)
				c.recordHit()
				return loc, true
			}
		} else if err != redis.Nil {
			log.Printf("⚠️  Geocode cache read failed: %v", err)
		}
	}

	c.recordMiss()
	return models.Location{}, false
}

func (c *GeocodeCache) set(ctx context.Context, key string, loc models.Location) {
	c.remember(key, loc)
	if c.rdb == nil {
		return
	}
	raw, err := json.Marshal(loc)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		log.Printf("⚠️  Geocode cache write failed: %v", err)
	}
}

func (c *GeocodeCache) remember(key string, loc models.Location) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	// Evict oldest entries if cache is full
	if _, exists := c.cache[key]; !exists && len(c.cache) >= c.maxEntries {
		c.evictOldest()
	}

	now := time.Now()
	c.cache[key] = &cacheEntry{
		Location:     loc,
		CreatedAt:    now,
		LastAccessed: now,
	}
}

// evictOldest removes the least recently used entry. Caller holds the lock.
func (c *GeocodeCache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, entry := range c.cache {
		if oldestKey == "" || entry.LastAccessed.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.LastAccessed
		}
	}

	if oldestKey != "" {
		delete(c.cache, oldestKey)
		c.recordEviction()
		log.Printf("🗑️  Evicted oldest geocode entry: %s", oldestKey)
	}
}

// cleanupExpired periodically removes expired entries until Close
func (c *GeocodeCache) cleanupExpired(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
		}
		c.mutex.Lock()
		now := time.Now()
		for key, entry := range c.cache {
			if now.Sub(entry.CreatedAt) > c.ttl {
				delete(c.cache, key)
				c.recordEviction()
			}
		}
		c.mutex.Unlock()
	}
}

func (c *GeocodeCache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *GeocodeCache) recordHit() {
	c.stats.mutex.Lock()
	defer c.stats.mutex.Unlock()
	c.stats.Hits++
}

func (c *GeocodeCache) recordMiss() {
	c.stats.mutex.Lock()
	defer c.stats.mutex.Unlock()
	c.stats.Misses++
}

func (c *GeocodeCache) recordEviction() {
	c.stats.mutex.Lock()
	defer c.stats.mutex.Unlock()
	c.stats.Evictions++
}

// GetStats returns cache statistics
func (c *GeocodeCache) GetStats() map[string]interface{} {
	c.stats.mutex.RLock()
	defer c.stats.mutex.RUnlock()

	c.mutex.RLock()
	cacheSize := len(c.cache)
	c.mutex.RUnlock()

	hitRate := 0.0
	total := c.stats.Hits + c.stats.Misses
	if total > 0 {
		hitRate = float64(c.stats.Hits) / float64(total) * 100
	}

	return map[string]interface{}{
		"cache_size":  cacheSize,
		"max_entries": c.maxEntries,
		"hits":        c.stats.Hits,
		"misses":      c.stats.Misses,
		"hit_rate":    fmt.Sprintf("%.2f%%", hitRate),
		"evictions":   c.stats.Evictions,
		"shared":      c.rdb != nil,
		"ttl_hours":   int(c.ttl.Hours()),
	}
}
