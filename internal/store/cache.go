package store

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	lru "github.com/hashicorp/golang-lru/v2"

	"guildplayer/internal/core"
)

// settingsCache fronts the database. The Bloom filter holds every guild ID
// that was ever stored, so a negative test proves a guild has no settings.
// The LRU holds recently read rows.
type settingsCache struct {
	bloom                  *bloom.BloomFilter
	lru                    *lru.Cache[string, core.GuildSettings]
	mutex                  sync.RWMutex
	capacity               int
	bloomFalsePositiveRate float64
}

func newSettingsCache(capacity int, bloomFalsePositiveRate float64) *settingsCache {
	if capacity <= 0 {
		capacity = 1
	}
	lruCache, _ := lru.New[string, core.GuildSettings](capacity)

	return &settingsCache{
		bloom:                  bloom.NewWithEstimates(uint(capacity), bloomFalsePositiveRate),
		lru:                    lruCache,
		capacity:               capacity,
		bloomFalsePositiveRate: bloomFalsePositiveRate,
	}
}

// mayExist reports false only when guildID was never stored.
func (c *settingsCache) mayExist(guildID string) bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.bloom.TestString(guildID)
}

func (c *settingsCache) get(guildID string) (*core.GuildSettings, bool) {
	settings, ok := c.lru.Get(guildID)
	if !ok {
		return nil, false
	}
	return &settings, true
}

func (c *settingsCache) put(settings *core.GuildSettings) {
	c.mutex.Lock()
	c.bloom.AddString(settings.GuildID)
	c.mutex.Unlock()

	c.lru.Add(settings.GuildID, *settings)
}

// remove drops the cached row. The guild stays in the Bloom filter, which
// only costs a database lookup later.
func (c *settingsCache) remove(guildID string) {
	c.lru.Remove(guildID)
}

// load resets the cache and marks guildIDs as present.
func (c *settingsCache) load(guildIDs []string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	n := len(guildIDs)
	if n < c.capacity {
		n = c.capacity
	}
	c.bloom = bloom.NewWithEstimates(uint(n), c.bloomFalsePositiveRate)
	for _, guildID := range guildIDs {
		if guildID != "" {
			c.bloom.AddString(guildID)
		}
	}
	c.lru.Purge()
}

func (c *settingsCache) size() int {
	return c.lru.Len()
}
