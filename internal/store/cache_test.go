package store

import (
	"fmt"
	"testing"

	"guildplayer/internal/core"
)

func TestSettingsCache_Basic(t *testing.T) {
	cache := newSettingsCache(100, 0.001)

	if cache.mayExist("guild1") {
		t.Error("Empty cache should not know any guild")
	}
	if _, ok := cache.get("guild1"); ok {
		t.Error("Empty cache should not return settings")
	}

	cache.put(&core.GuildSettings{GuildID: "guild1", AutoplayEnabled: true})

	if !cache.mayExist("guild1") {
		t.Error("Cache should know guild1 after put")
	}
	settings, ok := cache.get("guild1")
	if !ok || !settings.AutoplayEnabled {
		t.Errorf("Expected cached settings for guild1, got %+v (ok=%v)", settings, ok)
	}

	// Mutating the returned value must not change the cache.
	settings.AutoplayEnabled = false
	if again, _ := cache.get("guild1"); !again.AutoplayEnabled {
		t.Error("Cache should hand out copies")
	}
}

func TestSettingsCache_Remove(t *testing.T) {
	cache := newSettingsCache(10, 0.001)
	cache.put(&core.GuildSettings{GuildID: "guild1"})

	cache.remove("guild1")

	if _, ok := cache.get("guild1"); ok {
		t.Error("Removed guild should not be cached")
	}
	if !cache.mayExist("guild1") {
		t.Error("Bloom filter does not support removal; guild1 should still test positive")
	}
}

func TestSettingsCache_Load(t *testing.T) {
	cache := newSettingsCache(10, 0.001)
	cache.put(&core.GuildSettings{GuildID: "old"})

	cache.load([]string{"guild1", "guild2", ""})

	if cache.size() != 0 {
		t.Errorf("Load should purge cached rows, got %d", cache.size())
	}
	if !cache.mayExist("guild1") || !cache.mayExist("guild2") {
		t.Error("Loaded guilds should test positive")
	}
	if cache.mayExist("old") {
		t.Error("Load should reset the Bloom filter")
	}
}

func TestSettingsCache_Eviction(t *testing.T) {
	cache := newSettingsCache(3, 0.001)

	for i := 0; i < 5; i++ {
		cache.put(&core.GuildSettings{GuildID: fmt.Sprintf("guild%d", i)})
	}

	if cache.size() != 3 {
		t.Errorf("Cache should hold at most 3 rows, got %d", cache.size())
	}
	if _, ok := cache.get("guild0"); ok {
		t.Error("Oldest row should be evicted")
	}
	if !cache.mayExist("guild0") {
		t.Error("Evicted guild should still be known to exist")
	}
}

func TestSettingsCache_FalsePositiveRate(t *testing.T) {
	cache := newSettingsCache(1000, 0.01)

	for i := 0; i < 1000; i++ {
		cache.put(&core.GuildSettings{GuildID: fmt.Sprintf("guild%d", i)})
	}

	falsePositives := 0
	testCount := 10000
	for i := 1000; i < 1000+testCount; i++ {
		if cache.mayExist(fmt.Sprintf("guild%d", i)) {
			falsePositives++
		}
	}

	rate := float64(falsePositives) / float64(testCount)
	if rate > 0.05 {
		t.Errorf("False positive rate too high: %.4f", rate)
	}
}

func BenchmarkSettingsCache_MayExist(b *testing.B) {
	cache := newSettingsCache(10000, 0.001)
	for i := 0; i < 10000; i++ {
		cache.put(&core.GuildSettings{GuildID: fmt.Sprintf("guild%d", i)})
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.mayExist(fmt.Sprintf("guild%d", i%20000))
	}
}
