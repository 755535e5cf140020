// Package flood limits how often a guild receives notices of the same kind.
package flood

import (
	"sync"
	"time"
)

const (
	// windowDuration is the fixed time window for flood detection (always 1 minute)
	windowDuration = 60 * time.Second
	// cleanupInterval is how often we clean up expired entries
	cleanupInterval = 10 * time.Minute
	// idleTimeout is how long before we remove idle guild entries
	idleTimeout = 10 * time.Minute
)

// Floodgate provides per-guild, per-kind sliding window rate limiting.
// A limit of zero or less disables limiting.
type Floodgate struct {
	limitPerMinute int
	entries        map[string]*noticeEntry // Key: "guildID:kind"
	now            func() time.Time
	mutex          sync.RWMutex
	stopCleanup    chan struct{}
	stopOnce       sync.Once
}

// noticeEntry tracks notice timestamps for one kind in one guild
type noticeEntry struct {
	timestamps []time.Time
	lastSeen   time.Time
}

// New creates a new Floodgate with a fixed one minute window.
func New(limitPerMinute int) *Floodgate {
	fg := newFloodgate(limitPerMinute, time.Now)

	go fg.cleanup()

	return fg
}

func newFloodgate(limitPerMinute int, now func() time.Time) *Floodgate {
	return &Floodgate{
		limitPerMinute: limitPerMinute,
		entries:        make(map[string]*noticeEntry),
		now:            now,
		stopCleanup:    make(chan struct{}),
	}
}

// Stop stops the background cleanup goroutine
func (fg *Floodgate) Stop() {
	fg.stopOnce.Do(func() { close(fg.stopCleanup) })
}

// Allow reports whether a notice of kind may be posted to guildID now, and
// counts it if so.
func (fg *Floodgate) Allow(guildID, kind string) bool {
	if fg.limitPerMinute <= 0 {
		return true
	}

	key := guildID + ":" + kind
	now := fg.now()

	fg.mutex.Lock()
	defer fg.mutex.Unlock()

	entry, exists := fg.entries[key]
	if !exists {
		entry = &noticeEntry{
			timestamps: make([]time.Time, 0, fg.limitPerMinute+1),
		}
		fg.entries[key] = entry
	}

	entry.lastSeen = now

	// Remove timestamps outside the window
	windowStart := now.Add(-windowDuration)
	validTimestamps := entry.timestamps[:0]
	for _, ts := range entry.timestamps {
		if ts.After(windowStart) {
			validTimestamps = append(validTimestamps, ts)
		}
	}
	entry.timestamps = validTimestamps

	if len(entry.timestamps) >= fg.limitPerMinute {
		return false
	}

	entry.timestamps = append(entry.timestamps, now)
	return true
}

// cleanup removes idle entries to prevent memory leaks
func (fg *Floodgate) cleanup() {
	fg.performCleanup()

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fg.performCleanup()
		case <-fg.stopCleanup:
			return
		}
	}
}

func (fg *Floodgate) performCleanup() {
	fg.mutex.Lock()
	defer fg.mutex.Unlock()

	cutoff := fg.now().Add(-idleTimeout)
	for key, entry := range fg.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(fg.entries, key)
		}
	}
}

// GetStats returns statistics about the floodgate for monitoring/debugging
func (fg *Floodgate) GetStats() Stats {
	fg.mutex.RLock()
	defer fg.mutex.RUnlock()

	return Stats{
		ActiveKeys:     len(fg.entries),
		LimitPerMinute: fg.limitPerMinute,
		WindowSeconds:  int(windowDuration.Seconds()),
	}
}

// Stats contains floodgate statistics
type Stats struct {
	ActiveKeys     int `json:"active_keys"`
	LimitPerMinute int `json:"limit_per_minute"`
	WindowSeconds  int `json:"window_seconds"`
}
