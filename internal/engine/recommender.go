package engine

import (
	"errors"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"guildplayer/internal/core"
	"guildplayer/pkg/fuzzy"
)

// ErrNoRecommendation is returned when a guild's history has nothing
// distinct from the seed track.
var ErrNoRecommendation = errors.New("no recommendation available")

// HistoryRecommender recommends continuation tracks from what a guild has
// already played. Each guild keeps a bounded LRU history keyed by URI.
type HistoryRecommender struct {
	size    int
	matcher *fuzzy.Matcher

	mutex   sync.Mutex
	history map[string]*lru.Cache[string, core.Track]
}

// NewHistoryRecommender keeps up to size tracks per guild.
func NewHistoryRecommender(size int) *HistoryRecommender {
	if size <= 0 {
		size = 1
	}
	return &HistoryRecommender{
		size:    size,
		matcher: fuzzy.NewMatcher(fuzzy.DefaultThreshold),
		history: make(map[string]*lru.Cache[string, core.Track]),
	}
}

// Remember records track as played in guildID.
func (r *HistoryRecommender) Remember(guildID string, track core.Track) {
	if track.URI == "" {
		return
	}
	r.guildHistory(guildID).Add(track.URI, track)
}

// Related returns the least recently played track that is not the seed nor
// a different upload of it. The returned track becomes the most recent one,
// so repeated calls rotate through the history.
func (r *HistoryRecommender) Related(guildID, seedURI string) (core.Track, error) {
	history := r.guildHistory(guildID)

	seed, hasSeed := history.Peek(seedURI)

	for _, uri := range history.Keys() {
		if uri == seedURI {
			continue
		}
		candidate, ok := history.Peek(uri)
		if !ok {
			continue
		}
		if hasSeed && r.matcher.Same(trackKey(seed), trackKey(candidate)) {
			continue
		}

		history.Get(uri)
		return candidate, nil
	}

	return core.Track{}, ErrNoRecommendation
}

// Forget drops the history of guildID.
func (r *HistoryRecommender) Forget(guildID string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	delete(r.history, guildID)
}

func (r *HistoryRecommender) guildHistory(guildID string) *lru.Cache[string, core.Track] {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	history, ok := r.history[guildID]
	if !ok {
		history, _ = lru.New[string, core.Track](r.size)
		r.history[guildID] = history
	}
	return history
}

func trackKey(track core.Track) fuzzy.Key {
	key := fuzzy.Key{Title: track.Title, Artist: track.Author}
	if !track.IsStream {
		key.Duration = track.Duration
	}
	return key
}
