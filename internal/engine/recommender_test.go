package engine

import (
	"errors"
	"testing"
	"time"

	"guildplayer/internal/core"
)

func TestHistoryRecommender_Rotates(t *testing.T) {
	r := NewHistoryRecommender(10)
	for _, uri := range []string{"a", "b", "c"} {
		r.Remember("guild1", track(uri))
	}

	// Oldest first, skipping the seed; each pick becomes the most recent.
	expected := []string{"a", "b", "a"}
	for i, want := range expected {
		got, err := r.Related("guild1", "c")
		if err != nil {
			t.Fatalf("Related #%d failed: %v", i, err)
		}
		if got.URI != want {
			t.Errorf("Related #%d = %s, want %s", i, got.URI, want)
		}
	}
}

func TestHistoryRecommender_SkipsOtherUploadsOfSeed(t *testing.T) {
	r := NewHistoryRecommender(10)
	r.Remember("guild1", core.Track{Title: "Under Pressure (Official Video)", Author: "Queen", URI: "video", Duration: 250 * time.Second})
	r.Remember("guild1", track("a"))
	r.Remember("guild1", core.Track{Title: "Under Pressure", Author: "Queen", URI: "seed", Duration: 248 * time.Second})

	got, err := r.Related("guild1", "seed")
	if err != nil {
		t.Fatalf("Related failed: %v", err)
	}
	if got.URI != "a" {
		t.Errorf("Expected a, got %s", got.URI)
	}
}

func TestHistoryRecommender_Empty(t *testing.T) {
	r := NewHistoryRecommender(10)

	if _, err := r.Related("guild1", "a"); !errors.Is(err, ErrNoRecommendation) {
		t.Errorf("Expected ErrNoRecommendation, got %v", err)
	}

	r.Remember("guild1", track("a"))
	if _, err := r.Related("guild1", "a"); !errors.Is(err, ErrNoRecommendation) {
		t.Errorf("Seed alone should yield no recommendation, got %v", err)
	}

	r.Remember("guild1", core.Track{Title: "no uri"})
	if _, err := r.Related("guild1", "a"); !errors.Is(err, ErrNoRecommendation) {
		t.Errorf("Tracks without URI should not be remembered, got %v", err)
	}
}

func TestHistoryRecommender_PerGuildAndBounded(t *testing.T) {
	r := NewHistoryRecommender(2)
	r.Remember("guild1", track("a"))
	r.Remember("guild1", track("b"))
	r.Remember("guild1", track("c"))
	r.Remember("guild2", track("d"))

	got, err := r.Related("guild1", "c")
	if err != nil || got.URI != "b" {
		t.Errorf("Expected b after a was evicted, got %s (%v)", got.URI, err)
	}

	got, err = r.Related("guild2", "x")
	if err != nil || got.URI != "d" {
		t.Errorf("Expected d from guild2's own history, got %s (%v)", got.URI, err)
	}

	r.Forget("guild2")
	if _, err := r.Related("guild2", "x"); !errors.Is(err, ErrNoRecommendation) {
		t.Errorf("Forgotten guild should have no history, got %v", err)
	}
}
