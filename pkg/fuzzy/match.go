// Package fuzzy decides whether two track descriptions name the same recording.
package fuzzy

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	featRegex       = regexp.MustCompile(`(?i)\s*[\(\[]?\s*\b(?:feat\.?|ft\.?|featuring)\s+[^\)\]]*[\)\]]?`)
	decorationRegex = regexp.MustCompile(`(?i)\s*[\(\[][^\)\]]*(?:official|video|audio|lyrics?|visualizer|remaster(?:ed)?|hd|4k)[^\)\]]*[\)\]]`)
	punctRegex      = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

const (
	// DefaultThreshold is the combined score above which two tracks are the same.
	DefaultThreshold = 0.85

	durationTolerance = 5 * time.Second
	durationCutoff    = 30 * time.Second
)

// Key is the part of a track that matching looks at. Zero durations are ignored.
type Key struct {
	Title    string
	Artist   string
	Duration time.Duration
}

// Matcher compares track keys.
type Matcher struct {
	threshold float64
}

// NewMatcher returns a matcher; a threshold outside (0, 1] selects DefaultThreshold.
func NewMatcher(threshold float64) *Matcher {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Matcher{threshold: threshold}
}

// Same reports whether a and b most likely describe the same recording.
func (m *Matcher) Same(a, b Key) bool {
	return m.Score(a, b) >= m.threshold
}

// Score combines title, artist and duration similarity into [0, 1].
func (m *Matcher) Score(a, b Key) float64 {
	titleA, titleB := NormalizeTitle(a.Title), NormalizeTitle(b.Title)
	if titleA == "" || titleB == "" {
		return 0
	}

	score := Similarity(titleA, titleB)

	artistA, artistB := NormalizeArtist(a.Artist), NormalizeArtist(b.Artist)
	if artistA != "" && artistB != "" {
		score = 0.7*score + 0.3*Similarity(artistA, artistB)
	}

	if a.Duration > 0 && b.Duration > 0 {
		score *= durationScore(a.Duration, b.Duration)
	}

	return score
}

// NormalizeTitle strips featured artists and upload decorations such as
// "(Official Video)" and folds case, accents and punctuation.
func NormalizeTitle(title string) string {
	title = featRegex.ReplaceAllString(title, "")
	title = decorationRegex.ReplaceAllString(title, "")
	return fold(title)
}

// NormalizeArtist folds an artist name and unifies "and" with "&".
func NormalizeArtist(artist string) string {
	artist = strings.ReplaceAll(artist, "&", " and ")
	artist = strings.TrimSuffix(strings.TrimSpace(artist), " - Topic")
	return fold(artist)
}

// fold lowercases s, removes diacritics and punctuation, and collapses whitespace.
func fold(s string) string {
	s = norm.NFKD.String(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if !unicode.IsMark(r) {
			b.WriteRune(r)
		}
	}

	s = punctRegex.ReplaceAllString(b.String(), " ")
	s = whitespaceRegex.ReplaceAllString(s, " ")
	return strings.ToLower(strings.TrimSpace(s))
}

// Similarity is the longest common subsequence of a and b relative to the
// longer string, computed over runes.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}

	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}

	return float64(lcs(ra, rb)) / float64(max(len(ra), len(rb)))
}

func lcs(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else {
				curr[j] = max(prev[j], curr[j-1])
			}
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

// durationScore is 1 within durationTolerance and falls linearly to 0 at durationCutoff.
func durationScore(a, b time.Duration) float64 {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}

	switch {
	case diff <= durationTolerance:
		return 1
	case diff >= durationCutoff:
		return 0
	default:
		return 1 - float64(diff-durationTolerance)/float64(durationCutoff-durationTolerance)
	}
}
