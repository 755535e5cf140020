// Package text provides display-safe text handling and source classification for track metadata.
package text

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	whitespaceRegex = regexp.MustCompile(`\s+`)
	markdownRegex   = regexp.MustCompile("([\\\\*_~`|>\\[\\]()])")

	// Known audio hosts keyed by canonical hostname.
	sourceDomains = map[string]string{
		"youtube.com":       "YouTube",
		"youtu.be":          "YouTube",
		"music.youtube.com": "YouTube Music",
		"soundcloud.com":    "SoundCloud",
		"open.spotify.com":  "Spotify",
		"spotify.com":       "Spotify",
		"music.apple.com":   "Apple Music",
		"bandcamp.com":      "Bandcamp",
		"deezer.com":        "Deezer",
		"tidal.com":         "Tidal",
		"twitch.tv":         "Twitch",
	}
)

// Sanitize normalizes s to NFKC, collapses whitespace, and truncates it to
// at most maxRunes runes. A truncated string ends with an ellipsis.
func Sanitize(s string, maxRunes int) string {
	s = norm.NFKC.String(s)
	s = whitespaceRegex.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	if maxRunes <= 0 {
		return s
	}

	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	if maxRunes == 1 {
		return "…"
	}
	return strings.TrimSpace(string(runes[:maxRunes-1])) + "…"
}

// EscapeMarkdown escapes characters Discord would treat as formatting.
func EscapeMarkdown(s string) string {
	return markdownRegex.ReplaceAllString(s, `\$1`)
}

// Source names the platform a track URI belongs to, or returns "" when the
// host is not recognised.
func Source(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return ""
	}

	hostname := strings.ToLower(u.Hostname())
	hostname = strings.TrimPrefix(hostname, "www.")
	hostname = strings.TrimPrefix(hostname, "m.")

	if name, ok := sourceDomains[hostname]; ok {
		return name
	}

	// Bandcamp artists live on their own subdomain.
	if parent := parentDomain(hostname); parent != "" {
		if name, ok := sourceDomains[parent]; ok {
			return name
		}
	}

	return ""
}

func parentDomain(hostname string) string {
	idx := strings.Index(hostname, ".")
	if idx < 0 || !strings.Contains(hostname[idx+1:], ".") {
		return ""
	}
	return hostname[idx+1:]
}
