package i18n

// englishMessages contains all English translations.
var englishMessages = map[string]string{
	// Transient notices
	"notice.short_track": "- Track is less than **%d seconds**. Skipping.",
	"notice.stuck":       "- Track stuck for %dms. Skipping...",
	"notice.move_failed": "- Unable to move to the new channel. Destroying player.",
	"notice.moved":       "- Moved from **%s** to **%s**.",
	"notice.moved_out":   "- I was moved out. Destroying player.",
	"notice.queue_empty": "No more tracks in the queue. Leaving the voice channel.",

	// Now playing card
	"status.heading":           "Now Playing",
	"status.description":       "**[%s](%s)** by **%s**",
	"status.requested_by":      "Chosen by",
	"status.duration":          "Duration",
	"status.live":              "Live",
	"status.footer":            "Autoplay - %s ⁠・ Volume - %d%% ⁠・ Queue - %d",
	"status.enabled":           "Enabled",
	"status.disabled":          "Disabled",
	"status.unknown_requester": "Unknown",
}
