package core

import (
	"fmt"
	"time"

	"guildplayer/internal/chat"
	"guildplayer/pkg/text"
)

// Status card formatting. Rendering of the card itself belongs to the chat
// transport; this file only decides what the card says.

const (
	maxTitleRunes  = 200
	maxAuthorRunes = 100
	maxNameRunes   = 64
)

// buildStatusCard composes the now playing card for track.
func (c *Controller) buildStatusCard(track Track, settings *GuildSettings, state PlaybackState) chat.StatusCard {
	title := text.EscapeMarkdown(text.Sanitize(track.Title, maxTitleRunes))
	author := text.EscapeMarkdown(text.Sanitize(track.Author, maxAuthorRunes))

	requester := track.Requester
	requester.Name = text.Sanitize(requester.Name, maxNameRunes)
	if requester.Name == "" {
		requester.Name = c.localizer.T("status.unknown_requester")
	}

	duration := c.localizer.T("status.live")
	if !track.IsStream {
		duration = formatDuration(track.Duration)
	}

	return chat.StatusCard{
		Heading:        c.localizer.T("status.heading"),
		Description:    c.localizer.T("status.description", title, track.URI, author),
		Title:          title,
		Author:         author,
		URL:            track.URI,
		ThumbnailURL:   track.ThumbnailURL,
		Source:         text.Source(track.URI),
		Requester:      requester,
		Duration:       duration,
		Footer:         c.statusFooter(settings.AutoplayEnabled, state),
		RequesterLabel: c.localizer.T("status.requested_by"),
		DurationLabel:  c.localizer.T("status.duration"),
	}
}

// statusFooter renders "Autoplay - Enabled ・ Volume - 100% ・ Queue - 3".
func (c *Controller) statusFooter(autoplay bool, state PlaybackState) string {
	autoplayState := c.localizer.T("status.disabled")
	if autoplay {
		autoplayState = c.localizer.T("status.enabled")
	}
	return c.localizer.T("status.footer", autoplayState, state.Volume, state.QueueLength)
}

// formatDuration renders d as mm:ss, or hh:mm:ss past one hour.
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
