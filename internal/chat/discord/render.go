package discord

import (
	"github.com/bwmarrin/discordgo"

	"guildplayer/internal/chat"
	"guildplayer/internal/core"
)

// Custom IDs of the status card controls.
const (
	ButtonPrevious    = "previous"
	ButtonPauseResume = "PauseAndResume"
	ButtonStop        = "stop"
	ButtonSettings    = "settings"
	ButtonSkip        = "skip"
)

const userProfileURL = "https://discord.com/users/"

// render converts a payload into a Discord message. Mentions are never
// resolved, so titles and requester names cannot ping anyone.
func render(payload chat.Payload, style core.StyleConfig) *discordgo.MessageSend {
	msg := &discordgo.MessageSend{
		AllowedMentions: &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{}},
	}

	switch {
	case payload.Status != nil:
		msg.Embeds = []*discordgo.MessageEmbed{statusEmbed(payload.Status, style)}
		msg.Components = statusControls(style.Buttons)
	case payload.Notice != nil:
		msg.Embeds = []*discordgo.MessageEmbed{{
			Description: payload.Notice.Text,
			Color:       style.Color,
		}}
	default:
		msg.Content = payload.Content
	}
	return msg
}

func statusEmbed(card *chat.StatusCard, style core.StyleConfig) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Author:      &discordgo.MessageEmbedAuthor{Name: card.Heading},
		Description: card.Description,
		URL:         card.URL,
		Color:       style.Color,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   bullet(style.BulletEmoji, card.RequesterLabel),
				Value:  requesterLink(card.Requester),
				Inline: true,
			},
			{
				Name:   bullet(style.BulletEmoji, card.DurationLabel),
				Value:  card.Duration,
				Inline: true,
			},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text:    card.Footer,
			IconURL: card.Requester.AvatarURL,
		},
	}

	if card.Source != "" {
		embed.Author.Name = card.Heading + " · " + card.Source
	}
	if card.ThumbnailURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: card.ThumbnailURL}
	}
	return embed
}

func bullet(emoji, value string) string {
	if emoji == "" {
		return value
	}
	return emoji + " " + value
}

// requesterLink links the requester's profile. Without an ID only the name is shown.
func requesterLink(requester chat.Requester) string {
	if requester.ID == "" {
		return requester.Name
	}
	return "[" + requester.Name + "](" + userProfileURL + requester.ID + ")"
}

func statusControls(emojis core.ButtonEmojis) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				controlButton(ButtonPrevious, emojis.Previous, discordgo.SecondaryButton),
				controlButton(ButtonPauseResume, emojis.PauseResume, discordgo.SecondaryButton),
				controlButton(ButtonStop, emojis.Stop, discordgo.DangerButton),
				controlButton(ButtonSettings, emojis.Settings, discordgo.SecondaryButton),
				controlButton(ButtonSkip, emojis.Skip, discordgo.SecondaryButton),
			},
		},
	}
}

func controlButton(customID, emojiID string, style discordgo.ButtonStyle) discordgo.Button {
	return discordgo.Button{
		CustomID: customID,
		Style:    style,
		Emoji:    &discordgo.ComponentEmoji{ID: emojiID},
	}
}
