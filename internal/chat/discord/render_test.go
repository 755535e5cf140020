package discord

import (
	"testing"

	"github.com/bwmarrin/discordgo"

	"guildplayer/internal/chat"
	"guildplayer/internal/core"
)

func TestRender_Content(t *testing.T) {
	msg := render(chat.Payload{Content: "- Track stuck for 12000ms. Skipping..."}, core.DefaultConfig().Style)

	if msg.Content != "- Track stuck for 12000ms. Skipping..." {
		t.Errorf("Unexpected content %q", msg.Content)
	}
	if len(msg.Embeds) != 0 || len(msg.Components) != 0 {
		t.Error("Plain content should carry no embeds or components")
	}
	if msg.AllowedMentions == nil || len(msg.AllowedMentions.Parse) != 0 {
		t.Error("Mentions should be suppressed")
	}
}

func TestRender_Notice(t *testing.T) {
	style := core.DefaultConfig().Style
	msg := render(chat.Payload{Notice: &chat.Notice{Text: "Leaving the voice channel."}}, style)

	if len(msg.Embeds) != 1 {
		t.Fatalf("Expected one embed, got %d", len(msg.Embeds))
	}
	if msg.Embeds[0].Description != "Leaving the voice channel." || msg.Embeds[0].Color != style.Color {
		t.Errorf("Unexpected notice embed %+v", msg.Embeds[0])
	}
	if msg.Content != "" {
		t.Error("Notice should not set content")
	}
}

func TestRender_Status(t *testing.T) {
	style := core.DefaultConfig().Style
	card := &chat.StatusCard{
		Heading:        "Now Playing",
		Description:    "**[Under Pressure](https://youtu.be/a01QQZyl-_I)** by **Queen**",
		URL:            "https://youtu.be/a01QQZyl-_I",
		ThumbnailURL:   "https://i.ytimg.com/vi/a01QQZyl-_I/hqdefault.jpg",
		Source:         "YouTube",
		Requester:      chat.Requester{ID: "u1", Name: "alice", AvatarURL: "https://cdn.example/alice.png"},
		Duration:       "04:08",
		Footer:         "Autoplay - Enabled ⁠・ Volume - 100% ⁠・ Queue - 2",
		RequesterLabel: "Chosen by",
		DurationLabel:  "Duration",
	}

	msg := render(chat.Payload{Status: card}, style)
	if len(msg.Embeds) != 1 {
		t.Fatalf("Expected one embed, got %d", len(msg.Embeds))
	}
	embed := msg.Embeds[0]

	if embed.Author.Name != "Now Playing · YouTube" {
		t.Errorf("Unexpected author %q", embed.Author.Name)
	}
	if embed.Thumbnail == nil || embed.Thumbnail.URL != card.ThumbnailURL {
		t.Error("Thumbnail missing")
	}
	if embed.Footer.Text != card.Footer || embed.Footer.IconURL != card.Requester.AvatarURL {
		t.Errorf("Unexpected footer %+v", embed.Footer)
	}
	if len(embed.Fields) != 2 {
		t.Fatalf("Expected 2 fields, got %d", len(embed.Fields))
	}
	if embed.Fields[0].Name != style.BulletEmoji+" Chosen by" {
		t.Errorf("Unexpected requester label %q", embed.Fields[0].Name)
	}
	if embed.Fields[0].Value != "[alice](https://discord.com/users/u1)" {
		t.Errorf("Unexpected requester link %q", embed.Fields[0].Value)
	}
	if embed.Fields[1].Name != style.BulletEmoji+" Duration" || embed.Fields[1].Value != "04:08" {
		t.Errorf("Unexpected duration field %+v", embed.Fields[1])
	}

	if len(msg.Components) != 1 {
		t.Fatalf("Expected one action row, got %d", len(msg.Components))
	}
	row, ok := msg.Components[0].(discordgo.ActionsRow)
	if !ok {
		t.Fatalf("Expected ActionsRow, got %T", msg.Components[0])
	}

	expected := []struct {
		id      string
		emojiID string
		style   discordgo.ButtonStyle
	}{
		{"previous", style.Buttons.Previous, discordgo.SecondaryButton},
		{"PauseAndResume", style.Buttons.PauseResume, discordgo.SecondaryButton},
		{"stop", style.Buttons.Stop, discordgo.DangerButton},
		{"settings", style.Buttons.Settings, discordgo.SecondaryButton},
		{"skip", style.Buttons.Skip, discordgo.SecondaryButton},
	}
	if len(row.Components) != len(expected) {
		t.Fatalf("Expected %d buttons, got %d", len(expected), len(row.Components))
	}
	for i, want := range expected {
		button, ok := row.Components[i].(discordgo.Button)
		if !ok {
			t.Fatalf("Component %d is %T", i, row.Components[i])
		}
		if button.CustomID != want.id || button.Style != want.style || button.Emoji.ID != want.emojiID {
			t.Errorf("Button %d: expected %+v, got %+v", i, want, button)
		}
	}
}

func TestRender_StatusWithoutOptionalParts(t *testing.T) {
	style := core.StyleConfig{Color: 1}
	msg := render(chat.Payload{Status: &chat.StatusCard{
		Heading:        "Now Playing",
		Duration:       "Live",
		Requester:      chat.Requester{Name: "bob"},
		DurationLabel:  "Duration",
		RequesterLabel: "Chosen by",
	}}, style)

	embed := msg.Embeds[0]
	if embed.Author.Name != "Now Playing" {
		t.Errorf("Unexpected author %q", embed.Author.Name)
	}
	if embed.Thumbnail != nil {
		t.Error("Thumbnail should be omitted")
	}
	if embed.Fields[1].Name != "Duration" || embed.Fields[1].Value != "Live" {
		t.Errorf("Without bullet emoji the label should be bare, got %+v", embed.Fields[1])
	}
	if embed.Fields[0].Value != "bob" {
		t.Errorf("Without a user ID the requester should be a plain name, got %q", embed.Fields[0].Value)
	}
}
