package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"guildplayer/internal/core"
)

// Join connects the bot to channelID. Joining while already connected in
// the guild moves the existing connection.
func (f *Frontend) Join(ctx context.Context, guildID, channelID string, deaf bool) error {
	type result struct {
		vc  *discordgo.VoiceConnection
		err error
	}
	done := make(chan result, 1)

	go func() {
		vc, err := f.voice.ChannelVoiceJoin(guildID, channelID, false, deaf)
		done <- result{vc: vc, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return fmt.Errorf("voice join %s/%s: %w", guildID, channelID, r.err)
		}
		f.logger.Debug("Joined voice channel",
			zap.String("guildID", guildID),
			zap.String("channelID", channelID),
			zap.Bool("deaf", deaf))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Leave disconnects the bot from voice in guildID. Not being connected is
// not an error.
func (f *Frontend) Leave(_ context.Context, guildID string) error {
	vc := f.voiceConnection(guildID)
	if vc == nil {
		return nil
	}
	if err := vc.Disconnect(); err != nil {
		return fmt.Errorf("voice leave %s: %w", guildID, err)
	}
	return nil
}

func (f *Frontend) voiceConnection(guildID string) *discordgo.VoiceConnection {
	if f.session == nil {
		return nil
	}
	f.session.RLock()
	defer f.session.RUnlock()
	return f.session.VoiceConnections[guildID]
}

func (f *Frontend) onVoiceStateUpdate(_ *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
	f.handleVoiceState(vs)
}

// handleVoiceState turns voice state updates of the bot user into moves.
func (f *Frontend) handleVoiceState(vs *discordgo.VoiceStateUpdate) {
	if vs.VoiceState == nil || vs.UserID == "" || vs.UserID != f.botUserID() {
		return
	}

	f.mutex.RLock()
	reporter := f.reporter
	f.mutex.RUnlock()
	if reporter == nil {
		return
	}

	channels := core.MoveChannels{NewChannelID: vs.ChannelID}
	if vs.BeforeUpdate != nil {
		channels.OldChannelID = vs.BeforeUpdate.ChannelID
	}

	var transition core.Transition
	switch {
	case vs.ChannelID == "":
		transition = core.TransitionLeft
	case channels.OldChannelID == vs.ChannelID:
		return
	case !f.channelKnown(vs.ChannelID):
		transition = core.TransitionUnknown
	default:
		transition = core.TransitionMoved
	}

	f.logger.Debug("Bot voice state changed",
		zap.String("guildID", vs.GuildID),
		zap.String("transition", string(transition)),
		zap.String("oldChannelID", channels.OldChannelID),
		zap.String("newChannelID", channels.NewChannelID))

	reporter.Moved(vs.GuildID, transition, channels)
}

func (f *Frontend) channelKnown(channelID string) bool {
	if f.state == nil {
		return false
	}
	_, err := f.state.Channel(channelID)
	return err == nil
}
