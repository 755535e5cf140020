package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"guildplayer/internal/chat"
)

// ResolveChannel looks the channel up in the gateway state first and falls
// back to the REST API.
func (f *Frontend) ResolveChannel(ctx context.Context, channelID string) (*chat.Channel, error) {
	if channelID == "" {
		return nil, chat.ErrNotFound
	}

	if f.state != nil {
		if ch, err := f.state.Channel(channelID); err == nil {
			return toChannel(ch), nil
		}
	}

	ch, err := f.rest.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("resolve channel %s: %w", channelID, classify(err))
	}
	return toChannel(ch), nil
}

// Send renders payload and posts it to channel.
func (f *Frontend) Send(ctx context.Context, channel *chat.Channel, payload chat.Payload) (chat.MessageRef, error) {
	msg, err := f.rest.ChannelMessageSendComplex(channel.ID, render(payload, f.config.Style), discordgo.WithContext(ctx))
	if err != nil {
		return chat.MessageRef{}, fmt.Errorf("send to %s: %w", channel.ID, classify(err))
	}

	f.logger.Debug("Sent message",
		zap.String("channelID", channel.ID),
		zap.String("messageID", msg.ID))

	return chat.MessageRef{ChannelID: msg.ChannelID, MessageID: msg.ID}, nil
}

// FetchAndDelete deletes the referenced message if it still exists.
func (f *Frontend) FetchAndDelete(ctx context.Context, ref chat.MessageRef) error {
	if _, err := f.rest.ChannelMessage(ref.ChannelID, ref.MessageID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("fetch message %s: %w", ref.MessageID, classify(err))
	}
	if err := f.rest.ChannelMessageDelete(ref.ChannelID, ref.MessageID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("delete message %s: %w", ref.MessageID, classify(err))
	}
	return nil
}

func toChannel(ch *discordgo.Channel) *chat.Channel {
	return &chat.Channel{ID: ch.ID, GuildID: ch.GuildID, Name: ch.Name}
}

// classify maps REST failures onto the chat sentinel errors. Both the
// sentinel and the original error stay in the chain.
func classify(err error) error {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return err
	}

	if restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownChannel:
			return errors.Join(chat.ErrNotFound, err)
		case discordgo.ErrCodeMissingPermissions, discordgo.ErrCodeMissingAccess:
			return errors.Join(chat.ErrForbidden, err)
		}
	}

	if restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case http.StatusNotFound:
			return errors.Join(chat.ErrNotFound, err)
		case http.StatusForbidden:
			return errors.Join(chat.ErrForbidden, err)
		}
	}
	return err
}
