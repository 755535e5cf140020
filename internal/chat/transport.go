// Package chat provides the chat-platform contract used by the playback controller.
package chat

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a channel or message no longer exists.
	ErrNotFound = errors.New("chat: not found")
	// ErrForbidden is returned when the bot lacks access to a channel or message.
	ErrForbidden = errors.New("chat: forbidden")
)

// Channel is a resolved text channel able to receive messages.
type Channel struct {
	ID      string
	GuildID string
	Name    string
}

// MessageRef identifies a sent message. It is a plain value and never holds
// a transport handle.
type MessageRef struct {
	ChannelID string
	MessageID string
}

// IsZero reports whether the reference points at nothing.
func (r MessageRef) IsZero() bool {
	return r.ChannelID == "" && r.MessageID == ""
}

// Requester is the user who queued a track.
type Requester struct {
	ID        string
	Name      string
	AvatarURL string
}

// StatusCard is the "now playing" payload rendered by the transport.
type StatusCard struct {
	Heading      string
	Description  string
	Title        string
	Author       string
	URL          string
	ThumbnailURL string
	Source       string
	Requester    Requester
	Duration     string
	Footer       string

	// Field labels, already localized.
	RequesterLabel string
	DurationLabel  string
}

// Notice is a one-line embed, used for long-lived announcements.
type Notice struct {
	Text string
}

// Payload is what the controller asks the transport to send. Exactly one of
// Content, Notice or Status is expected to be set.
type Payload struct {
	Content string
	Notice  *Notice
	Status  *StatusCard
}

// Transport defines the chat operations the controller depends on.
type Transport interface {
	// ResolveChannel returns the channel or ErrNotFound when it is unavailable.
	ResolveChannel(ctx context.Context, channelID string) (*Channel, error)

	// Send posts the payload to the channel and returns a reference to the message.
	Send(ctx context.Context, channel *Channel, payload Payload) (MessageRef, error)

	// FetchAndDelete deletes the referenced message if it still exists.
	// Missing messages are reported as ErrNotFound.
	FetchAndDelete(ctx context.Context, ref MessageRef) error
}

// IsAbsorbable reports whether a delete failure is expected and should be swallowed.
func IsAbsorbable(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrForbidden)
}
