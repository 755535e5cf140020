// Package discord implements the chat transport and voice gateway on top of
// the Discord gateway and REST API.
package discord

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"guildplayer/internal/core"
)

// Config holds Discord-specific configuration
type Config struct {
	Token string
	Style core.StyleConfig
}

// MoveReporter receives voice channel changes of the bot user.
type MoveReporter interface {
	Moved(guildID string, transition core.Transition, channels core.MoveChannels)
}

// restClient is the subset of the REST API the transport uses.
type restClient interface {
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend,
		options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// voiceClient is the subset of the gateway the voice side uses.
type voiceClient interface {
	ChannelVoiceJoin(guildID, channelID string, mute, deaf bool) (*discordgo.VoiceConnection, error)
}

// Frontend owns the Discord session. It is the chat.Transport of the
// controller and the engine.VoiceGateway of the player.
type Frontend struct {
	config *Config
	logger *zap.Logger

	session *discordgo.Session
	state   *discordgo.State
	rest    restClient
	voice   voiceClient

	mutex    sync.RWMutex
	reporter MoveReporter
	ready    chan struct{}
	once     sync.Once
}

// NewFrontend creates a Discord frontend. The gateway is not opened until Start.
func NewFrontend(config *Config, logger *zap.Logger) (*Frontend, error) {
	if config.Token == "" {
		return nil, errors.New("discord token is required")
	}

	session, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildVoiceStates
	session.LogLevel = discordgo.LogInformational
	installLogger(logger.Named("discordgo"))

	f := newFrontend(config, session.State, session, session, logger)
	f.session = session
	session.AddHandler(f.onReady)
	session.AddHandler(f.onVoiceStateUpdate)
	return f, nil
}

func newFrontend(config *Config, state *discordgo.State, rest restClient, voice voiceClient,
	logger *zap.Logger) *Frontend {
	return &Frontend{
		config: config,
		logger: logger,
		state:  state,
		rest:   rest,
		voice:  voice,
		ready:  make(chan struct{}),
	}
}

// SetMoveReporter registers the receiver of bot voice moves.
func (f *Frontend) SetMoveReporter(reporter MoveReporter) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.reporter = reporter
}

// Start opens the gateway and waits for the Ready event.
func (f *Frontend) Start(ctx context.Context) error {
	if f.session == nil {
		return errors.New("discord session not initialized")
	}

	f.logger.Info("Opening Discord gateway")
	if err := f.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}

	select {
	case <-f.ready:
		return nil
	case <-ctx.Done():
		_ = f.session.Close()
		return ctx.Err()
	}
}

// Stop disconnects every voice connection and closes the gateway.
func (f *Frontend) Stop() error {
	if f.session == nil {
		return nil
	}

	f.session.RLock()
	connections := make([]*discordgo.VoiceConnection, 0, len(f.session.VoiceConnections))
	for _, vc := range f.session.VoiceConnections {
		connections = append(connections, vc)
	}
	f.session.RUnlock()

	for _, vc := range connections {
		if err := vc.Disconnect(); err != nil {
			f.logger.Debug("Voice disconnect failed", zap.String("guildID", vc.GuildID), zap.Error(err))
		}
	}

	f.logger.Info("Closing Discord gateway")
	return f.session.Close()
}

func (f *Frontend) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	f.logger.Info("Discord bot is running",
		zap.String("user", r.User.Username),
		zap.Int("guilds", len(r.Guilds)))
	f.once.Do(func() { close(f.ready) })
}

// botUserID returns the ID of the bot user, once the gateway is ready.
func (f *Frontend) botUserID() string {
	if f.state == nil || f.state.User == nil {
		return ""
	}
	return f.state.User.ID
}
