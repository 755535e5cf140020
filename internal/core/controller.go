package core

import (
	"context"
	"time"

	"go.uber.org/zap"

	"guildplayer/internal/chat"
	"guildplayer/internal/i18n"
)

// Notice kinds, used for flood limiting and metrics.
const (
	noticeShortTrack = "short_track"
	noticeStuck      = "stuck"
	noticeMoveFailed = "move_failed"
	noticeMoved      = "moved"
	noticeMovedOut   = "moved_out"
	noticeFarewell   = "farewell"
)

// Controller reacts to playback lifecycle events for every guild. It keeps
// no state of its own; per-guild working data lives on the Session.
type Controller struct {
	config    *Config
	engine    Engine
	settings  SettingsStore
	transport chat.Transport
	messages  *EphemeralManager
	autoplay  *AutoplayPolicy
	reconnect *ReconnectionPolicy
	limiter   NoticeLimiter
	metrics   Metrics
	localizer *i18n.Localizer
	logger    *zap.Logger
}

// NewController creates a new controller. limiter and metrics may be nil.
func NewController(
	config *Config,
	engine Engine,
	settings SettingsStore,
	transport chat.Transport,
	limiter NoticeLimiter,
	metrics Metrics,
	logger *zap.Logger,
) *Controller {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &Controller{
		config:    config,
		engine:    engine,
		settings:  settings,
		transport: transport,
		messages:  NewEphemeralManager(transport, metrics, config.App.EventTimeout, logger.Named("messages")),
		autoplay:  NewAutoplayPolicy(engine, metrics, logger.Named("autoplay")),
		reconnect: NewReconnectionPolicy(engine, config.Reconnect, logger.Named("reconnect")),
		limiter:   limiter,
		metrics:   metrics,
		localizer: i18n.NewLocalizer(config.App.Language),
		logger:    logger,
	}
}

// Dispatch routes an engine event to its handler, bounding its I/O with the
// configured event timeout.
func (c *Controller) Dispatch(ctx context.Context, ev Event) {
	if ev.Session == nil {
		c.logger.Warn("Dropping event without session", zap.String("kind", string(ev.Kind)))
		return
	}

	if c.config.App.EventTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.App.EventTimeout)
		defer cancel()
	}

	switch ev.Kind {
	case EventTrackStart:
		c.OnTrackStart(ctx, ev.Session, ev.Track)
	case EventTrackEnd:
		c.OnTrackEnd(ctx, ev.Session)
	case EventQueueEmpty:
		c.OnQueueEmpty(ctx, ev.Session)
	case EventDestroy:
		c.OnDestroy(ctx, ev.Session)
	case EventMove:
		c.OnMove(ctx, ev.Session, ev.Transition, ev.Channels)
	case EventStuck:
		c.OnStuck(ctx, ev.Session, ev.Threshold)
	default:
		c.logger.Warn("Unknown event kind",
			zap.String("kind", string(ev.Kind)),
			zap.String("guildID", ev.Session.GuildID))
	}
}

// Close stops pending message expiries.
func (c *Controller) Close() {
	c.messages.Close()
}

// OnTrackStart skips tracks shorter than the minimum length; otherwise it
// replaces the session's status message with a card for track.
func (c *Controller) OnTrackStart(ctx context.Context, s *Session, track Track) {
	c.metrics.RecordEvent(string(EventTrackStart))

	if track.Duration < c.config.App.MinTrackLength {
		c.logger.Info("Skipping short track",
			zap.String("guildID", s.GuildID),
			zap.String("uri", track.URI),
			zap.Duration("duration", track.Duration))

		if err := c.engine.Skip(ctx, s); err != nil {
			c.logger.Error("Failed to skip short track", zap.String("guildID", s.GuildID), zap.Error(err))
		}
		c.metrics.RecordSkip(noticeShortTrack)

		seconds := int(c.config.App.MinTrackLength / time.Second)
		c.postNotice(ctx, s, noticeShortTrack,
			chat.Payload{Content: c.localizer.T("notice.short_track", seconds)},
			c.config.App.ShortNoticeTTL)
		return
	}

	s.SetLastTrackURI(track.URI)

	settings, err := c.lookupSettings(ctx, s.GuildID)
	if err != nil {
		c.logger.Warn("Rendering status without guild settings",
			zap.String("guildID", s.GuildID), zap.Error(err))
		settings = &GuildSettings{GuildID: s.GuildID}
	}

	channel, err := c.transport.ResolveChannel(ctx, s.ExecutionChannelID())
	if err != nil {
		c.logger.Error("Execution channel not found",
			zap.String("guildID", s.GuildID),
			zap.String("channelID", s.ExecutionChannelID()),
			zap.Error(err))
		return
	}

	card := c.buildStatusCard(track, settings, c.engine.State(s))

	previous, hadPrevious, gen := s.ClearStatus()
	if hadPrevious {
		c.messages.DeleteNow(ctx, previous)
		c.metrics.RecordStatusMessage("replaced")
	}

	ref, err := c.messages.Post(ctx, channel, chat.Payload{Status: &card})
	if err != nil {
		c.logger.Error("Failed to post status message", zap.String("guildID", s.GuildID), zap.Error(err))
		return
	}

	if !s.StoreStatus(ref, gen) {
		// A later event cleared the status while this one was being sent.
		c.logger.Debug("Discarding stale status message",
			zap.String("guildID", s.GuildID),
			zap.String("messageID", ref.MessageID))
		c.messages.DeleteNow(ctx, ref)
		c.metrics.RecordStatusMessage("stale")
		return
	}

	c.metrics.RecordStatusMessage("created")
	c.logger.Debug("Posted status message",
		zap.String("guildID", s.GuildID),
		zap.String("messageID", ref.MessageID),
		zap.String("title", track.Title))
}

// OnTrackEnd removes the status message of the finished track.
func (c *Controller) OnTrackEnd(ctx context.Context, s *Session) {
	c.metrics.RecordEvent(string(EventTrackEnd))
	c.clearStatus(ctx, s)
}

// OnQueueEmpty continues playback through autoplay when enabled and says
// goodbye otherwise.
func (c *Controller) OnQueueEmpty(ctx context.Context, s *Session) {
	c.metrics.RecordEvent(string(EventQueueEmpty))
	c.clearStatus(ctx, s)

	settings, err := c.lookupSettings(ctx, s.GuildID)
	if err != nil {
		c.logger.Error("Failed to read guild settings on empty queue",
			zap.String("guildID", s.GuildID), zap.Error(err))
		return
	}

	if settings.AutoplayEnabled {
		c.autoplay.ContinuationFor(ctx, s, s.LastTrackURI())
		return
	}

	c.postNotice(ctx, s, noticeFarewell,
		chat.Payload{Notice: &chat.Notice{Text: c.localizer.T("notice.queue_empty")}},
		c.config.App.FarewellTTL)
}

// OnDestroy cleans up the status message and recreates persistent
// sessions. Nothing here propagates a failure.
func (c *Controller) OnDestroy(ctx context.Context, s *Session) {
	c.metrics.RecordEvent(string(EventDestroy))
	c.clearStatus(ctx, s)

	settings, err := c.lookupSettings(ctx, s.GuildID)
	if err != nil {
		c.logger.Error("Failed to read guild settings on destroy",
			zap.String("guildID", s.GuildID), zap.Error(err))
		return
	}

	if !settings.Persistent.Enabled {
		return
	}

	_, err = c.reconnect.Reconnect(ctx, s.GuildID,
		settings.Persistent.VoiceChannelID, settings.Persistent.TextChannelID)
	if err != nil {
		c.logger.Error("Failed to reconnect persistent session",
			zap.String("guildID", s.GuildID), zap.Error(err))
		c.metrics.RecordReconnect("failed")
		return
	}
	c.metrics.RecordReconnect("success")
}

// OnMove follows a successful voice move and tears the session down when
// the move failed or the bot was removed.
func (c *Controller) OnMove(ctx context.Context, s *Session, transition Transition, channels MoveChannels) {
	c.metrics.RecordEvent(string(EventMove))

	switch transition {
	case TransitionUnknown:
		c.destroy(ctx, s)
		c.postNotice(ctx, s, noticeMoveFailed,
			chat.Payload{Content: c.localizer.T("notice.move_failed")},
			c.config.App.MoveNoticeTTL)

	case TransitionMoved:
		s.SetVoiceChannelID(channels.NewChannelID)
		if err := c.engine.SetVoiceChannel(ctx, s, channels.NewChannelID); err != nil {
			c.logger.Error("Failed to set voice channel",
				zap.String("guildID", s.GuildID),
				zap.String("channelID", channels.NewChannelID),
				zap.Error(err))
		}
		if c.engine.State(s).Paused {
			if err := c.engine.SetPaused(ctx, s, false); err != nil {
				c.logger.Error("Failed to resume after move", zap.String("guildID", s.GuildID), zap.Error(err))
			}
		}
		c.postNotice(ctx, s, noticeMoved,
			chat.Payload{Content: c.localizer.T("notice.moved", channels.OldChannelID, channels.NewChannelID)},
			c.config.App.MoveNoticeTTL)

	case TransitionLeft:
		c.destroy(ctx, s)
		c.postNotice(ctx, s, noticeMovedOut,
			chat.Payload{Content: c.localizer.T("notice.moved_out")},
			c.config.App.MoveNoticeTTL)

	default:
		c.logger.Warn("Unknown voice transition",
			zap.String("guildID", s.GuildID),
			zap.String("transition", string(transition)))
	}
}

// OnStuck reports the stall and moves on to the next track.
func (c *Controller) OnStuck(ctx context.Context, s *Session, threshold time.Duration) {
	c.metrics.RecordEvent(string(EventStuck))

	c.postNotice(ctx, s, noticeStuck,
		chat.Payload{Content: c.localizer.T("notice.stuck", threshold.Milliseconds())},
		c.config.App.ShortNoticeTTL)

	if err := c.engine.Skip(ctx, s); err != nil {
		c.logger.Error("Failed to skip stuck track", zap.String("guildID", s.GuildID), zap.Error(err))
	}
	c.metrics.RecordSkip(noticeStuck)
}

// lookupSettings returns the guild's settings, or defaults when none are stored.
func (c *Controller) lookupSettings(ctx context.Context, guildID string) (*GuildSettings, error) {
	settings, err := c.settings.FindSettings(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		return &GuildSettings{GuildID: guildID}, nil
	}
	return settings, nil
}

// clearStatus detaches and deletes the session's status message, if any.
func (c *Controller) clearStatus(ctx context.Context, s *Session) {
	ref, ok, _ := s.ClearStatus()
	if !ok {
		return
	}
	c.messages.DeleteNow(ctx, ref)
	c.metrics.RecordStatusMessage("deleted")
}

func (c *Controller) destroy(ctx context.Context, s *Session) {
	if err := c.engine.Destroy(ctx, s); err != nil {
		c.logger.Error("Failed to destroy session", zap.String("guildID", s.GuildID), zap.Error(err))
	}
}

// postNotice sends a transient notice to the execution channel and schedules
// its deletion. Any failure abandons the notice.
func (c *Controller) postNotice(ctx context.Context, s *Session, kind string, payload chat.Payload, ttl time.Duration) {
	if c.limiter != nil && !c.limiter.Allow(s.GuildID, kind) {
		c.logger.Debug("Notice suppressed by flood limit",
			zap.String("guildID", s.GuildID),
			zap.String("kind", kind))
		return
	}

	channel, err := c.transport.ResolveChannel(ctx, s.ExecutionChannelID())
	if err != nil {
		c.logger.Warn("Execution channel not found for notice",
			zap.String("guildID", s.GuildID),
			zap.String("channelID", s.ExecutionChannelID()),
			zap.String("kind", kind),
			zap.Error(err))
		return
	}

	ref, err := c.messages.Post(ctx, channel, payload)
	if err != nil {
		c.logger.Warn("Failed to post notice",
			zap.String("guildID", s.GuildID),
			zap.String("kind", kind),
			zap.Error(err))
		return
	}

	c.messages.Expire(ref, ttl)
	c.metrics.RecordNotice(kind)
}
