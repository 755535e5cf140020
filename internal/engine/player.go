package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"guildplayer/internal/core"
)

// VoiceGateway connects the bot to voice channels.
type VoiceGateway interface {
	Join(ctx context.Context, guildID, channelID string, deaf bool) error
	Leave(ctx context.Context, guildID string) error
}

// Recommender supplies autoplay continuations.
type Recommender interface {
	Remember(guildID string, track core.Track)
	Related(guildID, seedURI string) (core.Track, error)
}

// Publisher accepts lifecycle events.
type Publisher interface {
	Publish(ev core.Event) error
}

// guildPlayer is the playback state of one guild.
type guildPlayer struct {
	session *core.Session
	queue   []core.Track
	current *core.Track
	volume  int
	paused  bool
}

// Player is the in-process playback engine. It keeps queue, pause and
// volume state per guild, drives voice connections through a VoiceGateway
// and reports every lifecycle change on its Publisher. It does not decode
// or stream audio: the audio backend that does drives it through Enqueue,
// Finish, Stuck and SetVolume, and the bot itself only creates, moves and
// destroys sessions.
type Player struct {
	voice         VoiceGateway
	recommender   Recommender
	events        Publisher
	defaultVolume int
	logger        *zap.Logger

	mutex   sync.Mutex
	players map[string]*guildPlayer
}

// NewPlayer creates a new player.
func NewPlayer(voice VoiceGateway, recommender Recommender, events Publisher, defaultVolume int,
	logger *zap.Logger) *Player {
	return &Player{
		voice:         voice,
		recommender:   recommender,
		events:        events,
		defaultVolume: defaultVolume,
		logger:        logger,
		players:       make(map[string]*guildPlayer),
	}
}

// CreateSession joins the requested voice channel and returns the guild's
// session. An existing session on the same channel pair is returned as is.
func (p *Player) CreateSession(ctx context.Context, req core.CreateSessionRequest) (*core.Session, error) {
	if req.GuildID == "" || req.VoiceChannelID == "" || req.TextChannelID == "" {
		return nil, fmt.Errorf("guild %q: %w", req.GuildID, core.ErrIncompleteSessionConfig)
	}

	p.mutex.Lock()
	if existing, ok := p.players[req.GuildID]; ok &&
		existing.session.ExecutionChannelID() == req.TextChannelID &&
		existing.session.VoiceChannelID() == req.VoiceChannelID {
		p.mutex.Unlock()
		return existing.session, nil
	}
	p.mutex.Unlock()

	if err := p.voice.Join(ctx, req.GuildID, req.VoiceChannelID, req.Deaf); err != nil {
		return nil, fmt.Errorf("failed to join voice channel %s: %w", req.VoiceChannelID, err)
	}

	session := core.NewSession(req.GuildID, req.TextChannelID, req.VoiceChannelID)

	p.mutex.Lock()
	p.players[req.GuildID] = &guildPlayer{
		session: session,
		volume:  p.defaultVolume,
	}
	p.mutex.Unlock()

	p.logger.Info("Created playback session",
		zap.String("guildID", req.GuildID),
		zap.String("voiceChannelID", req.VoiceChannelID),
		zap.String("textChannelID", req.TextChannelID))

	return session, nil
}

// Session returns the live session of guildID.
func (p *Player) Session(guildID string) (*core.Session, bool) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	gp, ok := p.players[guildID]
	if !ok {
		return nil, false
	}
	return gp.session, true
}

// Sessions returns the number of live sessions.
func (p *Player) Sessions() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return len(p.players)
}

// Enqueue appends track to the guild's queue and starts it when nothing is playing.
func (p *Player) Enqueue(ctx context.Context, guildID string, track core.Track) error {
	p.mutex.Lock()
	gp, ok := p.players[guildID]
	if !ok {
		p.mutex.Unlock()
		return fmt.Errorf("guild %s: %w", guildID, core.ErrNoSession)
	}
	gp.queue = append(gp.queue, track)
	idle := gp.current == nil
	p.mutex.Unlock()

	if idle {
		p.advance(ctx, guildID, false)
	}
	return nil
}

// Finish reports that the current track of guildID played to its end.
func (p *Player) Finish(ctx context.Context, guildID string) error {
	return p.skip(ctx, guildID)
}

// Skip ends the current track and starts the next one.
func (p *Player) Skip(ctx context.Context, s *core.Session) error {
	return p.skip(ctx, s.GuildID)
}

func (p *Player) skip(ctx context.Context, guildID string) error {
	if _, ok := p.Session(guildID); !ok {
		return fmt.Errorf("guild %s: %w", guildID, core.ErrNoSession)
	}

	p.advance(ctx, guildID, true)
	return nil
}

// advance moves the guild to its next track, publishing TrackEnd for the
// current one (when ending is set), then TrackStart or QueueEmpty.
func (p *Player) advance(_ context.Context, guildID string, ending bool) {
	p.mutex.Lock()
	gp, ok := p.players[guildID]
	if !ok {
		p.mutex.Unlock()
		return
	}

	hadCurrent := gp.current != nil
	gp.current = nil

	var next *core.Track
	if len(gp.queue) > 0 {
		track := gp.queue[0]
		gp.queue = gp.queue[1:]
		gp.current = &track
		next = &track
	}
	session := gp.session
	p.mutex.Unlock()

	if ending && hadCurrent {
		p.publish(core.Event{Kind: core.EventTrackEnd, Session: session})
	}

	if next == nil {
		if hadCurrent {
			p.publish(core.Event{Kind: core.EventQueueEmpty, Session: session})
		}
		return
	}

	if p.recommender != nil {
		p.recommender.Remember(guildID, *next)
	}
	p.publish(core.Event{Kind: core.EventTrackStart, Session: session, Track: *next})
}

// Destroy tears the guild's session down and leaves voice.
func (p *Player) Destroy(ctx context.Context, s *core.Session) error {
	p.mutex.Lock()
	gp, ok := p.players[s.GuildID]
	if ok && gp.session == s {
		delete(p.players, s.GuildID)
	}
	p.mutex.Unlock()

	if !ok || gp.session != s {
		return fmt.Errorf("guild %s: %w", s.GuildID, core.ErrNoSession)
	}

	if err := p.voice.Leave(ctx, s.GuildID); err != nil {
		p.logger.Warn("Failed to leave voice channel", zap.String("guildID", s.GuildID), zap.Error(err))
	}

	p.logger.Info("Destroyed playback session", zap.String("guildID", s.GuildID))
	p.publish(core.Event{Kind: core.EventDestroy, Session: s})
	return nil
}

// SetVoiceChannel joins channelID, keeping the session and its queue.
func (p *Player) SetVoiceChannel(ctx context.Context, s *core.Session, channelID string) error {
	if _, ok := p.Session(s.GuildID); !ok {
		return fmt.Errorf("guild %s: %w", s.GuildID, core.ErrNoSession)
	}
	if err := p.voice.Join(ctx, s.GuildID, channelID, true); err != nil {
		return fmt.Errorf("failed to join voice channel %s: %w", channelID, err)
	}
	return nil
}

// SetPaused pauses or resumes the current track.
func (p *Player) SetPaused(_ context.Context, s *core.Session, paused bool) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	gp, ok := p.players[s.GuildID]
	if !ok {
		return fmt.Errorf("guild %s: %w", s.GuildID, core.ErrNoSession)
	}
	gp.paused = paused
	return nil
}

// SetVolume sets the guild's volume, clamped to 0..200 percent.
func (p *Player) SetVolume(guildID string, volume int) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	gp, ok := p.players[guildID]
	if !ok {
		return fmt.Errorf("guild %s: %w", guildID, core.ErrNoSession)
	}
	gp.volume = min(max(volume, 0), 200)
	return nil
}

// Continue enqueues a track related to seedURI and starts it.
func (p *Player) Continue(ctx context.Context, s *core.Session, seedURI string) error {
	if p.recommender == nil {
		return fmt.Errorf("guild %s: %w", s.GuildID, ErrNoRecommendation)
	}

	track, err := p.recommender.Related(s.GuildID, seedURI)
	if err != nil {
		return fmt.Errorf("guild %s: %w", s.GuildID, err)
	}

	return p.Enqueue(ctx, s.GuildID, track)
}

// State reports queue length, volume and pause state.
func (p *Player) State(s *core.Session) core.PlaybackState {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	gp, ok := p.players[s.GuildID]
	if !ok {
		return core.PlaybackState{}
	}
	return core.PlaybackState{
		Volume:      gp.volume,
		QueueLength: len(gp.queue),
		Paused:      gp.paused,
	}
}

// Moved reports a voice state change of the bot in guildID.
func (p *Player) Moved(guildID string, transition core.Transition, channels core.MoveChannels) {
	session, ok := p.Session(guildID)
	if !ok {
		return
	}
	if transition == core.TransitionMoved && session.VoiceChannelID() == channels.NewChannelID {
		// Echo of a join this player requested.
		return
	}
	p.publish(core.Event{Kind: core.EventMove, Session: session, Transition: transition, Channels: channels})
}

// Stuck reports that the current track stalled for threshold.
func (p *Player) Stuck(guildID string, threshold time.Duration) {
	session, ok := p.Session(guildID)
	if !ok {
		return
	}
	p.publish(core.Event{Kind: core.EventStuck, Session: session, Threshold: threshold})
}

func (p *Player) publish(ev core.Event) {
	if err := p.events.Publish(ev); err != nil {
		p.logger.Warn("Failed to publish event",
			zap.String("guildID", ev.Session.GuildID),
			zap.String("kind", string(ev.Kind)),
			zap.Error(err))
	}
}
