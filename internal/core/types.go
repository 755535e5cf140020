package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"guildplayer/internal/chat"
)

var (
	// ErrNoSession is returned by engine commands targeting a guild without a live session.
	ErrNoSession = errors.New("no playback session for guild")
	// ErrIncompleteSessionConfig is returned when a persistent session lacks its channel pair.
	ErrIncompleteSessionConfig = errors.New("persistent session is missing a voice or text channel")
)

// Track is a playable item together with the user who queued it.
type Track struct {
	Title        string
	Author       string
	URI          string
	ThumbnailURL string
	Duration     time.Duration
	IsStream     bool
	Requester    chat.Requester
}

// PersistentSession is the "24/7" configuration: when enabled the session is
// recreated immediately after every destruction.
type PersistentSession struct {
	Enabled        bool
	VoiceChannelID string
	TextChannelID  string
}

// GuildSettings is the stored per-guild configuration.
type GuildSettings struct {
	GuildID         string
	AutoplayEnabled bool
	Persistent      PersistentSession
	UpdatedAt       time.Time
}

// PlaybackState mirrors what the engine reports about a session.
type PlaybackState struct {
	Volume      int
	QueueLength int
	Paused      bool
}

// Transition is the outcome of a voice channel change reported by the engine.
type Transition string

const (
	// TransitionUnknown means the platform could not complete the move
	TransitionUnknown Transition = "UNKNOWN"
	// TransitionMoved means the bot now sits in a new voice channel
	TransitionMoved Transition = "MOVED"
	// TransitionLeft means the bot was removed from the voice channel by someone else
	TransitionLeft Transition = "LEFT"
)

// MoveChannels names the voice channels of a reported move.
type MoveChannels struct {
	OldChannelID string
	NewChannelID string
}

// CreateSessionRequest describes a session the engine should create.
type CreateSessionRequest struct {
	GuildID        string
	TextChannelID  string
	VoiceChannelID string
	Deaf           bool // input audio disabled, the bot never listens
}

// EventKind names the six lifecycle events.
type EventKind string

const (
	EventTrackStart EventKind = "track_start"
	EventTrackEnd   EventKind = "track_end"
	EventQueueEmpty EventKind = "queue_empty"
	EventDestroy    EventKind = "destroy"
	EventMove       EventKind = "move"
	EventStuck      EventKind = "stuck"
)

// Event is a lifecycle notification from the playback engine. Only the
// fields relevant to Kind are set.
type Event struct {
	Kind       EventKind
	Session    *Session
	Track      Track
	Transition Transition
	Channels   MoveChannels
	Threshold  time.Duration
}

// Session is the per-guild working data the controller attaches to an engine
// player. The execution channel is fixed at creation.
type Session struct {
	GuildID string

	executionChannelID string

	mutex          sync.Mutex
	voiceChannelID string
	status         *chat.MessageRef
	statusGen      uint64
	lastTrackURI   string
}

// NewSession creates a session bound to its execution and voice channels.
func NewSession(guildID, executionChannelID, voiceChannelID string) *Session {
	return &Session{
		GuildID:            guildID,
		executionChannelID: executionChannelID,
		voiceChannelID:     voiceChannelID,
	}
}

// ExecutionChannelID returns the text channel that receives status output.
func (s *Session) ExecutionChannelID() string {
	return s.executionChannelID
}

func (s *Session) VoiceChannelID() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.voiceChannelID
}

func (s *Session) SetVoiceChannelID(channelID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.voiceChannelID = channelID
}

func (s *Session) LastTrackURI() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.lastTrackURI
}

func (s *Session) SetLastTrackURI(uri string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.lastTrackURI = uri
}

// StatusMessage returns the current status message reference, if any.
func (s *Session) StatusMessage() (chat.MessageRef, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.status == nil {
		return chat.MessageRef{}, false
	}
	return *s.status, true
}

// ClearStatus detaches the current status reference and starts a new
// generation. The returned generation must be handed to StoreStatus.
func (s *Session) ClearStatus() (chat.MessageRef, bool, uint64) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.statusGen++
	if s.status == nil {
		return chat.MessageRef{}, false, s.statusGen
	}
	ref := *s.status
	s.status = nil
	return ref, true, s.statusGen
}

// StoreStatus records ref as the live status message unless another clear
// happened since generation gen was issued. It reports whether ref was stored.
func (s *Session) StoreStatus(ref chat.MessageRef, gen uint64) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if gen != s.statusGen || s.status != nil {
		return false
	}
	s.status = &ref
	return true
}

// Engine is the command side of the playback engine.
type Engine interface {
	Skip(ctx context.Context, s *Session) error
	Destroy(ctx context.Context, s *Session) error
	SetVoiceChannel(ctx context.Context, s *Session, channelID string) error
	SetPaused(ctx context.Context, s *Session, paused bool) error
	CreateSession(ctx context.Context, req CreateSessionRequest) (*Session, error)
	// Continue asks the engine to seed and start a track related to seedURI.
	Continue(ctx context.Context, s *Session, seedURI string) error
	State(s *Session) PlaybackState
}

// SettingsStore reads per-guild configuration. A nil result with a nil
// error means the guild has no stored settings.
type SettingsStore interface {
	FindSettings(ctx context.Context, guildID string) (*GuildSettings, error)
}

// NoticeLimiter decides whether a notice of the given kind may be posted.
type NoticeLimiter interface {
	Allow(guildID, kind string) bool
}

// Metrics receives controller outcomes for monitoring.
type Metrics interface {
	RecordEvent(kind string)
	RecordSkip(reason string)
	RecordNotice(kind string)
	RecordStatusMessage(action string)
	RecordAutoplay(status string)
	RecordReconnect(status string)
	RecordDeletion(outcome string)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) RecordEvent(string)         {}
func (NopMetrics) RecordSkip(string)          {}
func (NopMetrics) RecordNotice(string)        {}
func (NopMetrics) RecordStatusMessage(string) {}
func (NopMetrics) RecordAutoplay(string)      {}
func (NopMetrics) RecordReconnect(string)     {}
func (NopMetrics) RecordDeletion(string)      {}
