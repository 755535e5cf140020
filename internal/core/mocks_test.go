package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"guildplayer/internal/chat"
)

// Mock implementations for testing

type sentMessage struct {
	channelID string
	payload   chat.Payload
	ref       chat.MessageRef
}

type mockTransport struct {
	mutex     sync.Mutex
	channels  map[string]bool
	sent      []sentMessage
	deleted   []chat.MessageRef
	sendErr   error
	deleteErr error
	nextID    int
	onSend    func()
}

func newMockTransport(channelIDs ...string) *mockTransport {
	m := &mockTransport{channels: make(map[string]bool)}
	for _, id := range channelIDs {
		m.channels[id] = true
	}
	return m
}

func (m *mockTransport) ResolveChannel(_ context.Context, channelID string) (*chat.Channel, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if !m.channels[channelID] {
		return nil, chat.ErrNotFound
	}
	return &chat.Channel{ID: channelID}, nil
}

func (m *mockTransport) Send(_ context.Context, channel *chat.Channel, payload chat.Payload) (chat.MessageRef, error) {
	if m.onSend != nil {
		m.onSend()
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.sendErr != nil {
		return chat.MessageRef{}, m.sendErr
	}
	m.nextID++
	ref := chat.MessageRef{ChannelID: channel.ID, MessageID: fmt.Sprintf("msg-%d", m.nextID)}
	m.sent = append(m.sent, sentMessage{channelID: channel.ID, payload: payload, ref: ref})
	return ref, nil
}

func (m *mockTransport) FetchAndDelete(_ context.Context, ref chat.MessageRef) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.deleted = append(m.deleted, ref)
	return m.deleteErr
}

func (m *mockTransport) sentMessages() []sentMessage {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return append([]sentMessage(nil), m.sent...)
}

func (m *mockTransport) deletedRefs() []chat.MessageRef {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return append([]chat.MessageRef(nil), m.deleted...)
}

type mockEngine struct {
	mutex       sync.Mutex
	skips       int
	destroys    int
	voiceMoves  []string
	pauses      []bool
	creates     []CreateSessionRequest
	continues   []string
	state       PlaybackState
	createErrs  []error
	continueErr error
}

func (m *mockEngine) Skip(_ context.Context, _ *Session) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.skips++
	return nil
}

func (m *mockEngine) Destroy(_ context.Context, _ *Session) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.destroys++
	return nil
}

func (m *mockEngine) SetVoiceChannel(_ context.Context, _ *Session, channelID string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.voiceMoves = append(m.voiceMoves, channelID)
	return nil
}

func (m *mockEngine) SetPaused(_ context.Context, _ *Session, paused bool) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.pauses = append(m.pauses, paused)
	m.state.Paused = paused
	return nil
}

func (m *mockEngine) CreateSession(_ context.Context, req CreateSessionRequest) (*Session, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.creates = append(m.creates, req)
	if len(m.createErrs) > 0 {
		err := m.createErrs[0]
		m.createErrs = m.createErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return NewSession(req.GuildID, req.TextChannelID, req.VoiceChannelID), nil
}

func (m *mockEngine) Continue(_ context.Context, _ *Session, seedURI string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.continues = append(m.continues, seedURI)
	return m.continueErr
}

func (m *mockEngine) State(_ *Session) PlaybackState {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.state
}

type mockSettingsStore struct {
	settings map[string]*GuildSettings
	err      error
	lookups  int
}

func (m *mockSettingsStore) FindSettings(_ context.Context, guildID string) (*GuildSettings, error) {
	m.lookups++
	if m.err != nil {
		return nil, m.err
	}
	return m.settings[guildID], nil
}

type mockLimiter struct {
	allow bool
	calls []string
}

func (m *mockLimiter) Allow(_, kind string) bool {
	m.calls = append(m.calls, kind)
	return m.allow
}

type scheduledDeletion struct {
	delay time.Duration
	fire  func()
}

// fakeScheduler records deletions instead of arming real timers.
type fakeScheduler struct {
	mutex     sync.Mutex
	scheduled []scheduledDeletion
}

func (f *fakeScheduler) afterFunc(d time.Duration, fn func()) *time.Timer {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.scheduled = append(f.scheduled, scheduledDeletion{delay: d, fire: fn})
	return time.AfterFunc(time.Hour, func() {})
}

func (f *fakeScheduler) delays() []time.Duration {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	delays := make([]time.Duration, 0, len(f.scheduled))
	for _, s := range f.scheduled {
		delays = append(delays, s.delay)
	}
	return delays
}

// useFakeClock freezes the manager's clock and swaps in the fake scheduler.
func useFakeClock(m *EphemeralManager, scheduler *fakeScheduler) {
	fixed := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }
	m.afterFunc = scheduler.afterFunc
}

const (
	testGuildID        = "guild-1"
	testTextChannelID  = "text-1"
	testVoiceChannelID = "voice-1"
)

var errSettingsUnavailable = errors.New("settings store unavailable")

type controllerFixture struct {
	controller *Controller
	engine     *mockEngine
	transport  *mockTransport
	settings   *mockSettingsStore
	scheduler  *fakeScheduler
	session    *Session
}

func newControllerFixture(t *testing.T, settings *GuildSettings) *controllerFixture {
	t.Helper()

	config := DefaultConfig()
	config.Reconnect.RetryDelay = 0

	engine := &mockEngine{state: PlaybackState{Volume: 100}}
	transport := newMockTransport(testTextChannelID)
	store := &mockSettingsStore{settings: map[string]*GuildSettings{}}
	if settings != nil {
		store.settings[settings.GuildID] = settings
	}

	controller := NewController(config, engine, store, transport, nil, nil, zap.NewNop())
	scheduler := &fakeScheduler{}
	useFakeClock(controller.messages, scheduler)

	return &controllerFixture{
		controller: controller,
		engine:     engine,
		transport:  transport,
		settings:   store,
		scheduler:  scheduler,
		session:    NewSession(testGuildID, testTextChannelID, testVoiceChannelID),
	}
}
