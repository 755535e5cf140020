package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"guildplayer/internal/chat"
)

// Deletion outcomes reported to Metrics.
const (
	deletionDeleted  = "deleted"
	deletionAbsorbed = "absorbed"
	deletionFailed   = "failed"
)

// afterFunc matches time.AfterFunc.
type afterFunc func(d time.Duration, f func()) *time.Timer

// pendingDeletion is a scheduled deletion for one message.
type pendingDeletion struct {
	timer *time.Timer
}

// EphemeralManager posts transient messages and guarantees their eventual
// best-effort deletion.
type EphemeralManager struct {
	transport     chat.Transport
	metrics       Metrics
	logger        *zap.Logger
	deleteTimeout time.Duration
	afterFunc     afterFunc
	now           func() time.Time

	mutex    sync.Mutex
	postedAt map[chat.MessageRef]time.Time
	pending  map[chat.MessageRef]*pendingDeletion
	closed   bool
}

// NewEphemeralManager creates a new ephemeral message manager.
func NewEphemeralManager(transport chat.Transport, metrics Metrics, deleteTimeout time.Duration,
	logger *zap.Logger) *EphemeralManager {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &EphemeralManager{
		transport:     transport,
		metrics:       metrics,
		logger:        logger,
		deleteTimeout: deleteTimeout,
		afterFunc:     time.AfterFunc,
		now:           time.Now,
		postedAt:      make(map[chat.MessageRef]time.Time),
		pending:       make(map[chat.MessageRef]*pendingDeletion),
	}
}

// Post sends the payload and remembers when it was posted so that a later
// Expire measures its delay from this moment.
func (m *EphemeralManager) Post(ctx context.Context, channel *chat.Channel, payload chat.Payload) (chat.MessageRef, error) {
	ref, err := m.transport.Send(ctx, channel, payload)
	if err != nil {
		return chat.MessageRef{}, fmt.Errorf("failed to send message to channel %s: %w", channel.ID, err)
	}

	m.mutex.Lock()
	m.postedAt[ref] = m.now()
	m.mutex.Unlock()

	return ref, nil
}

// Expire schedules deletion of ref once after has elapsed since it was
// posted. Scheduling again replaces the previous timer.
func (m *EphemeralManager) Expire(ref chat.MessageRef, after time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.closed {
		return
	}

	delay := after
	if posted, ok := m.postedAt[ref]; ok {
		delay = after - m.now().Sub(posted)
	}
	if delay < 0 {
		delay = 0
	}

	if existing, ok := m.pending[ref]; ok {
		existing.timer.Stop()
	}

	entry := &pendingDeletion{}
	entry.timer = m.afterFunc(delay, func() {
		m.mutex.Lock()
		if current, ok := m.pending[ref]; !ok || current != entry {
			m.mutex.Unlock()
			return
		}
		delete(m.pending, ref)
		m.mutex.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), m.deleteTimeout)
		defer cancel()
		m.delete(ctx, ref)
	})
	m.pending[ref] = entry

	m.logger.Debug("Scheduled message expiry",
		zap.String("channelID", ref.ChannelID),
		zap.String("messageID", ref.MessageID),
		zap.Duration("delay", delay))
}

// DeleteNow deletes ref immediately and drops any scheduled deletion for it.
func (m *EphemeralManager) DeleteNow(ctx context.Context, ref chat.MessageRef) {
	m.mutex.Lock()
	if existing, ok := m.pending[ref]; ok {
		existing.timer.Stop()
		delete(m.pending, ref)
	}
	m.mutex.Unlock()

	m.delete(ctx, ref)
}

// Pending returns the number of scheduled deletions.
func (m *EphemeralManager) Pending() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.pending)
}

// Close stops every scheduled deletion. Messages still pending stay in place.
func (m *EphemeralManager) Close() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.closed = true
	for ref, entry := range m.pending {
		entry.timer.Stop()
		delete(m.pending, ref)
	}
}

func (m *EphemeralManager) delete(ctx context.Context, ref chat.MessageRef) {
	if ref.IsZero() {
		return
	}

	err := m.transport.FetchAndDelete(ctx, ref)

	m.mutex.Lock()
	delete(m.postedAt, ref)
	m.mutex.Unlock()

	switch {
	case err == nil:
		m.metrics.RecordDeletion(deletionDeleted)
	case chat.IsAbsorbable(err):
		m.metrics.RecordDeletion(deletionAbsorbed)
		m.logger.Debug("Message already gone",
			zap.String("channelID", ref.ChannelID),
			zap.String("messageID", ref.MessageID),
			zap.Error(err))
	default:
		m.metrics.RecordDeletion(deletionFailed)
		m.logger.Warn("Failed to delete message",
			zap.String("channelID", ref.ChannelID),
			zap.String("messageID", ref.MessageID),
			zap.Error(err))
	}
}
