// Package engine hosts the in-process playback engine and the event bus
// that feeds its lifecycle events to the controller.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"guildplayer/internal/core"
)

var (
	// ErrBusClosed is returned when publishing to a bus that is not running.
	ErrBusClosed = errors.New("event bus is closed")
	// ErrQueueFull is returned when a guild's event queue has no room left.
	ErrQueueFull = errors.New("guild event queue is full")
)

// Dispatcher receives events from the bus. core.Controller implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev core.Event)
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(ctx context.Context, ev core.Event)

// Dispatch calls f(ctx, ev).
func (f DispatcherFunc) Dispatch(ctx context.Context, ev core.Event) {
	f(ctx, ev)
}

// BusMetrics is the optional monitoring hook of the bus.
type BusMetrics interface {
	ObserveEventDuration(kind string, duration time.Duration)
	RecordDroppedEvent(reason string)
}

// EventBus delivers events serially per guild. Different guilds are
// handled concurrently, one goroutine each.
type EventBus struct {
	dispatcher Dispatcher
	bufferSize int
	metrics    BusMetrics
	logger     *zap.Logger

	mutex  sync.Mutex
	queues map[string]chan core.Event
	group  *errgroup.Group
	ctx    context.Context
	closed bool
}

// NewEventBus creates a bus. metrics may be nil.
func NewEventBus(dispatcher Dispatcher, bufferSize int, metrics BusMetrics, logger *zap.Logger) *EventBus {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &EventBus{
		dispatcher: dispatcher,
		bufferSize: bufferSize,
		metrics:    metrics,
		logger:     logger,
		queues:     make(map[string]chan core.Event),
	}
}

// Run accepts events until ctx is cancelled, then drains every guild queue
// and returns.
func (b *EventBus) Run(ctx context.Context) error {
	b.mutex.Lock()
	if b.group != nil || b.closed {
		b.mutex.Unlock()
		return errors.New("event bus already started")
	}
	// Workers keep delivering queued events after ctx is cancelled so that
	// cleanup handlers still run; handlers bound their own I/O.
	b.group, b.ctx = errgroup.WithContext(context.WithoutCancel(ctx))
	b.mutex.Unlock()

	b.logger.Info("Event bus started", zap.Int("bufferSize", b.bufferSize))

	<-ctx.Done()
	return b.Close()
}

// Publish queues ev for delivery without blocking.
func (b *EventBus) Publish(ev core.Event) error {
	if ev.Session == nil {
		return fmt.Errorf("event %s: missing session", ev.Kind)
	}
	guildID := ev.Session.GuildID

	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.closed || b.group == nil {
		b.recordDropped("closed")
		return ErrBusClosed
	}

	queue, ok := b.queues[guildID]
	if !ok {
		queue = make(chan core.Event, b.bufferSize)
		b.queues[guildID] = queue
		b.group.Go(func() error {
			b.worker(guildID, queue)
			return nil
		})
	}

	select {
	case queue <- ev:
		return nil
	default:
		b.recordDropped("queue_full")
		b.logger.Warn("Dropping event, guild queue full",
			zap.String("guildID", guildID),
			zap.String("kind", string(ev.Kind)))
		return ErrQueueFull
	}
}

// Close stops accepting events and waits until queued events are delivered.
func (b *EventBus) Close() error {
	b.mutex.Lock()
	if b.closed {
		b.mutex.Unlock()
		return nil
	}
	b.closed = true
	for guildID, queue := range b.queues {
		close(queue)
		delete(b.queues, guildID)
	}
	group := b.group
	b.mutex.Unlock()

	if group == nil {
		return nil
	}
	err := group.Wait()
	b.logger.Info("Event bus stopped")
	return err
}

func (b *EventBus) worker(guildID string, queue <-chan core.Event) {
	for ev := range queue {
		b.deliver(guildID, ev)
	}
}

func (b *EventBus) deliver(guildID string, ev core.Event) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Event handler panicked",
				zap.String("guildID", guildID),
				zap.String("kind", string(ev.Kind)),
				zap.Any("panic", r))
		}
		if b.metrics != nil {
			b.metrics.ObserveEventDuration(string(ev.Kind), time.Since(start))
		}
	}()

	b.dispatcher.Dispatch(b.ctx, ev)
}

func (b *EventBus) recordDropped(reason string) {
	if b.metrics != nil {
		b.metrics.RecordDroppedEvent(reason)
	}
}
