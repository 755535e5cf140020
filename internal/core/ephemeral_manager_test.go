package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"guildplayer/internal/chat"
)

type recordingMetrics struct {
	NopMetrics
	deletions []string
	autoplay  []string
}

func (m *recordingMetrics) RecordDeletion(outcome string) {
	m.deletions = append(m.deletions, outcome)
}

func (m *recordingMetrics) RecordAutoplay(status string) {
	m.autoplay = append(m.autoplay, status)
}

func newTestManager() (*EphemeralManager, *mockTransport, *fakeScheduler, *recordingMetrics) {
	transport := newMockTransport(testTextChannelID)
	metrics := &recordingMetrics{}
	manager := NewEphemeralManager(transport, metrics, time.Second, zap.NewNop())
	scheduler := &fakeScheduler{}
	useFakeClock(manager, scheduler)
	return manager, transport, scheduler, metrics
}

func TestEphemeralManager_PostAndExpire(t *testing.T) {
	manager, transport, scheduler, metrics := newTestManager()
	channel := &chat.Channel{ID: testTextChannelID}

	ref, err := manager.Post(context.Background(), channel, chat.Payload{Content: "hello"})
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}

	manager.Expire(ref, 5*time.Second)

	if manager.Pending() != 1 {
		t.Fatalf("Expected 1 pending deletion, got %d", manager.Pending())
	}
	if d := scheduler.delays(); len(d) != 1 || d[0] != 5*time.Second {
		t.Errorf("Expected delay 5s, got %v", d)
	}

	scheduler.scheduled[0].fire()

	if manager.Pending() != 0 {
		t.Errorf("Expected no pending deletions after firing, got %d", manager.Pending())
	}
	deleted := transport.deletedRefs()
	if len(deleted) != 1 || deleted[0] != ref {
		t.Errorf("Expected %v to be deleted, got %v", ref, deleted)
	}
	if len(metrics.deletions) != 1 || metrics.deletions[0] != deletionDeleted {
		t.Errorf("Expected deleted outcome, got %v", metrics.deletions)
	}
}

func TestEphemeralManager_ExpiryMeasuredFromPost(t *testing.T) {
	manager, _, scheduler, _ := newTestManager()
	posted := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	current := posted
	manager.now = func() time.Time { return current }

	ref, err := manager.Post(context.Background(), &chat.Channel{ID: testTextChannelID}, chat.Payload{Content: "x"})
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}

	current = posted.Add(2 * time.Second)
	manager.Expire(ref, 5*time.Second)

	current = posted.Add(10 * time.Second)
	manager.Expire(ref, 5*time.Second)

	d := scheduler.delays()
	if len(d) != 2 || d[0] != 3*time.Second || d[1] != 0 {
		t.Errorf("Expected delays [3s 0s], got %v", d)
	}
	if manager.Pending() != 1 {
		t.Errorf("Rescheduling should replace the pending deletion, got %d", manager.Pending())
	}

	// The replaced timer's callback must be a no-op.
	scheduler.scheduled[0].fire()
	if manager.Pending() != 1 {
		t.Error("Stale timer must not consume the current deletion")
	}
}

func TestEphemeralManager_DeleteNowCancelsTimer(t *testing.T) {
	manager, transport, scheduler, _ := newTestManager()
	ref, _ := manager.Post(context.Background(), &chat.Channel{ID: testTextChannelID}, chat.Payload{Content: "x"})
	manager.Expire(ref, time.Minute)

	manager.DeleteNow(context.Background(), ref)

	if manager.Pending() != 0 {
		t.Errorf("Expected pending deletion to be dropped, got %d", manager.Pending())
	}
	scheduler.scheduled[0].fire()
	if len(transport.deletedRefs()) != 1 {
		t.Errorf("Message should be deleted exactly once, got %v", transport.deletedRefs())
	}
}

func TestEphemeralManager_DeleteOutcomes(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"success", nil, deletionDeleted},
		{"already deleted", chat.ErrNotFound, deletionAbsorbed},
		{"wrapped not found", errors.Join(errors.New("lookup"), chat.ErrNotFound), deletionAbsorbed},
		{"no permission", chat.ErrForbidden, deletionAbsorbed},
		{"transport failure", errors.New("connection reset"), deletionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager, transport, _, metrics := newTestManager()
			transport.deleteErr = tt.err

			manager.DeleteNow(context.Background(), chat.MessageRef{ChannelID: testTextChannelID, MessageID: "m"})

			if len(metrics.deletions) != 1 || metrics.deletions[0] != tt.expected {
				t.Errorf("Expected outcome %q, got %v", tt.expected, metrics.deletions)
			}
		})
	}
}

func TestEphemeralManager_ZeroRefIgnored(t *testing.T) {
	manager, transport, _, metrics := newTestManager()

	manager.DeleteNow(context.Background(), chat.MessageRef{})

	if len(transport.deletedRefs()) != 0 || len(metrics.deletions) != 0 {
		t.Error("Zero reference must not reach the transport")
	}
}

func TestEphemeralManager_PostFailure(t *testing.T) {
	manager, transport, _, _ := newTestManager()
	transport.sendErr = chat.ErrForbidden

	_, err := manager.Post(context.Background(), &chat.Channel{ID: testTextChannelID}, chat.Payload{Content: "x"})
	if !errors.Is(err, chat.ErrForbidden) {
		t.Errorf("Expected wrapped ErrForbidden, got %v", err)
	}
}

func TestEphemeralManager_Close(t *testing.T) {
	manager, _, scheduler, _ := newTestManager()
	ref := chat.MessageRef{ChannelID: testTextChannelID, MessageID: "m"}
	manager.Expire(ref, time.Second)

	manager.Close()

	if manager.Pending() != 0 {
		t.Errorf("Close should drop pending deletions, got %d", manager.Pending())
	}

	manager.Expire(ref, time.Second)
	if len(scheduler.delays()) != 1 {
		t.Error("Expire after Close must not schedule anything")
	}
}

func TestEphemeralManager_RealTimer(t *testing.T) {
	transport := newMockTransport(testTextChannelID)
	manager := NewEphemeralManager(transport, nil, time.Second, zap.NewNop())
	defer manager.Close()

	ref, err := manager.Post(context.Background(), &chat.Channel{ID: testTextChannelID}, chat.Payload{Content: "x"})
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	manager.Expire(ref, 10*time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(transport.deletedRefs()) == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("Message was not deleted after its expiry")
}
