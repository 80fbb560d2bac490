package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"freightdesk/internal/domain"
	"freightdesk/internal/usecase/eventbus"
)

func TestTypingChannelName(t *testing.T) {
	name := TypingChannelName("user-1", "abc")
	if name != "typing:user-1:abc" {
		t.Errorf("name = %q", name)
	}
	if TypingChannelName("user-1", "abc") != name {
		t.Error("channel name must be deterministic")
	}
	if TypingChannelName("user-1", "other") == name {
		t.Error("different nonces must produce different channels")
	}
}

func TestTypingEmitAndDone(t *testing.T) {
	transport := newRecordingTransport(true)
	ch := NewTypingChannel(transport, "u", "n", 50*time.Millisecond, testLogger())
	ctx := context.Background()

	ch.Emit(ctx, domain.TypingThinking, "", "request_manager")
	ch.Emit(ctx, domain.TypingWorking, "", "pricing")
	ch.Done(ctx)

	events := transport.published(ch.Name())
	if len(events) != 3 {
		t.Fatalf("published %d events, want 3", len(events))
	}
	if events[2].Status != domain.TypingDone {
		t.Errorf("last event = %q, want done", events[2].Status)
	}
	if len(transport.removed) != 1 || transport.removed[0] != ch.Name() {
		t.Errorf("channel not removed: %v", transport.removed)
	}
}

func TestTypingNoEventsAfterDone(t *testing.T) {
	transport := newRecordingTransport(true)
	ch := NewTypingChannel(transport, "u", "n", 50*time.Millisecond, testLogger())
	ctx := context.Background()

	ch.Done(ctx)
	ch.Emit(ctx, domain.TypingWorking, "", "late")

	events := transport.published(ch.Name())
	if len(events) != 1 || events[0].Status != domain.TypingDone {
		t.Fatalf("events after done must be dropped, got %+v", events)
	}
}

func TestTypingDoneIdempotent(t *testing.T) {
	transport := newRecordingTransport(true)
	ch := NewTypingChannel(transport, "u", "n", 50*time.Millisecond, testLogger())
	ctx := context.Background()

	ch.Done(ctx)
	ch.Done(ctx)
	ch.Done(ctx)

	if got := len(transport.published(ch.Name())); got != 1 {
		t.Errorf("done published %d events, want 1", got)
	}
	if got := len(transport.removed); got != 1 {
		t.Errorf("channel removed %d times, want 1", got)
	}
}

// With no subscriber, the bounded wait elapses and the turn proceeds
// instead of blocking.
func TestTypingProceedsWithoutSubscriber(t *testing.T) {
	transport := newRecordingTransport(false)
	ch := NewTypingChannel(transport, "u", "n", 10*time.Millisecond, testLogger())

	start := time.Now()
	ch.Emit(context.Background(), domain.TypingThinking, "", "w")
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("emit blocked for %v", elapsed)
	}

	// Done still works with nobody listening.
	ch.Done(context.Background())
	if got := len(transport.removed); got != 1 {
		t.Errorf("channel removed %d times, want 1", got)
	}
}

// Over the real broker, a slow subscriber still observes the lifecycle in
// order with done as the final event.
func TestTypingSubscriberObservesDoneLast(t *testing.T) {
	broker := eventbus.New(testLogger())
	defer broker.Close()

	ch := NewTypingChannel(broker, "u", "n", 100*time.Millisecond, testLogger())

	var mu sync.Mutex
	var got []domain.TypingStatus
	unsub := broker.Subscribe(ch.Name(), func(_ context.Context, ev domain.TypingEvent) {
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		got = append(got, ev.Status)
		mu.Unlock()
	})
	defer unsub()

	ctx := context.Background()
	ch.Emit(ctx, domain.TypingThinking, "", "request_manager")
	ch.Emit(ctx, domain.TypingWorking, "", "pricing")
	ch.Done(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n == 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("observed %d events, want 3", n)
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []domain.TypingStatus{domain.TypingThinking, domain.TypingWorking, domain.TypingDone}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("observed order = %v, want %v", got, want)
		}
	}
}

// The wait is paid once, not per event.
func TestTypingWaitsOnlyOnce(t *testing.T) {
	transport := newRecordingTransport(false)
	ch := NewTypingChannel(transport, "u", "n", 20*time.Millisecond, testLogger())
	ctx := context.Background()

	ch.Emit(ctx, domain.TypingThinking, "", "w")
	start := time.Now()
	ch.Emit(ctx, domain.TypingWorking, "", "w")
	if elapsed := time.Since(start); elapsed > 10*time.Millisecond {
		t.Errorf("second emit waited again: %v", elapsed)
	}
}
