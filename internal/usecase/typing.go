package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"freightdesk/internal/domain"
)

// NewNonce generates a per-turn broadcast nonce. ULIDs carry enough entropy
// that possession of the nonce is the channel's access control.
func NewNonce() string {
	return ulid.Make().String()
}

// TypingChannelName derives the broadcast channel name for a turn. The
// nonce comes from the client and is never reused across turns.
func TypingChannelName(userID, nonce string) string {
	return "typing:" + userID + ":" + nonce
}

// TypingChannel publishes coarse progress events for a single turn. It
// waits a bounded time for the first subscriber before the first emit; if
// nobody shows up, events for this turn are silently dropped rather than
// blocking the turn. Done always publishes the terminal event, exactly
// once, and then releases the channel.
type TypingChannel struct {
	transport domain.BroadcastTransport
	name      string
	wait      time.Duration
	logger    *slog.Logger

	subscribeOnce sync.Once
	doneMu        sync.Mutex
	done          bool
}

// NewTypingChannel creates the handle for one turn's progress channel.
func NewTypingChannel(transport domain.BroadcastTransport, userID, nonce string, wait time.Duration, logger *slog.Logger) *TypingChannel {
	return &TypingChannel{
		transport: transport,
		name:      TypingChannelName(userID, nonce),
		wait:      wait,
		logger:    logger,
	}
}

// Name returns the derived channel name.
func (t *TypingChannel) Name() string { return t.name }

// Emit publishes a progress event. Events after Done are dropped.
func (t *TypingChannel) Emit(ctx context.Context, status domain.TypingStatus, message, worker string) {
	t.doneMu.Lock()
	closed := t.done
	t.doneMu.Unlock()
	if closed {
		return
	}

	t.awaitSubscriber(ctx)
	t.transport.Publish(ctx, t.name, domain.TypingEvent{
		Status:    status,
		Message:   message,
		Worker:    worker,
		Timestamp: time.Now().UTC(),
	})
}

// Done publishes the terminal event and releases the channel. Idempotent
// and safe even if no subscriber ever arrived.
func (t *TypingChannel) Done(ctx context.Context) {
	t.doneMu.Lock()
	if t.done {
		t.doneMu.Unlock()
		return
	}
	t.done = true
	t.doneMu.Unlock()

	t.transport.Publish(ctx, t.name, domain.TypingEvent{
		Status:    domain.TypingDone,
		Timestamp: time.Now().UTC(),
	})
	t.transport.Remove(t.name)
}

// awaitSubscriber blocks until the channel has a subscriber, the bounded
// wait elapses, or the turn is cancelled. Runs at most once per channel.
func (t *TypingChannel) awaitSubscriber(ctx context.Context) {
	t.subscribeOnce.Do(func() {
		select {
		case <-t.transport.Ready(t.name):
		case <-time.After(t.wait):
			t.logger.Debug("no subscriber on typing channel, dropping events",
				"channel", t.name,
				"wait", t.wait,
			)
		case <-ctx.Done():
		}
	})
}
