package eventbus

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"freightdesk/internal/domain"
)

type queuedEvent struct {
	ctx   context.Context
	event domain.TypingEvent
}

// subscription carries its own event queue so one subscriber's events are
// delivered in publish order. A single drain goroutine runs at a time;
// Publish appends and starts it when idle.
type subscription struct {
	id      uint64
	handler domain.TypingHandler

	mu       sync.Mutex
	pending  []queuedEvent
	draining bool
}

type channel struct {
	subs      []*subscription
	ready     chan struct{}
	readyOnce sync.Once
}

// Broker is an in-process, goroutine-safe broadcast transport with named
// channels. Channels are created on first use and torn down with Remove.
type Broker struct {
	mu       sync.RWMutex
	channels map[string]*channel
	nextID   atomic.Uint64
	logger   *slog.Logger
	wg       sync.WaitGroup
	closed   atomic.Bool
}

// New creates a broker.
func New(logger *slog.Logger) *Broker {
	return &Broker{
		channels: make(map[string]*channel),
		logger:   logger,
	}
}

// channelLocked returns the named channel, creating it if needed.
// Caller must hold b.mu.
func (b *Broker) channelLocked(name string) *channel {
	ch, ok := b.channels[name]
	if !ok {
		ch = &channel{ready: make(chan struct{})}
		b.channels[name] = ch
	}
	return ch
}

// Publish fans out an event to all current subscribers of the named channel.
// Each subscriber observes events in publish order; handlers for one
// subscription never run concurrently with each other. The event is queued
// before Publish returns, so a Remove that follows a Publish does not drop
// it. Panicking handlers are recovered. Publishing to a missing or empty
// channel is a no-op.
func (b *Broker) Publish(ctx context.Context, name string, event domain.TypingEvent) {
	if b.closed.Load() {
		return
	}

	b.mu.RLock()
	ch, ok := b.channels[name]
	var subs []*subscription
	if ok {
		subs = make([]*subscription, len(ch.subs))
		copy(subs, ch.subs)
	}
	b.mu.RUnlock()

	for _, sub := range subs {
		b.enqueue(name, sub, queuedEvent{ctx: ctx, event: event})
	}
}

// enqueue appends the event to the subscription's queue and starts a drain
// goroutine if none is running.
func (b *Broker) enqueue(name string, sub *subscription, qe queuedEvent) {
	sub.mu.Lock()
	sub.pending = append(sub.pending, qe)
	if sub.draining {
		sub.mu.Unlock()
		return
	}
	sub.draining = true
	sub.mu.Unlock()

	b.wg.Add(1)
	go b.drain(name, sub)
}

// drain delivers queued events one at a time until the queue empties.
func (b *Broker) drain(name string, sub *subscription) {
	defer b.wg.Done()
	for {
		sub.mu.Lock()
		if len(sub.pending) == 0 {
			sub.draining = false
			sub.mu.Unlock()
			return
		}
		next := sub.pending[0]
		sub.pending = sub.pending[1:]
		sub.mu.Unlock()

		b.invoke(name, sub, next)
	}
}

func (b *Broker) invoke(name string, sub *subscription, qe queuedEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("broadcast handler panicked",
				"channel", name,
				"status", string(qe.event.Status),
				"panic", r,
			)
		}
	}()
	sub.handler(qe.ctx, qe.event)
}

// Subscribe registers a handler on the named channel and returns an
// unsubscribe function. The first subscriber closes the channel's ready
// signal.
func (b *Broker) Subscribe(name string, handler domain.TypingHandler) func() {
	id := b.nextID.Add(1)

	b.mu.Lock()
	ch := b.channelLocked(name)
	ch.subs = append(ch.subs, &subscription{id: id, handler: handler})
	ch.readyOnce.Do(func() { close(ch.ready) })
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		cur, ok := b.channels[name]
		if !ok {
			return
		}
		for i, sub := range cur.subs {
			if sub.id == id {
				cur.subs = append(cur.subs[:i], cur.subs[i+1:]...)
				return
			}
		}
	}
}

// Ready returns a signal closed once the named channel has at least one
// subscriber. The channel is created if it does not exist yet so callers
// can wait before the subscriber arrives.
func (b *Broker) Ready(name string) <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.channelLocked(name).ready
}

// Remove tears down the named channel and drops its subscribers. Events
// already queued keep draining. Removing a missing channel is a no-op.
func (b *Broker) Remove(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.channels, name)
}

// Close marks the broker closed and waits for in-flight handlers.
// Close is idempotent.
func (b *Broker) Close() {
	if b.closed.Swap(true) {
		return
	}
	b.wg.Wait()
}
