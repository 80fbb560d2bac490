package domain

import (
	"context"
	"time"
)

// TypingStatus is the coarse lifecycle phase reported while a turn runs.
type TypingStatus string

const (
	TypingThinking TypingStatus = "thinking"
	TypingWorking  TypingStatus = "working"
	TypingDone     TypingStatus = "done"
)

// TypingEvent is one progress update published on a typing channel.
type TypingEvent struct {
	Status    TypingStatus `json:"status"`
	Message   string       `json:"message,omitempty"`
	Worker    string       `json:"worker,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// TypingHandler is a callback invoked for each event on a subscribed channel.
type TypingHandler func(ctx context.Context, event TypingEvent)

// BroadcastTransport is any pub/sub mechanism supporting named channels.
// The core depends only on these four operations.
type BroadcastTransport interface {
	// Publish delivers an event to all current subscribers of channel.
	// Publishing to a channel with no subscribers is a no-op.
	Publish(ctx context.Context, channel string, event TypingEvent)
	// Subscribe registers a handler on channel and returns an unsubscribe
	// function.
	Subscribe(channel string, handler TypingHandler) func()
	// Ready returns a channel closed when the named channel has at least
	// one subscriber. Used for the bounded pre-emit wait.
	Ready(channel string) <-chan struct{}
	// Remove tears down the named channel and drops its subscribers.
	// Remove is idempotent.
	Remove(channel string)
}
