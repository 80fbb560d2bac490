package domain

import (
	"context"
	"time"
)

// SessionState holds the per-conversation fields that survive across turns.
// The supervisor never reads this directly; the turn engine assembles a
// DecisionInput from it on every turn.
type SessionState struct {
	Key           string    `json:"key"`
	PricingIntent bool      `json:"pricing_intent"`
	Origin        string    `json:"origin,omitempty"`
	Destination   string    `json:"destination,omitempty"`
	WeightKg      float64   `json:"weight_kg,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// HasEnoughData reports whether a quote can be computed from the collected
// fields.
func (s *SessionState) HasEnoughData() bool {
	return s.Origin != "" && s.Destination != "" && s.WeightKg > 0
}

// HasPartialAddressData reports whether some, but not all, quote fields have
// been collected.
func (s *SessionState) HasPartialAddressData() bool {
	if s.HasEnoughData() {
		return false
	}
	return s.Origin != "" || s.Destination != "" || s.WeightKg > 0
}

// SessionStore persists session state between turns.
type SessionStore interface {
	// Get returns the state for key, or a fresh zero state if none is stored.
	Get(ctx context.Context, key string) (*SessionState, error)
	// Save upserts the state.
	Save(ctx context.Context, state *SessionState) error
	Close() error
}
