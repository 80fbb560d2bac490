package usecase

import (
	"sync"

	"golang.org/x/time/rate"

	"freightdesk/internal/infra/config"
)

// ActorLimiter bounds how many turns a single actor may start per minute.
// One token-bucket limiter per actor, created lazily.
type ActorLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewActorLimiter creates a limiter from config.
func NewActorLimiter(cfg config.RateLimitConfig) *ActorLimiter {
	return &ActorLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(float64(cfg.TurnsPerMinute) / 60.0),
		burst:    cfg.Burst,
	}
}

// Allow reports whether the actor may start a turn now.
func (l *ActorLimiter) Allow(actor string) bool {
	l.mu.Lock()
	lim, ok := l.limiters[actor]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[actor] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}
