package ratelimit

import (
	"errors"
	"sync"
	"time"
)

var ErrRateLimited = errors.New("rate limited")

// Limiter is a per-key sliding-window counter. Checks are in memory
// and never block on I/O; a denied check tells the caller how long
// until the oldest event slides out of the window.
type Limiter struct {
	window time.Duration
	limit  int

	mu     sync.Mutex
	events map[string][]time.Time

	// now is replaceable in tests
	now func() time.Time
}

func NewLimiter(window time.Duration, limit int) *Limiter {
	return &Limiter{
		window: window,
		limit:  limit,
		events: make(map[string][]time.Time),
		now:    time.Now,
	}
}

// Allow records one event for the key if it fits in the window.
// When denied, retryAfter says how long until a slot frees up.
func (l *Limiter) Allow(key string) (ok bool, retryAfter time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	recent := l.events[key][:0]
	for _, at := range l.events[key] {
		if at.After(cutoff) {
			recent = append(recent, at)
		}
	}

	if len(recent) >= l.limit {
		l.events[key] = recent
		return false, recent[0].Sub(cutoff)
	}

	l.events[key] = append(recent, now)
	return true, 0
}

// Reset clears the key's history.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.events, key)
}

// Prune drops keys whose events have all left the window. Called
// periodically so one-time visitors don't accumulate forever.
func (l *Limiter) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.window)
	pruned := 0
	for key, events := range l.events {
		stale := true
		for _, at := range events {
			if at.After(cutoff) {
				stale = false
				break
			}
		}
		if stale {
			delete(l.events, key)
			pruned++
		}
	}
	return pruned
}
