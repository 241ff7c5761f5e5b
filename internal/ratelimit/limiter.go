// Package ratelimit implements a per-user sliding-window request limiter.
package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Defaults for the mirror request limiter.
const (
	DefaultWindow          = time.Minute
	DefaultMaxRequests     = 5
	DefaultCleanupInterval = 5 * time.Minute
)

// Limiter allows at most maxRequests per user within a trailing window.
// It is safe for concurrent use.
type Limiter struct {
	mu       sync.Mutex
	requests map[int64][]time.Time

	window          time.Duration
	maxRequests     int
	cleanupInterval time.Duration
	now             func() time.Time
	log             *slog.Logger
}

// New creates a Limiter. Non-positive arguments select the package defaults.
func New(window time.Duration, maxRequests int, cleanupInterval time.Duration, log *slog.Logger) *Limiter {
	if window <= 0 {
		window = DefaultWindow
	}
	if maxRequests <= 0 {
		maxRequests = DefaultMaxRequests
	}
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}
	return &Limiter{
		requests:        make(map[int64][]time.Time),
		window:          window,
		maxRequests:     maxRequests,
		cleanupInterval: cleanupInterval,
		now:             time.Now,
		log:             log,
	}
}

// Allow records a request for userID and reports whether it is within the limit.
// A denied request is not recorded.
func (l *Limiter) Allow(userID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	recent := prune(l.requests[userID], now, l.window)
	if len(recent) >= l.maxRequests {
		l.requests[userID] = recent
		return false
	}
	l.requests[userID] = append(recent, now)
	return true
}

// Sweep prunes every user's history and forgets users with none left.
func (l *Limiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for userID, times := range l.requests {
		recent := prune(times, now, l.window)
		if len(recent) == 0 {
			delete(l.requests, userID)
			removed++
			continue
		}
		l.requests[userID] = recent
	}
	if removed > 0 {
		l.log.Debug("rate limiter sweep", "removed", removed, "tracked", len(l.requests))
	}
}

// Run sweeps periodically, blocking until ctx is cancelled.
func (l *Limiter) Run(ctx context.Context) {
	ticker := time.NewTicker(l.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

// tracked returns the number of users with stored history.
func (l *Limiter) tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.requests)
}

// prune drops timestamps at least window old. times is ordered oldest first.
func prune(times []time.Time, now time.Time, window time.Duration) []time.Time {
	i := 0
	for i < len(times) && now.Sub(times[i]) >= window {
		i++
	}
	if i == 0 {
		return times
	}
	return append(times[:0:0], times[i:]...)
}
