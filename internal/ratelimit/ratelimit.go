// Package ratelimit provides the shared sliding-window admission gate
// applied before any tool logic runs.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter admits at most maxRequests calls per trailing window. It is a
// single global gate shared by every tool and caller, not a per-user one.
// Safe for concurrent use.
type Limiter struct {
	maxRequests int
	window      time.Duration

	mu       sync.Mutex
	requests []time.Time

	now func() time.Time // injectable for tests
}

// New creates a limiter admitting maxRequests per window.
func New(maxRequests int, window time.Duration) *Limiter {
	return &Limiter{
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
	}
}

// Allow reports whether one more request may proceed right now. Admitted
// requests are appended to the window; rejected ones leave it untouched.
// Entries older than the window are pruned on every call.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	kept := l.requests[:0]
	for _, t := range l.requests {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	l.requests = kept

	if len(l.requests) < l.maxRequests {
		l.requests = append(l.requests, now)
		return true
	}
	return false
}

// InFlight returns the number of admissions currently inside the window.
func (l *Limiter) InFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.window)
	n := 0
	for _, t := range l.requests {
		if t.After(cutoff) {
			n++
		}
	}
	return n
}
