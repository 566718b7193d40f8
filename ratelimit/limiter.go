// Package ratelimit implements the fixed-window admission counter used to
// throttle message ingestion per caller identity.
package ratelimit

import (
	"sync"
	"time"
)

// entry tracks one identifier's allowance inside its current window.
type entry struct {
	count int
	reset time.Time
}

// Limiter is a fixed-window counter keyed by caller identity. Windows reset
// at fixed boundaries, so a burst straddling a boundary can admit up to
// twice the configured maximum in a short span; accepted for this use case.
// Entries are kept for the lifetime of the process.
type Limiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	now     func() time.Time
	entries map[string]*entry
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New builds a Limiter admitting max requests per identifier within each
// fixed window.
func New(max int, window time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		max:     max,
		window:  window,
		now:     time.Now,
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow reports whether the identifier may proceed, counting the request
// when it does. Check and increment form a single atomic unit, so
// concurrent callers for one identifier cannot both claim the last slot.
// A denied request mutates nothing.
func (l *Limiter) Allow(identifier string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[identifier]
	if !ok {
		l.entries[identifier] = &entry{count: 1, reset: now.Add(l.window)}
		return true
	}
	if now.After(e.reset) {
		e.count = 1
		e.reset = now.Add(l.window)
		return true
	}
	if e.count >= l.max {
		return false
	}
	e.count++
	return true
}

// Size reports how many identifiers are currently tracked.
func (l *Limiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
