package ratelimit

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	count     int64
	windowEnd time.Time
}

// MemoryLimiter is a process-local fixed-window counter. It backs the login
// guard when Redis is unavailable or in single-instance deployments.
type MemoryLimiter struct {
	mu     sync.Mutex
	max    int64
	window time.Duration
	keys   map[string]*memoryEntry

	now func() time.Time // overridable in tests
}

// NewMemoryLimiter builds a limiter allowing max attempts per window.
func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		max:    int64(max),
		window: window,
		keys:   make(map[string]*memoryEntry),
		now:    time.Now,
	}
}

// Attempt records one attempt for key. It never returns an error.
func (l *MemoryLimiter) Attempt(_ context.Context, key string) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.keys[key]
	if !ok || now.After(e.windowEnd) {
		e = &memoryEntry{windowEnd: now.Add(l.window)}
		l.keys[key] = e
		l.pruneLocked(now)
	}
	e.count++
	if e.count > l.max {
		return Result{RetryAfter: e.windowEnd.Sub(now)}, nil
	}
	return Result{Allowed: true, Remaining: l.max - e.count}, nil
}

// pruneLocked drops expired windows so the map does not grow without bound.
// Called on window rollover, with l.mu held.
func (l *MemoryLimiter) pruneLocked(now time.Time) {
	for k, e := range l.keys {
		if now.After(e.windowEnd) {
			delete(l.keys, k)
		}
	}
}
