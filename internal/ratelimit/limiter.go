// Package ratelimit provides the brute-force guard in front of login. The
// limiter is injected rather than global so single-instance deployments can
// use the in-memory implementation while multi-instance deployments share
// counters through Redis.
package ratelimit

import "context"
import "time"

// Result is the outcome of one attempt against a limiter key.
type Result struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration // how long until the window resets, when denied
}

// Limiter counts attempts per key inside a fixed window. Attempt records
// the attempt and reports whether it is allowed; counters expire on their
// own once the window elapses.
type Limiter interface {
	Attempt(ctx context.Context, key string) (Result, error)
}
