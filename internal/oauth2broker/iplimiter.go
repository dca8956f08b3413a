// Package oauth2broker implements the OAuth2 Broker (C4): the server side
// (dynamic client registration, authorize, token) and the client side
// (upstream provider connections on behalf of users). Grounded on the
// teacher's origin-validation and rate-limiting shapes, extended with
// golang.org/x/oauth2 and golang.org/x/sync/singleflight for the upstream
// half, neither of which the teacher's own codebase needed.
package oauth2broker

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// IPLimiter is a per-IP sliding-window counter, distinct from C7's
// per-principal token bucket (ratelimit.Limiter) because spec §4.4
// mandates sliding-window semantics specifically for these endpoints.
// Adapted from the teacher's internal/httpapi/ratelimit.go bucket
// bookkeeping style (mutex-guarded map, lazy idle sweep) with the
// counting algorithm swapped to a rolling window of timestamps.
type IPLimiter struct {
	mu     sync.Mutex
	window time.Duration
	limit  int
	hits   map[string][]time.Time
}

func NewIPLimiter(limit int, window time.Duration) *IPLimiter {
	return &IPLimiter{
		window: window,
		limit:  limit,
		hits:   make(map[string][]time.Time),
	}
}

// Result carries the header values spec §4.4 requires on both the
// rejecting and the successful response path.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Allow records a hit for ip and reports whether it's within the window
// limit, sweeping entries older than 2x the window lazily on each call
// (spec §4.4: "entries older than 2 x window are swept lazily").
func (l *IPLimiter) Allow(ip string) Result {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-l.window)
	sweepCutoff := now.Add(-2 * l.window)

	kept := l.hits[ip][:0]
	for _, t := range l.hits[ip] {
		if t.After(sweepCutoff) {
			kept = append(kept, t)
		}
	}

	active := 0
	for _, t := range kept {
		if t.After(cutoff) {
			active++
		}
	}

	if active >= l.limit {
		oldest := kept[0]
		for _, t := range kept {
			if t.Before(oldest) {
				oldest = t
			}
		}
		resetAt := oldest.Add(l.window)
		l.hits[ip] = kept
		return Result{
			Allowed:    false,
			Limit:      l.limit,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: resetAt.Sub(now),
		}
	}

	kept = append(kept, now)
	l.hits[ip] = kept

	return Result{
		Allowed:   true,
		Limit:     l.limit,
		Remaining: l.limit - active - 1,
		ResetAt:   now.Add(l.window),
	}
}

// SetHeaders applies the spec §4.4 X-RateLimit-*/Retry-After headers to w.
func (r Result) SetHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(r.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(max(r.Remaining, 0)))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(r.ResetAt.Unix(), 10))
	if !r.Allowed {
		h.Set("Retry-After", strconv.Itoa(int(r.RetryAfter.Seconds())+1))
	}
}
