package ratelimit

import (
	"net/http"
	"strconv"
	"time"
)

// PrincipalFunc extracts the rate-limit key (principal id) from a
// request. Returning "" skips rate limiting (e.g. unauthenticated
// requests, which are handled elsewhere in the auth chain).
type PrincipalFunc func(r *http.Request) string

// Exceeded is called when a request is over its limit, after the
// X-RateLimit-* and Retry-After headers have already been set. It is the
// hook point for a JSON-RPC-shaped 429 vs. a plain HTTP 429 body.
type Exceeded func(w http.ResponseWriter, r *http.Request, retryAfterSeconds int)

// Middleware returns http middleware enforcing config per-principal,
// using principalFn to key buckets and onExceeded to write the 429 body.
func Middleware(config Config, principalFn PrincipalFunc, onExceeded Exceeded) func(http.Handler) http.Handler {
	limiter := NewLimiter(config)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := principalFn(r)
			if principal == "" {
				next.ServeHTTP(w, r)
				return
			}

			allowed, remaining, nextToken, fullReset := limiter.Allow(principal)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(config.MaxRequests))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(fullReset.Unix(), 10))
			w.Header().Set("X-RateLimit-Burst", strconv.Itoa(config.Burst))

			if !allowed {
				retryAfter := int(time.Until(nextToken).Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				onExceeded(w, r, retryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
