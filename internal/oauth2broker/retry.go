package oauth2broker

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// retryPolicy is the upstream-provider retry contract decided in
// SPEC_FULL.md §13.2: exponential backoff with jitter, three attempts,
// 500ms initial interval, 5s ceiling, applied only to the refresh-token
// call in Upstream.refresh (never to the user-initiated authorize/callback path).
func retryPolicy() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 500 * time.Millisecond
	eb.MaxInterval = 5 * time.Second
	eb.MaxElapsedTime = 0
	return backoff.WithMaxRetries(eb, 2)
}
