// Package httputil provides retry helpers for registry clients.
//
// [Retry] re-runs an operation with exponential backoff when it fails with
// a [RetryableError]:
//
//	err := httputil.Retry(ctx, 3, 500*time.Millisecond, func() error {
//	    return client.Get(ctx, url, &out)
//	})
//
// Clients decide what is transient by wrapping the error: connection
// failures, timeouts, 5xx and 429 responses are retried, a 404 is not.
// A 429 carrying Retry-After overrides the next backoff delay.
package httputil
