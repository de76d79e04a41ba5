package integrations

import (
	"errors"
	"net/http"
	"strconv"
	"time"
)

// DefaultTimeout bounds a single HTTP request.
const DefaultTimeout = 10 * time.Second

var (
	// ErrNotFound is returned when a package doesn't exist in the index.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for HTTP failures (timeouts, connection errors, 5xx responses).
	ErrNetwork = errors.New("network error")
)

// NewHTTPClient creates an HTTP client whose requests give up after
// timeout. A non-positive timeout selects [DefaultTimeout].
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// parseRetryAfter reads a Retry-After header given in seconds. HTTP dates
// are converted relative to now.
func parseRetryAfter(v string, now time.Time) int {
	if v == "" {
		return 0
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return n
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return int(d.Round(time.Second) / time.Second)
		}
	}
	return 0
}
