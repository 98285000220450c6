package httpclient

import (
	"net/http"
	"strconv"
	"time"
)

// ParseRateLimitHeaders reads the conventional Retry-After and
// X-RateLimit-* headers. Retry-After may be either delay-seconds or an
// HTTP date.
func ParseRateLimitHeaders(headers http.Header) RateLimit {
	limit := RateLimit{}

	if ra := headers.Get("Retry-After"); ra != "" {
		if seconds, err := strconv.Atoi(ra); err == nil {
			limit.Wait = time.Duration(seconds) * time.Second
		} else if at, err := http.ParseTime(ra); err == nil {
			limit.Wait = time.Until(at)
		}
	}

	if reset := headers.Get("X-RateLimit-Reset"); reset != "" {
		if ts, err := strconv.ParseInt(reset, 10, 64); err == nil {
			limit.Reset = ts
		}
	}

	if rem := headers.Get("X-RateLimit-Remaining"); rem != "" {
		if n, err := strconv.Atoi(rem); err == nil {
			limit.Remaining = n
		}
	}

	return limit
}
