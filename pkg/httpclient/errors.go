package httpclient

import (
	"fmt"
	"time"
)

// StatusError reports a request that failed with a non-2xx status after the
// client gave up retrying. Wait carries the server-suggested backoff when
// one was advertised.
type StatusError struct {
	Code int
	Wait time.Duration
	Err  error
}

func (e *StatusError) Error() string {
	reason := "request failed"
	if e.Code > 0 {
		reason = fmt.Sprintf("HTTP %d", e.Code)
	}
	if e.Wait > 0 {
		return fmt.Sprintf("%s (retry after %v)", reason, e.Wait)
	}
	return reason
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// Temporary reports whether the failure class is worth retrying later.
func (e *StatusError) Temporary() bool {
	return e.Code == 0 || e.Code == 429 || e.Code >= 500
}
