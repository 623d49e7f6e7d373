package feedbin

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is the terminal outcome for HTTP 401. It is never retried
// and must invalidate the cached client instance so the next sync
// re-authenticates with fresh credentials.
var ErrUnauthorized = errors.New("feedbin: unauthorized")

// StatusError is a non-2xx response other than 401, carrying the status
// code and raw body for diagnostics.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("feedbin: HTTP %d: %s", e.Code, e.Body)
}

// Retriable implements retry.Classifier: server-side failures and rate
// limiting are worth another attempt, other client errors are not.
func (e *StatusError) Retriable() bool {
	return e.Code >= 500 || e.Code == 429
}
