package retry

import (
	"context"
	"errors"
)

// Classifier is implemented by errors that know whether retrying can help.
// Provider errors implement this to distinguish, for example, an HTTP 503
// (retriable) from an HTTP 401 (terminal).
type Classifier interface {
	Retriable() bool
}

// Permanent marks an error as not worth retrying.
type Permanent struct {
	Err error
}

func (p *Permanent) Error() string { return p.Err.Error() }

func (p *Permanent) Unwrap() error { return p.Err }

// Retriable implements Classifier.
func (p *Permanent) Retriable() bool { return false }

// DefaultRetriable is the allowlist classifier applied when Config.Retriable
// is nil. Cancellation is never retried. Errors implementing Classifier
// decide for themselves; anything else is assumed to be a transient
// transport failure.
func DefaultRetriable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var c Classifier
	if errors.As(err, &c) {
		return c.Retriable()
	}

	return true
}
