package tasks

import (
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	pkgerrors "github.com/angelmondragon/kudibooks-backend/pkg/errors"
)

// RetryPolicy schedules failed attempts with jittered exponential backoff.
type RetryPolicy struct {
	Base time.Duration
	Max  time.Duration
}

// Delay returns the wait before the attempt following attempt (1-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.Base
	b.MaxInterval = p.Max
	b.Multiplier = 2
	b.RandomizationFactor = 0.2
	b.MaxElapsedTime = 0
	b.Reset()

	delay := b.NextBackOff()
	for i := 1; i < attempt; i++ {
		delay = b.NextBackOff()
	}
	if delay > p.Max {
		return p.Max
	}
	return delay
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// IsPermanent reports whether a handler error should stop retries.
// Typed errors whose code is not retryable (not found, validation) are permanent.
func IsPermanent(err error) bool {
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return true
	}
	if typed := pkgerrors.As(err); typed != nil {
		return !pkgerrors.MetadataFor(typed.Code()).Retryable
	}
	return false
}
