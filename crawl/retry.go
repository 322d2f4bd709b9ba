package crawl

import (
	"context"
	"time"

	"github.com/fwojciec/docingest"
)

// DefaultRetryDelays returns the waits between fetch attempts: 1s, 2s, 4s.
func DefaultRetryDelays() []time.Duration {
	return []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}
}

// Retry calls fn once, then once more after each delay while the error
// is Retryable. The last error is returned when attempts run out. A
// context ending during a wait returns the context error.
func Retry[T any](ctx context.Context, delays []time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if !Retryable(err) || attempt >= len(delays) {
			return zero, err
		}

		timer := time.NewTimer(delays[attempt])
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}

// Retryable reports whether another attempt could succeed. Missing
// pages, invalid requests and cancellations are permanent.
func Retryable(err error) bool {
	switch docingest.ErrorCode(err) {
	case docingest.ENOTFOUND, docingest.EINVALID, docingest.ECANCELED:
		return false
	}
	return true
}
