package retry

import (
	"context"
	"errors"
	"time"
)

// ErrRetry is the sentinel a polled function returns to mean
// "not settled yet, ask again after backoff".
var ErrRetry = errors.New("retry")

// Backoff blocks until the next attempt is due.
//
// It returns nil to allow the attempt, or ctx.Err() when the context
// wins the wait.
type Backoff func(ctx context.Context) error

// StaticBackoff waits a fixed interval between attempts.
func StaticBackoff(interval time.Duration) Backoff {
	return ExponentialBackoff(interval, 1)
}

// ExponentialBackoff waits initialInterval before the first attempt and
// grows the wait by factor r for each attempt after that.
func ExponentialBackoff(initialInterval time.Duration, r float64) Backoff {
	interval := initialInterval
	return func(ctx context.Context) error {
		timer := time.NewTimer(interval)
		defer func() {
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			interval = time.Duration(int64(float64(interval) * r))
			return nil
		}
	}
}

// Blocking polls f, pacing attempts with b, until f settles.
//
// f settles by returning nil (done) or an error not matching ErrRetry
// (given up). Blocking returns f's last values, or the context error
// when ctx is done before f settles.
func Blocking[T any](ctx context.Context, b Backoff, f func() (T, error)) (T, error) {
	last := *new(T)
	for {
		if err := b(ctx); err != nil {
			return last, err
		}

		var err error
		last, err = f()
		if err == nil {
			return last, nil
		}
		if !errors.Is(err, ErrRetry) {
			return last, err
		}
	}
}
