package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cardops/shiplane/pkg/utils/retry"
)

func TestBlocking(t *testing.T) {
	t.Run("when f settles after some retries, it returns the last value", func(t *testing.T) {
		ctx := context.Background()

		calls := 0
		value, err := retry.Blocking(ctx, retry.StaticBackoff(time.Millisecond), func() (int, error) {
			calls += 1
			if calls < 3 {
				return 0, retry.ErrRetry
			}
			return 42, nil
		})

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if value != 42 {
			t.Errorf("unmatch value: (actual, expected) = (%d, %d)", value, 42)
		}
		if calls != 3 {
			t.Errorf("unmatch calls: (actual, expected) = (%d, %d)", calls, 3)
		}
	})

	t.Run("when f returns a non-retry error, it stops immediately", func(t *testing.T) {
		ctx := context.Background()
		expected := errors.New("fatal")

		calls := 0
		_, err := retry.Blocking(ctx, retry.StaticBackoff(time.Millisecond), func() (int, error) {
			calls += 1
			return 0, expected
		})

		if !errors.Is(err, expected) {
			t.Errorf("unmatch error: (actual, expected) = (%v, %v)", err, expected)
		}
		if calls != 1 {
			t.Errorf("unmatch calls: (actual, expected) = (%d, %d)", calls, 1)
		}
	})

	t.Run("when context is done, it returns the context error", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := retry.Blocking(ctx, retry.StaticBackoff(time.Millisecond), func() (int, error) {
			return 0, retry.ErrRetry
		})

		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("unmatch error: (actual, expected) = (%v, %v)", err, context.DeadlineExceeded)
		}
	})
}
