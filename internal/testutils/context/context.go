package context

import (
	"context"
	"testing"
	"time"
)

// WithTest bounds ctx by the test's own deadline, less one second so
// deferred clean-ups still get to run before the framework kills the
// test.
func WithTest(ctx context.Context, t *testing.T) (context.Context, func()) {
	deadline, ok := t.Deadline()
	if !ok {
		return ctx, func() {}
	}
	return context.WithDeadline(ctx, deadline.Add(-time.Second))
}
