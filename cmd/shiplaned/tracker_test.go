package main

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestRunGroup(t *testing.T) {
	t.Run("when tracked runs are in flight, it waits for them before reporting drained", func(t *testing.T) {
		testee := &runGroup{}

		release := make(chan struct{})
		finished := int32(0)
		for range [3]struct{}{} {
			testee.Go(func() {
				<-release
				atomic.AddInt32(&finished, 1)
			})
		}

		go func() {
			time.Sleep(10 * time.Millisecond)
			close(release)
		}()

		if !testee.WaitTimeout(3 * time.Second) {
			t.Fatalf("tracked runs are reported stuck unexpectedly")
		}
		if actual := atomic.LoadInt32(&finished); actual != 3 {
			t.Errorf("drained before runs finished: (actual, expected) = (%d, 3)", actual)
		}
	})

	t.Run("when a run does not finish in time, it gives up after the budget", func(t *testing.T) {
		testee := &runGroup{}

		release := make(chan struct{})
		defer close(release)
		testee.Go(func() { <-release })

		before := time.Now()
		if testee.WaitTimeout(10 * time.Millisecond) {
			t.Errorf("a stuck run is reported drained unexpectedly")
		}
		if waited := time.Since(before); 3*time.Second < waited {
			t.Errorf("waited far past the budget: %s", waited)
		}
	})

	t.Run("when nothing was started, it drains immediately", func(t *testing.T) {
		testee := &runGroup{}
		if !testee.WaitTimeout(time.Millisecond) {
			t.Errorf("an empty group is reported stuck unexpectedly")
		}
	})
}
