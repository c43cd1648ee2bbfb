package main

import (
	"sync"
	"time"
)

// runGroup tracks in-flight pipeline runs so shutdown can drain them
// instead of exiting while a deploy or its rollback is mid-flight.
type runGroup struct {
	wg sync.WaitGroup
}

// Go runs task on its own goroutine and tracks it until it returns.
func (g *runGroup) Go(task func()) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		task()
	}()
}

// WaitTimeout blocks until every tracked task has returned, at most
// for budget. It reports whether the group drained in time.
func (g *runGroup) WaitTimeout(budget time.Duration) bool {
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		g.wg.Wait()
	}()

	timer := time.NewTimer(budget)
	defer timer.Stop()
	select {
	case <-drained:
		return true
	case <-timer.C:
		return false
	}
}
