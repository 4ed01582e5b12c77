// Package dispatch provides the worker pool that carries every blocking OS
// call made on behalf of a running process: stream reads and writes, kill
// syscalls and wait-for-exit. The channel-driven engine never blocks on the
// OS directly; it only exchanges data with pool workers through channels.
package dispatch

import "github.com/sourcegraph/conc"

// Pool is an unbounded executor with no idle timeout: every submitted task
// gets its own goroutine immediately and runs until it returns. A pool is
// constructor-injected into each component that performs blocking work and
// lives for the duration of its owner's run; it is never a package-level
// singleton.
type Pool struct {
	wg conc.WaitGroup
}

// New returns an empty pool.
func New() *Pool {
	return &Pool{}
}

// Go schedules fn on a dedicated worker goroutine.
func (p *Pool) Go(fn func()) {
	p.wg.Go(fn)
}

// Wait blocks until every scheduled task has returned. Panics raised by
// tasks are collected and re-panicked here.
func (p *Pool) Wait() {
	p.wg.Wait()
}
