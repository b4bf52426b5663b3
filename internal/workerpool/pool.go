// Package workerpool provides the single shared worker pool the pipeline's
// hashing stages run on.
//
// Go has no ambient global thread pool, so this package exposes a Pool
// value that the caller constructs once and threads through every stage —
// the "one-shot" guarantee falls out naturally because nothing but the
// top-level orchestrator ever constructs one.
package workerpool

import (
	"fmt"
	"runtime"
)

// Pool bounds concurrent access to a resource (directory reads, file
// hashing) via a counting semaphore, with a constructor that validates
// the requested worker count and applies the runtime.NumCPU() default.
type Pool struct {
	sem  chan struct{}
	size int
}

// New builds a Pool sized to n workers. n == 0 selects runtime.NumCPU()
// as the default. n < 0 is a ConfigError-worthy misconfiguration.
func New(n int) (*Pool, error) {
	if n < 0 {
		return nil, fmt.Errorf("worker count must be >= 0, got %d", n)
	}
	if n == 0 {
		n = runtime.NumCPU()
	}
	return &Pool{sem: make(chan struct{}, n), size: n}, nil
}

// Size returns the configured number of workers.
func (p *Pool) Size() int { return p.size }

// Acquire blocks until a slot is free, then claims it.
func (p *Pool) Acquire() { p.sem <- struct{}{} }

// Release frees a slot, unblocking one waiting Acquire call.
func (p *Pool) Release() { <-p.sem }

// Go runs fn with pool concurrency, blocking until a slot is available and
// releasing it when fn returns. Convenience wrapper over Acquire/Release for
// the common "acquire, do work, release" pattern used by both the Walker
// and the Pipeline's hashing stages.
func (p *Pool) Go(fn func()) {
	p.Acquire()
	defer p.Release()
	fn()
}
