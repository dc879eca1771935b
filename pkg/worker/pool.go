// Package worker provides a bounded pool for index-addressed data-parallel
// maps. Jobs carry their input index and write results into caller-owned
// slices, so output ordering never depends on scheduling.
package worker

import (
	"runtime"
	"sync"
)

type task struct {
	index int
	run   func(int)
	done  *sync.WaitGroup
}

// Pool manages a fixed set of workers consuming indexed tasks.
type Pool struct {
	jobs     chan task
	shutdown chan struct{}
	workers  int
	wg       sync.WaitGroup
	once     sync.Once
}

// New creates a pool with the given worker count. Non-positive counts fall
// back to the number of CPUs.
func New(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	p := &Pool{
		jobs:     make(chan task, workers*2),
		shutdown: make(chan struct{}),
		workers:  workers,
	}
	p.start()
	return p
}

func (p *Pool) start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case t := <-p.jobs:
			t.run(t.index)
			t.done.Done()
		case <-p.shutdown:
			return
		}
	}
}

// Map runs fn(i) for every i in [0, n) on the pool and blocks until all
// calls return. fn must be safe to call concurrently for distinct indices.
func (p *Pool) Map(n int, fn func(i int)) {
	if n <= 0 {
		return
	}
	var done sync.WaitGroup
	done.Add(n)
	for i := 0; i < n; i++ {
		p.jobs <- task{index: i, run: fn, done: &done}
	}
	done.Wait()
}

// Workers reports the pool size.
func (p *Pool) Workers() int {
	return p.workers
}

// Shutdown stops the workers. Pending Map calls must have returned.
func (p *Pool) Shutdown() {
	p.once.Do(func() {
		close(p.shutdown)
	})
	p.wg.Wait()
}
