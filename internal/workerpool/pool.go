// Package workerpool implements a fixed-size worker pool with a single
// FIFO task queue behind a mutex and condition variable, ported from the
// precursor project's threadpool.h/threadpool.cpp. Workers loop: lock,
// wait while empty, pop, unlock, run.
//
// This pool exists for exactly one purpose in this system: offloading the
// destruction of large sorted sets off the event-loop goroutine (see spec
// §4.5, §4.8, §9 "deferred ownership for async destruction"). A task must
// not touch any state the event loop still owns; by the time a task is
// queued, the keyspace has already forgotten the object being destroyed.
package workerpool

import (
	"sync"
	"sync/atomic"

	"github.com/eric-armendariz/build-redis/internal/metrics"
)

// Task is a unit of work: a plain closure, the Go equivalent of the
// precursor's function-pointer-plus-argument pair.
type Task func()

// Pool is a fixed set of worker goroutines draining one FIFO queue.
type Pool struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	queue    []Task

	// inFlight tracks queued-but-not-yet-completed tasks, for tests and
	// metrics only; the event loop never branches on it, so a plain
	// atomic counter covers it without needing the queue's own mutex.
	inFlight atomic.Int64
}

// New starts numWorkers goroutines and returns the pool. There is no
// shutdown method: like the precursor's thread pool, workers run for the
// lifetime of the process.
func New(numWorkers int) *Pool {
	p := &Pool{}
	p.notEmpty = sync.NewCond(&p.mu)
	for i := 0; i < numWorkers; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	for {
		p.mu.Lock()
		for len(p.queue) == 0 {
			p.notEmpty.Wait()
		}
		task := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		task()
		p.inFlight.Add(-1)
		metrics.WorkerPoolTaskCompleted()
	}
}

// Submit enqueues a task and wakes one worker. It never blocks.
func (p *Pool) Submit(task Task) {
	p.inFlight.Add(1)
	p.mu.Lock()
	p.queue = append(p.queue, task)
	p.mu.Unlock()
	p.notEmpty.Signal()
	metrics.WorkerPoolTaskQueued()
}

// InFlight returns the number of tasks queued or currently executing.
// Exposed for tests and metrics only; the event loop never branches on it.
func (p *Pool) InFlight() int64 {
	return p.inFlight.Load()
}
