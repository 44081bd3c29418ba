package worker

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// ErrPoolClosed is returned by Submit after Shutdown has begun.
var ErrPoolClosed = errors.New("worker pool is closed")

// WorkerPool runs submitted jobs on a fixed set of goroutines. It is shared
// process wide: created at startup and shut down at teardown.
type WorkerPool struct {
	workers  int
	jobQueue chan func()
	wg       sync.WaitGroup
	once     sync.Once

	mu     sync.RWMutex
	closed bool

	submitted atomic.Int64
	completed atomic.Int64
	active    atomic.Int64
}

// Stats is a snapshot of pool counters.
type Stats struct {
	Workers       int   `json:"workers"`
	TotalJobs     int64 `json:"total_jobs"`
	CompletedJobs int64 `json:"completed_jobs"`
	ActiveWorkers int64 `json:"active_workers"`
}

// NewWorkerPool creates a new worker pool with the specified number of workers
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	return &WorkerPool{
		workers:  workers,
		jobQueue: make(chan func(), workers*2),
	}
}

// Start initializes and starts all workers in the pool
func (wp *WorkerPool) Start() {
	wp.once.Do(func() {
		for i := 0; i < wp.workers; i++ {
			go wp.worker()
		}
	})
}

// worker processes jobs from the job queue
func (wp *WorkerPool) worker() {
	for job := range wp.jobQueue {
		wp.run(job)
	}
}

func (wp *WorkerPool) run(job func()) {
	wp.active.Add(1)
	defer func() {
		wp.active.Add(-1)
		wp.completed.Add(1)
		wp.wg.Done()
	}()
	job()
}

// Submit queues a job, blocking while the queue is full. The pool is
// started on first use.
func (wp *WorkerPool) Submit(job func()) error {
	wp.Start()

	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.closed {
		return ErrPoolClosed
	}
	wp.wg.Add(1)
	wp.submitted.Add(1)
	wp.jobQueue <- job
	return nil
}

// Wait waits for all submitted jobs to complete
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

// Shutdown stops accepting jobs and waits up to timeout for queued and
// running jobs. It reports false when jobs were still running at the
// deadline; those jobs are abandoned, not interrupted.
func (wp *WorkerPool) Shutdown(timeout time.Duration) bool {
	wp.mu.Lock()
	if !wp.closed {
		wp.closed = true
		close(wp.jobQueue)
	}
	wp.mu.Unlock()

	// drain queued jobs even if Start was never called
	wp.Start()

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Close shuts down the worker pool without waiting.
func (wp *WorkerPool) Close() {
	wp.Shutdown(0)
}

// GetStats returns the current counters.
func (wp *WorkerPool) GetStats() Stats {
	return Stats{
		Workers:       wp.workers,
		TotalJobs:     wp.submitted.Load(),
		CompletedJobs: wp.completed.Load(),
		ActiveWorkers: wp.active.Load(),
	}
}

// Batch groups jobs submitted to a shared pool so a caller can wait for
// its own jobs only.
type Batch struct {
	pool *WorkerPool
	wg   sync.WaitGroup
}

// NewBatch starts a batch on the pool.
func (wp *WorkerPool) NewBatch() *Batch {
	return &Batch{pool: wp}
}

// Submit queues job as part of the batch. A panicking job is reported
// through onPanic instead of crashing the worker.
func (b *Batch) Submit(job func(), onPanic func(recovered any)) error {
	b.wg.Add(1)
	err := b.pool.Submit(func() {
		defer b.wg.Done()
		defer func() {
			if r := recover(); r != nil && onPanic != nil {
				onPanic(r)
			}
		}()
		job()
	})
	if err != nil {
		b.wg.Done()
		return fmt.Errorf("submit batch job: %w", err)
	}
	return nil
}

// Wait blocks until every job of the batch has finished.
func (b *Batch) Wait() {
	b.wg.Wait()
}
