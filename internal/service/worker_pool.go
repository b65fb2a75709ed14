package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

// ErrPoolClosed is returned when work is submitted after Close.
var ErrPoolClosed = errors.New("worker pool is closed")

// PoolStats is a snapshot of worker pool counters
type PoolStats struct {
	Workers       int   `json:"workers"`
	TotalJobs     int64 `json:"total_jobs"`
	CompletedJobs int64 `json:"completed_jobs"`
	FailedJobs    int64 `json:"failed_jobs"`
	ActiveWorkers int64 `json:"active_workers"`
}

type poolJob struct {
	fn   func() error
	done chan error
}

// WorkerPool bounds the number of CPU-heavy image jobs running at once
type WorkerPool struct {
	workers  int
	jobQueue chan poolJob
	wg       sync.WaitGroup
	once     sync.Once
	mu       sync.RWMutex
	closed   bool

	totalJobs     int64
	completedJobs int64
	failedJobs    int64
	activeWorkers int64
}

// NewWorkerPool creates a new worker pool with the specified number of workers
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	return &WorkerPool{
		workers:  workers,
		jobQueue: make(chan poolJob, workers*2),
	}
}

// Start initializes and starts all workers in the pool
func (wp *WorkerPool) Start() {
	wp.once.Do(func() {
		for i := 0; i < wp.workers; i++ {
			wp.wg.Add(1)
			go wp.worker()
		}
	})
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()
	for job := range wp.jobQueue {
		job.done <- wp.execute(job.fn)
	}
}

func (wp *WorkerPool) execute(fn func() error) (err error) {
	atomic.AddInt64(&wp.activeWorkers, 1)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
		atomic.AddInt64(&wp.activeWorkers, -1)
		if err != nil {
			atomic.AddInt64(&wp.failedJobs, 1)
		} else {
			atomic.AddInt64(&wp.completedJobs, 1)
		}
	}()
	return fn()
}

// Run queues fn and blocks until it has finished or ctx is done. When ctx
// ends first the job still runs to completion in the background but its
// result is discarded.
func (wp *WorkerPool) Run(ctx context.Context, fn func() error) error {
	wp.Start()

	wp.mu.RLock()
	if wp.closed {
		wp.mu.RUnlock()
		return ErrPoolClosed
	}
	job := poolJob{fn: fn, done: make(chan error, 1)}
	select {
	case wp.jobQueue <- job:
		atomic.AddInt64(&wp.totalJobs, 1)
	case <-ctx.Done():
		wp.mu.RUnlock()
		return ctx.Err()
	}
	wp.mu.RUnlock()

	select {
	case err := <-job.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetStats returns current pool counters
func (wp *WorkerPool) GetStats() PoolStats {
	return PoolStats{
		Workers:       wp.workers,
		TotalJobs:     atomic.LoadInt64(&wp.totalJobs),
		CompletedJobs: atomic.LoadInt64(&wp.completedJobs),
		FailedJobs:    atomic.LoadInt64(&wp.failedJobs),
		ActiveWorkers: atomic.LoadInt64(&wp.activeWorkers),
	}
}

// Close stops accepting jobs and waits for queued jobs to drain
func (wp *WorkerPool) Close() {
	wp.mu.Lock()
	if wp.closed {
		wp.mu.Unlock()
		return
	}
	wp.closed = true
	close(wp.jobQueue)
	wp.mu.Unlock()
	wp.wg.Wait()
}
