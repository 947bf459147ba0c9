package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/osse101/ChannelPointsMiner_Go/internal/logger"
)

// Job represents a task to be executed by a worker
type Job interface {
	Process(ctx context.Context) error
}

// JobFunc adapts a function to Job.
type JobFunc func(ctx context.Context) error

// Process calls f.
func (f JobFunc) Process(ctx context.Context) error { return f(ctx) }

// Pool runs jobs on a fixed number of goroutines. Enqueue never blocks.
type Pool struct {
	workers    int
	jobTimeout time.Duration
	jobQueue   chan Job
	wg         sync.WaitGroup
	quit       chan struct{}
	ctx        context.Context

	mu      sync.RWMutex
	stopped bool

	processed atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

// NewPool creates a new worker pool
func NewPool(workers int, queueSize int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		workers:    workers,
		jobTimeout: DefaultJobTimeout,
		jobQueue:   make(chan Job, queueSize),
		quit:       make(chan struct{}),
		ctx:        context.Background(),
	}
}

// Start starts the workers. Jobs inherit ctx values, not its cancellation.
func (p *Pool) Start(ctx context.Context) {
	p.ctx = context.WithoutCancel(ctx)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case job := <-p.jobQueue:
			p.run(job)
		case <-p.quit:
			// finish what was already accepted
			for {
				select {
				case job := <-p.jobQueue:
					p.run(job)
				default:
					return
				}
			}
		}
	}
}

func (p *Pool) run(job Job) {
	ctx, cancel := context.WithTimeout(p.ctx, p.jobTimeout)
	defer cancel()
	log := logger.FromContext(ctx)

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error(LogMsgWorkerPanic, "panic", r)
				err = fmt.Errorf("job panicked: %v", r)
			}
		}()
		return job.Process(ctx)
	}()

	p.processed.Add(1)
	if err != nil {
		p.failed.Add(1)
		log.Error(LogMsgWorkerJobFailed, "error", err)
	}
}

// Enqueue adds a job to the queue. It returns false when the queue is full
// or the pool is stopped.
func (p *Pool) Enqueue(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return false
	}
	select {
	case p.jobQueue <- job:
		return true
	default:
		p.dropped.Add(1)
		logger.FromContext(p.ctx).Warn(LogMsgWorkerQueueFull, "queue_size", cap(p.jobQueue))
		return false
	}
}

// Stats returns processed, failed and dropped job counts.
func (p *Pool) Stats() (processed, failed, dropped int64) {
	return p.processed.Load(), p.failed.Load(), p.dropped.Load()
}

// Stop refuses new jobs, drains the queue and waits for the workers,
// bounded by ctx. Later calls return nil.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	close(p.quit)
	p.mu.Unlock()

	logger.FromContext(ctx).Info(LogMsgWorkerPoolStop)
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		logger.FromContext(ctx).Warn(LogMsgWorkerPoolTimeout)
		return ctx.Err()
	}
}
