// Package scheduler runs jobs on cron schedules through the worker pool.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/osse101/ChannelPointsMiner_Go/internal/worker"
)

// Entry describes one scheduled job.
type Entry struct {
	Name string
	Spec string
	ID   cron.EntryID
}

// Scheduler manages scheduled jobs
type Scheduler struct {
	cron       *cron.Cron
	workerPool *worker.Pool

	mu      sync.Mutex
	entries []Entry
}

// New creates a scheduler that enqueues onto pool. Specs use the standard
// five-field syntax plus descriptors such as "@every 1h".
func New(pool *worker.Pool) *Scheduler {
	return &Scheduler{
		cron:       cron.New(),
		workerPool: pool,
	}
}

// Schedule registers job under name for spec.
func (s *Scheduler) Schedule(name, spec string, job worker.Job) error {
	id, err := s.cron.AddFunc(spec, func() {
		if !s.workerPool.Enqueue(job) {
			slog.Warn("Scheduled job dropped", "job", name)
		}
	})
	if err != nil {
		return fmt.Errorf("register %s job: %w", name, err)
	}

	s.mu.Lock()
	s.entries = append(s.entries, Entry{Name: name, Spec: spec, ID: id})
	s.mu.Unlock()
	return nil
}

// Entries lists the registered jobs in registration order.
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.entries...)
}

// Start starts the cron loop.
func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("Scheduler started", "jobs", len(s.Entries()))
}

// Stop stops scheduling new runs and waits for running triggers, bounded
// by ctx. Jobs already enqueued are left to the worker pool.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		slog.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
