package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osse101/ChannelPointsMiner_Go/internal/testing/leaktest"
)

type testJob struct {
	executed *int32
}

func (j *testJob) Process(ctx context.Context) error {
	atomic.AddInt32(j.executed, 1)
	return nil
}

func TestPool(t *testing.T) {
	var executed int32
	pool := NewPool(TestWorkerCount, TestQueueSize)
	pool.Start(context.Background())

	job := &testJob{executed: &executed}
	require.True(t, pool.Enqueue(job))
	require.True(t, pool.Enqueue(job))

	require.NoError(t, pool.Stop(context.Background()))

	assert.Equal(t, int32(TestExpectedJobCount), atomic.LoadInt32(&executed), "Stop drains accepted jobs")
	processed, failed, dropped := pool.Stats()
	assert.Equal(t, int64(2), processed)
	assert.Zero(t, failed)
	assert.Zero(t, dropped)
}

func TestPool_EnqueueAfterStop(t *testing.T) {
	pool := NewPool(1, 1)
	pool.Start(context.Background())
	require.NoError(t, pool.Stop(context.Background()))
	require.NoError(t, pool.Stop(context.Background()), "Stop is idempotent")

	assert.False(t, pool.Enqueue(JobFunc(func(context.Context) error { return nil })))
}

func TestPool_QueueFullDrops(t *testing.T) {
	pool := NewPool(1, 1)
	release := make(chan struct{})
	started := make(chan struct{})
	pool.Start(context.Background())
	defer func() {
		close(release)
		_ = pool.Stop(context.Background())
	}()

	blocking := JobFunc(func(context.Context) error {
		close(started)
		<-release
		return nil
	})
	require.True(t, pool.Enqueue(blocking))
	<-started

	noop := JobFunc(func(context.Context) error { return nil })
	require.True(t, pool.Enqueue(noop), "One slot in the queue")
	assert.False(t, pool.Enqueue(noop), "Queue is full")

	_, _, dropped := pool.Stats()
	assert.Equal(t, int64(1), dropped)
}

func TestPool_FailuresAndPanicsAreContained(t *testing.T) {
	pool := NewPool(1, 4)
	pool.Start(context.Background())

	pool.Enqueue(JobFunc(func(context.Context) error { return errors.New("boom") }))
	pool.Enqueue(JobFunc(func(context.Context) error { panic("bad job") }))
	var ran atomic.Bool
	pool.Enqueue(JobFunc(func(context.Context) error { ran.Store(true); return nil }))

	require.NoError(t, pool.Stop(context.Background()))
	assert.True(t, ran.Load(), "Worker survives a panicking job")
	processed, failed, _ := pool.Stats()
	assert.Equal(t, int64(3), processed)
	assert.Equal(t, int64(2), failed)
}

func TestPool_JobsHaveDeadline(t *testing.T) {
	pool := NewPool(1, 1)
	pool.jobTimeout = 20 * time.Millisecond
	pool.Start(context.Background())

	var deadlineHit atomic.Bool
	pool.Enqueue(JobFunc(func(ctx context.Context) error {
		<-ctx.Done()
		deadlineHit.Store(errors.Is(ctx.Err(), context.DeadlineExceeded))
		return ctx.Err()
	}))

	require.NoError(t, pool.Stop(context.Background()))
	assert.True(t, deadlineHit.Load())
}

func TestPool_StopReleasesWorkers(t *testing.T) {
	leaktest.CheckNoGoroutineLeak(t, func() {
		p := NewPool(4, 8)
		p.Start(context.Background())
		for i := 0; i < 8; i++ {
			p.Enqueue(JobFunc(func(context.Context) error { return nil }))
		}
		require.NoError(t, p.Stop(context.Background()))
	})
}
