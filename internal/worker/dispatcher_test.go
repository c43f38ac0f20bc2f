package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fadilmartias/project-evaluator/internal/metrics"
)

func TestNewDispatcher_Defaults(t *testing.T) {
	d := NewDispatcher(0, 0)
	assert.Equal(t, 1, d.workers)
	assert.Equal(t, 2, cap(d.queue))

	d = NewDispatcher(4, 16)
	assert.Equal(t, 4, d.workers)
	assert.Equal(t, 16, d.Capacity())
}

func TestDispatcher_RunsAllJobs(t *testing.T) {
	d := NewDispatcher(3, 50)
	d.Start()

	var executed int32
	for i := 0; i < 20; i++ {
		require.NoError(t, d.Enqueue(JobFunc(func(ctx context.Context) {
			atomic.AddInt32(&executed, 1)
		})))
	}

	require.NoError(t, d.Shutdown(context.Background()))
	assert.EqualValues(t, 20, atomic.LoadInt32(&executed))
}

func TestDispatcher_QueueFull(t *testing.T) {
	d := NewDispatcher(1, 1, WithMetrics(metrics.New(prometheus.NewRegistry())))
	// no workers yet, so the single slot stays occupied
	require.NoError(t, d.Enqueue(JobFunc(func(context.Context) {})))
	assert.ErrorIs(t, d.Enqueue(JobFunc(func(context.Context) {})), ErrQueueFull)
	assert.Equal(t, 1, d.Pending())

	require.NoError(t, d.Shutdown(context.Background()))
	assert.Equal(t, 0, d.Pending())
}

func TestDispatcher_EnqueueAfterShutdown(t *testing.T) {
	d := NewDispatcher(1, 1)
	d.Start()
	require.NoError(t, d.Shutdown(context.Background()))
	assert.ErrorIs(t, d.Enqueue(JobFunc(func(context.Context) {})), ErrClosed)
	assert.NoError(t, d.Shutdown(context.Background()), "second shutdown is a no-op")
}

func TestDispatcher_PanicDoesNotKillWorker(t *testing.T) {
	d := NewDispatcher(1, 4)
	d.Start()

	var ran atomic.Bool
	require.NoError(t, d.Enqueue(JobFunc(func(context.Context) { panic("boom") })))
	require.NoError(t, d.Enqueue(JobFunc(func(context.Context) { ran.Store(true) })))

	require.NoError(t, d.Shutdown(context.Background()))
	assert.True(t, ran.Load())
}

func TestDispatcher_ShutdownDeadlineCancelsJobs(t *testing.T) {
	d := NewDispatcher(1, 4)
	d.Start()

	started := make(chan struct{})
	var cancelled atomic.Bool
	require.NoError(t, d.Enqueue(JobFunc(func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		cancelled.Store(true)
	})))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := d.Shutdown(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, cancelled.Load())
}

type recordingJob struct {
	ran     atomic.Bool
	dropped chan error
}

func (j *recordingJob) Execute(context.Context) { j.ran.Store(true) }
func (j *recordingJob) Drop(err error)          { j.dropped <- err }

func TestDispatcher_ShutdownDeadlineReportsDroppedJobs(t *testing.T) {
	d := NewDispatcher(1, 4)
	d.Start()

	started := make(chan struct{})
	require.NoError(t, d.Enqueue(JobFunc(func(ctx context.Context) {
		close(started)
		<-ctx.Done()
	})))
	<-started

	queued := []*recordingJob{
		{dropped: make(chan error, 1)},
		{dropped: make(chan error, 1)},
	}
	for _, j := range queued {
		require.NoError(t, d.Enqueue(j))
	}
	// Plain jobs without Drop are discarded quietly.
	require.NoError(t, d.Enqueue(JobFunc(func(context.Context) { t.Error("dropped job ran") })))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Shutdown(ctx), context.DeadlineExceeded)

	for _, j := range queued {
		select {
		case err := <-j.dropped:
			assert.ErrorIs(t, err, context.Canceled)
		default:
			t.Fatal("queued job was not told it was dropped")
		}
		assert.False(t, j.ran.Load())
	}
}

func TestDispatcher_ConcurrentEnqueue(t *testing.T) {
	d := NewDispatcher(4, 1000)
	d.Start()

	var executed int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = d.Enqueue(JobFunc(func(context.Context) { atomic.AddInt32(&executed, 1) }))
			}
		}()
	}
	wg.Wait()
	require.NoError(t, d.Shutdown(context.Background()))
	assert.EqualValues(t, 500, atomic.LoadInt32(&executed))
}
