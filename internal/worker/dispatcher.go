package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/fadilmartias/project-evaluator/internal/metrics"
)

var (
	ErrQueueFull = errors.New("worker: queue full")
	ErrClosed    = errors.New("worker: dispatcher closed")
)

// Job is a unit of background work.
type Job interface {
	Execute(ctx context.Context)
}

// JobFunc adapts a function to Job.
type JobFunc func(ctx context.Context)

func (f JobFunc) Execute(ctx context.Context) { f(ctx) }

// Dropper is implemented by jobs that want to hear about being discarded
// unrun after a shutdown deadline.
type Dropper interface {
	Drop(err error)
}

// Dispatcher runs jobs on a fixed set of long-lived workers fed by a
// bounded queue. Enqueue never blocks.
type Dispatcher struct {
	workers    int
	queue      chan Job
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc

	mu      sync.RWMutex
	closed  bool
	started bool

	metrics *metrics.Metrics
	log     *slog.Logger
}

type Option func(*Dispatcher)

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.log = l }
}

func NewDispatcher(workers, queueSize int, opts ...Option) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = workers * 2
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		workers:    workers,
		queue:      make(chan Job, queueSize),
		ctx:        ctx,
		cancelFunc: cancel,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches the workers. Calling it more than once is a no-op.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()
	for job := range d.queue {
		d.metrics.SetQueueDepth(len(d.queue))
		if err := d.ctx.Err(); err != nil {
			d.drop(id, job, err)
			continue
		}
		d.run(id, job)
	}
}

func (d *Dispatcher) drop(id int, job Job, err error) {
	dropper, ok := job.(Dropper)
	if !ok {
		d.log.Warn("background job dropped", "worker", id, "error", err)
		return
	}
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("background job drop panicked", "worker", id, "panic", fmt.Sprint(r))
		}
	}()
	dropper.Drop(err)
}

func (d *Dispatcher) run(id int, job Job) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("background job panicked", "worker", id, "panic", fmt.Sprint(r))
		}
	}()
	job.Execute(d.ctx)
}

// Enqueue hands job to the pool, failing fast with ErrQueueFull when the
// queue is at capacity.
func (d *Dispatcher) Enqueue(job Job) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	select {
	case d.queue <- job:
		d.metrics.SetQueueDepth(len(d.queue))
		return nil
	default:
		d.metrics.JobRejected()
		return ErrQueueFull
	}
}

// Pending reports the number of queued jobs not yet picked up.
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

// Capacity reports how many free slots the queue has.
func (d *Dispatcher) Capacity() int {
	return cap(d.queue) - len(d.queue)
}

// Shutdown stops accepting jobs and waits for queued ones to finish. If ctx
// ends first, running jobs see a cancelled context, the rest are dropped
// (Dropper jobs are told) and ctx's error is returned.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	if !d.started {
		d.started = true
		d.wg.Add(1)
		go d.worker(0)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancelFunc()
		return nil
	case <-ctx.Done():
		d.cancelFunc()
		<-done
		return ctx.Err()
	}
}
