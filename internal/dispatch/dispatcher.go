// Package dispatch runs the fixed pool of render workers behind a bounded
// task queue.
//
// Concurrency model: at most Workers tasks are in the system at any time. A
// weighted semaphore is acquired by Submit and released once the worker has
// handed the task's final result to the results channel, so the generation
// loop blocks as soon as Workers tasks are outstanding. A worker that panics
// is restarted with a fresh backend and the task goes back on the queue for
// any healthy worker to pick up; the queue has room for it because the
// semaphore caps occupancy at its capacity.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/starford/mintforge/internal/apperr"
	"github.com/starford/mintforge/internal/models"
	"github.com/starford/mintforge/internal/render"
)

// DefaultMaxAttempts is how many times a task may fault before it is
// reported as a WorkerFaultError.
const DefaultMaxAttempts = 2

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("dispatch: closed")

// Options configures a Dispatcher.
type Options struct {
	Workers     int
	MaxAttempts int
	// Factory builds the backend of every (re)started worker.
	Factory render.BackendFactory
	Render  render.Options
	Logger  *slog.Logger
}

// Dispatcher owns the worker pool.
type Dispatcher struct {
	opts    Options
	log     *slog.Logger
	queue   chan *models.EditionTask
	results chan *models.EditionResult
	sem     *semaphore.Weighted

	wg      sync.WaitGroup
	started atomic.Bool
	closed  atomic.Bool
	faults  atomic.Int64
}

// New creates a dispatcher. Workers are started by Start.
func New(opts Options) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Dispatcher{
		opts:    opts,
		log:     opts.Logger,
		queue:   make(chan *models.EditionTask, opts.Workers),
		results: make(chan *models.EditionResult, opts.Workers),
		sem:     semaphore.NewWeighted(int64(opts.Workers)),
	}
}

// Start launches the workers. They stop when ctx is cancelled or after Close.
func (d *Dispatcher) Start(ctx context.Context) {
	if !d.started.CompareAndSwap(false, true) {
		return
	}
	for i := 0; i < d.opts.Workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
	d.log.Debug("dispatch: workers started", slog.Int("workers", d.opts.Workers))
}

// Results is the stream of edition results, in completion order. It is
// closed once every worker has exited.
func (d *Dispatcher) Results() <-chan *models.EditionResult {
	return d.results
}

// Restarts returns how many times a worker was restarted after a fault.
func (d *Dispatcher) Restarts() int64 {
	return d.faults.Load()
}

// Submit queues task, blocking while Workers tasks are already outstanding.
func (d *Dispatcher) Submit(ctx context.Context, task *models.EditionTask) error {
	if d.closed.Load() {
		return ErrClosed
	}
	if err := d.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	select {
	case d.queue <- task:
		return nil
	case <-ctx.Done():
		d.sem.Release(1)
		return ctx.Err()
	}
}

// Close waits for every submitted task to produce its result, then stops the
// workers and closes Results. If ctx ends first the workers are left to exit
// on their own context.
func (d *Dispatcher) Close(ctx context.Context) error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	drained := d.sem.Acquire(ctx, int64(d.opts.Workers))
	if drained == nil {
		close(d.queue)
	}
	go func() {
		d.wg.Wait()
		close(d.results)
	}()
	return drained
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	log := d.log.With(slog.Int("worker", id))
	w := render.NewWorker(d.opts.Factory(), d.opts.Render)

	for {
		var task *models.EditionTask
		select {
		case <-ctx.Done():
			return
		case t, ok := <-d.queue:
			if !ok {
				return
			}
			task = t
		}

		task.Attempt++
		res, err := d.render(ctx, w, task)
		if err != nil {
			var fault *panicError
			if errors.As(err, &fault) {
				d.faults.Add(1)
				log.Error("dispatch: worker fault, restarting",
					slog.Int("edition", task.Edition),
					slog.Int("attempt", task.Attempt),
					slog.String("error", err.Error()))
				w = render.NewWorker(d.opts.Factory(), d.opts.Render)
				if task.Attempt < d.opts.MaxAttempts {
					d.queue <- task
					continue
				}
				err = &apperr.WorkerFaultError{Edition: task.Edition, Attempts: task.Attempt, Cause: err}
			}
			res = &models.EditionResult{Edition: task.Edition, Group: task.Group, DNA: task.DNA, Err: err}
		}

		select {
		case d.results <- res:
			d.sem.Release(1)
		case <-ctx.Done():
			d.sem.Release(1)
			return
		}
	}
}

type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

func (d *Dispatcher) render(ctx context.Context, w *render.Worker, task *models.EditionTask) (res *models.EditionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, &panicError{value: r}
		}
	}()
	return w.Render(ctx, task)
}
