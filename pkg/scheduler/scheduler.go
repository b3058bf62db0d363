package scheduler

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tupyy/taskcore/internal/models"
	srvErrors "github.com/tupyy/taskcore/pkg/errors"
)

type Scheduler struct {
	id       string
	opts     options
	log      *zap.SugaredLogger
	injector *deque[*job]
	workers  []*worker
	wake     chan struct{}
	stop     chan struct{}

	// mu guards closed and the pending counter against concurrent Shutdown.
	mu       sync.Mutex
	closed   bool
	pending  sync.WaitGroup
	inflight atomic.Int64
	shutdown atomic.Bool
	nextID   atomic.Int64
	stats    counters

	mainCtx     context.Context
	mainCancel  context.CancelFunc
	wg          sync.WaitGroup
	once        sync.Once
	shutdownErr error
}

// NewScheduler starts a pool of workers. See the Option functions for the
// defaults.
func NewScheduler(opts ...Option) (*Scheduler, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	log := o.logger
	if log == nil {
		log = zap.S().Named("scheduler")
	}
	log = log.With("scheduler_id", id)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		id:         id,
		opts:       o,
		log:        log,
		injector:   &deque[*job]{},
		workers:    make([]*worker, o.workers),
		wake:       make(chan struct{}, o.workers),
		stop:       make(chan struct{}),
		mainCtx:    ctx,
		mainCancel: cancel,
	}
	for i := range s.workers {
		s.workers[i] = newWorker(i, s)
	}
	for _, w := range s.workers {
		s.wg.Add(1)
		go w.run()
	}
	activeWorkers.Add(float64(o.workers))

	log.Infow("scheduler started", "workers", o.workers, "max_pending", o.maxPending)
	return s, nil
}

func (s *Scheduler) ID() string {
	return s.id
}

// Workers returns the pool size.
func (s *Scheduler) Workers() int {
	return len(s.workers)
}

// Submit queues w and returns its completion handle. The future receives
// exactly one result. Once shutdown started, or when the pending cap is
// reached, the future resolves immediately with the error.
func (s *Scheduler) Submit(w Work[any]) *models.Future[models.Result[any]] {
	c := make(chan models.Result[any], 1)
	id := int(s.nextID.Add(1) - 1)

	j := s.newJob(s.mainCtx, id, w, func(r models.Result[any]) {
		c <- r
	})
	if err := s.enqueue(j); err != nil {
		s.reject(j)
		c <- models.Result[any]{TaskID: id, Err: err}
	}

	return models.NewFuture(id, c, j.cancel, j.State)
}

// Shutdown stops accepting work, waits for every queued and running task to
// finish and joins the workers. Running tasks are never preempted. If ctx
// ends first, task contexts are cancelled and ctx.Err() is returned once the
// pool has drained.
//
// Shutdown must not be called from inside a task.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		s.log.Infow("shutting down", "pending", s.inflight.Load())

		drained := make(chan struct{})
		go func() {
			s.pending.Wait()
			close(drained)
		}()

		select {
		case <-drained:
		case <-ctx.Done():
			s.shutdownErr = ctx.Err()
			s.log.Warnw("shutdown deadline reached, cancelling tasks", "pending", s.inflight.Load())
			s.mainCancel()
			<-drained
		}

		s.shutdown.Store(true)
		close(s.stop)
		s.wg.Wait()
		s.mainCancel()
		activeWorkers.Sub(float64(len(s.workers)))

		st := s.Stats()
		s.log.Infow("scheduler stopped", "completed", st.Completed, "failed", st.Failed, "stolen", st.Stolen)
	})
	return s.shutdownErr
}

// Close is Shutdown without a deadline. It is idempotent.
func (s *Scheduler) Close() {
	_ = s.Shutdown(context.Background())
}

func (s *Scheduler) Stats() Stats {
	st := Stats{
		Submitted:     s.stats.submitted.Load(),
		Completed:     s.stats.completed.Load(),
		Failed:        s.stats.failed.Load(),
		Stolen:        s.stats.stolen.Load(),
		InjectorPulls: s.stats.injectorPulls.Load(),
		Executed:      make([]uint64, len(s.workers)),
	}
	for i, w := range s.workers {
		st.Executed[i] = w.executed.Load()
	}
	return st
}

func (s *Scheduler) newJob(parent context.Context, id int, fn Work[any], deliver func(models.Result[any])) *job {
	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(s.mainCtx, cancel)

	j := &job{
		id:  id,
		ctx: ctx,
		cancel: func() {
			stop()
			cancel()
		},
		fn:      fn,
		deliver: deliver,
	}
	j.state.Store(models.TaskStatePending)
	j.worker.Store(-1)
	return j
}

// enqueue admits jobs as a whole or not at all.
func (s *Scheduler) enqueue(jobs ...*job) error {
	n := len(jobs)
	if n == 0 {
		return nil
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return srvErrors.ErrSchedulerClosed
	}
	if s.opts.maxPending > 0 {
		if want := int(s.inflight.Load()) + n; want > s.opts.maxPending {
			s.mu.Unlock()
			return srvErrors.NewResourceExhaustedError("pending tasks", want, s.opts.maxPending)
		}
	}
	s.inflight.Add(int64(n))
	s.pending.Add(n)
	s.mu.Unlock()

	s.injector.PushBack(jobs...)
	s.stats.submitted.Add(uint64(n))
	pendingTasks.Add(float64(n))
	s.notify(n)
	return nil
}

// reject marks a job that was never admitted.
func (s *Scheduler) reject(j *job) {
	j.state.Store(models.TaskStateFailed)
	j.cancel()
}

func (s *Scheduler) finish(j *job, r models.Result[any]) {
	j.deliver(r)
	j.cancel()
	s.inflight.Add(-1)
	pendingTasks.Dec()
	s.pending.Done()
}

// notify wakes up to n parked workers.
func (s *Scheduler) notify(n int) {
	for range min(n, len(s.workers)) {
		select {
		case s.wake <- struct{}{}:
		default:
			return
		}
	}
}
