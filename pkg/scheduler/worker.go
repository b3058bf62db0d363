package scheduler

import (
	"math/rand/v2"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/tupyy/taskcore/internal/models"
	srvErrors "github.com/tupyy/taskcore/pkg/errors"
)

type worker struct {
	id       int
	s        *Scheduler
	local    *deque[*job]
	idle     *backoff.ExponentialBackOff
	executed atomic.Uint64
}

func newWorker(id int, s *Scheduler) *worker {
	idle := backoff.NewExponentialBackOff()
	idle.InitialInterval = s.opts.idleInitial
	idle.MaxInterval = s.opts.idleMax
	idle.Reset()

	return &worker{
		id:    id,
		s:     s,
		local: &deque[*job]{},
		idle:  idle,
	}
}

func (w *worker) run() {
	defer w.s.wg.Done()

	for {
		if j := w.next(); j != nil {
			w.execute(j)
			w.idle.Reset()
			continue
		}
		// the flag is only raised once every admitted task has finished
		if w.s.shutdown.Load() {
			return
		}
		w.park()
	}
}

// next looks for a task: own deque first, then a share of the injector,
// then the front of a peer's deque.
func (w *worker) next() *job {
	if j, ok := w.local.PopBack(); ok {
		return j
	}

	if batch := w.s.injector.PopFrontShare(len(w.s.workers), w.s.opts.stealBatch); len(batch) > 0 {
		w.s.stats.injectorPulls.Add(1)
		pullsTotal.WithLabelValues(sourceInjector).Inc()
		if rest := batch[1:]; len(rest) > 0 {
			w.local.PushBack(rest...)
			w.s.notify(len(rest))
		}
		return batch[0]
	}

	return w.steal()
}

func (w *worker) steal() *job {
	n := len(w.s.workers)
	if n < 2 {
		return nil
	}

	start := rand.IntN(n)
	for i := range n {
		victim := w.s.workers[(start+i)%n]
		if victim == w {
			continue
		}
		if j, ok := victim.local.PopFront(); ok {
			w.s.stats.stolen.Add(1)
			pullsTotal.WithLabelValues(sourcePeer).Inc()
			w.s.log.Debugw("task stolen", "task_id", j.id, "worker", w.id, "victim", victim.id)
			return j
		}
	}
	return nil
}

func (w *worker) park() {
	t := time.NewTimer(w.idle.NextBackOff())
	defer t.Stop()

	select {
	case <-w.s.wake:
	case <-w.s.stop:
	case <-t.C:
	}
}

func (w *worker) execute(j *job) {
	if !j.transition(models.TaskStateAssigned) {
		w.s.log.Errorw("task claimed twice", "task_id", j.id, "worker", w.id, "state", j.State())
		return
	}
	j.worker.Store(int32(w.id))

	if err := j.ctx.Err(); err != nil {
		j.transition(models.TaskStateFailed)
		w.record(statusFailed)
		w.s.finish(j, models.Result[any]{TaskID: j.id, Err: srvErrors.NewTaskFailureError(j.id, err)})
		return
	}

	j.transition(models.TaskStateRunning)
	start := time.Now()
	data, err := w.call(j)
	taskDuration.Observe(time.Since(start).Seconds())

	r := models.Result[any]{TaskID: j.id}
	if err != nil {
		j.transition(models.TaskStateFailed)
		w.record(statusFailed)
		r.Err = srvErrors.NewTaskFailureError(j.id, err)
	} else {
		j.transition(models.TaskStateCompleted)
		w.record(statusCompleted)
		r.Data = data
	}
	w.s.finish(j, r)
}

// call runs the task. A panic becomes a WorkerCrashError. If the task calls
// runtime.Goexit the goroutine cannot be saved: the task is failed here and
// a replacement goroutine takes over this worker's deque.
func (w *worker) call(j *job) (data any, err error) {
	returned := false
	defer func() {
		if rec := recover(); rec != nil {
			w.s.log.Errorw("worker recovered from task panic", "task_id", j.id, "worker", w.id, "panic", rec)
			err = srvErrors.NewWorkerCrashError(j.id, w.id, rec, debug.Stack())
			return
		}
		if !returned {
			w.s.log.Errorw("task exited its worker goroutine", "task_id", j.id, "worker", w.id)
			crash := srvErrors.NewWorkerCrashError(j.id, w.id, "goroutine exited", debug.Stack())
			j.transition(models.TaskStateFailed)
			w.record(statusFailed)
			w.s.finish(j, models.Result[any]{TaskID: j.id, Err: srvErrors.NewTaskFailureError(j.id, crash)})

			w.s.wg.Add(1)
			go w.run()
		}
	}()

	data, err = j.fn(j.ctx)
	returned = true
	return data, err
}

func (w *worker) record(status string) {
	w.executed.Add(1)
	if status == statusFailed {
		w.s.stats.failed.Add(1)
	} else {
		w.s.stats.completed.Add(1)
	}
	tasksTotal.WithLabelValues(status).Inc()
}
