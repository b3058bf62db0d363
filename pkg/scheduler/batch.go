package scheduler

import (
	"context"
	"sync"

	"github.com/tupyy/taskcore/internal/models"
	"github.com/tupyy/taskcore/pkg/channel"
)

// Run submits one task per input and waits for all of them. The task id of
// inputs[i] is i and its result lands in slot i, written once by the worker
// that ran it. A batch is admitted as a whole: if the scheduler is closed or
// the batch does not fit under the pending cap, nothing runs and the error
// is returned.
func Run[I, O any](ctx context.Context, s *Scheduler, inputs []I, fn TaskFunc[I, O]) ([]models.Result[O], error) {
	results := make([]models.Result[O], len(inputs))

	var done sync.WaitGroup
	jobs := make([]*job, len(inputs))
	for i, in := range inputs {
		jobs[i] = s.newJob(ctx, i, bind(in, fn), func(r models.Result[any]) {
			results[i] = typed[O](r)
			done.Done()
		})
	}

	done.Add(len(jobs))
	if err := s.enqueue(jobs...); err != nil {
		for _, j := range jobs {
			s.reject(j)
		}
		return nil, err
	}
	done.Wait()

	return results, nil
}

// Stream is like Run but publishes every result through a channel as soon
// as its task finishes. The receiver observes end-of-stream after the last
// result. Closing the receiver early drops the remaining results; the tasks
// still run.
func Stream[I, O any](ctx context.Context, s *Scheduler, inputs []I, fn TaskFunc[I, O]) (*channel.Receiver[models.Result[O]], error) {
	tx, rx := channel.New[models.Result[O]]()
	defer tx.Close()

	senders := make([]*channel.Sender[models.Result[O]], len(inputs))
	jobs := make([]*job, len(inputs))
	for i, in := range inputs {
		txi := tx.Clone()
		senders[i] = txi
		jobs[i] = s.newJob(ctx, i, bind(in, fn), func(r models.Result[any]) {
			defer txi.Close()
			_ = txi.Send(typed[O](r))
		})
	}

	if err := s.enqueue(jobs...); err != nil {
		for i, j := range jobs {
			s.reject(j)
			senders[i].Close()
		}
		rx.Close()
		return nil, err
	}

	return rx, nil
}

func bind[I, O any](in I, fn TaskFunc[I, O]) Work[any] {
	return func(ctx context.Context) (any, error) {
		return fn(ctx, in)
	}
}

func typed[O any](r models.Result[any]) models.Result[O] {
	out := models.Result[O]{TaskID: r.TaskID, Err: r.Err}
	if r.Err == nil {
		out.Data, _ = r.Data.(O)
	}
	return out
}
