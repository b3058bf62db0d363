package executor

import (
	"context"
	"runtime/debug"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tupyy/taskcore/internal/models"
	srvErrors "github.com/tupyy/taskcore/pkg/errors"
)

// Func computes the output of one task.
type Func[I, O any] func(ctx context.Context, in I) (O, error)

// PerTask starts one goroutine per input right away and joins them all.
// Results are returned in submission order: slot i holds task i, whatever
// the completion order was. A failing or panicking task only affects its
// own slot.
//
// There is no bound on the number of goroutines, so a large input slice
// oversubscribes the host. Use the scheduler for that.
func PerTask[I, O any](ctx context.Context, inputs []I, fn Func[I, O]) []models.Result[O] {
	results := make([]models.Result[O], len(inputs))

	var g errgroup.Group
	for i, in := range inputs {
		g.Go(func() error {
			call(ctx, i, in, fn, &results[i])
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Serial computes every task on the calling goroutine, in order. A task
// calling runtime.Goexit ends the caller's goroutine as well.
func Serial[I, O any](ctx context.Context, inputs []I, fn Func[I, O]) []models.Result[O] {
	results := make([]models.Result[O], len(inputs))
	for i, in := range inputs {
		call(ctx, i, in, fn, &results[i])
	}
	return results
}

// call writes the outcome of fn into r. A panic, or a runtime.Goexit that
// skips the normal return, becomes a WorkerCrashError in r.
func call[I, O any](ctx context.Context, id int, in I, fn Func[I, O], r *models.Result[O]) {
	r.TaskID = id

	returned := false
	defer func() {
		rec := recover()
		switch {
		case rec != nil:
			zap.S().Named("executor").Errorw("task panicked", "task_id", id, "panic", rec)
			r.Err = srvErrors.NewTaskFailureError(id, srvErrors.NewWorkerCrashError(id, -1, rec, debug.Stack()))
		case !returned:
			zap.S().Named("executor").Errorw("task exited its goroutine", "task_id", id)
			r.Err = srvErrors.NewTaskFailureError(id, srvErrors.NewWorkerCrashError(id, -1, "goroutine exited", debug.Stack()))
		}
	}()

	out, err := fn(ctx, in)
	returned = true
	if err != nil {
		r.Err = srvErrors.NewTaskFailureError(id, err)
		return
	}
	r.Data = out
}
