package scheduler

import (
	"context"
	"sync/atomic"

	"github.com/tupyy/taskcore/internal/models"
)

// Work is the function run by a worker for a task submitted with Submit.
type Work[T any] func(ctx context.Context) (T, error)

// TaskFunc computes one input of a batch submitted with Run or Stream.
type TaskFunc[I, O any] func(ctx context.Context, in I) (O, error)

type job struct {
	id      int
	ctx     context.Context
	cancel  context.CancelFunc
	fn      Work[any]
	deliver func(models.Result[any])
	state   atomic.Value // models.TaskState
	worker  atomic.Int32
}

// transition moves the job along the task state machine. It returns false
// if the move is not allowed from the current state.
func (j *job) transition(to models.TaskState) bool {
	for {
		from := j.State()
		if !models.CanTransition(from, to) {
			return false
		}
		if j.state.CompareAndSwap(from, to) {
			return true
		}
	}
}

func (j *job) State() models.TaskState {
	return j.state.Load().(models.TaskState)
}

// Worker returns the id of the worker that claimed the job, or -1.
func (j *job) Worker() int {
	return int(j.worker.Load())
}

// Stats is a snapshot of scheduler counters.
type Stats struct {
	Submitted     uint64
	Completed     uint64
	Failed        uint64
	Stolen        uint64
	InjectorPulls uint64
	// Executed holds the number of tasks run by each worker.
	Executed []uint64
}

type counters struct {
	submitted     atomic.Uint64
	completed     atomic.Uint64
	failed        atomic.Uint64
	stolen        atomic.Uint64
	injectorPulls atomic.Uint64
}
