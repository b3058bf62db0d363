package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrSchedulerClosed is returned for work submitted after shutdown started.
	ErrSchedulerClosed = errors.New("scheduler is closed")
	// ErrSenderClosed is returned when sending on a dropped sender handle.
	ErrSenderClosed = errors.New("sender handle is closed")
	// ErrReceiverClosed is returned to senders once the receiver is gone.
	ErrReceiverClosed = errors.New("receiver is closed")
	// ErrEmpty is returned by non-blocking receives on an empty, open channel.
	ErrEmpty = errors.New("channel is empty")
	// ErrHandleReleased is returned when a released shared handle is used.
	ErrHandleReleased = errors.New("shared handle is released")
)

// TaskFailureError records the failure of a single task. It never aborts
// sibling tasks.
type TaskFailureError struct {
	TaskID int
	Err    error
}

func NewTaskFailureError(taskID int, err error) *TaskFailureError {
	return &TaskFailureError{TaskID: taskID, Err: err}
}

func (e *TaskFailureError) Error() string {
	return fmt.Sprintf("task %d failed: %v", e.TaskID, e.Err)
}

func (e *TaskFailureError) Unwrap() error {
	return e.Err
}

func IsTaskFailureError(err error) bool {
	var e *TaskFailureError
	return errors.As(err, &e)
}

// WorkerCrashError is produced when a goroutine terminates abnormally while
// running a task. Worker is -1 for executors without a fixed pool.
type WorkerCrashError struct {
	TaskID int
	Worker int
	Panic  any
	Stack  []byte
}

func NewWorkerCrashError(taskID, worker int, rec any, stack []byte) *WorkerCrashError {
	return &WorkerCrashError{TaskID: taskID, Worker: worker, Panic: rec, Stack: stack}
}

func (e *WorkerCrashError) Error() string {
	if e.Worker < 0 {
		return fmt.Sprintf("task %d crashed: %v", e.TaskID, e.Panic)
	}
	return fmt.Sprintf("worker %d crashed on task %d: %v", e.Worker, e.TaskID, e.Panic)
}

func IsWorkerCrashError(err error) bool {
	var e *WorkerCrashError
	return errors.As(err, &e)
}

// LockPoisonedError is returned to the next acquirer of a lock whose previous
// holder terminated inside its critical section.
type LockPoisonedError struct{}

func NewLockPoisonedError() *LockPoisonedError {
	return &LockPoisonedError{}
}

func (e *LockPoisonedError) Error() string {
	return "lock poisoned: previous holder terminated inside the critical section"
}

func IsLockPoisonedError(err error) bool {
	var e *LockPoisonedError
	return errors.As(err, &e)
}

// ResourceExhaustedError is fatal to a whole batch.
type ResourceExhaustedError struct {
	Resource  string
	Requested int
	Limit     int
}

func NewResourceExhaustedError(resource string, requested, limit int) *ResourceExhaustedError {
	return &ResourceExhaustedError{Resource: resource, Requested: requested, Limit: limit}
}

func (e *ResourceExhaustedError) Error() string {
	return fmt.Sprintf("%s exhausted: requested %d, limit %d", e.Resource, e.Requested, e.Limit)
}

func IsResourceExhaustedError(err error) bool {
	var e *ResourceExhaustedError
	return errors.As(err, &e)
}
