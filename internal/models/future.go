package models

import (
	"context"
)

// Future is the completion handle of a submitted task. C receives exactly
// one value.
type Future[T any] struct {
	id     int
	input  chan T
	cancel context.CancelFunc
	state  func() TaskState
}

func NewFuture[T any](id int, input chan T, cancel context.CancelFunc, state func() TaskState) *Future[T] {
	f := &Future[T]{
		id:     id,
		input:  input,
		cancel: cancel,
		state:  state,
	}

	return f
}

func (f *Future[T]) ID() int {
	return f.id
}

func (f *Future[T]) C() chan T {
	return f.input
}

// State reports where the task is in its lifecycle.
func (f *Future[T]) State() TaskState {
	if f.state == nil {
		return TaskStateFailed
	}
	return f.state()
}

// Stop cancels the task's context. A task that has not started yet fails
// without running; a running task sees ctx.Done().
func (f *Future[T]) Stop() {
	f.cancel()
}
