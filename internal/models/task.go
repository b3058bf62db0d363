package models

import (
	"cmp"
	"slices"
)

// Task is one unit of submitted work.
type Task[I any] struct {
	ID    int
	Input I
}

// Result holds either the output of a task or its failure.
type Result[T any] struct {
	TaskID int
	Data   T
	Err    error
}

func (r Result[T]) Failed() bool {
	return r.Err != nil
}

// NewTasks numbers inputs by position.
func NewTasks[I any](inputs []I) []Task[I] {
	tasks := make([]Task[I], len(inputs))
	for i, in := range inputs {
		tasks[i] = Task[I]{ID: i, Input: in}
	}
	return tasks
}

// SortByTaskID sorts results in place and returns them.
func SortByTaskID[T any](results []Result[T]) []Result[T] {
	slices.SortFunc(results, func(a, b Result[T]) int {
		return cmp.Compare(a.TaskID, b.TaskID)
	})
	return results
}

// TaskState represents the lifecycle of a task inside the scheduler.
type TaskState string

const (
	// TaskStatePending - submitted, waiting in a queue
	TaskStatePending TaskState = "pending"
	// TaskStateAssigned - claimed by a worker
	TaskStateAssigned TaskState = "assigned"
	// TaskStateRunning - the worker is executing it
	TaskStateRunning TaskState = "running"
	// TaskStateCompleted - finished with a result
	TaskStateCompleted TaskState = "completed"
	// TaskStateFailed - finished with an error
	TaskStateFailed TaskState = "failed"
)

func (s TaskState) Value() string {
	return string(s)
}

func (s TaskState) IsTerminal() bool {
	return s == TaskStateCompleted || s == TaskStateFailed
}

// CanTransition reports whether the state machine allows from -> to.
// Assigned tasks may fail without running when their context is already done.
func CanTransition(from, to TaskState) bool {
	switch from {
	case TaskStatePending:
		return to == TaskStateAssigned
	case TaskStateAssigned:
		return to == TaskStateRunning || to == TaskStateFailed
	case TaskStateRunning:
		return to == TaskStateCompleted || to == TaskStateFailed
	default:
		return false
	}
}
