// Package scheduler implements a work-stealing worker pool for tasks of
// uneven cost.
//
// The scheduler runs a fixed pool of workers. Work enters through a shared
// injector queue; every worker also owns a local deque. Idle workers help
// busy ones by stealing from their deques, so one expensive task only ties
// up the worker running it.
//
// # Architecture Overview
//
//	┌─────────────────────────────────────────────────────────────────────┐
//	│                           Scheduler                                 │
//	│                                                                     │
//	│       Submit(fn) / Run(inputs) / Stream(inputs)                     │
//	│                               │                                     │
//	│                               ▼                                     │
//	│  ┌─────────────────────────────────────────────────────────┐        │
//	│  │                    Injector (FIFO)                      │        │
//	│  │  [task1] [task2] [task3] ...                            │        │
//	│  └─────────────────────────────────────────────────────────┘        │
//	│         │ share            │ share              │ share             │
//	│         ▼                  ▼                    ▼                   │
//	│  ┌──────────────┐   ┌──────────────┐     ┌──────────────┐           │
//	│  │   Worker 1   │   │   Worker 2   │     │   Worker N   │           │
//	│  │ front ◄─ back│   │ front ◄─ back│     │ front ◄─ back│           │
//	│  └──────────────┘   └──────────────┘     └──────────────┘           │
//	│         ▲   steal (front)  │                                        │
//	│         └──────────────────┘                                        │
//	└─────────────────────────────────────────────────────────────────────┘
//
// # Task Lookup
//
// A worker looks for its next task in this order:
//
//  1. Pop the back of its own deque
//  2. Take a share of the injector (1/N of it, capped by the steal batch),
//     run the first task and push the rest onto its own deque
//  3. Steal from the front of a peer's deque, starting at a random peer
//
// The owner and the thieves work on opposite ends of a deque. Deques are
// coarsely locked and a worker never holds two queue locks at once.
//
// When nothing is found the worker parks for an exponential backoff
// interval, or until a submission wakes it up.
//
// # Task State Machine
//
//	┌─────────┐    ┌──────────┐    ┌─────────┐    ┌───────────┐
//	│ Pending │───►│ Assigned │───►│ Running │───►│ Completed │
//	└─────────┘    └──────────┘    └─────────┘    └───────────┘
//	                     │              │
//	                     │              │         ┌───────────┐
//	                     └──────────────┴────────►│  Failed   │
//	                                              └───────────┘
//
// Assigned tasks go straight to Failed when their context is already done.
// Completed and Failed are terminal and no task returns to Pending.
//
// # Results
//
//   - Submit returns a Future: C() receives exactly one Result, Stop()
//     cancels the task context, State() reports the lifecycle.
//   - Run returns a slice indexed by task id (the input index).
//   - Stream returns a channel.Receiver fed by one sender per task.
//
// # Panic Recovery
//
// A panic inside a task is recovered by the worker and reported as a
// TaskFailureError wrapping a WorkerCrashError. The worker keeps serving.
//
// # Graceful Shutdown
//
// Shutdown(ctx):
//
//  1. Rejects new submissions with ErrSchedulerClosed
//  2. Waits for the injector and every deque to drain and running tasks to
//     finish. Running tasks are never preempted.
//  3. If ctx ends first, cancels task contexts and keeps waiting
//  4. Raises the shutdown flag polled by workers between pulls and joins them
//
// Close() is Shutdown without deadline and is idempotent.
//
// # Usage Example
//
//	sched, err := scheduler.NewScheduler(scheduler.WithWorkers(4))
//	if err != nil {
//	    return err
//	}
//	defer sched.Close()
//
//	results, err := scheduler.Run(ctx, sched, inputs, func(ctx context.Context, in Data) (Output, error) {
//	    return compute(in), nil
//	})
package scheduler
