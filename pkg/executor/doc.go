// Package executor holds the baseline executors the scheduler is compared
// against: Serial runs tasks one after the other, PerTask spawns one
// goroutine per task and joins them in submission order.
package executor
