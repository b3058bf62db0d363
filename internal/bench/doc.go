// Package bench is the timing harness that compares the executors on the
// same workload. It is a driver around the core packages and never used by
// them.
package bench
