// Package shared provides a lock-guarded value behind reference-counted
// handles, for state that several goroutines mutate.
//
// Every goroutine owns a Handle. Clone increments the reference count,
// Release decrements it; the value is released exactly once, when the count
// reaches zero, and never while another handle holds the lock.
//
// Critical sections are closures passed to With. A closure that panics
// poisons the cell: the next With returns a LockPoisonedError instead of
// exposing a value that may be half-updated. The caller then decides to
// abort, or to proceed with WithPoisoned and optionally ClearPoison.
//
//	flag := shared.New(false)
//	h := flag.Clone()
//	go func() {
//	    defer h.Release()
//	    _ = h.With(func(v *bool) { *v = true })
//	}()
package shared
