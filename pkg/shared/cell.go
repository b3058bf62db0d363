package shared

import (
	"sync"
	"sync/atomic"

	srvErrors "github.com/tupyy/taskcore/pkg/errors"
)

type cell[T any] struct {
	mu        sync.Mutex
	value     T
	poisoned  bool
	released  bool
	refs      atomic.Int64
	onRelease func(T)
}

// Option configures a new cell.
type Option[T any] func(*cell[T])

// WithReleaseFunc registers fn to be called with the value when the last
// handle is released. fn runs after the cell lock is dropped, once the cell
// already reports ErrHandleReleased.
func WithReleaseFunc[T any](fn func(T)) Option[T] {
	return func(c *cell[T]) {
		c.onRelease = fn
	}
}

// Handle is one owner of a shared cell. Each goroutine that needs the value
// holds its own handle, obtained with Clone, and releases it when done.
type Handle[T any] struct {
	c       *cell[T]
	dropped atomic.Bool
}

// New wraps v in a cell and returns the first handle.
func New[T any](v T, opts ...Option[T]) *Handle[T] {
	c := &cell[T]{value: v}
	for _, opt := range opts {
		opt(c)
	}
	c.refs.Store(1)
	return &Handle[T]{c: c}
}

// Clone returns a new handle to the same cell. Cloning a released handle
// panics.
func (h *Handle[T]) Clone() *Handle[T] {
	if h.dropped.Load() {
		panic(srvErrors.ErrHandleReleased)
	}
	h.c.refs.Add(1)
	return &Handle[T]{c: h.c}
}

// Release drops the handle. The value is released once, when the last
// handle goes away. Releasing the same handle again is a no-op.
func (h *Handle[T]) Release() {
	if !h.dropped.CompareAndSwap(false, true) {
		return
	}
	if h.c.refs.Add(-1) > 0 {
		return
	}

	c := h.c
	c.mu.Lock()
	v := c.value
	var zero T
	c.value = zero
	c.released = true
	c.mu.Unlock()

	if c.onRelease != nil {
		c.onRelease(v)
	}
}

// RefCount returns the number of live handles.
func (h *Handle[T]) RefCount() int64 {
	return h.c.refs.Load()
}

// With runs fn with exclusive access to the value. If fn panics or exits
// the goroutine, the cell is poisoned and the panic continues. On a
// poisoned cell fn is not run and a LockPoisonedError is returned.
func (h *Handle[T]) With(fn func(v *T)) error {
	return h.with(fn, false)
}

// WithPoisoned is like With but runs fn even if the cell is poisoned. The
// caller accepts that the value may be partially updated.
func (h *Handle[T]) WithPoisoned(fn func(v *T)) error {
	return h.with(fn, true)
}

func (h *Handle[T]) with(fn func(v *T), ignorePoison bool) error {
	if h.dropped.Load() {
		return srvErrors.ErrHandleReleased
	}

	c := h.c
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.released {
		return srvErrors.ErrHandleReleased
	}
	if c.poisoned && !ignorePoison {
		return srvErrors.NewLockPoisonedError()
	}

	completed := false
	defer func() {
		if !completed {
			c.poisoned = true
		}
	}()

	fn(&c.value)
	completed = true
	return nil
}

// Load returns a copy of the value.
func (h *Handle[T]) Load() (T, error) {
	var v T
	err := h.With(func(cur *T) {
		v = *cur
	})
	return v, err
}

// Store replaces the value.
func (h *Handle[T]) Store(v T) error {
	return h.With(func(cur *T) {
		*cur = v
	})
}

func (h *Handle[T]) IsPoisoned() bool {
	h.c.mu.Lock()
	defer h.c.mu.Unlock()
	return h.c.poisoned
}

// ClearPoison marks the cell usable again, typically after the caller
// repaired the value through WithPoisoned.
func (h *Handle[T]) ClearPoison() {
	h.c.mu.Lock()
	defer h.c.mu.Unlock()
	h.c.poisoned = false
}
