package scheduler

import "sync"

// deque is a coarsely locked double-ended queue. The owning worker pushes
// and pops at the back; thieves and the injector drain from the front.
type deque[T any] struct {
	mu    sync.Mutex
	items []T
	head  int
}

func (d *deque[T]) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.items) - d.head
}

func (d *deque[T]) PushBack(items ...T) {
	d.mu.Lock()
	d.items = append(d.items, items...)
	d.mu.Unlock()
}

func (d *deque[T]) PopBack() (T, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var zero T
	if len(d.items) == d.head {
		return zero, false
	}
	n := len(d.items) - 1
	x := d.items[n]
	d.items[n] = zero
	d.items = d.items[:n]
	d.reset()
	return x, true
}

func (d *deque[T]) PopFront() (T, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var zero T
	if len(d.items) == d.head {
		return zero, false
	}
	x := d.items[d.head]
	d.items[d.head] = zero
	d.head++
	d.reset()
	return x, true
}

// PopFrontShare removes a 1/parts share of the queue from the front, at
// least one item and at most limit.
func (d *deque[T]) PopFrontShare(parts, limit int) []T {
	d.mu.Lock()
	defer d.mu.Unlock()

	size := len(d.items) - d.head
	if size == 0 {
		return nil
	}
	n := (size + parts - 1) / parts
	n = min(max(n, 1), limit)

	out := make([]T, n)
	copy(out, d.items[d.head:d.head+n])
	clear(d.items[d.head : d.head+n])
	d.head += n
	d.reset()
	return out
}

func (d *deque[T]) reset() {
	switch {
	case d.head == len(d.items):
		d.items = d.items[:0]
		d.head = 0
	case d.head > 64 && d.head*2 >= len(d.items):
		n := copy(d.items, d.items[d.head:])
		clear(d.items[n:])
		d.items = d.items[:n]
		d.head = 0
	}
}
